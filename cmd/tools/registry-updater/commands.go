package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"case-assistant/pkg/registry"
)

var (
	addActivity = registry.Activity{}

	updateField string
	updateValue string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new activity to the registry",
	Example: `  registry-updater add --id ask-case-query --display-name "Ask Case Query" \
    --description "Routes a support query" --category case-assistant --task-type ask-case-query`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := addActivity
		if a.ID == "" || a.DisplayName == "" || a.Description == "" || a.Category == "" || a.TaskType == "" {
			return fmt.Errorf("id, display-name, description, category and task-type are required")
		}
		a.InputSchema = map[string]interface{}{}
		a.OutputSchema = map[string]interface{}{}
		a.ErrorCodes = []string{}
		a.Workflows = []string{}
		a.Tags = []string{}

		reg, err := loadOrCreate(registryPath)
		if err != nil {
			return err
		}
		if err := add(reg, a); err != nil {
			return err
		}
		if err := reg.Save(registryPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added activity: %s\n", a.ID)
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:     "update <id>",
	Short:   "Update one field of an existing activity",
	Example: "  registry-updater update compose-case-answer --field status --value completed",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		a, ok := reg.Find(args[0])
		if !ok {
			return fmt.Errorf("activity with ID %s not found", args[0])
		}
		if err := setField(a, updateField, updateValue); err != nil {
			return err
		}
		reg.LastUpdated = time.Now().Format(time.RFC3339)
		if err := reg.Save(registryPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated activity %s, field %s to %s\n", a.ID, updateField, updateValue)
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the registry file and its input schemas",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		if err := reg.Validate(); err != nil {
			return fmt.Errorf("registry validation failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registry validation passed. Found %d activities.\n", len(reg.Activities))
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered activities",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		activities := append([]registry.Activity(nil), reg.Activities...)
		sort.Slice(activities, func(i, j int) bool { return activities[i].ID < activities[j].ID })

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTASK TYPE\tCATEGORY\tSTATUS\tTIMEOUT")
		for _, a := range activities {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.TaskType, a.Category, a.ImplementationStatus, a.Timeout)
		}
		return w.Flush()
	},
}

func init() {
	f := addCmd.Flags()
	f.StringVar(&addActivity.ID, "id", "", "Activity ID (e.g. ask-case-query)")
	f.StringVar(&addActivity.DisplayName, "display-name", "", "Display name")
	f.StringVar(&addActivity.Description, "description", "", "Description")
	f.StringVar(&addActivity.Category, "category", "", "Category (e.g. case-assistant)")
	f.StringVar(&addActivity.TaskType, "task-type", "", "Zeebe task type")
	f.StringVar(&addActivity.Version, "version", "1.0.0", "Version")
	f.StringVar(&addActivity.ImplementationStatus, "status", "planned", "Implementation status (planned, in-progress, completed, verified)")
	f.StringVar(&addActivity.Timeout, "timeout", "10s", "Job timeout")
	f.IntVar(&addActivity.Retries, "retries", 0, "Job retries")

	updateCmd.Flags().StringVar(&updateField, "field", "", "Field to update (status, version, displayName, description, category, taskType, timeout, retries)")
	updateCmd.Flags().StringVar(&updateValue, "value", "", "New value for the field")
	_ = updateCmd.MarkFlagRequired("field")
	_ = updateCmd.MarkFlagRequired("value")
}

// loadOrCreate starts an empty registry when the file does not exist yet.
func loadOrCreate(path string) (*registry.ActivityRegistry, error) {
	reg, err := registry.LoadRegistry(path)
	if err == nil {
		return reg, nil
	}
	if os.IsNotExist(err) {
		return &registry.ActivityRegistry{
			Version:     "1.0.0",
			LastUpdated: time.Now().Format(time.RFC3339),
			Activities:  []registry.Activity{},
		}, nil
	}
	return nil, fmt.Errorf("failed to load registry: %w", err)
}

func add(reg *registry.ActivityRegistry, a registry.Activity) error {
	if _, exists := reg.Find(a.ID); exists {
		return fmt.Errorf("activity with ID %s already exists", a.ID)
	}
	reg.Activities = append(reg.Activities, a)
	reg.LastUpdated = time.Now().Format(time.RFC3339)
	return nil
}

func setField(a *registry.Activity, field, value string) error {
	switch field {
	case "status":
		a.ImplementationStatus = value
	case "version":
		a.Version = value
	case "displayName":
		a.DisplayName = value
	case "description":
		a.Description = value
	case "category":
		a.Category = value
	case "taskType":
		a.TaskType = value
	case "timeout":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid timeout value: %w", err)
		}
		a.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		a.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}
	return nil
}
