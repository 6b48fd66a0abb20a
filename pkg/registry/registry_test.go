package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRegistry() *ActivityRegistry {
	return &ActivityRegistry{
		Version: "1.0.0",
		Activities: []Activity{
			{
				ID:          "ask-case-query",
				DisplayName: "Ask Case Query",
				Category:    "case-assistant",
				TaskType:    "ask-case-query",
				InputSchema: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"query"},
					"properties": map[string]interface{}{
						"query": map[string]interface{}{"type": "string", "minLength": 1},
					},
				},
			},
		},
	}
}

func TestRegistry_SaveLoadFind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "activity-registry.json")
	require.NoError(t, sampleRegistry().Save(path))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)

	a, ok := reg.Find("ask-case-query")
	require.True(t, ok)
	assert.Equal(t, "Ask Case Query", a.DisplayName)

	_, ok = reg.Find("missing")
	assert.False(t, ok)
}

func TestRegistry_Validate(t *testing.T) {
	assert.NoError(t, sampleRegistry().Validate())

	empty := &ActivityRegistry{}
	assert.ErrorContains(t, empty.Validate(), "no activities")

	dup := sampleRegistry()
	dup.Activities = append(dup.Activities, dup.Activities[0])
	assert.ErrorContains(t, dup.Validate(), "duplicate activity ID")

	noCategory := sampleRegistry()
	noCategory.Activities[0].Category = ""
	assert.ErrorContains(t, noCategory.Validate(), "Category")

	badSchema := sampleRegistry()
	badSchema.Activities[0].InputSchema = map[string]interface{}{"type": 42}
	assert.ErrorContains(t, badSchema.Validate(), "invalid input schema")
}

func TestRegistry_ShippedFileIsValid(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join("..", "..", "configs", "activity-registry.json"))
	require.NoError(t, err)
	require.NoError(t, reg.Validate())

	for _, taskType := range []string{"ask-case-query", "reset-case-session", "compose-case-answer", "publish-article-draft"} {
		_, ok := reg.Find(taskType)
		assert.True(t, ok, taskType)
	}
}
