package httpapi

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	apperrors "case-assistant/internal/common/errors"
	"case-assistant/internal/common/validation"
)

var querySchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"query"},
	"properties": map[string]interface{}{
		"query":      map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 4000},
		"session_id": map[string]interface{}{"type": "string", "maxLength": 256},
	},
}

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

type answerRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// decodeBody validates the raw body against schema before filling out.
func decodeBody(c *fiber.Ctx, schema map[string]interface{}, out interface{}) error {
	var doc interface{}
	if err := json.Unmarshal(c.Body(), &doc); err != nil {
		return apperrors.NewInputValidationFailedError("request body is not valid JSON")
	}
	result, err := validation.ValidateAgainstSchema(schema, doc)
	if err != nil {
		return err
	}
	if err := result.Err(); err != nil {
		return err
	}
	if err := json.Unmarshal(c.Body(), out); err != nil {
		return apperrors.NewInputValidationFailedError(err.Error())
	}
	return nil
}

func (s *Server) query(c *fiber.Ctx) error {
	var req queryRequest
	if err := decodeBody(c, querySchema, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), s.timeout)
	defer cancel()

	p := s.router.Handle(ctx, req.Query, req.SessionID)
	return c.JSON(p)
}

// sessionParam copies the id out of fasthttp's request buffer, which is
// reused once the handler returns. The store keeps ids as map keys.
func sessionParam(c *fiber.Ctx) string {
	return utils.CopyString(c.Params("id"))
}

func (s *Server) getSession(c *fiber.Ctx) error {
	return c.JSON(s.router.Session(sessionParam(c)))
}

func (s *Server) resetSession(c *fiber.Ctx) error {
	return c.JSON(s.router.Reset(sessionParam(c)))
}

var answerSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"question", "answer"},
	"properties": map[string]interface{}{
		"question": map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 4000},
		"answer":   map[string]interface{}{"type": "string", "minLength": 1},
	},
}

func (s *Server) recordAnswer(c *fiber.Ctx) error {
	var req answerRequest
	if err := decodeBody(c, answerSchema, &req); err != nil {
		return err
	}

	id := sessionParam(c)
	if !s.router.RecordAnswer(id, req.Question, req.Answer) {
		return apperrors.NewNoOpenQuestionError(id)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) repositoryHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), s.timeout)
	defer cancel()

	report := s.health.Health(ctx)
	status := fiber.StatusOK
	if !report.Healthy {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(report)
}

func (s *Server) liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy"})
}

func (s *Server) readiness(c *fiber.Ctx) error {
	if !s.ready() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready"})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}
