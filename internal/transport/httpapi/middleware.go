package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	apperrors "case-assistant/internal/common/errors"
)

const (
	headerRequestID = "X-Request-ID"
	localRequestID  = "requestId"
)

// requestID keeps a caller-supplied X-Request-ID or mints one.
func requestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(headerRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Locals(localRequestID, id)
		c.Set(headerRequestID, id)
		return c.Next()
	}
}

func requestIDOf(c *fiber.Ctx) string {
	id, _ := c.Locals(localRequestID).(string)
	return id
}

func (s *Server) accessLog() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		fields := map[string]interface{}{
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"durationMs": time.Since(start).Milliseconds(),
			"requestId":  requestIDOf(c),
		}
		if status >= fiber.StatusInternalServerError {
			s.logger.Warn("HTTP request failed", fields)
		} else {
			s.logger.Debug("HTTP request", fields)
		}
		return err
	}
}

type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	body := errorBody{Error: "INTERNAL_ERROR", Message: "internal server error", RequestID: requestIDOf(c)}
	status := fiber.StatusInternalServerError

	if fe, ok := err.(*fiber.Error); ok {
		status = fe.Code
		body.Error = "HTTP_ERROR"
		body.Message = fe.Message
	} else if stdErr, ok := apperrors.AsStandardError(err); ok {
		body.Error = string(stdErr.Code)
		body.Message = stdErr.Message
		body.Details = stdErr.Details
		switch stdErr.Code {
		case apperrors.ErrCodeInputValidationFailed:
			status = fiber.StatusBadRequest
		case apperrors.ErrCodeNoOpenQuestion:
			status = fiber.StatusNotFound
		}
	} else {
		s.logger.WithError(err).Error("Unhandled HTTP error", map[string]interface{}{
			"path":      c.Path(),
			"requestId": body.RequestID,
		})
	}

	return c.Status(status).JSON(body)
}
