package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-assistant/internal/api/dto"
	"github.com/spec-kit/support-assistant/internal/domain"
	"github.com/spec-kit/support-assistant/internal/service"
	apperrors "github.com/spec-kit/support-assistant/pkg/util"
)

// ChatHandler routes chat messages through the message pipeline.
type ChatHandler struct {
	pipeline *service.MessagePipeline
}

// NewChatHandler constructs handler.
func NewChatHandler(pipeline *service.MessagePipeline) *ChatHandler {
	return &ChatHandler{pipeline: pipeline}
}

// Chat POST /chat.
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Message) == "" {
		return apperrors.NewValidationError("message required", nil)
	}

	result := h.pipeline.Process(c.UserContext(), req.Message, domain.NormalizeUsername(req.Username))
	return c.JSON(fiber.Map{"data": dto.ChatResponse{
		Reply:    result.Reply,
		Intent:   result.Classification.Intent,
		TicketID: result.TicketID.Ptr(),
	}})
}
