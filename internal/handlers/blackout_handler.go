package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonachoGonz/WellnessCenterBack/internal/models"
	"github.com/jonachoGonz/WellnessCenterBack/internal/services"
)

type blackoutApplicationService interface {
	Create(ctx context.Context, input services.CreateBlackoutInput) (*models.BlackoutWindow, error)
	List(ctx context.Context) ([]models.BlackoutWindow, error)
	Deactivate(ctx context.Context, id int64) error
}

type BlackoutHandler struct {
	blackouts blackoutApplicationService
}

func NewBlackoutHandler(blackouts *services.BlackoutService) *BlackoutHandler {
	return &BlackoutHandler{blackouts: blackouts}
}

type createBlackoutRequest struct {
	Scope          string  `json:"scope" validate:"required,oneof=global professional"`
	ProfessionalID *int64  `json:"professional_id"`
	Date           string  `json:"date" validate:"required"`
	StartsAt       *string `json:"starts_at"`
	EndsAt         *string `json:"ends_at"`
	Reason         string  `json:"reason" validate:"required"`
	ExpiresAt      *string `json:"expires_at"`
}

func (h *BlackoutHandler) Create(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createBlackoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	date, err := time.Parse("2006-01-02", strings.TrimSpace(req.Date))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "date must be YYYY-MM-DD"})
	}

	startsAt, err := parseOptionalTime(req.StartsAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "starts_at must be a valid RFC3339 timestamp"})
	}
	endsAt, err := parseOptionalTime(req.EndsAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "ends_at must be a valid RFC3339 timestamp"})
	}
	expiresAt, err := parseOptionalTime(req.ExpiresAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "expires_at must be a valid RFC3339 timestamp"})
	}

	window, err := h.blackouts.Create(c.Context(), services.CreateBlackoutInput{
		Scope:          models.BlackoutScope(req.Scope),
		ProfessionalID: req.ProfessionalID,
		Date:           date,
		StartsAt:       startsAt,
		EndsAt:         endsAt,
		Reason:         req.Reason,
		ExpiresAt:      expiresAt,
		CreatedBy:      actorID,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create blackout window"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"blackout": window})
}

func (h *BlackoutHandler) List(c *fiber.Ctx) error {
	windows, err := h.blackouts.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list blackout windows"})
	}
	return c.JSON(fiber.Map{"blackouts": windows})
}

func (h *BlackoutHandler) Deactivate(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid blackout id"})
	}

	if err := h.blackouts.Deactivate(c.Context(), id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Blackout window not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to deactivate blackout window"})
	}

	return c.JSON(fiber.Map{"message": "Blackout window deactivated"})
}

func parseOptionalTime(value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(*value))
	if err != nil {
		return nil, err
	}
	return &t, nil
}
