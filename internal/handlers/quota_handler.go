package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jonachoGonz/WellnessCenterBack/internal/models"
	"github.com/jonachoGonz/WellnessCenterBack/internal/services"
)

type quotaApplicationService interface {
	Initialize(ctx context.Context, studentID int64, kind models.PlanKind) (*models.PlanQuota, error)
	GetDetail(ctx context.Context, studentID int64) (*models.QuotaDetail, error)
	BulkDeactivateStudents(ctx context.Context, studentIDs []int64) int
}

type QuotaHandler struct {
	quotas quotaApplicationService
}

func NewQuotaHandler(quotas *services.QuotaService) *QuotaHandler {
	return &QuotaHandler{quotas: quotas}
}

type assignPlanRequest struct {
	StudentID int64  `json:"student_id" validate:"required,gt=0"`
	PlanKind  string `json:"plan_kind" validate:"required,oneof=trial basic pro elite champion"`
}

type bulkDeactivateRequest struct {
	StudentIDs []int64 `json:"student_ids" validate:"required,min=1,dive,gt=0"`
}

// GetMyQuota returns the calling student's active plan and ledger.
func (h *QuotaHandler) GetMyQuota(c *fiber.Ctx) error {
	if actorRole(c) != models.RoleStudent {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	detail, err := h.quotas.GetDetail(c.Context(), actorID)
	if err != nil {
		return mapQuotaError(c, err)
	}

	return c.JSON(fiber.Map{"quota": detail})
}

// GetStudentQuota is the admin view of any student's quota.
func (h *QuotaHandler) GetStudentQuota(c *fiber.Ctx) error {
	studentID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || studentID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student id"})
	}

	detail, err := h.quotas.GetDetail(c.Context(), studentID)
	if err != nil {
		return mapQuotaError(c, err)
	}

	return c.JSON(fiber.Map{"quota": detail})
}

// AssignPlan replaces the student's active plan with a fresh one.
func (h *QuotaHandler) AssignPlan(c *fiber.Ctx) error {
	var req assignPlanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	quota, err := h.quotas.Initialize(c.Context(), req.StudentID, models.PlanKind(req.PlanKind))
	if err != nil {
		return mapQuotaError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"quota": quota})
}

// BulkDeactivate retires the listed student accounts. Failures are skipped
// and the response reports how many went through.
func (h *QuotaHandler) BulkDeactivate(c *fiber.Ctx) error {
	var req bulkDeactivateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	deactivated := h.quotas.BulkDeactivateStudents(c.Context(), req.StudentIDs)

	return c.JSON(fiber.Map{
		"requested":   len(req.StudentIDs),
		"deactivated": deactivated,
	})
}

func mapQuotaError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNoPlan):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No active plan"})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process quota request"})
	}
}
