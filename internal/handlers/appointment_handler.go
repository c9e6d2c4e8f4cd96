package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jonachoGonz/WellnessCenterBack/internal/models"
	"github.com/jonachoGonz/WellnessCenterBack/internal/repository"
	"github.com/jonachoGonz/WellnessCenterBack/internal/services"
)

type schedulingApplicationService interface {
	BookAppointment(ctx context.Context, input services.BookAppointmentInput) (*models.Appointment, error)
	CompleteAppointment(ctx context.Context, id int64) (*models.Appointment, error)
	CancelAppointment(ctx context.Context, id int64, reason string) (*models.Appointment, error)
	MarkNoShow(ctx context.Context, id int64) (*models.Appointment, error)
	CorrectStatus(ctx context.Context, id int64, nextStatus models.AppointmentStatus) (*models.Appointment, error)
}

type appointmentApplicationService interface {
	GetAppointment(ctx context.Context, actorID int64, role string, appointmentID int64) (*models.AppointmentDetail, error)
	ListAppointments(ctx context.Context, actorID int64, role string, filter repository.AppointmentListFilter) ([]models.Appointment, error)
	RecordEvaluation(ctx context.Context, actorID int64, role string, appointmentID int64, input services.EvaluationInput) (*models.AppointmentDetail, error)
}

type AppointmentHandler struct {
	scheduling   schedulingApplicationService
	appointments appointmentApplicationService
}

func NewAppointmentHandler(
	scheduling *services.SchedulingService,
	appointments *services.AppointmentService,
) *AppointmentHandler {
	return &AppointmentHandler{scheduling: scheduling, appointments: appointments}
}

type bookAppointmentRequest struct {
	StudentID      int64   `json:"student_id"`
	ProfessionalID int64   `json:"professional_id" validate:"required,gt=0"`
	Kind           string  `json:"kind" validate:"required"`
	StartsAt       string  `json:"starts_at" validate:"required"`
	EndsAt         string  `json:"ends_at" validate:"required"`
	Notes          *string `json:"notes"`
}

type updateAppointmentStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason"`
}

type recordEvaluationRequest struct {
	Rating      int     `json:"rating" validate:"required,min=1,max=5"`
	Punctuality int     `json:"punctuality" validate:"required,min=1,max=5"`
	Quality     int     `json:"quality" validate:"required,min=1,max=5"`
	Comments    *string `json:"comments"`
}

func (h *AppointmentHandler) Book(c *fiber.Ctx) error {
	role := actorRole(c)
	if role != models.RoleStudent && role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req bookAppointmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	startsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartsAt))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "starts_at must be a valid RFC3339 timestamp"})
	}
	endsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.EndsAt))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "ends_at must be a valid RFC3339 timestamp"})
	}

	// Students book for themselves; admins book on a student's behalf.
	studentID := actorID
	if role == models.RoleAdmin {
		if req.StudentID <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "student_id is required"})
		}
		studentID = req.StudentID
	}

	appointment, err := h.scheduling.BookAppointment(c.Context(), services.BookAppointmentInput{
		StudentID:      studentID,
		ProfessionalID: req.ProfessionalID,
		Kind:           models.AppointmentKind(req.Kind),
		StartsAt:       startsAt,
		EndsAt:         endsAt,
		Notes:          req.Notes,
		CreatedBy:      actorID,
	})
	if err != nil {
		return mapSchedulingError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"appointment": appointment})
}

func (h *AppointmentHandler) List(c *fiber.Ctx) error {
	role := actorRole(c)
	if role == "" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	timeframe := strings.TrimSpace(c.Query("timeframe"))
	if timeframe != "" && timeframe != "upcoming" && timeframe != "past" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "timeframe must be upcoming or past"})
	}

	filter := repository.AppointmentListFilter{
		Status:    strings.TrimSpace(c.Query("status")),
		Timeframe: timeframe,
	}
	if role == models.RoleAdmin {
		filter.StudentID = int64(c.QueryInt("student_id", 0))
		filter.ProfessionalID = int64(c.QueryInt("professional_id", 0))
	}

	appointments, err := h.appointments.ListAppointments(c.Context(), actorID, role, filter)
	if err != nil {
		return mapSchedulingError(c, err)
	}

	return c.JSON(fiber.Map{"appointments": appointments})
}

func (h *AppointmentHandler) Get(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	appointmentID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || appointmentID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid appointment id"})
	}

	detail, err := h.appointments.GetAppointment(c.Context(), actorID, actorRole(c), appointmentID)
	if err != nil {
		return mapSchedulingError(c, err)
	}

	return c.JSON(fiber.Map{"appointment": detail})
}

func (h *AppointmentHandler) UpdateStatus(c *fiber.Ctx) error {
	role := actorRole(c)
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	appointmentID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || appointmentID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid appointment id"})
	}

	var req updateAppointmentStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	nextStatus, err := normalizeRequestedStatus(req.Status)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid status"})
	}

	// Ownership gate: non-admins may only touch their own appointments.
	if role != models.RoleAdmin {
		if _, err := h.appointments.GetAppointment(c.Context(), actorID, role, appointmentID); err != nil {
			return mapSchedulingError(c, err)
		}
	}

	var appointment *models.Appointment
	switch role {
	case models.RoleAdmin:
		appointment, err = h.scheduling.CorrectStatus(c.Context(), appointmentID, nextStatus)
	case models.RoleProfessional:
		switch nextStatus {
		case models.StatusCompleted:
			appointment, err = h.scheduling.CompleteAppointment(c.Context(), appointmentID)
		case models.StatusCancelled:
			appointment, err = h.scheduling.CancelAppointment(c.Context(), appointmentID, req.Reason)
		case models.StatusNoShow:
			appointment, err = h.scheduling.MarkNoShow(c.Context(), appointmentID)
		default:
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
		}
	case models.RoleStudent:
		if nextStatus != models.StatusCancelled {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
		}
		appointment, err = h.scheduling.CancelAppointment(c.Context(), appointmentID, req.Reason)
	default:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	if err != nil {
		return mapSchedulingError(c, err)
	}

	return c.JSON(fiber.Map{"appointment": appointment})
}

func (h *AppointmentHandler) RecordEvaluation(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	appointmentID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || appointmentID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid appointment id"})
	}

	var req recordEvaluationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	detail, err := h.appointments.RecordEvaluation(c.Context(), actorID, actorRole(c), appointmentID, services.EvaluationInput{
		Rating:      req.Rating,
		Punctuality: req.Punctuality,
		Quality:     req.Quality,
		Comments:    req.Comments,
	})
	if err != nil {
		return mapSchedulingError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"appointment": detail})
}

func normalizeRequestedStatus(status string) (models.AppointmentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "schedule", "scheduled":
		return models.StatusScheduled, nil
	case "complete", "completed":
		return models.StatusCompleted, nil
	case "cancel", "cancelled", "canceled":
		return models.StatusCancelled, nil
	case "no-show", "noshow", "no_show":
		return models.StatusNoShow, nil
	default:
		return "", services.ErrInvalidStatus
	}
}

func mapSchedulingError(c *fiber.Ctx, err error) error {
	var quotaErr *services.QuotaExceededError
	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrInvalidStatus):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrProfessionalNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Professional not found"})
	case errors.Is(err, services.ErrNotFound), errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Appointment not found"})
	case errors.Is(err, services.ErrSlotUnavailable):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Requested slot is unavailable"})
	case errors.Is(err, services.ErrNoPlan):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Student has no active plan"})
	case errors.As(err, &quotaErr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":  "Quota exceeded",
			"reason": string(quotaErr.Reason),
		})
	case errors.Is(err, services.ErrInvalidState):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process appointment request"})
	}
}
