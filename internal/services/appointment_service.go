package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jonachoGonz/WellnessCenterBack/internal/models"
	"github.com/jonachoGonz/WellnessCenterBack/internal/repository"
)

type appointmentStore interface {
	GetByID(ctx context.Context, id int64) (*models.Appointment, error)
	List(ctx context.Context, filter repository.AppointmentListFilter) ([]models.Appointment, error)
	InsertEvaluation(ctx context.Context, eval *models.Evaluation) error
	GetEvaluationByAppointmentID(ctx context.Context, appointmentID int64) (*models.Evaluation, error)
}

// AppointmentService is the read side of the appointment store plus
// evaluation capture. Status transitions live in SchedulingService so the
// ledger can never drift from them.
type AppointmentService struct {
	repo appointmentStore
}

func NewAppointmentService(repo appointmentStore) *AppointmentService {
	return &AppointmentService{repo: repo}
}

func canAccessAppointment(role string, actorID int64, appointment *models.Appointment) bool {
	switch role {
	case models.RoleStudent:
		return appointment.StudentID == actorID
	case models.RoleProfessional:
		return appointment.ProfessionalID == actorID
	case models.RoleAdmin:
		return true
	}
	return false
}

func (s *AppointmentService) GetAppointment(
	ctx context.Context,
	actorID int64,
	role string,
	appointmentID int64,
) (*models.AppointmentDetail, error) {
	appointment, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !canAccessAppointment(role, actorID, appointment) {
		return nil, ErrForbidden
	}

	detail := &models.AppointmentDetail{Appointment: *appointment}
	eval, err := s.repo.GetEvaluationByAppointmentID(ctx, appointmentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err == nil {
		detail.Evaluation = eval
	}
	return detail, nil
}

func (s *AppointmentService) ListAppointments(
	ctx context.Context,
	actorID int64,
	role string,
	filter repository.AppointmentListFilter,
) ([]models.Appointment, error) {
	filter.ActorID = actorID
	filter.Role = role
	return s.repo.List(ctx, filter)
}

type EvaluationInput struct {
	Rating      int
	Punctuality int
	Quality     int
	Comments    *string
}

// RecordEvaluation stores the student's rating of a completed session.
// One evaluation per appointment; scores are integers in [1,5].
func (s *AppointmentService) RecordEvaluation(
	ctx context.Context,
	actorID int64,
	role string,
	appointmentID int64,
	input EvaluationInput,
) (*models.AppointmentDetail, error) {
	if !validScore(input.Rating) || !validScore(input.Punctuality) || !validScore(input.Quality) {
		return nil, ErrInvalidInput
	}
	if input.Comments != nil && strings.TrimSpace(*input.Comments) == "" {
		return nil, ErrInvalidInput
	}

	appointment, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if role != models.RoleAdmin && (role != models.RoleStudent || appointment.StudentID != actorID) {
		return nil, ErrForbidden
	}
	if appointment.Status != models.StatusCompleted {
		return nil, ErrInvalidState
	}

	existing, err := s.repo.GetEvaluationByAppointmentID(ctx, appointmentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrInvalidState
	}

	eval := &models.Evaluation{
		AppointmentID: appointmentID,
		Rating:        input.Rating,
		Punctuality:   input.Punctuality,
		Quality:       input.Quality,
		Comments:      input.Comments,
		EvaluatedAt:   time.Now().UTC(),
	}
	if err := s.repo.InsertEvaluation(ctx, eval); err != nil {
		return nil, err
	}

	return &models.AppointmentDetail{Appointment: *appointment, Evaluation: eval}, nil
}

func validScore(score int) bool {
	return score >= 1 && score <= 5
}
