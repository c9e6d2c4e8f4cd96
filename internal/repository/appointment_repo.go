package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonachoGonz/WellnessCenterBack/internal/models"
)

type CreateAppointmentInput struct {
	StudentID        int64
	ProfessionalID   int64
	Kind             models.AppointmentKind
	StartsAt         time.Time
	EndsAt           time.Time
	DurationMinutes  int
	DeductsFromQuota bool
	Notes            *string
	CreatedBy        int64
}

type AppointmentListFilter struct {
	ActorID        int64
	Role           string
	StudentID      int64
	ProfessionalID int64
	Status         string
	Timeframe      string
}

type AppointmentRepository struct {
	db DBTX
}

func NewAppointmentRepository(db DBTX) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

const appointmentColumns = `id, public_id, student_id, professional_id, kind, starts_at, ends_at,
	duration_min, status, deducts_from_quota, notes, cancel_reason, created_by, created_at, updated_at`

func scanAppointment(row interface{ Scan(dest ...any) error }, appt *models.Appointment) error {
	return row.Scan(
		&appt.ID,
		&appt.PublicID,
		&appt.StudentID,
		&appt.ProfessionalID,
		&appt.Kind,
		&appt.StartsAt,
		&appt.EndsAt,
		&appt.DurationMinutes,
		&appt.Status,
		&appt.DeductsFromQuota,
		&appt.Notes,
		&appt.CancelReason,
		&appt.CreatedBy,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
}

func (r *AppointmentRepository) Create(
	ctx context.Context,
	input CreateAppointmentInput,
) (*models.Appointment, error) {
	query := `
		INSERT INTO appointments (public_id, student_id, professional_id, kind, starts_at, ends_at,
			duration_min, status, deducts_from_quota, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'scheduled', $8, $9, $10)
		RETURNING ` + appointmentColumns + `
	`
	var appt models.Appointment
	err := scanAppointment(r.db.QueryRow(
		ctx,
		query,
		uuid.New(),
		input.StudentID,
		input.ProfessionalID,
		input.Kind,
		input.StartsAt,
		input.EndsAt,
		input.DurationMinutes,
		input.DeductsFromQuota,
		input.Notes,
		input.CreatedBy,
	), &appt)
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*models.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE id = $1
	`
	var appt models.Appointment
	if err := scanAppointment(r.db.QueryRow(ctx, query, id), &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}

func (r *AppointmentRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`
	var appt models.Appointment
	if err := scanAppointment(r.db.QueryRow(ctx, query, id), &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}

func (r *AppointmentRepository) List(
	ctx context.Context,
	filter AppointmentListFilter,
) ([]models.Appointment, error) {
	args := []any{}
	whereParts := []string{}

	switch filter.Role {
	case models.RoleStudent:
		args = append(args, filter.ActorID)
		whereParts = append(whereParts, fmt.Sprintf("student_id = $%d", len(args)))
	case models.RoleProfessional:
		args = append(args, filter.ActorID)
		whereParts = append(whereParts, fmt.Sprintf("professional_id = $%d", len(args)))
	default:
		if filter.StudentID > 0 {
			args = append(args, filter.StudentID)
			whereParts = append(whereParts, fmt.Sprintf("student_id = $%d", len(args)))
		}
		if filter.ProfessionalID > 0 {
			args = append(args, filter.ProfessionalID)
			whereParts = append(whereParts, fmt.Sprintf("professional_id = $%d", len(args)))
		}
	}

	if status := strings.TrimSpace(filter.Status); status != "" {
		args = append(args, status)
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}

	switch strings.TrimSpace(filter.Timeframe) {
	case "upcoming":
		whereParts = append(whereParts, "ends_at > NOW()")
	case "past":
		whereParts = append(whereParts, "ends_at <= NOW()")
	}

	where := "TRUE"
	if len(whereParts) > 0 {
		where = strings.Join(whereParts, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE %s
		ORDER BY starts_at ASC, id ASC
	`, where)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	appointments := make([]models.Appointment, 0)
	for rows.Next() {
		var appt models.Appointment
		if err := scanAppointment(rows, &appt); err != nil {
			return nil, err
		}
		appointments = append(appointments, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return appointments, nil
}

func (r *AppointmentRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	id int64,
	currentStatus models.AppointmentStatus,
	nextStatus models.AppointmentStatus,
	cancelReason *string,
) (*models.Appointment, error) {
	query := `
		UPDATE appointments
		SET status = $3,
		    cancel_reason = CASE WHEN $3 = 'cancelled' THEN $4 ELSE NULL END,
		    updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + appointmentColumns + `
	`
	var appt models.Appointment
	err := scanAppointment(
		r.db.QueryRow(ctx, query, id, currentStatus, nextStatus, cancelReason),
		&appt,
	)
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

// HasConflict reports whether the professional already has a non-cancelled
// appointment overlapping [startsAt, endsAt).
func (r *AppointmentRepository) HasConflict(
	ctx context.Context,
	professionalID int64,
	startsAt time.Time,
	endsAt time.Time,
) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM appointments
			WHERE professional_id = $1
			  AND status <> 'cancelled'
			  AND starts_at < $3
			  AND ends_at > $2
		)
	`
	var hasConflict bool
	if err := r.db.QueryRow(ctx, query, professionalID, startsAt, endsAt).Scan(&hasConflict); err != nil {
		return false, err
	}
	return hasConflict, nil
}

func (r *AppointmentRepository) InsertEvaluation(ctx context.Context, eval *models.Evaluation) error {
	query := `
		INSERT INTO appointment_evaluations (appointment_id, rating, punctuality, quality, comments, evaluated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return r.db.QueryRow(
		ctx,
		query,
		eval.AppointmentID,
		eval.Rating,
		eval.Punctuality,
		eval.Quality,
		eval.Comments,
		eval.EvaluatedAt,
	).Scan(&eval.ID)
}

func (r *AppointmentRepository) GetEvaluationByAppointmentID(
	ctx context.Context,
	appointmentID int64,
) (*models.Evaluation, error) {
	query := `
		SELECT id, appointment_id, rating, punctuality, quality, comments, evaluated_at
		FROM appointment_evaluations
		WHERE appointment_id = $1
	`
	var eval models.Evaluation
	err := r.db.QueryRow(ctx, query, appointmentID).Scan(
		&eval.ID,
		&eval.AppointmentID,
		&eval.Rating,
		&eval.Punctuality,
		&eval.Quality,
		&eval.Comments,
		&eval.EvaluatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &eval, nil
}
