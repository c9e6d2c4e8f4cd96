package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonachoGonz/WellnessCenterBack/internal/models"
	"github.com/jonachoGonz/WellnessCenterBack/internal/repository"
	"go.uber.org/zap"
)

type professionalReader interface {
	GetByUserID(ctx context.Context, userID int64) (*models.ProfessionalProfile, error)
}

type blackoutChecker interface {
	IsBlocked(ctx context.Context, startsAt, endsAt time.Time, professionalID int64) (bool, error)
}

// SchedulingService coordinates bookings: it validates the slot against
// blackout windows and the professional's calendar, checks the student's
// plan quota, and keeps the quota ledger in lockstep with appointment
// status changes. Appointment and ledger writes share one transaction.
type SchedulingService struct {
	db               *pgxpool.Pool
	appointmentRepo  *repository.AppointmentRepository
	quotaRepo        *repository.QuotaRepository
	professionalRepo professionalReader
	blackouts        blackoutChecker
	logger           *zap.Logger
}

func NewSchedulingService(
	db *pgxpool.Pool,
	appointmentRepo *repository.AppointmentRepository,
	quotaRepo *repository.QuotaRepository,
	professionalRepo professionalReader,
	blackouts blackoutChecker,
	logger *zap.Logger,
) *SchedulingService {
	return &SchedulingService{
		db:               db,
		appointmentRepo:  appointmentRepo,
		quotaRepo:        quotaRepo,
		professionalRepo: professionalRepo,
		blackouts:        blackouts,
		logger:           logger,
	}
}

// Advisory lock classes. Student and professional IDs share the users id
// space, so each serialization concern locks under its own class to keep
// the keys from colliding. hashint8 folds the bigint id into the int4 the
// two-argument lock takes.
const (
	lockClassStudentQuota         = 1
	lockClassProfessionalCalendar = 2
)

func acquireAccountLock(ctx context.Context, tx pgx.Tx, class int32, accountID int64) error {
	_, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1, hashint8($2))", class, accountID)
	return err
}

type BookAppointmentInput struct {
	StudentID      int64
	ProfessionalID int64
	Kind           models.AppointmentKind
	StartsAt       time.Time
	EndsAt         time.Time
	Notes          *string
	CreatedBy      int64
}

func (s *SchedulingService) BookAppointment(
	ctx context.Context,
	input BookAppointmentInput,
) (*models.Appointment, error) {
	if input.StudentID <= 0 || input.ProfessionalID <= 0 {
		return nil, ErrInvalidInput
	}
	if input.StudentID == input.ProfessionalID {
		return nil, ErrInvalidInput
	}
	if !input.EndsAt.After(input.StartsAt) {
		return nil, ErrInvalidInput
	}
	rule, ok := models.RuleFor(input.Kind)
	if !ok {
		return nil, ErrInvalidInput
	}
	durationMinutes := int(input.EndsAt.Sub(input.StartsAt) / time.Minute)
	if durationMinutes <= 0 {
		return nil, ErrInvalidInput
	}

	professional, err := s.professionalRepo.GetByUserID(ctx, input.ProfessionalID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfessionalNotFound
		}
		return nil, err
	}
	if !professional.Active {
		return nil, ErrProfessionalNotFound
	}
	if professional.Specialty == nil || !rule.AllowsSpecialty(*professional.Specialty) {
		return nil, ErrInvalidInput
	}

	blocked, err := s.blackouts.IsBlocked(ctx, input.StartsAt.UTC(), input.EndsAt.UTC(), input.ProfessionalID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrSlotUnavailable
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txAppointmentRepo := repository.NewAppointmentRepository(tx)
	txQuotaRepo := repository.NewQuotaRepository(tx)

	// Serializes concurrent bookings for the same student so two requests
	// cannot both pass the eligibility check before either writes, and for
	// the same professional so two students cannot both pass the overlap
	// check and double-book the calendar. Student before professional,
	// always, so concurrent bookings cannot deadlock.
	if err := acquireAccountLock(ctx, tx, lockClassStudentQuota, input.StudentID); err != nil {
		return nil, err
	}
	if err := acquireAccountLock(ctx, tx, lockClassProfessionalCalendar, input.ProfessionalID); err != nil {
		return nil, err
	}

	hasConflict, err := txAppointmentRepo.HasConflict(ctx, input.ProfessionalID, input.StartsAt.UTC(), input.EndsAt.UTC())
	if err != nil {
		return nil, err
	}
	if hasConflict {
		return nil, ErrSlotUnavailable
	}

	var quota *models.PlanQuota
	if rule.DeductsFromQuota {
		now := time.Now().UTC()
		quota, err = txQuotaRepo.GetActiveByStudentIDForUpdate(ctx, input.StudentID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrNoPlan
			}
			return nil, err
		}

		weekStart := WeekStart(now)
		weekEntries, err := txQuotaRepo.ListLedgerInRange(ctx, quota.ID, weekStart, weekStart.AddDate(0, 0, 7))
		if err != nil {
			return nil, err
		}
		if err := CheckEligibility(quota, weekEntries, now); err != nil {
			return nil, err
		}
	}

	appointment, err := txAppointmentRepo.Create(ctx, repository.CreateAppointmentInput{
		StudentID:        input.StudentID,
		ProfessionalID:   input.ProfessionalID,
		Kind:             input.Kind,
		StartsAt:         input.StartsAt.UTC(),
		EndsAt:           input.EndsAt.UTC(),
		DurationMinutes:  durationMinutes,
		DeductsFromQuota: rule.DeductsFromQuota,
		Notes:            input.Notes,
		CreatedBy:        input.CreatedBy,
	})
	if err != nil {
		return nil, err
	}

	if rule.DeductsFromQuota {
		entry := &models.LedgerEntry{
			QuotaID:        quota.ID,
			AppointmentID:  appointment.ID,
			Date:           appointment.StartsAt,
			Status:         models.StatusScheduled,
			ProfessionalID: input.ProfessionalID,
			Specialty:      professional.Specialty,
		}
		if err := txQuotaRepo.InsertLedgerEntry(ctx, entry); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("appointment booked",
		zap.Int64("appointment_id", appointment.ID),
		zap.Int64("student_id", input.StudentID),
		zap.Int64("professional_id", input.ProfessionalID),
		zap.String("kind", string(input.Kind)),
		zap.Time("starts_at", appointment.StartsAt),
		zap.Bool("deducts_from_quota", appointment.DeductsFromQuota),
	)
	return appointment, nil
}

func (s *SchedulingService) CompleteAppointment(ctx context.Context, id int64) (*models.Appointment, error) {
	return s.transition(ctx, id, models.StatusCompleted, nil, false)
}

func (s *SchedulingService) CancelAppointment(ctx context.Context, id int64, reason string) (*models.Appointment, error) {
	trimmed := strings.TrimSpace(reason)
	var cancelReason *string
	if trimmed != "" {
		cancelReason = &trimmed
	}
	return s.transition(ctx, id, models.StatusCancelled, cancelReason, false)
}

func (s *SchedulingService) MarkNoShow(ctx context.Context, id int64) (*models.Appointment, error) {
	return s.transition(ctx, id, models.StatusNoShow, nil, false)
}

// CorrectStatus is the admin escape hatch: it permits reverse transitions
// (for example completed back to scheduled) and re-adjusts the quota
// ledger accordingly.
func (s *SchedulingService) CorrectStatus(
	ctx context.Context,
	id int64,
	nextStatus models.AppointmentStatus,
) (*models.Appointment, error) {
	if !nextStatus.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.transition(ctx, id, nextStatus, nil, true)
}

func (s *SchedulingService) transition(
	ctx context.Context,
	id int64,
	nextStatus models.AppointmentStatus,
	cancelReason *string,
	adminCorrection bool,
) (*models.Appointment, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txAppointmentRepo := repository.NewAppointmentRepository(tx)
	txQuotaRepo := repository.NewQuotaRepository(tx)

	appointment, err := txAppointmentRepo.GetByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// Same-status transitions are a no-op regardless of actor.
	if appointment.Status == nextStatus {
		return appointment, nil
	}
	if !adminCorrection && appointment.Status != models.StatusScheduled {
		return nil, ErrInvalidState
	}

	if err := acquireAccountLock(ctx, tx, lockClassStudentQuota, appointment.StudentID); err != nil {
		return nil, err
	}

	updated, err := txAppointmentRepo.UpdateStatusIfCurrent(ctx, id, appointment.Status, nextStatus, cancelReason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidState
		}
		return nil, err
	}

	if appointment.DeductsFromQuota {
		if err := s.syncLedger(ctx, txQuotaRepo, appointment, nextStatus); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("appointment status changed",
		zap.Int64("appointment_id", id),
		zap.String("from", string(appointment.Status)),
		zap.String("to", string(nextStatus)),
		zap.Bool("admin_correction", adminCorrection),
	)
	return updated, nil
}

// syncLedger mirrors an appointment status change into the quota ledger
// and adjusts the used-classes counter when the change crosses the
// completed boundary. The appointment row is already locked; the quota row
// is locked here before the counter is touched.
func (s *SchedulingService) syncLedger(
	ctx context.Context,
	txQuotaRepo *repository.QuotaRepository,
	appointment *models.Appointment,
	nextStatus models.AppointmentStatus,
) error {
	entry, err := txQuotaRepo.GetLedgerByAppointmentID(ctx, appointment.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if entry.Status == nextStatus {
		return nil
	}

	if err := txQuotaRepo.UpdateLedgerStatus(ctx, entry.ID, nextStatus); err != nil {
		return err
	}

	delta := usedClassesDelta(entry.Status, nextStatus)
	if delta == 0 {
		return nil
	}

	quota, err := txQuotaRepo.GetByIDForUpdate(ctx, entry.QuotaID)
	if err != nil {
		return err
	}
	used := quota.UsedClasses + delta
	if used < 0 {
		// Observed reference behavior: over-corrections clamp instead of
		// failing. Surfaced in the log for out-of-band reconciliation.
		s.logger.Warn("used classes clamped at zero",
			zap.Int64("quota_id", quota.ID),
			zap.Int64("appointment_id", appointment.ID),
			zap.Int("computed", used),
		)
		used = 0
	}
	return txQuotaRepo.UpdateUsedClasses(ctx, quota.ID, used)
}
