package services

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonachoGonz/WellnessCenterBack/internal/models"
	"github.com/jonachoGonz/WellnessCenterBack/internal/repository"
	"go.uber.org/zap"
)

type userAccountWriter interface {
	SetActive(ctx context.Context, id int64, active bool) (bool, error)
}

type QuotaService struct {
	db        *pgxpool.Pool
	quotaRepo *repository.QuotaRepository
	userRepo  userAccountWriter
	logger    *zap.Logger
}

func NewQuotaService(
	db *pgxpool.Pool,
	quotaRepo *repository.QuotaRepository,
	userRepo userAccountWriter,
	logger *zap.Logger,
) *QuotaService {
	return &QuotaService{
		db:        db,
		quotaRepo: quotaRepo,
		userRepo:  userRepo,
		logger:    logger,
	}
}

// NewPlanQuota builds a fresh quota from the plan-kind terms table. The
// weekly cap is the ceiling of classes over weeks; validity runs from now
// for the plan's week count.
func NewPlanQuota(studentID int64, kind models.PlanKind, now time.Time) (*models.PlanQuota, error) {
	terms, ok := models.TermsFor(kind)
	if !ok {
		return nil, ErrInvalidInput
	}

	classesPerWeek := (terms.Classes + terms.Weeks - 1) / terms.Weeks
	return &models.PlanQuota{
		StudentID:      studentID,
		PlanKind:       kind,
		ClassesPerWeek: classesPerWeek,
		TotalClasses:   terms.Classes,
		StartDate:      now,
		ExpiryDate:     now.AddDate(0, 0, terms.Weeks*7),
		Active:         true,
	}, nil
}

// WeekStart returns Monday 00:00 of the week containing now, in now's
// location. Sunday counts as the seventh day of the running week.
func WeekStart(now time.Time) time.Time {
	daysBack := int(now.Weekday()) - 1
	if now.Weekday() == time.Sunday {
		daysBack = 6
	}
	year, month, day := now.AddDate(0, 0, -daysBack).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, now.Location())
}

// CheckEligibility decides whether one more class may be booked this week.
// weekEntries must be the quota's ledger entries dated in now's week.
// Returns nil when eligible, ErrNoPlan for an inactive quota, and a
// *QuotaExceededError with the dominant sub-reason otherwise.
func CheckEligibility(quota *models.PlanQuota, weekEntries []models.LedgerEntry, now time.Time) error {
	if quota == nil || !quota.Active {
		return ErrNoPlan
	}
	if now.After(quota.ExpiryDate) {
		return &QuotaExceededError{Reason: QuotaReasonPlanExpired}
	}
	if quota.RemainingClasses() == 0 {
		return &QuotaExceededError{Reason: QuotaReasonTotalExhausted}
	}

	booked := 0
	for _, entry := range weekEntries {
		if entry.Status != models.StatusCancelled {
			booked++
		}
	}
	if booked >= quota.ClassesPerWeek {
		return &QuotaExceededError{Reason: QuotaReasonWeeklyCap}
	}
	return nil
}

// usedClassesDelta is the adjustment to UsedClasses when a ledger entry
// moves between statuses: only crossings of the "completed" boundary count.
func usedClassesDelta(current, next models.AppointmentStatus) int {
	if current == next {
		return 0
	}
	if next == models.StatusCompleted {
		return 1
	}
	if current == models.StatusCompleted {
		return -1
	}
	return 0
}

// Initialize assigns a plan to the student, retiring any active quota in
// the same transaction. Quotas are deactivated, never deleted.
func (s *QuotaService) Initialize(
	ctx context.Context,
	studentID int64,
	kind models.PlanKind,
) (*models.PlanQuota, error) {
	quota, err := NewPlanQuota(studentID, kind, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txQuotaRepo := repository.NewQuotaRepository(tx)
	retired, err := txQuotaRepo.DeactivateByStudentID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if err := txQuotaRepo.Create(ctx, quota); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("plan assigned",
		zap.Int64("student_id", studentID),
		zap.String("plan_kind", string(kind)),
		zap.Int64("retired_quotas", retired),
	)
	return quota, nil
}

// GetDetail returns the student's active quota with its ledger and the
// derived remaining balance.
func (s *QuotaService) GetDetail(ctx context.Context, studentID int64) (*models.QuotaDetail, error) {
	quota, err := s.quotaRepo.GetActiveByStudentID(ctx, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoPlan
		}
		return nil, err
	}

	ledger, err := s.quotaRepo.ListLedger(ctx, quota.ID)
	if err != nil {
		return nil, err
	}

	return &models.QuotaDetail{
		PlanQuota:        *quota,
		RemainingClasses: quota.RemainingClasses(),
		Ledger:           ledger,
	}, nil
}

// IsEligibleThisWeek answers the booking pre-check for the student as of
// now. The returned error carries the reason when not eligible; callers
// that want a plain boolean can compare against nil.
func (s *QuotaService) IsEligibleThisWeek(ctx context.Context, studentID int64, now time.Time) error {
	quota, err := s.quotaRepo.GetActiveByStudentID(ctx, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNoPlan
		}
		return err
	}

	weekStart := WeekStart(now)
	weekEntries, err := s.quotaRepo.ListLedgerInRange(ctx, quota.ID, weekStart, weekStart.AddDate(0, 0, 7))
	if err != nil {
		return err
	}

	return CheckEligibility(quota, weekEntries, now)
}

// BulkDeactivateStudents flips accounts and their quotas inactive one
// record at a time. A failing record is logged and skipped; the count of
// successfully deactivated students is reported either way.
func (s *QuotaService) BulkDeactivateStudents(ctx context.Context, studentIDs []int64) int {
	deactivated := 0
	for _, studentID := range studentIDs {
		ok, err := s.userRepo.SetActive(ctx, studentID, false)
		if err != nil {
			s.logger.Warn("deactivate account failed",
				zap.Int64("student_id", studentID),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			s.logger.Warn("deactivate account skipped, no such user",
				zap.Int64("student_id", studentID),
			)
			continue
		}
		if _, err := s.quotaRepo.DeactivateByStudentID(ctx, studentID); err != nil {
			s.logger.Warn("deactivate quota failed",
				zap.Int64("student_id", studentID),
				zap.Error(err),
			)
			continue
		}
		deactivated++
	}
	return deactivated
}
