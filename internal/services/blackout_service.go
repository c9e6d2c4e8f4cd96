package services

import (
	"context"
	"strings"
	"time"

	"github.com/jonachoGonz/WellnessCenterBack/internal/models"
	"go.uber.org/zap"
)

type blackoutStore interface {
	Create(ctx context.Context, window *models.BlackoutWindow) error
	ListActiveForDate(ctx context.Context, date time.Time, professionalID int64) ([]models.BlackoutWindow, error)
	List(ctx context.Context) ([]models.BlackoutWindow, error)
	SetActive(ctx context.Context, id int64, active bool) (bool, error)
}

type BlackoutService struct {
	repo   blackoutStore
	logger *zap.Logger
}

func NewBlackoutService(repo blackoutStore, logger *zap.Logger) *BlackoutService {
	return &BlackoutService{repo: repo, logger: logger}
}

type CreateBlackoutInput struct {
	Scope          models.BlackoutScope
	ProfessionalID *int64
	Date           time.Time
	StartsAt       *time.Time
	EndsAt         *time.Time
	Reason         string
	ExpiresAt      *time.Time
	CreatedBy      int64
}

func (s *BlackoutService) Create(ctx context.Context, input CreateBlackoutInput) (*models.BlackoutWindow, error) {
	switch input.Scope {
	case models.ScopeGlobal:
		if input.ProfessionalID != nil {
			return nil, ErrInvalidInput
		}
	case models.ScopeProfessional:
		if input.ProfessionalID == nil || *input.ProfessionalID <= 0 {
			return nil, ErrInvalidInput
		}
	default:
		return nil, ErrInvalidInput
	}

	// Either both bounds for a timed window or neither for a whole day.
	if (input.StartsAt == nil) != (input.EndsAt == nil) {
		return nil, ErrInvalidInput
	}
	if input.StartsAt != nil {
		if !input.StartsAt.Before(*input.EndsAt) {
			return nil, ErrInvalidInput
		}
		// The bounds must lie on the window's date, or lookups keyed on
		// date would never match them. Ending exactly at next midnight
		// is allowed.
		day := dayOf(input.Date)
		if !dayOf(*input.StartsAt).Equal(day) {
			return nil, ErrInvalidInput
		}
		if input.EndsAt.UTC().After(day.AddDate(0, 0, 1)) {
			return nil, ErrInvalidInput
		}
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, ErrInvalidInput
	}

	window := &models.BlackoutWindow{
		Scope:          input.Scope,
		ProfessionalID: input.ProfessionalID,
		Date:           dayOf(input.Date),
		StartsAt:       input.StartsAt,
		EndsAt:         input.EndsAt,
		Reason:         strings.TrimSpace(input.Reason),
		CreatedBy:      input.CreatedBy,
		ExpiresAt:      input.ExpiresAt,
	}
	if err := s.repo.Create(ctx, window); err != nil {
		return nil, err
	}

	s.logger.Info("blackout window created",
		zap.Int64("window_id", window.ID),
		zap.String("scope", string(window.Scope)),
		zap.Time("date", window.Date),
		zap.Bool("whole_day", window.WholeDay()),
	)
	return window, nil
}

// IsBlocked reports whether any live blackout window overlaps
// [startsAt, endsAt) on that date for the professional. Global windows
// block everyone; whole-day windows block every range on the date.
func (s *BlackoutService) IsBlocked(
	ctx context.Context,
	startsAt time.Time,
	endsAt time.Time,
	professionalID int64,
) (bool, error) {
	now := time.Now().UTC()
	windows, err := s.repo.ListActiveForDate(ctx, dayOf(startsAt), professionalID)
	if err != nil {
		return false, err
	}

	for _, window := range windows {
		if window.Inert(now) {
			continue
		}
		if window.WholeDay() {
			return true, nil
		}
		if overlaps(startsAt, endsAt, *window.StartsAt, *window.EndsAt) {
			return true, nil
		}
	}
	return false, nil
}

func (s *BlackoutService) List(ctx context.Context) ([]models.BlackoutWindow, error) {
	return s.repo.List(ctx)
}

func (s *BlackoutService) Deactivate(ctx context.Context, id int64) error {
	ok, err := s.repo.SetActive(ctx, id, false)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.logger.Info("blackout window deactivated", zap.Int64("window_id", id))
	return nil
}

// overlaps is the half-open interval intersection test:
// [aStart, aEnd) ∩ [bStart, bEnd) ≠ ∅.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func dayOf(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
