package repository

import (
	"context"
	"time"

	"github.com/jonachoGonz/WellnessCenterBack/internal/models"
)

type BlackoutRepository struct {
	db DBTX
}

func NewBlackoutRepository(db DBTX) *BlackoutRepository {
	return &BlackoutRepository{db: db}
}

const blackoutColumns = `id, scope, professional_id, date, starts_at, ends_at, reason,
	created_by, expires_at, active, created_at, updated_at`

func scanBlackout(row interface{ Scan(dest ...any) error }, window *models.BlackoutWindow) error {
	return row.Scan(
		&window.ID,
		&window.Scope,
		&window.ProfessionalID,
		&window.Date,
		&window.StartsAt,
		&window.EndsAt,
		&window.Reason,
		&window.CreatedBy,
		&window.ExpiresAt,
		&window.Active,
		&window.CreatedAt,
		&window.UpdatedAt,
	)
}

func (r *BlackoutRepository) Create(ctx context.Context, window *models.BlackoutWindow) error {
	query := `
		INSERT INTO blackout_windows (scope, professional_id, date, starts_at, ends_at, reason, created_by, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, active, created_at, updated_at
	`
	return r.db.QueryRow(
		ctx,
		query,
		window.Scope,
		window.ProfessionalID,
		window.Date,
		window.StartsAt,
		window.EndsAt,
		window.Reason,
		window.CreatedBy,
		window.ExpiresAt,
	).Scan(&window.ID, &window.Active, &window.CreatedAt, &window.UpdatedAt)
}

// ListActiveForDate returns active windows for the date that are either
// global or scoped to the professional. Expiry is filtered by the caller
// so inertness stays a query-time decision against its clock.
func (r *BlackoutRepository) ListActiveForDate(
	ctx context.Context,
	date time.Time,
	professionalID int64,
) ([]models.BlackoutWindow, error) {
	query := `
		SELECT ` + blackoutColumns + `
		FROM blackout_windows
		WHERE date = $1
		  AND active = TRUE
		  AND (scope = 'global' OR professional_id = $2)
		ORDER BY id ASC
	`
	rows, err := r.db.Query(ctx, query, date, professionalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	windows := make([]models.BlackoutWindow, 0)
	for rows.Next() {
		var window models.BlackoutWindow
		if err := scanBlackout(rows, &window); err != nil {
			return nil, err
		}
		windows = append(windows, window)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return windows, nil
}

func (r *BlackoutRepository) List(ctx context.Context) ([]models.BlackoutWindow, error) {
	query := `
		SELECT ` + blackoutColumns + `
		FROM blackout_windows
		ORDER BY date DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	windows := make([]models.BlackoutWindow, 0)
	for rows.Next() {
		var window models.BlackoutWindow
		if err := scanBlackout(rows, &window); err != nil {
			return nil, err
		}
		windows = append(windows, window)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return windows, nil
}

func (r *BlackoutRepository) SetActive(ctx context.Context, id int64, active bool) (bool, error) {
	query := `
		UPDATE blackout_windows
		SET active = $2, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, active)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
