package repository

import (
	"context"
	"time"

	"github.com/jonachoGonz/WellnessCenterBack/internal/models"
)

type QuotaRepository struct {
	db DBTX
}

func NewQuotaRepository(db DBTX) *QuotaRepository {
	return &QuotaRepository{db: db}
}

const quotaColumns = `id, student_id, plan_kind, classes_per_week, total_classes, used_classes,
	start_date, expiry_date, active, created_at, updated_at`

func scanQuota(row interface{ Scan(dest ...any) error }, quota *models.PlanQuota) error {
	return row.Scan(
		&quota.ID,
		&quota.StudentID,
		&quota.PlanKind,
		&quota.ClassesPerWeek,
		&quota.TotalClasses,
		&quota.UsedClasses,
		&quota.StartDate,
		&quota.ExpiryDate,
		&quota.Active,
		&quota.CreatedAt,
		&quota.UpdatedAt,
	)
}

func (r *QuotaRepository) Create(ctx context.Context, quota *models.PlanQuota) error {
	query := `
		INSERT INTO plan_quotas (student_id, plan_kind, classes_per_week, total_classes, start_date, expiry_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, used_classes, active, created_at, updated_at
	`
	return r.db.QueryRow(
		ctx,
		query,
		quota.StudentID,
		quota.PlanKind,
		quota.ClassesPerWeek,
		quota.TotalClasses,
		quota.StartDate,
		quota.ExpiryDate,
	).Scan(&quota.ID, &quota.UsedClasses, &quota.Active, &quota.CreatedAt, &quota.UpdatedAt)
}

func (r *QuotaRepository) GetActiveByStudentID(ctx context.Context, studentID int64) (*models.PlanQuota, error) {
	query := `
		SELECT ` + quotaColumns + `
		FROM plan_quotas
		WHERE student_id = $1 AND active = TRUE
		ORDER BY id DESC
		LIMIT 1
	`
	var quota models.PlanQuota
	if err := scanQuota(r.db.QueryRow(ctx, query, studentID), &quota); err != nil {
		return nil, err
	}
	return &quota, nil
}

func (r *QuotaRepository) GetActiveByStudentIDForUpdate(ctx context.Context, studentID int64) (*models.PlanQuota, error) {
	query := `
		SELECT ` + quotaColumns + `
		FROM plan_quotas
		WHERE student_id = $1 AND active = TRUE
		ORDER BY id DESC
		LIMIT 1
		FOR UPDATE
	`
	var quota models.PlanQuota
	if err := scanQuota(r.db.QueryRow(ctx, query, studentID), &quota); err != nil {
		return nil, err
	}
	return &quota, nil
}

func (r *QuotaRepository) GetByIDForUpdate(ctx context.Context, quotaID int64) (*models.PlanQuota, error) {
	query := `
		SELECT ` + quotaColumns + `
		FROM plan_quotas
		WHERE id = $1
		FOR UPDATE
	`
	var quota models.PlanQuota
	if err := scanQuota(r.db.QueryRow(ctx, query, quotaID), &quota); err != nil {
		return nil, err
	}
	return &quota, nil
}

func (r *QuotaRepository) UpdateUsedClasses(ctx context.Context, quotaID int64, usedClasses int) error {
	query := `
		UPDATE plan_quotas
		SET used_classes = $2, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, quotaID, usedClasses)
	return err
}

// DeactivateByStudentID retires every active quota the student has and
// returns how many rows were touched. Used when replacing a plan and when
// deactivating an account; quotas are never deleted.
func (r *QuotaRepository) DeactivateByStudentID(ctx context.Context, studentID int64) (int64, error) {
	query := `
		UPDATE plan_quotas
		SET active = FALSE, updated_at = NOW()
		WHERE student_id = $1 AND active = TRUE
	`
	tag, err := r.db.Exec(ctx, query, studentID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *QuotaRepository) InsertLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error {
	query := `
		INSERT INTO quota_ledger (quota_id, appointment_id, date, status, professional_id, specialty)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(
		ctx,
		query,
		entry.QuotaID,
		entry.AppointmentID,
		entry.Date,
		entry.Status,
		entry.ProfessionalID,
		entry.Specialty,
	).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
}

const ledgerColumns = `id, quota_id, appointment_id, date, status, professional_id, specialty, created_at, updated_at`

func scanLedgerEntry(row interface{ Scan(dest ...any) error }, entry *models.LedgerEntry) error {
	return row.Scan(
		&entry.ID,
		&entry.QuotaID,
		&entry.AppointmentID,
		&entry.Date,
		&entry.Status,
		&entry.ProfessionalID,
		&entry.Specialty,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
}

func (r *QuotaRepository) ListLedger(ctx context.Context, quotaID int64) ([]models.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM quota_ledger
		WHERE quota_id = $1
		ORDER BY date ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, quotaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.LedgerEntry, 0)
	for rows.Next() {
		var entry models.LedgerEntry
		if err := scanLedgerEntry(rows, &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListLedgerInRange returns entries whose date falls in [from, to).
func (r *QuotaRepository) ListLedgerInRange(
	ctx context.Context,
	quotaID int64,
	from time.Time,
	to time.Time,
) ([]models.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM quota_ledger
		WHERE quota_id = $1 AND date >= $2 AND date < $3
		ORDER BY date ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, quotaID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.LedgerEntry, 0)
	for rows.Next() {
		var entry models.LedgerEntry
		if err := scanLedgerEntry(rows, &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *QuotaRepository) GetLedgerByAppointmentID(
	ctx context.Context,
	appointmentID int64,
) (*models.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM quota_ledger
		WHERE appointment_id = $1
	`
	var entry models.LedgerEntry
	if err := scanLedgerEntry(r.db.QueryRow(ctx, query, appointmentID), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *QuotaRepository) UpdateLedgerStatus(
	ctx context.Context,
	entryID int64,
	status models.AppointmentStatus,
) error {
	query := `
		UPDATE quota_ledger
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, entryID, status)
	return err
}
