package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonachoGonz/WellnessCenterBack/internal/models"
)

type ProfessionalRepository struct {
	db DBTX
}

func NewProfessionalRepository(db DBTX) *ProfessionalRepository {
	return &ProfessionalRepository{db: db}
}

func (r *ProfessionalRepository) CreateEmpty(ctx context.Context, userID int64) error {
	query := `
		INSERT INTO professional_profiles (user_id)
		VALUES ($1)
	`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

func (r *ProfessionalRepository) GetByUserID(ctx context.Context, userID int64) (*models.ProfessionalProfile, error) {
	query := `
		SELECT id, user_id, full_name, specialty, title, bio, active, created_at, updated_at
		FROM professional_profiles
		WHERE user_id = $1
	`
	var profile models.ProfessionalProfile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.FullName,
		&profile.Specialty,
		&profile.Title,
		&profile.Bio,
		&profile.Active,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

type UpdateProfessionalInput struct {
	FullName  *string
	Specialty *string
	Title     *string
	Bio       *string
}

func (r *ProfessionalRepository) Update(
	ctx context.Context,
	userID int64,
	input UpdateProfessionalInput,
) (*models.ProfessionalProfile, error) {
	query := `
		UPDATE professional_profiles
		SET full_name = COALESCE($2, full_name),
		    specialty = COALESCE($3, specialty),
		    title = COALESCE($4, title),
		    bio = COALESCE($5, bio),
		    updated_at = NOW()
		WHERE user_id = $1
		RETURNING id, user_id, full_name, specialty, title, bio, active, created_at, updated_at
	`
	var profile models.ProfessionalProfile
	err := r.db.QueryRow(ctx, query, userID, input.FullName, input.Specialty, input.Title, input.Bio).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.FullName,
		&profile.Specialty,
		&profile.Title,
		&profile.Bio,
		&profile.Active,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

type ProfessionalListFilter struct {
	Specialty string
	Page      int
	Limit     int
}

func (r *ProfessionalRepository) List(
	ctx context.Context,
	filter ProfessionalListFilter,
) ([]models.ProfessionalProfile, int, error) {
	whereParts := []string{"active = TRUE"}
	args := []any{}

	if specialty := strings.TrimSpace(filter.Specialty); specialty != "" {
		args = append(args, specialty)
		whereParts = append(whereParts, fmt.Sprintf("specialty = $%d", len(args)))
	}
	where := strings.Join(whereParts, " AND ")

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM professional_profiles WHERE %s`, where)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	query := fmt.Sprintf(`
		SELECT id, user_id, full_name, specialty, title, bio, active, created_at, updated_at
		FROM professional_profiles
		WHERE %s
		ORDER BY id ASC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	profiles := make([]models.ProfessionalProfile, 0)
	for rows.Next() {
		var profile models.ProfessionalProfile
		if err := rows.Scan(
			&profile.ID,
			&profile.UserID,
			&profile.FullName,
			&profile.Specialty,
			&profile.Title,
			&profile.Bio,
			&profile.Active,
			&profile.CreatedAt,
			&profile.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return profiles, total, nil
}
