package models

import "time"

const (
	RoleStudent      = "student"
	RoleProfessional = "professional"
	RoleAdmin        = "admin"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     *string   `json:"full_name"`
	Role         string    `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ProfessionalProfile struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	FullName  *string   `json:"full_name"`
	Specialty *string   `json:"specialty"`
	Title     *string   `json:"title"`
	Bio       *string   `json:"bio"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Specialties a professional profile may carry. The session-kind table in
// appointment.go decides which kinds each specialty may host.
const (
	SpecialtyTeacher      = "teacher"
	SpecialtyNutritionist = "nutritionist"
	SpecialtyPsychologist = "psychologist"
)

func ValidSpecialty(specialty string) bool {
	switch specialty {
	case SpecialtyTeacher, SpecialtyNutritionist, SpecialtyPsychologist:
		return true
	}
	return false
}

type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}
