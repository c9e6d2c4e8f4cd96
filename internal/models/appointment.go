package models

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no-show"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

type AppointmentKind string

const (
	KindTrialClass        AppointmentKind = "trial-class"
	KindGroupClass        AppointmentKind = "group-class"
	KindPersonalTraining  AppointmentKind = "personal-training"
	KindNutritionFollowup AppointmentKind = "nutrition-followup"
	KindPsychologySession AppointmentKind = "psychology-session"
	KindEvaluation        AppointmentKind = "evaluation"
)

// SessionRule drives per-kind behavior so the scheduling code never
// branches on professional role: default length, whether the session
// consumes the plan allowance, and which specialties may host it.
type SessionRule struct {
	DefaultDurationMinutes int
	DeductsFromQuota       bool
	Specialties            []string
}

var sessionRules = map[AppointmentKind]SessionRule{
	KindTrialClass:        {DefaultDurationMinutes: 60, DeductsFromQuota: false, Specialties: []string{SpecialtyTeacher}},
	KindGroupClass:        {DefaultDurationMinutes: 60, DeductsFromQuota: true, Specialties: []string{SpecialtyTeacher}},
	KindPersonalTraining:  {DefaultDurationMinutes: 60, DeductsFromQuota: true, Specialties: []string{SpecialtyTeacher}},
	KindNutritionFollowup: {DefaultDurationMinutes: 30, DeductsFromQuota: true, Specialties: []string{SpecialtyNutritionist}},
	KindPsychologySession: {DefaultDurationMinutes: 45, DeductsFromQuota: true, Specialties: []string{SpecialtyPsychologist}},
	KindEvaluation:        {DefaultDurationMinutes: 30, DeductsFromQuota: false, Specialties: []string{SpecialtyTeacher, SpecialtyNutritionist, SpecialtyPsychologist}},
}

func RuleFor(kind AppointmentKind) (SessionRule, bool) {
	rule, ok := sessionRules[kind]
	return rule, ok
}

func (r SessionRule) AllowsSpecialty(specialty string) bool {
	for _, s := range r.Specialties {
		if s == specialty {
			return true
		}
	}
	return false
}

type Appointment struct {
	ID               int64             `json:"id"`
	PublicID         uuid.UUID         `json:"public_id"`
	StudentID        int64             `json:"student_id"`
	ProfessionalID   int64             `json:"professional_id"`
	Kind             AppointmentKind   `json:"kind"`
	StartsAt         time.Time         `json:"starts_at"`
	EndsAt           time.Time         `json:"ends_at"`
	DurationMinutes  int               `json:"duration_minutes"`
	Status           AppointmentStatus `json:"status"`
	DeductsFromQuota bool              `json:"deducts_from_quota"`
	Notes            *string           `json:"notes"`
	CancelReason     *string           `json:"cancel_reason"`
	CreatedBy        int64             `json:"created_by"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

type Evaluation struct {
	ID            int64     `json:"id"`
	AppointmentID int64     `json:"appointment_id"`
	Rating        int       `json:"rating"`
	Punctuality   int       `json:"punctuality"`
	Quality       int       `json:"quality"`
	Comments      *string   `json:"comments"`
	EvaluatedAt   time.Time `json:"evaluated_at"`
}

type AppointmentDetail struct {
	Appointment
	Evaluation *Evaluation `json:"evaluation,omitempty"`
}
