package models

import "time"

type PlanKind string

const (
	PlanTrial    PlanKind = "trial"
	PlanBasic    PlanKind = "basic"
	PlanPro      PlanKind = "pro"
	PlanElite    PlanKind = "elite"
	PlanChampion PlanKind = "champion"
)

// PlanTerms is the fixed allowance table per plan kind: total classes over
// a validity period of Weeks weeks.
type PlanTerms struct {
	Classes int
	Weeks   int
}

var planTerms = map[PlanKind]PlanTerms{
	PlanTrial:    {Classes: 1, Weeks: 1},
	PlanBasic:    {Classes: 8, Weeks: 4},
	PlanPro:      {Classes: 12, Weeks: 4},
	PlanElite:    {Classes: 16, Weeks: 4},
	PlanChampion: {Classes: 20, Weeks: 4},
}

func TermsFor(kind PlanKind) (PlanTerms, bool) {
	terms, ok := planTerms[kind]
	return terms, ok
}

func (k PlanKind) Valid() bool {
	_, ok := planTerms[k]
	return ok
}

// PlanQuota is a student's current allowance. UsedClasses counts completed
// ledger entries; the remaining balance is always derived, never stored.
type PlanQuota struct {
	ID             int64     `json:"id"`
	StudentID      int64     `json:"student_id"`
	PlanKind       PlanKind  `json:"plan_kind"`
	ClassesPerWeek int       `json:"classes_per_week"`
	TotalClasses   int       `json:"total_classes"`
	UsedClasses    int       `json:"used_classes"`
	StartDate      time.Time `json:"start_date"`
	ExpiryDate     time.Time `json:"expiry_date"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RemainingClasses clamps at zero: an over-used quota reads as empty
// rather than negative.
func (q *PlanQuota) RemainingClasses() int {
	remaining := q.TotalClasses - q.UsedClasses
	if remaining < 0 {
		return 0
	}
	return remaining
}

type LedgerEntry struct {
	ID             int64             `json:"id"`
	QuotaID        int64             `json:"quota_id"`
	AppointmentID  int64             `json:"appointment_id"`
	Date           time.Time         `json:"date"`
	Status         AppointmentStatus `json:"status"`
	ProfessionalID int64             `json:"professional_id"`
	Specialty      *string           `json:"specialty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

type QuotaDetail struct {
	PlanQuota
	RemainingClasses int           `json:"remaining_classes"`
	Ledger           []LedgerEntry `json:"ledger"`
}
