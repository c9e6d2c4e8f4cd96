package models

import "time"

type BlackoutScope string

const (
	ScopeGlobal       BlackoutScope = "global"
	ScopeProfessional BlackoutScope = "professional"
)

// BlackoutWindow blocks bookings on Date. StartsAt/EndsAt are nil for a
// whole-day window; otherwise both are set and StartsAt < EndsAt.
// Windows are never deleted; they go inert when Active is flipped off or
// ExpiresAt passes, both evaluated at query time.
type BlackoutWindow struct {
	ID             int64         `json:"id"`
	Scope          BlackoutScope `json:"scope"`
	ProfessionalID *int64        `json:"professional_id"`
	Date           time.Time     `json:"date"`
	StartsAt       *time.Time    `json:"starts_at"`
	EndsAt         *time.Time    `json:"ends_at"`
	Reason         string        `json:"reason"`
	CreatedBy      int64         `json:"created_by"`
	ExpiresAt      *time.Time    `json:"expires_at"`
	Active         bool          `json:"active"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func (w *BlackoutWindow) WholeDay() bool {
	return w.StartsAt == nil && w.EndsAt == nil
}

// Inert reports whether the window no longer blocks anything as of now.
func (w *BlackoutWindow) Inert(now time.Time) bool {
	if !w.Active {
		return true
	}
	return w.ExpiresAt != nil && now.After(*w.ExpiresAt)
}
