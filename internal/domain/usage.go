package domain

import (
	"time"
)

// UsageRecord is the persisted per-user consultation accounting record.
type UsageRecord struct {
	UserID            int64     `json:"user_id"`
	ConsultationsUsed int       `json:"consultations_used"`
	QuotaBonus        int       `json:"quota_bonus"` // operator-granted extra consultations
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	Username          string    `json:"username"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Limit returns the effective consultation limit for this user given the
// configured base limit.
func (r *UsageRecord) Limit(baseLimit int) int {
	return baseLimit + r.QuotaBonus
}

// Exhausted reports whether the user has no consultations left.
func (r *UsageRecord) Exhausted(baseLimit int) bool {
	return r.ConsultationsUsed >= r.Limit(baseLimit)
}

// Remaining returns how many consultations the user has left.
func (r *UsageRecord) Remaining(baseLimit int) int {
	left := r.Limit(baseLimit) - r.ConsultationsUsed
	if left < 0 {
		return 0
	}
	return left
}
