package model

import "time"

// LinkCode одноразовый код, которым терапевт привязывает чат Telegram к своему календарю
type LinkCode struct {
	Code        string     `json:"code"`
	TherapistID int64      `json:"therapist_id"`
	ExpiresAt   time.Time  `json:"expires_at"`
	UsedAt      *time.Time `json:"used_at"` // nil = ещё не использован
	CreatedAt   time.Time  `json:"created_at"`
}

// CanUse код не использован и не истёк к моменту now
func (c *LinkCode) CanUse(now time.Time) bool {
	if c.UsedAt != nil {
		return false
	}
	return now.Before(c.ExpiresAt)
}
