package domain

import (
	"time"

	"github.com/google/uuid"
)

// HandoffTTL is the fixed lifetime of a handoff code.
const HandoffTTL = 5 * time.Minute

// HandoffCode is one stored handoff row. AccessToken and RefreshToken hold the
// payloads exactly as the store returned them (possibly sealed).
type HandoffCode struct {
	ID           uuid.UUID  `json:"id"`
	Code         string     `json:"code"`
	SubjectID    int64      `json:"subject_id"`
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	ConsumedAt   *time.Time `json:"consumed_at,omitempty"`
}

// NewHandoffCode builds an active row created at now.
func NewHandoffCode(code string, subjectID int64, accessToken, refreshToken string, now time.Time) *HandoffCode {
	return &HandoffCode{
		ID:           uuid.New(),
		Code:         code,
		SubjectID:    subjectID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		CreatedAt:    now,
		ExpiresAt:    now.Add(HandoffTTL),
	}
}

// Redeemable reports whether the code is unconsumed and unexpired at now.
func (h *HandoffCode) Redeemable(now time.Time) bool {
	return h.ConsumedAt == nil && now.Before(h.ExpiresAt)
}

// Credentials is the session pair released by a successful redemption.
type Credentials struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
