// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"

	"github.com/okian/dons/internal/domain/questionnaire"
	"github.com/okian/dons/internal/domain/scoring"
	"github.com/okian/dons/internal/domain/types"
)

// Participant identifies who answered the questionnaire.
type Participant struct {
	Name         string `json:"name"`
	Organization string `json:"organization"`
	Email        string `json:"email,omitempty"` // normalized; empty means none
}

// HasEmail reports whether a participant address is present.
func (p Participant) HasEmail() bool { return strings.TrimSpace(p.Email) != "" }

// Assessment is one completed submission plus its computed ranking. It is
// treated as immutable once the ranking has been computed.
type Assessment struct {
	ID           string                `json:"id"`
	SubmissionID string                `json:"submission_id"`
	Participant  Participant           `json:"participant"`
	Answers      questionnaire.Answers `json:"answers"`
	Ranking      scoring.Ranking       `json:"ranking"`
	CreatedAt    time.Time             `json:"created_at"`
}

// DeliveryAttempt records the outcome of one recipient leg.
type DeliveryAttempt struct {
	Role    types.Role        `json:"role"`
	Address string            `json:"address,omitempty"`
	Channel types.ChannelKind `json:"channel"`
	Outcome types.Outcome     `json:"outcome"`
	Detail  string            `json:"detail,omitempty"`
	At      time.Time         `json:"at"`
}
