// Package fulfillment owns the three-party handoff state machine:
// sender -> intermediary -> recipient, gated by a single-use transfer
// token (drop-off) and a hashed collection secret (pickup).
package fulfillment

import (
	"strings"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusInTransit Status = "in_transit"
	StatusCompleted Status = "completed"
)

// Stage indexes into the fixed three-entry timeline.
type Stage int

const (
	StageCreated Stage = iota
	StageDroppedOff
	StageCollected
)

type TimelineStage struct {
	Key         string     `json:"key"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Fulfillment is the aggregate root tracking one handoff. The Id doubles
// as the single-use transfer token encoded in the drop-off artifact.
type Fulfillment struct {
	Id                    string          `json:"id"`
	ItemDescription       string          `json:"item_description"`
	SenderName            string          `json:"sender_name"`
	IntermediaryName      string          `json:"intermediary_name"`
	RecipientName         string          `json:"recipient_name"`
	Status                Status          `json:"status"`
	TransferTokenConsumed bool            `json:"transfer_token_consumed"`
	SecretHash            string          `json:"secret_hash"`
	SecretConsumed        bool            `json:"secret_consumed"`
	CreatedAt             time.Time       `json:"created_at"`
	Timeline              []TimelineStage `json:"timeline"`
}

func newTimeline(now time.Time) []TimelineStage {
	created := now
	return []TimelineStage{
		{
			Key:         "created",
			Title:       "Created",
			Description: "Sender registered the item for handoff",
			Completed:   true,
			CompletedAt: &created,
		},
		{
			Key:         "dropped_off",
			Title:       "Dropped Off",
			Description: "Item left with the intermediary",
		},
		{
			Key:         "collected",
			Title:       "Collected",
			Description: "Item collected by the recipient",
		},
	}
}

// markStage completes a timeline stage. The timestamp is set exactly once;
// completing an already-completed stage is a no-op.
func (f *Fulfillment) markStage(stage Stage, now time.Time) {
	if int(stage) >= len(f.Timeline) {
		return
	}
	s := &f.Timeline[stage]
	if s.Completed {
		return
	}
	s.Completed = true
	ts := now
	s.CompletedAt = &ts
}

// clone returns a deep copy so callers can never mutate repository state.
func (f *Fulfillment) clone() *Fulfillment {
	cp := *f
	cp.Timeline = make([]TimelineStage, len(f.Timeline))
	for i, s := range f.Timeline {
		cp.Timeline[i] = s
		if s.CompletedAt != nil {
			ts := *s.CompletedAt
			cp.Timeline[i].CompletedAt = &ts
		}
	}
	return &cp
}

// NormalizeToken maps the text a user typed (or scanned) back to the id
// encoded in the drop-off artifact: whitespace-trimmed, case-insensitive.
func NormalizeToken(token string) string {
	return strings.ToLower(strings.TrimSpace(token))
}
