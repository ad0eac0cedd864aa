package domain

import "time"

// EventType enumerates the raw interaction signals the engine consumes.
type EventType string

const (
	EventView             EventType = "view"
	EventLike             EventType = "like"
	EventDislike          EventType = "dislike"
	EventFeedbackPositive EventType = "feedback-positive"
	EventFeedbackNegative EventType = "feedback-negative"
	EventContractRequest  EventType = "contract-request"
)

// defaultStrengths holds the per-type signal weight applied when an event
// carries no explicit strength.
var defaultStrengths = map[EventType]float64{
	EventView:             0.1,
	EventLike:             1.0,
	EventDislike:          1.0,
	EventFeedbackPositive: 1.0,
	EventFeedbackNegative: 1.0,
	EventContractRequest:  2.0,
}

// DefaultStrength returns the default signal weight for the event type.
func (t EventType) DefaultStrength() float64 {
	if s, ok := defaultStrengths[t]; ok {
		return s
	}
	return 1.0
}

// IsPositive reports whether the event type moves the user preference
// vector toward the artwork.
func (t EventType) IsPositive() bool {
	switch t {
	case EventLike, EventFeedbackPositive, EventContractRequest:
		return true
	}
	return false
}

// IsNegative reports whether the event type registers a scoring-time penalty.
func (t EventType) IsNegative() bool {
	return t == EventDislike || t == EventFeedbackNegative
}

// Valid reports whether the event type is a known enumerated value.
func (t EventType) Valid() bool {
	_, ok := defaultStrengths[t]
	return ok
}

// InteractionEvent is a single immutable interaction in the append-only
// event log. The log is the source of truth for all derived behavioral
// state; aggregates can be rebuilt from it at any time.
type InteractionEvent struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	UserID    string    `gorm:"type:text;not null;index:idx_events_user" json:"user_id"`
	ArtworkID string    `gorm:"type:text;not null;index:idx_events_artwork" json:"artwork_id"`
	Type      EventType `gorm:"type:text;not null" json:"type"`
	Strength  float64   `json:"strength"`
	Timestamp time.Time `gorm:"index:idx_events_ts" json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for InteractionEvent.
func (InteractionEvent) TableName() string {
	return "interaction_events"
}

// EffectiveStrength returns the event's strength, falling back to the
// per-type default when unset.
func (e *InteractionEvent) EffectiveStrength() float64 {
	if e.Strength > 0 {
		return e.Strength
	}
	return e.Type.DefaultStrength()
}
