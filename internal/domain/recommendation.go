package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Outcome enumerates the feedback outcomes the feedback loop accepts.
type Outcome string

const (
	OutcomeClick           Outcome = "click"
	OutcomeIgnore          Outcome = "ignore"
	OutcomeConvert         Outcome = "convert"
	OutcomeExplicitLike    Outcome = "explicit-like"
	OutcomeExplicitDislike Outcome = "explicit-dislike"
)

// Valid reports whether the outcome is a known enumerated value.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeClick, OutcomeIgnore, OutcomeConvert, OutcomeExplicitLike, OutcomeExplicitDislike:
		return true
	}
	return false
}

// ScoreBreakdown records the weighted components that produced a final score.
type ScoreBreakdown struct {
	Content    float64 `json:"content"`
	Behavior   float64 `json:"behavior"`
	Popularity float64 `json:"popularity"`
	Penalty    float64 `json:"penalty"`
}

// RecommendedItem is one ranked entry within a recommendation record.
type RecommendedItem struct {
	ArtworkID string         `json:"artwork_id"`
	Score     float64        `json:"score"`
	Position  int            `json:"position"`
	Breakdown ScoreBreakdown `json:"breakdown"`
	Reason    string         `json:"reason,omitempty"`
	Outcome   Outcome        `json:"outcome,omitempty"`
}

// RecommendedItems stores the ordered item list as JSON in the database.
type RecommendedItems []RecommendedItem

// Value implements the driver.Valuer interface for database serialization.
func (r RecommendedItems) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (r *RecommendedItems) Scan(value interface{}) error {
	if value == nil {
		*r = RecommendedItems{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan RecommendedItems")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, r)
}

// RecommendationRecord is the append-only history of one served
// recommendation batch, read later for offline evaluation. The item list is
// written once at generation time; only per-item outcomes are appended by
// the feedback loop.
type RecommendationRecord struct {
	ID           string           `gorm:"type:text;primaryKey" json:"id"`
	UserID       string           `gorm:"type:text;not null;index:idx_recs_user" json:"user_id"`
	Items        RecommendedItems `gorm:"type:text;not null" json:"items"`
	ModelVersion string           `gorm:"type:text" json:"model_version"`
	Profile      string           `gorm:"type:text" json:"profile"`
	GeneratedAt  time.Time        `gorm:"index:idx_recs_generated" json:"generated_at"`
}

// TableName returns the database table name for RecommendationRecord.
func (RecommendationRecord) TableName() string {
	return "recommendation_records"
}
