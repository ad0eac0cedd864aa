package domain

import "time"

// UserPreferenceVector is the exponentially-decayed, re-normalized average of
// feature vectors the user has positively interacted with. It shares the
// engine's canonical dimension D with ArtworkFeature.
//
// The zero vector is the cold-start sentinel: a user with no positive
// history has no content signal and falls through to the popularity-only
// scoring profile.
//
// Owned exclusively by the behavior aggregator; read-shared by the scorer.
type UserPreferenceVector struct {
	UserID           string    `gorm:"type:text;primaryKey" json:"user_id"`
	Vector           Vector    `gorm:"type:text;not null" json:"vector"`
	InteractionCount int64     `json:"interaction_count"`
	LastUpdated      time.Time `json:"last_updated"`
}

// TableName returns the database table name for UserPreferenceVector.
func (UserPreferenceVector) TableName() string {
	return "user_preference_vectors"
}

// BehaviorStat is a materialized rolling aggregate for a (user, artwork)
// pair, or for an artwork alone when UserID is empty. It is a rebuildable
// cache over the event log, never the system of record.
type BehaviorStat struct {
	ID            string    `gorm:"type:text;primaryKey" json:"id"`
	UserID        string    `gorm:"type:text;index:idx_stats_user;uniqueIndex:idx_stats_pair" json:"user_id"`
	ArtworkID     string    `gorm:"type:text;not null;index:idx_stats_artwork;uniqueIndex:idx_stats_pair" json:"artwork_id"`
	PositiveCount int64     `json:"positive_count"`
	NegativeCount int64     `json:"negative_count"`
	ViewCount     int64     `json:"view_count"`
	Score         float64   `json:"score"`
	LastEventAt   time.Time `json:"last_event_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the database table name for BehaviorStat.
func (BehaviorStat) TableName() string {
	return "behavior_stats"
}
