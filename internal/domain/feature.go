package domain

import "time"

// ArtworkFeature holds the canonical image-derived feature vector for an
// artwork under a specific embedding model version.
//
// At most one feature exists per (artwork_id, model_version). Features are
// immutable once written: re-extraction with a newer embedding generation
// creates a new row under a bumped model version rather than mutating in
// place.
type ArtworkFeature struct {
	ID           string    `gorm:"type:text;primaryKey" json:"id"`
	ArtworkID    string    `gorm:"type:text;not null;uniqueIndex:idx_features_artwork_version" json:"artwork_id"`
	ModelVersion string    `gorm:"type:text;not null;uniqueIndex:idx_features_artwork_version" json:"model_version"`
	Vector       Vector    `gorm:"type:text;not null" json:"vector"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName returns the database table name for ArtworkFeature.
func (ArtworkFeature) TableName() string {
	return "artwork_features"
}
