package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// ArtworkStatus represents the lifecycle status of an artwork record.
type ArtworkStatus string

const (
	ArtworkStatusPending ArtworkStatus = "pending"
	ArtworkStatusActive  ArtworkStatus = "active"
	ArtworkStatusHidden  ArtworkStatus = "hidden"
)

// StringArray is a custom type for storing string arrays as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// Artwork represents a marketplace artwork. The engine uses it for candidate
// sourcing and artist-level aggregation; presentation fields live elsewhere.
type Artwork struct {
	ID          string        `gorm:"type:text;primaryKey" json:"id"`
	ArtistID    string        `gorm:"type:text;not null;index:idx_artworks_artist" json:"artist_id"`
	Title       string        `gorm:"type:text" json:"title"`
	Category    string        `gorm:"type:text;index:idx_artworks_category" json:"category"`
	Style       string        `gorm:"type:text;index:idx_artworks_style" json:"style"`
	Tags        StringArray   `gorm:"type:text" json:"tags"`
	ImageRef    string        `gorm:"type:text" json:"image_ref"`
	Width       int           `json:"width"`
	Height      int           `json:"height"`
	Format      string        `json:"format"`
	IsPublic    bool          `gorm:"index:idx_artworks_public" json:"is_public"`
	IsPortfolio bool          `json:"is_portfolio"`
	Status      ArtworkStatus `gorm:"type:text;index:idx_artworks_status;default:pending" json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// TableName returns the database table name for Artwork.
func (Artwork) TableName() string {
	return "artworks"
}
