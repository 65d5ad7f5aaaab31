package testmodels

import (
	"fmt"
	"time"

	"github.com/go-openapi/strfmt"
)

// RatingSystem is a sample entity used by backend tests.
type RatingSystem struct {

	// Unique identifier for the rating system.
	// Required: true
	ID int64 `json:"Id" dynamodbav:"Id"`

	// Name of the rating system.
	// Required: true
	Name string `json:"Name" dynamodbav:"Name"`

	// A description of the rating system.
	Description string `json:"Description,omitempty" dynamodbav:"Description,omitempty"`

	// Identifier of the club running the rating system.
	ClubID int64 `json:"ClubId,omitempty" dynamodbav:"ClubId,omitempty"`

	// site Url
	SiteURL string `json:"SiteUrl,omitempty" dynamodbav:"SiteUrl,omitempty"`

	// Timestamp when the rating system was created.
	// Format: date-time
	CreatedAt string `json:"CreatedAt" dynamodbav:"CreatedAt"`

	// Timestamp when the rating system was last updated.
	// Format: date-time
	UpdatedAt string `json:"UpdatedAt" dynamodbav:"UpdatedAt"`
}

func (r *RatingSystem) PrimaryKey() int64 { return r.ID }

// NewRatingSystem creates a rating system stamped with the given time.
func NewRatingSystem(id int64, name string, at time.Time) *RatingSystem {
	ts := strfmt.DateTime(at.UTC()).String()
	return &RatingSystem{ID: id, Name: name, CreatedAt: ts, UpdatedAt: ts}
}

// Created returns the creation timestamp.
func (r *RatingSystem) Created() (strfmt.DateTime, error) {
	return strfmt.ParseDateTime(r.CreatedAt)
}

// Validate checks the required fields and timestamp formats.
func (r *RatingSystem) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rating system %d: name is required", r.ID)
	}
	for field, v := range map[string]string{"CreatedAt": r.CreatedAt, "UpdatedAt": r.UpdatedAt} {
		if !strfmt.IsDateTime(v) {
			return fmt.Errorf("rating system %d: %s is not a date-time: %q", r.ID, field, v)
		}
	}
	return nil
}
