package model

import "strings"

// Location is a physical storage place such as a fridge, freezer or pantry.
type Location struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	IsFreezer   bool   `json:"is_freezer"`
	Description string `json:"description,omitempty"`
}

// LocationInput is a loosely typed location form.
type LocationInput struct {
	Name        string `json:"name"`
	IsFreezer   any    `json:"is_freezer"`
	Description string `json:"description"`
}

// Location coerces the form into a location.
func (in LocationInput) Location() (Location, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Location{}, NewValidationError("name", "required")
	}
	return Location{
		Name:        name,
		IsFreezer:   Flag(in.IsFreezer),
		Description: strings.TrimSpace(in.Description),
	}, nil
}
