package types

import (
	"time"

	"github.com/google/uuid"
)

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type MapLinks struct {
	GoogleMaps string `json:"google_maps,omitempty"`
	AppleMaps  string `json:"apple_maps,omitempty"`
}

func (l *MapLinks) HasLinks() bool {
	return l != nil && (l.GoogleMaps != "" || l.AppleMaps != "")
}

// POI is a read-only point of interest as returned by the repository.
type POI struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description,omitempty"`
	Address     string      `json:"address,omitempty"`
	Coordinates Coordinates `json:"coordinates"`
	MapLinks    *MapLinks   `json:"map_links,omitempty"`
	StartDate   *time.Time  `json:"start_date,omitempty"`
}

// POIFilters narrows a repository search. Empty fields do not filter.
type POIFilters struct {
	Types    []string `json:"types,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

type Territory struct {
	ID   uuid.UUID `json:"id"`
	Slug string    `json:"slug"`
	Name string    `json:"name"`
}

// POICard is a POI prepared for rendering: links are exactly those of the
// record, stripped for events, and replaced by a placeholder when absent.
type POICard struct {
	ID                  uuid.UUID           `json:"id"`
	Name                string              `json:"name"`
	Type                string              `json:"type"`
	Description         string              `json:"description,omitempty"`
	Address             string              `json:"address,omitempty"`
	Category            InteractionCategory `json:"category"`
	MapLinks            *MapLinks           `json:"map_links,omitempty"`
	MapLinksPlaceholder string              `json:"map_links_placeholder,omitempty"`
	Warning             string              `json:"warning,omitempty"`
}
