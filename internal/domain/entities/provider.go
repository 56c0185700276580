package entities

import (
	"math"
	"strings"
	"time"
)

// Provider represents a healthcare provider listed in the directory
type Provider struct {
	ID             string       `json:"id" db:"id"`
	Name           string       `json:"name" db:"name"`
	Specialty      string       `json:"specialty" db:"specialty"`
	Location       string       `json:"location" db:"location"`
	Pincode        string       `json:"pincode" db:"pincode"`
	Coordinates    *Coordinate  `json:"coordinates,omitempty" db:"-"`
	Rating         *float64     `json:"rating,omitempty" db:"rating"`
	Languages      []string     `json:"languages" db:"-"`
	MultiSpecialty bool         `json:"multi_specialty" db:"is_multi_specialty"`
	Availability   Availability `json:"availability" db:"-"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" db:"updated_at"`
}

// Availability describes when a provider can be booked
type Availability struct {
	Days           []string `json:"days,omitempty"`
	AvailableSlots int      `json:"available_slots"`
	NextAvailable  string   `json:"next_available,omitempty"`
}

// Coordinate represents geographical coordinates in degrees
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// IsFinite reports whether both components are finite numbers.
func (c Coordinate) IsFinite() bool {
	return !math.IsNaN(c.Latitude) && !math.IsInf(c.Latitude, 0) &&
		!math.IsNaN(c.Longitude) && !math.IsInf(c.Longitude, 0)
}

// InRange reports whether the coordinate lies within [-90,90] x [-180,180].
func (c Coordinate) InRange() bool {
	return c.IsFinite() &&
		c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// multiSpecialtyLabels are specialty strings that denote a clinic able to
// address any inferred specialty.
var multiSpecialtyLabels = map[string]struct{}{
	"multi-specialty clinic": {},
	"multispecialty clinic":  {},
	"multi specialty clinic": {},
	"multi-specialty":        {},
	"general clinic":         {},
	"polyclinic":             {},
}

// MultiSpecialtyLabels returns the lowercase specialty labels treated as multi-specialty clinics.
func MultiSpecialtyLabels() []string {
	labels := make([]string, 0, len(multiSpecialtyLabels))
	for l := range multiSpecialtyLabels {
		labels = append(labels, l)
	}
	return labels
}

// IsMultiSpecialtyLabel reports whether a specialty string names a multi-specialty clinic.
func IsMultiSpecialtyLabel(specialty string) bool {
	_, ok := multiSpecialtyLabels[strings.Join(strings.Fields(strings.ToLower(specialty)), " ")]
	return ok
}

// IsMultiSpecialty reports whether the provider is flagged, or labelled, as a multi-specialty clinic.
func (p *Provider) IsMultiSpecialty() bool {
	return p.MultiSpecialty || IsMultiSpecialtyLabel(p.Specialty)
}

// Clone returns a copy that shares no mutable state with p.
func (p *Provider) Clone() Provider {
	c := *p
	if p.Coordinates != nil {
		coord := *p.Coordinates
		c.Coordinates = &coord
	}
	if p.Rating != nil {
		rating := *p.Rating
		c.Rating = &rating
	}
	if p.Languages != nil {
		c.Languages = append([]string(nil), p.Languages...)
	}
	if p.Availability.Days != nil {
		c.Availability.Days = append([]string(nil), p.Availability.Days...)
	}
	return c
}
