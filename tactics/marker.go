/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package tactics holds the tactics board model: player markers, formation
// presets, the board reducer, and the pointer translation that feeds it.
package tactics

import (
	"math"
	"slices"
)

// Team identifies one side of the pitch.
type Team string

const (
	Home Team = "home"
	Away Team = "away"
)

// Valid reports whether t is one of the two known sides.
func (t Team) Valid() bool {
	return t == Home || t == Away
}

// Title returns the display name used in user-facing messages.
func (t Team) Title() string {
	switch t {
	case Home:
		return "Home"
	case Away:
		return "Away"
	}
	return string(t)
}

// Facing is the default direction for markers added by hand.
func (t Team) Facing() int {
	if t == Away {
		return 180
	}
	return 0
}

const (
	// MaxRoster is the most markers a side may hold via the add path.
	MaxRoster = 11

	// RotateStep is the angle applied by one secondary click.
	RotateStep = 45

	// DefaultRole labels markers added by clicking the field.
	DefaultRole = "PL"
)

// roles lists every label a marker may carry.
var roles = []string{
	"GK",
	"CB", "RSB", "LSB", "RB", "LB", "RWB", "LWB",
	"DMF", "CMF", "RMF", "LMF", "OMF", "CM", "RM", "LM", "DM", "AM",
	"CF", "ST", "WG", "LWG", "RWG",
	DefaultRole,
}

// Roles returns the known role labels, in display order.
func Roles() []string {
	return slices.Clone(roles)
}

// ValidRole reports whether name is a known role label.
func ValidRole(name string) bool {
	return slices.Contains(roles, name)
}

// Position is a percentage offset inside the field container.
// Values outside [0,100] are kept as-is.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Marker is one player token on the board.
type Marker struct {
	ID           string   `json:"id"`
	Team         Team     `json:"team"`
	Position     Position `json:"position"`
	Number       int      `json:"number,omitempty"`
	PositionName string   `json:"position_name"`
	Direction    int      `json:"direction"` // degrees, [0,360)
}

// Rect is the on-screen bounding box of the field, sampled per event.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Valid reports whether r can be used to translate pointer coordinates.
func (r Rect) Valid() bool {
	return r.Width > 0 && r.Height > 0 && finite(r.Left, r.Top, r.Width, r.Height)
}

// Percent converts absolute client coordinates into a field position.
func (r Rect) Percent(clientX, clientY float64) (Position, bool) {
	if !r.Valid() || !finite(clientX, clientY) {
		return Position{}, false
	}

	return Position{
		X: (clientX - r.Left) / r.Width * 100,
		Y: (clientY - r.Top) / r.Height * 100,
	}, true
}
