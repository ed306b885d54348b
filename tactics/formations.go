/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package tactics

import (
	"fmt"
	"slices"
)

// Row is one entry of a preset, described for the home side.
type Row struct {
	Role   string
	X, Y   float64
	Number int
	Facing int
}

// Formation is a named, immutable list of eleven home-side rows.
type Formation struct {
	Name string
	Rows []Row
}

// AwayBaseline is the preset the away side always lines up in.
const AwayBaseline = "4-4-2"

// DefaultFormation is applied to new boards.
const DefaultFormation = "4-4-2"

var formationOrder = []string{"4-4-2", "4-3-3", "4-2-3-1", "3-5-2"}

var formations = map[string]Formation{
	"4-4-2": {Name: "4-4-2", Rows: []Row{
		{"GK", 5, 50, 1, 0},
		{"RSB", 20, 20, 2, 0},
		{"CB", 20, 40, 3, 0},
		{"CB", 20, 60, 4, 0},
		{"LSB", 20, 80, 5, 0},
		{"RMF", 33, 20, 6, 0},
		{"CMF", 33, 40, 7, 0},
		{"CMF", 33, 60, 8, 0},
		{"LMF", 33, 80, 9, 0},
		{"CF", 46, 40, 10, 0},
		{"CF", 46, 60, 11, 0},
	}},
	"4-3-3": {Name: "4-3-3", Rows: []Row{
		{"GK", 5, 50, 1, 0},
		{"RSB", 20, 20, 2, 0},
		{"CB", 20, 40, 3, 0},
		{"CB", 20, 60, 4, 0},
		{"LSB", 20, 80, 5, 0},
		{"CMF", 30, 35, 6, 0},
		{"CMF", 30, 50, 7, 0},
		{"CMF", 30, 65, 8, 0},
		{"LWG", 40, 20, 9, 0},
		{"CF", 47, 50, 10, 0},
		{"RWG", 40, 80, 11, 0},
	}},
	"4-2-3-1": {Name: "4-2-3-1", Rows: []Row{
		{"GK", 5, 50, 1, 0},
		{"RSB", 20, 20, 2, 0},
		{"CB", 20, 40, 3, 0},
		{"CB", 20, 60, 4, 0},
		{"LSB", 20, 80, 5, 0},
		{"DMF", 30, 40, 6, 0},
		{"DMF", 30, 60, 7, 0},
		{"LMF", 38, 20, 8, 0},
		{"OMF", 38, 50, 9, 0},
		{"RMF", 38, 80, 10, 0},
		{"CF", 47, 50, 11, 0},
	}},
	"3-5-2": {Name: "3-5-2", Rows: []Row{
		{"GK", 5, 50, 1, 0},
		{"CB", 20, 30, 2, 0},
		{"CB", 20, 50, 3, 0},
		{"CB", 20, 70, 4, 0},
		{"RWB", 33, 15, 5, 0},
		{"CMF", 30, 38, 6, 0},
		{"DMF", 27, 50, 7, 0},
		{"CMF", 30, 62, 8, 0},
		{"LWB", 33, 85, 9, 0},
		{"CF", 46, 40, 10, 0},
		{"CF", 46, 60, 11, 0},
	}},
}

func init() {
	for _, name := range formationOrder {
		f, ok := formations[name]
		if !ok || len(f.Rows) != MaxRoster {
			panic(fmt.Sprintf("tactics: formation %q must have %d rows", name, MaxRoster))
		}
	}
}

// Formations returns the preset names in display order.
func Formations() []string {
	return slices.Clone(formationOrder)
}

// Lookup returns a copy of the named preset.
func Lookup(name string) (Formation, bool) {
	f, ok := formations[name]
	if !ok {
		return Formation{}, false
	}

	return Formation{Name: f.Name, Rows: slices.Clone(f.Rows)}, true
}

// mirror reflects a home row onto the away half.
func mirror(r Row) Row {
	r.X = 100 - r.X
	r.Facing = (r.Facing + 180) % 360

	return r
}

func presetID(team Team, number int) string {
	return fmt.Sprintf("%s-player-%d", team, number)
}

func rowMarker(team Team, r Row) Marker {
	return Marker{
		ID:           presetID(team, r.Number),
		Team:         team,
		Position:     Position{X: r.X, Y: r.Y},
		Number:       r.Number,
		PositionName: r.Role,
		Direction:    r.Facing,
	}
}

// Layout builds the full 22-marker roster for a preset: the named formation
// for the home side and the mirrored baseline for the away side. Ids depend
// only on team and number, so calling Layout twice gives equal results.
func Layout(name string) ([]Marker, bool) {
	home, ok := formations[name]
	if !ok {
		return nil, false
	}
	away := formations[AwayBaseline]

	markers := make([]Marker, 0, len(home.Rows)+len(away.Rows))
	for _, r := range home.Rows {
		markers = append(markers, rowMarker(Home, r))
	}
	for _, r := range away.Rows {
		markers = append(markers, rowMarker(Away, mirror(r)))
	}

	return markers, true
}

// Template is an entry of the examples gallery.
type Template struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Formation   string `json:"formation"`
}

var templates = []Template{
	{"4-4-2", "4-4-2 Formation", "Classic formation with four defenders, four midfielders, and two strikers", "4-4-2"},
	{"4-3-3", "4-3-3 Formation", "Attacking formation with four defenders, three midfielders, and three forwards", "4-3-3"},
	{"4-2-3-1", "4-2-3-1 Formation", "Two holding midfielders screen the back four behind an attacking three", "4-2-3-1"},
	{"3-5-2", "3-5-2 Formation", "Formation with three defenders, five midfielders, and two strikers", "3-5-2"},
	{"corner-kick", "Corner Kick Strategy", "Positioning and movement for an offensive corner kick", DefaultFormation},
	{"counter-attack", "Counter Attack", "Quick transition from defense to attack after winning possession", DefaultFormation},
	{"high-press", "High Press", "Aggressive pressing strategy in the opponent's half", "4-3-3"},
}

// Templates returns the examples gallery.
func Templates() []Template {
	return slices.Clone(templates)
}

// TemplateFormation resolves a template id to the preset it starts from.
func TemplateFormation(id string) (string, bool) {
	for _, t := range templates {
		if t.ID == id {
			return t.Formation, true
		}
	}

	return "", false
}
