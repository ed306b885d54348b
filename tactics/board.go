/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package tactics

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// AlertTTL is how long the roster-full warning stays up.
const AlertTTL = 3 * time.Second

// Alert is a transient, user-facing warning.
type Alert struct {
	Message string    `json:"message"`
	Expires time.Time `json:"expires"`
}

// State is the whole board. Transitions never modify a State in place;
// Apply returns a new value with fresh slices and maps.
type State struct {
	Markers      []Marker          `json:"markers"`
	SelectedTeam Team              `json:"selected_team"`
	Formation    string            `json:"formation"`
	Alert        *Alert            `json:"alert,omitempty"`
	Drags        map[string]string `json:"-"` // owner -> marker id
	Seq          uint64            `json:"-"`
}

// NewState returns a board laid out in the named preset, falling back to
// DefaultFormation for unknown names.
func NewState(formation string) State {
	markers, ok := Layout(formation)
	if !ok {
		formation = DefaultFormation
		markers, _ = Layout(formation)
	}

	return State{
		Markers:      markers,
		SelectedTeam: Home,
		Formation:    formation,
	}
}

// Count returns how many markers belong to team.
func (s State) Count(team Team) int {
	n := 0
	for _, m := range s.Markers {
		if m.Team == team {
			n++
		}
	}
	return n
}

// Marker looks up a marker by id.
func (s State) Marker(id string) (Marker, bool) {
	for _, m := range s.Markers {
		if m.ID == id {
			return m, true
		}
	}
	return Marker{}, false
}

// Dragging returns the ids of markers held by an open drag session.
func (s State) Dragging() []string {
	ids := slices.Collect(maps.Values(s.Drags))
	slices.Sort(ids)
	return slices.Compact(ids)
}

// DragOwner reports which marker owner is currently dragging, if any.
func (s State) DragOwner(owner string) (string, bool) {
	id, ok := s.Drags[owner]
	return id, ok
}

// Outcome describes what a single transition did.
type Outcome struct {
	Changed bool
	Alert   *Alert // set when this transition raised a new alert
}

// Event is a board transition. The set of events is closed.
type Event interface {
	apply(s State, now time.Time) (State, Outcome)
}

// Apply runs ev against s.
func (s State) Apply(ev Event, now time.Time) (State, Outcome) {
	if ev == nil {
		return s, Outcome{}
	}
	return ev.apply(s, now)
}

func (s State) withMarkers(markers []Marker) State {
	s.Markers = markers
	return s
}

func (s State) withDrags(drags map[string]string) State {
	if len(drags) == 0 {
		drags = nil
	}
	s.Drags = drags
	return s
}

// replaceMarker returns a copy of the roster with id rewritten by fn.
func (s State) replaceMarker(id string, fn func(Marker) Marker) ([]Marker, bool) {
	idx := slices.IndexFunc(s.Markers, func(m Marker) bool { return m.ID == id })
	if idx < 0 {
		return nil, false
	}

	markers := slices.Clone(s.Markers)
	markers[idx] = fn(markers[idx])

	return markers, true
}

// removeMarker drops id from the roster along with any drag holding it.
func (s State) removeMarker(id string) (State, Outcome) {
	idx := slices.IndexFunc(s.Markers, func(m Marker) bool { return m.ID == id })
	if idx < 0 {
		return s, Outcome{}
	}

	next := s.withMarkers(slices.Delete(slices.Clone(s.Markers), idx, idx+1))

	drags := maps.Clone(s.Drags)
	maps.DeleteFunc(drags, func(_, held string) bool { return held == id })

	return next.withDrags(drags), Outcome{Changed: true}
}

// Add places a new marker where the pointer went down on empty field.
// An empty Team means the currently selected side.
type Add struct {
	Team    Team
	ClientX float64
	ClientY float64
	Rect    Rect
}

func (e Add) apply(s State, now time.Time) (State, Outcome) {
	team := e.Team
	if team == "" {
		team = s.SelectedTeam
	}
	if !team.Valid() {
		return s, Outcome{}
	}

	pos, ok := e.Rect.Percent(e.ClientX, e.ClientY)
	if !ok {
		return s, Outcome{}
	}

	count := s.Count(team)
	if count >= MaxRoster {
		alert := &Alert{
			Message: fmt.Sprintf("%s team already has %d players", team.Title(), MaxRoster),
			Expires: now.Add(AlertTTL),
		}
		s.Alert = alert

		return s, Outcome{Changed: true, Alert: alert}
	}

	s.Seq++
	marker := Marker{
		ID:           fmt.Sprintf("%s-added-%d", team, s.Seq),
		Team:         team,
		Position:     pos,
		Number:       count + 1,
		PositionName: DefaultRole,
		Direction:    team.Facing(),
	}

	markers := make([]Marker, 0, len(s.Markers)+1)
	markers = append(markers, s.Markers...)
	markers = append(markers, marker)

	return s.withMarkers(markers), Outcome{Changed: true}
}

// StartDrag opens a drag session for Owner on MarkerID.
type StartDrag struct {
	Owner    string
	MarkerID string
}

func (e StartDrag) apply(s State, _ time.Time) (State, Outcome) {
	if _, ok := s.Marker(e.MarkerID); !ok {
		return s, Outcome{}
	}
	if held, ok := s.Drags[e.Owner]; ok && held == e.MarkerID {
		return s, Outcome{}
	}

	drags := maps.Clone(s.Drags)
	if drags == nil {
		drags = make(map[string]string, 1)
	}
	drags[e.Owner] = e.MarkerID

	return s.withDrags(drags), Outcome{Changed: true}
}

// Move repositions whatever marker Owner is dragging. Without an open
// session it does nothing.
type Move struct {
	Owner   string
	ClientX float64
	ClientY float64
	Rect    Rect
}

func (e Move) apply(s State, _ time.Time) (State, Outcome) {
	id, ok := s.Drags[e.Owner]
	if !ok {
		return s, Outcome{}
	}

	pos, ok := e.Rect.Percent(e.ClientX, e.ClientY)
	if !ok {
		return s, Outcome{}
	}

	markers, ok := s.replaceMarker(id, func(m Marker) Marker {
		m.Position = pos
		return m
	})
	if !ok {
		return s, Outcome{}
	}

	return s.withMarkers(markers), Outcome{Changed: true}
}

// EndDrag closes Owner's drag session, if one is open.
type EndDrag struct {
	Owner string
}

func (e EndDrag) apply(s State, _ time.Time) (State, Outcome) {
	if _, ok := s.Drags[e.Owner]; !ok {
		return s, Outcome{}
	}

	drags := maps.Clone(s.Drags)
	delete(drags, e.Owner)

	return s.withDrags(drags), Outcome{Changed: true}
}

// Rotate turns a marker by RotateStep degrees.
type Rotate struct {
	MarkerID string
}

func (e Rotate) apply(s State, _ time.Time) (State, Outcome) {
	markers, ok := s.replaceMarker(e.MarkerID, func(m Marker) Marker {
		m.Direction = (m.Direction + RotateStep) % 360
		return m
	})
	if !ok {
		return s, Outcome{}
	}

	return s.withMarkers(markers), Outcome{Changed: true}
}

// Remove deletes a specific marker.
type Remove struct {
	MarkerID string
}

func (e Remove) apply(s State, _ time.Time) (State, Outcome) {
	return s.removeMarker(e.MarkerID)
}

// RemoveLast deletes the most recently listed marker of the selected team.
type RemoveLast struct{}

func (RemoveLast) apply(s State, _ time.Time) (State, Outcome) {
	for i := len(s.Markers) - 1; i >= 0; i-- {
		if s.Markers[i].Team == s.SelectedTeam {
			return s.removeMarker(s.Markers[i].ID)
		}
	}

	return s, Outcome{}
}

// Reset replaces the roster with a preset, discarding manual edits.
type Reset struct {
	Formation string
}

func (e Reset) apply(s State, _ time.Time) (State, Outcome) {
	markers, ok := Layout(e.Formation)
	if !ok {
		return s, Outcome{}
	}

	s.Formation = e.Formation
	s.Alert = nil

	return s.withMarkers(markers).withDrags(nil), Outcome{Changed: true}
}

// Clear empties the board.
type Clear struct{}

func (Clear) apply(s State, _ time.Time) (State, Outcome) {
	if len(s.Markers) == 0 && len(s.Drags) == 0 {
		return s, Outcome{}
	}

	return s.withMarkers([]Marker{}).withDrags(nil), Outcome{Changed: true}
}

// SelectTeam switches the side that Add and RemoveLast act on.
type SelectTeam struct {
	Team Team
}

func (e SelectTeam) apply(s State, _ time.Time) (State, Outcome) {
	if !e.Team.Valid() || e.Team == s.SelectedTeam {
		return s, Outcome{}
	}

	s.SelectedTeam = e.Team

	return s, Outcome{Changed: true}
}

// Rename changes the role label of a marker.
type Rename struct {
	MarkerID     string
	PositionName string
}

func (e Rename) apply(s State, _ time.Time) (State, Outcome) {
	if !ValidRole(e.PositionName) {
		return s, Outcome{}
	}

	markers, ok := s.replaceMarker(e.MarkerID, func(m Marker) Marker {
		m.PositionName = e.PositionName
		return m
	})
	if !ok {
		return s, Outcome{}
	}

	return s.withMarkers(markers), Outcome{Changed: true}
}

// DismissAlert clears the alert once it has expired.
type DismissAlert struct{}

func (DismissAlert) apply(s State, now time.Time) (State, Outcome) {
	if s.Alert == nil || now.Before(s.Alert.Expires) {
		return s, Outcome{}
	}

	s.Alert = nil

	return s, Outcome{Changed: true}
}
