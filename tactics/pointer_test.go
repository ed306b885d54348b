package tactics

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	rect := Rect{Left: 0, Top: 0, Width: 200, Height: 100}

	tests := []struct {
		name string
		in   PointerEvent
		want Event
	}{
		{
			name: "primary down on marker starts drag",
			in:   PointerEvent{Kind: PointerDown, Button: PrimaryButton, Target: "home-player-1"},
			want: StartDrag{Owner: "me", MarkerID: "home-player-1"},
		},
		{
			name: "primary down on field adds",
			in:   PointerEvent{Kind: PointerDown, Button: PrimaryButton, ClientX: 10, ClientY: 20, Rect: rect},
			want: Add{ClientX: 10, ClientY: 20, Rect: rect},
		},
		{
			name: "secondary down on marker rotates",
			in:   PointerEvent{Kind: PointerDown, Button: SecondaryButton, Target: "away-player-4"},
			want: Rotate{MarkerID: "away-player-4"},
		},
		{
			name: "secondary down on field is ignored",
			in:   PointerEvent{Kind: PointerDown, Button: SecondaryButton},
			want: nil,
		},
		{
			name: "middle button is ignored",
			in:   PointerEvent{Kind: PointerDown, Button: 1, Target: "home-player-1"},
			want: nil,
		},
		{
			name: "context menu on marker rotates",
			in:   PointerEvent{Kind: ContextMenu, Target: "home-player-2"},
			want: Rotate{MarkerID: "home-player-2"},
		},
		{
			name: "context menu on field is swallowed",
			in:   PointerEvent{Kind: ContextMenu},
			want: nil,
		},
		{
			name: "move",
			in:   PointerEvent{Kind: PointerMove, ClientX: 5, ClientY: 6, Rect: rect},
			want: Move{Owner: "me", ClientX: 5, ClientY: 6, Rect: rect},
		},
		{
			name: "up ends drag",
			in:   PointerEvent{Kind: PointerUp, Target: "anything"},
			want: EndDrag{Owner: "me"},
		},
		{
			name: "unknown kind",
			in:   PointerEvent{Kind: "wheel"},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Translate("me", tt.in))
		})
	}
}

func TestRectPercent(t *testing.T) {
	r := Rect{Left: 20, Top: 10, Width: 400, Height: 200}

	pos, ok := r.Percent(220, 60)
	assert.True(t, ok)
	assert.Equal(t, Position{X: 50, Y: 25}, pos)

	_, ok = r.Percent(math.NaN(), 0)
	assert.False(t, ok)

	_, ok = Rect{Width: math.Inf(1), Height: 10}.Percent(1, 1)
	assert.False(t, ok)
}

func TestDragSessionThroughPointerEvents(t *testing.T) {
	rect := Rect{Width: 1000, Height: 500}
	s := NewState(DefaultFormation)

	for _, pe := range []PointerEvent{
		{Kind: PointerDown, Button: PrimaryButton, Target: "home-player-6"},
		{Kind: PointerMove, ClientX: 700, ClientY: 100, Rect: rect},
		{Kind: PointerMove, ClientX: 1500, ClientY: -50, Rect: rect},
		{Kind: PointerUp},
		{Kind: PointerMove, ClientX: 10, ClientY: 10, Rect: rect},
	} {
		s, _ = s.Apply(Translate("me", pe), testNow)
	}

	m, _ := s.Marker("home-player-6")
	assert.Equal(t, Position{X: 150, Y: -10}, m.Position)
	assert.Empty(t, s.Drags)
	assert.Equal(t, 2*MaxRoster, len(s.Markers))
}

func TestFieldSVG(t *testing.T) {
	svg := string(FieldSVG())

	assert.True(t, strings.HasPrefix(svg, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 1050 680"`))
	assert.True(t, strings.HasSuffix(svg, `</svg>`))
	assert.Equal(t, 1+len(boxes), strings.Count(svg, "<rect "))
	assert.Equal(t, 1+len(spots), strings.Count(svg, "<circle "))
	assert.Equal(t, len(arcs), strings.Count(svg, "<path "))
	assert.Contains(t, svg, `d="M 172,255 A 91.5,91.5 0 0 1 172,425"`)
	assert.Contains(t, svg, `<rect x="-15" y="280" width="20" height="120"`)
	assert.Same(t, &FieldSVG()[0], &FieldSVG()[0])
}
