/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package tactics

// PointerKind is the browser-side event that produced a PointerEvent.
type PointerKind string

const (
	PointerDown PointerKind = "down"
	PointerMove PointerKind = "move"
	PointerUp   PointerKind = "up"
	ContextMenu PointerKind = "contextmenu"
)

// Button follows the DOM MouseEvent.button numbering.
type Button int

const (
	PrimaryButton   Button = 0
	SecondaryButton Button = 2
)

// PointerEvent is a raw pointer event as reported by the page. Target is the
// id of the marker under the pointer, empty when the pointer is over bare
// field. Rect is the field's bounding box at the moment of the event.
type PointerEvent struct {
	Kind    PointerKind `json:"kind"`
	Button  Button      `json:"button"`
	Target  string      `json:"target,omitempty"`
	ClientX float64     `json:"client_x"`
	ClientY float64     `json:"client_y"`
	Rect    Rect        `json:"rect"`
}

// Translate maps a pointer event from owner onto a board transition.
// It returns nil for events that have no effect on the board, such as a
// context menu request over empty field.
//
// Up events end the owner's drag wherever they happen, so callers should
// forward document-level releases, not only those inside the field.
func Translate(owner string, pe PointerEvent) Event {
	switch pe.Kind {
	case PointerDown:
		switch {
		case pe.Button == SecondaryButton && pe.Target != "":
			return Rotate{MarkerID: pe.Target}
		case pe.Button != PrimaryButton:
			return nil
		case pe.Target != "":
			return StartDrag{Owner: owner, MarkerID: pe.Target}
		default:
			return Add{ClientX: pe.ClientX, ClientY: pe.ClientY, Rect: pe.Rect}
		}

	case ContextMenu:
		if pe.Target == "" {
			return nil
		}
		return Rotate{MarkerID: pe.Target}

	case PointerMove:
		return Move{Owner: owner, ClientX: pe.ClientX, ClientY: pe.ClientY, Rect: pe.Rect}

	case PointerUp:
		return EndDrag{Owner: owner}
	}

	return nil
}
