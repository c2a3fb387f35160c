package camera

import "github.com/soypat/geometry/ms2"

// Key is a movement key tracked by [InputState].
type Key uint8

const (
	KeyForward Key = iota // W
	KeyBack               // S
	KeyLeft               // A
	KeyRight              // D
	numKeys
)

// InputState tracks keyboard and pointer state between frames. Window callbacks
// write to it as events arrive and controllers consume it once per frame, so
// holding two keys moves diagonally regardless of event ordering.
// The zero value is ready to use with no keys held and the pointer released.
type InputState struct {
	keys [numKeys]bool

	cursor     ms2.Vec
	haveCursor bool
	look       ms2.Vec

	locked   bool
	dragging bool
	hover    bool
}

// KeyDown marks k as held.
func (s *InputState) KeyDown(k Key) {
	if k < numKeys {
		s.keys[k] = true
	}
}

// KeyUp marks k as released.
func (s *InputState) KeyUp(k Key) {
	if k < numKeys {
		s.keys[k] = false
	}
}

// Pressed reports whether k is currently held.
func (s *InputState) Pressed(k Key) bool {
	return k < numKeys && s.keys[k]
}

// ReleaseAll releases all keys, usually called when the window loses focus.
func (s *InputState) ReleaseAll() {
	s.keys = [numKeys]bool{}
}

// CursorMoved records an absolute cursor position in pixels. While the pointer is
// locked, dragging or hover-look is enabled the motion since the last position
// accumulates as look delta.
func (s *InputState) CursorMoved(x, y float32) {
	pos := ms2.Vec{X: x, Y: y}
	if s.haveCursor && (s.locked || s.dragging || s.hover) {
		s.look = ms2.Add(s.look, ms2.Sub(pos, s.cursor))
	}
	s.cursor = pos
	s.haveCursor = true
}

// PointerMoved records relative pointer motion reported by a captured pointer.
// It is ignored while the pointer is not locked.
func (s *InputState) PointerMoved(dx, dy float32) {
	if s.locked {
		s.look = ms2.Add(s.look, ms2.Vec{X: dx, Y: dy})
	}
}

// SetPointerLocked sets whether the pointer is captured by the window.
// The next absolute cursor position only re-anchors motion so the view does not jump.
func (s *InputState) SetPointerLocked(locked bool) {
	if s.locked != locked {
		s.haveCursor = false
	}
	s.locked = locked
}

// PointerLocked reports whether the pointer is captured.
func (s *InputState) PointerLocked() bool { return s.locked }

// SetDragging sets whether a mouse button is held for drag-to-look.
func (s *InputState) SetDragging(dragging bool) {
	if s.dragging != dragging {
		s.haveCursor = false
	}
	s.dragging = dragging
}

// SetHoverLook sets whether plain cursor motion looks around without a button
// held or the pointer captured.
func (s *InputState) SetHoverLook(hover bool) { s.hover = hover }

// HoverLook reports whether plain cursor motion looks around.
func (s *InputState) HoverLook() bool { return s.hover }

// Cursor returns the last absolute cursor position.
func (s *InputState) Cursor() ms2.Vec { return s.cursor }

// TakeLookDelta returns the pointer motion accumulated since the last call and resets it.
func (s *InputState) TakeLookDelta() ms2.Vec {
	d := s.look
	s.look = ms2.Vec{}
	return d
}
