package capture

import (
	"errors"
	"fmt"

	"github.com/daikw/protoeval/internal/imagesource"
	"github.com/rs/zerolog/log"
)

// ErrDecode is returned for malformed or undecodable transport payloads
var ErrDecode = imagesource.ErrDecode

// ErrIllegalTransition is returned when a slot is driven out of order
var ErrIllegalTransition = errors.New("illegal capture transition")

// Phase is the lifecycle state of one capture slot
type Phase int

const (
	Empty Phase = iota
	Capturing
	Delivered
	Failed
)

func (p Phase) String() string {
	switch p {
	case Empty:
		return "empty"
	case Capturing:
		return "capturing"
	case Delivered:
		return "delivered"
	case Failed:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Gesture is the browser interaction that produced a payload
type Gesture string

const (
	GesturePaste Gesture = "paste"
	GestureDrop  Gesture = "drop"
)

// ParseGesture validates a gesture name sent by the widget
func ParseGesture(s string) (Gesture, error) {
	switch Gesture(s) {
	case GesturePaste, GestureDrop:
		return Gesture(s), nil
	case "":
		return GesturePaste, nil
	default:
		return "", fmt.Errorf("unknown gesture: %s", s)
	}
}

// Origin maps the gesture to the image origin recorded on the slot
func (g Gesture) Origin() imagesource.Origin {
	if g == GestureDrop {
		return imagesource.OriginDrop
	}
	return imagesource.OriginPaste
}

// Payload is the transport form sent by the paste widget
type Payload struct {
	Data    string  `json:"data"`
	Gesture Gesture `json:"gesture"`
}

// Decode turns a transport payload into a captured image.
// Every failure is reported as ErrDecode.
func Decode(p Payload) (*imagesource.CapturedImage, error) {
	gesture, err := ParseGesture(string(p.Gesture))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	img, err := imagesource.Capture(imagesource.Encoded(p.Data), gesture.Origin())
	if err != nil {
		if errors.Is(err, ErrDecode) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return img, nil
}

// Machine tracks the capture lifecycle of a single slot.
// The zero value is an empty slot.
type Machine struct {
	phase   Phase
	lastErr error
}

// Phase returns the current phase
func (m *Machine) Phase() Phase {
	return m.phase
}

// Err returns the error of the last failed gesture, if the slot is in the error phase
func (m *Machine) Err() error {
	if m.phase != Failed {
		return nil
	}
	return m.lastErr
}

// Begin starts a new gesture. A failed slot returns to empty first.
func (m *Machine) Begin() error {
	switch m.phase {
	case Failed:
		m.phase = Empty
		m.lastErr = nil
		fallthrough
	case Empty, Delivered:
		m.phase = Capturing
		return nil
	default:
		return fmt.Errorf("%w: begin from %s", ErrIllegalTransition, m.phase)
	}
}

// Deliver marks the gesture as stored
func (m *Machine) Deliver() error {
	if m.phase != Capturing {
		return fmt.Errorf("%w: deliver from %s", ErrIllegalTransition, m.phase)
	}
	m.phase = Delivered
	return nil
}

// Fail marks the gesture as failed
func (m *Machine) Fail(err error) error {
	if m.phase != Capturing {
		return fmt.Errorf("%w: fail from %s", ErrIllegalTransition, m.phase)
	}
	m.phase = Failed
	m.lastErr = err
	return nil
}

// Reset empties the slot
func (m *Machine) Reset() {
	m.phase = Empty
	m.lastErr = nil
}

// Receive runs one full gesture: begin, decode, store, deliver.
// store is called before the slot reaches Delivered and is never called on failure.
func (m *Machine) Receive(p Payload, store func(*imagesource.CapturedImage)) error {
	if err := m.Begin(); err != nil {
		return err
	}

	img, err := Decode(p)
	if err != nil {
		_ = m.Fail(err)
		log.Debug().Err(err).Str("gesture", string(p.Gesture)).Msg("Capture failed")
		return err
	}

	store(img)
	return m.Deliver()
}
