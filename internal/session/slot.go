package session

import (
	"errors"
	"fmt"

	"github.com/daikw/protoeval/internal/evaluation"
)

// ErrUnknownSlot is returned for slot keys other than single, A and B
var ErrUnknownSlot = errors.New("unknown slot")

// Slot names a capture location within a session
type Slot string

const (
	SlotSingle Slot = "single"
	SlotA      Slot = "A"
	SlotB      Slot = "B"
)

// AllSlots lists every slot in display order
var AllSlots = []Slot{SlotSingle, SlotA, SlotB}

// ParseSlot validates a slot key
func ParseSlot(s string) (Slot, error) {
	switch Slot(s) {
	case SlotSingle, SlotA, SlotB:
		return Slot(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSlot, s)
	}
}

// RequiredSlots returns the slots that must be filled for mode, in attach order
func RequiredSlots(mode evaluation.Mode) []Slot {
	switch mode {
	case evaluation.ModeComparison:
		return []Slot{SlotA, SlotB}
	default:
		return []Slot{SlotSingle}
	}
}

// UploadMethod selects the intake widget shown for every slot
type UploadMethod string

const (
	MethodFile  UploadMethod = "file"
	MethodPaste UploadMethod = "paste"
)

// ParseUploadMethod validates an upload method
func ParseUploadMethod(s string) (UploadMethod, error) {
	switch UploadMethod(s) {
	case MethodFile, MethodPaste:
		return UploadMethod(s), nil
	default:
		return "", fmt.Errorf("unknown upload method: %q", s)
	}
}

// Label returns the human-readable method name
func (m UploadMethod) Label() string {
	switch m {
	case MethodFile:
		return "File upload"
	case MethodPaste:
		return "Paste or drop"
	default:
		return string(m)
	}
}
