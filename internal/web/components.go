package web

import (
	"fmt"

	"github.com/daikw/protoeval/internal/evaluation"
	"github.com/daikw/protoeval/internal/imagesource"
	"github.com/daikw/protoeval/internal/persona"
	"github.com/daikw/protoeval/internal/session"
)

//go:generate templ generate

// PageData is everything the main page renders from
type PageData struct {
	View          session.View
	Profiles      []persona.Profile
	PreviewWidth  int
	PreviewHeight int
	Narration     bool
}

func (d PageData) selected(name string) bool {
	for _, n := range d.View.Personas {
		if n == name {
			return true
		}
	}
	return false
}

// orderedProfiles lists selected personas in selection order, then the
// rest in catalog order
func (d PageData) orderedProfiles() []persona.Profile {
	byName := make(map[string]persona.Profile, len(d.Profiles))
	for _, p := range d.Profiles {
		byName[p.Name] = p
	}

	out := make([]persona.Profile, 0, len(d.Profiles))
	for _, name := range d.View.Personas {
		if p, ok := byName[name]; ok {
			out = append(out, p)
		}
	}
	for _, p := range d.Profiles {
		if !d.selected(p.Name) {
			out = append(out, p)
		}
	}
	return out
}

type modeOption struct {
	Mode  evaluation.Mode
	Label string
}

var modeOptions = []modeOption{
	{evaluation.ModeSingle, "Single screen"},
	{evaluation.ModeComparison, "A/B comparison"},
}

var uploadMethods = []session.UploadMethod{session.MethodFile, session.MethodPaste}

func slotTitle(slot session.Slot) string {
	switch slot {
	case session.SlotA:
		return "Variant A"
	case session.SlotB:
		return "Variant B"
	default:
		return "Prototype screen"
	}
}

func caption(img *imagesource.CapturedImage) string {
	return fmt.Sprintf("%dx%d %s, via %s", img.Width, img.Height, img.MIME, img.Origin)
}

func triggerLabel(mode evaluation.Mode) string {
	if mode == evaluation.ModeComparison {
		return "Run A/B comparison"
	}
	return "Run evaluation"
}

func audioURL(i int) string {
	return fmt.Sprintf("/results/%d/audio", i)
}
