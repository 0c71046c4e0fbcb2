package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/daikw/protoeval/internal/capture"
	"github.com/daikw/protoeval/internal/evaluation"
	"github.com/daikw/protoeval/internal/imagesource"
	"github.com/daikw/protoeval/internal/persona"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNotReady is returned by Evaluate when CanEvaluate is false
	ErrNotReady = errors.New("session is not ready to evaluate")
	// ErrBusy is returned by Evaluate while a batch is already running
	ErrBusy = errors.New("an evaluation batch is already running")
)

// Evaluator runs a batch of persona evaluations
type Evaluator interface {
	RunBatch(ctx context.Context, mode evaluation.Mode, images []*imagesource.CapturedImage, personas []persona.Profile) []evaluation.Result
}

// EvaluatorFactory builds an Evaluator bound to the session credential
type EvaluatorFactory func(ctx context.Context, credential string) (Evaluator, error)

type slotState struct {
	machine capture.Machine
	image   *imagesource.CapturedImage
}

// Readiness is computed in the same locked step as the state change it follows
type Readiness struct {
	Slot        Slot   `json:"slot"`
	Phase       string `json:"phase"`
	SlotReady   bool   `json:"slot_ready"`
	SlotsReady  bool   `json:"slots_ready"`
	CanEvaluate bool   `json:"can_evaluate"`
}

// SlotView is a read-only snapshot of one slot
type SlotView struct {
	Slot  Slot
	Phase capture.Phase
	Image *imagesource.CapturedImage
	Err   error
}

// View is a consistent snapshot of the whole session for rendering
type View struct {
	Mode          evaluation.Mode
	Method        UploadMethod
	Personas      []string
	HasCredential bool
	Slots         map[Slot]SlotView
	SlotsReady    bool
	CanEvaluate   bool
	Running       bool
	Results       []evaluation.Result
}

// Controller owns all state of one interactive session
type Controller struct {
	mu           sync.Mutex
	catalog      *persona.Catalog
	newEvaluator EvaluatorFactory

	mode       evaluation.Mode
	method     UploadMethod
	personas   []string
	credential string
	slots      map[Slot]*slotState
	results    []evaluation.Result
	running    bool
	lastActive time.Time
}

// NewController creates a session with the catalog's default persona selection
func NewController(catalog *persona.Catalog, factory EvaluatorFactory) *Controller {
	c := &Controller{
		catalog:      catalog,
		newEvaluator: factory,
		mode:         evaluation.ModeSingle,
		method:       MethodFile,
		personas:     catalog.DefaultSelection(),
		slots:        make(map[Slot]*slotState, len(AllSlots)),
		lastActive:   time.Now(),
	}
	for _, s := range AllSlots {
		c.slots[s] = &slotState{}
	}
	return c
}

func (c *Controller) touch() {
	c.lastActive = time.Now()
}

// LastActive returns the time of the last state change or read
func (c *Controller) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// SetCredential stores the API credential for this session
func (c *Controller) SetCredential(credential string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	c.credential = credential
}

// HasCredential reports whether a credential is set
func (c *Controller) HasCredential() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.credential != ""
}

// SetMode switches between single and comparison mode. Slot contents are kept.
func (c *Controller) SetMode(mode evaluation.Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	c.mode = mode
}

// Mode returns the current mode
func (c *Controller) Mode() evaluation.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetMethod selects the intake widget. Slot contents are kept.
func (c *Controller) SetMethod(method UploadMethod) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	c.method = method
}

// Method returns the current upload method
func (c *Controller) Method() UploadMethod {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.method
}

// SelectPersonas replaces the ordered persona selection. Repeated names are
// dropped; unknown names reject the whole selection.
func (c *Controller) SelectPersonas(names []string) error {
	profiles, err := c.catalog.Resolve(names)
	if err != nil {
		return err
	}
	selected := make([]string, len(profiles))
	for i, p := range profiles {
		selected[i] = p.Name
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	c.personas = selected
	return nil
}

// SelectedPersonas returns the persona names in selection order
func (c *Controller) SelectedPersonas() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.personas))
	copy(out, c.personas)
	return out
}

// Upload stores file bytes in slot
func (c *Controller) Upload(slot Slot, data []byte) (Readiness, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	st, ok := c.slots[slot]
	if !ok {
		return Readiness{}, fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	if err := st.machine.Begin(); err != nil {
		return c.readinessLocked(slot), err
	}

	img, err := imagesource.Capture(imagesource.FileBytes(data), imagesource.OriginFileUpload)
	if err != nil {
		_ = st.machine.Fail(err)
		return c.readinessLocked(slot), err
	}

	st.image = img
	if err := st.machine.Deliver(); err != nil {
		return c.readinessLocked(slot), err
	}

	log.Debug().Str("slot", string(slot)).Int("width", img.Width).Int("height", img.Height).Msg("Stored uploaded image")
	return c.readinessLocked(slot), nil
}

// Capture decodes a pasted or dropped payload into slot. The image is stored
// before readiness is computed, and both happen under one lock.
func (c *Controller) Capture(slot Slot, payload capture.Payload) (Readiness, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	st, ok := c.slots[slot]
	if !ok {
		return Readiness{}, fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}

	err := st.machine.Receive(payload, func(img *imagesource.CapturedImage) {
		st.image = img
	})
	if err == nil {
		log.Debug().Str("slot", string(slot)).Str("gesture", string(payload.Gesture)).Msg("Stored captured image")
	}
	return c.readinessLocked(slot), err
}

// Clear empties slot
func (c *Controller) Clear(slot Slot) (Readiness, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	st, ok := c.slots[slot]
	if !ok {
		return Readiness{}, fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	st.machine.Reset()
	st.image = nil
	return c.readinessLocked(slot), nil
}

// Image returns the image held by slot, or nil
func (c *Controller) Image(slot Slot) *imagesource.CapturedImage {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.slots[slot]; ok {
		return st.image
	}
	return nil
}

// SlotsReady reports whether every slot required by the current mode is filled
func (c *Controller) SlotsReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slotsReadyLocked()
}

// CanEvaluate reports whether the trigger action is available
func (c *Controller) CanEvaluate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canEvaluateLocked()
}

// ready reports whether a slot counts toward readiness. A slot whose last
// intake failed keeps its previous image for display but is not ready
// until a new capture succeeds or the slot is cleared.
func (st *slotState) ready() bool {
	return st.image != nil && st.machine.Phase() != capture.Failed
}

func (c *Controller) slotsReadyLocked() bool {
	for _, s := range RequiredSlots(c.mode) {
		if !c.slots[s].ready() {
			return false
		}
	}
	return true
}

func (c *Controller) canEvaluateLocked() bool {
	return c.slotsReadyLocked() && len(c.personas) > 0 && c.credential != "" && !c.running
}

func (c *Controller) readinessLocked(slot Slot) Readiness {
	st := c.slots[slot]
	return Readiness{
		Slot:        slot,
		Phase:       st.machine.Phase().String(),
		SlotReady:   st.ready(),
		SlotsReady:  c.slotsReadyLocked(),
		CanEvaluate: c.canEvaluateLocked(),
	}
}

// Evaluate runs one batch over the selected personas and stores the results.
// It returns ErrNotReady without calling the model when CanEvaluate is false.
func (c *Controller) Evaluate(ctx context.Context) ([]evaluation.Result, error) {
	c.mu.Lock()
	c.touch()
	if c.running {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	if !c.canEvaluateLocked() {
		c.mu.Unlock()
		return nil, ErrNotReady
	}

	mode := c.mode
	required := RequiredSlots(mode)
	images := make([]*imagesource.CapturedImage, len(required))
	for i, s := range required {
		images[i] = c.slots[s].image
	}
	profiles, err := c.catalog.Resolve(c.personas)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	credential := c.credential
	c.running = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.touch()
		c.mu.Unlock()
	}()

	evaluator, err := c.newEvaluator(ctx, credential)
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluator: %w", err)
	}

	log.Info().Str("mode", string(mode)).Int("personas", len(profiles)).Msg("Starting evaluation batch")
	results := evaluator.RunBatch(ctx, mode, images, profiles)

	c.mu.Lock()
	c.results = results
	c.mu.Unlock()

	out := make([]evaluation.Result, len(results))
	copy(out, results)
	return out, nil
}

// Results returns the last batch's results in selection order
func (c *Controller) Results() []evaluation.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]evaluation.Result, len(c.results))
	copy(out, c.results)
	return out
}

// View returns a consistent snapshot of the session
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Mode:          c.mode,
		Method:        c.method,
		Personas:      append([]string(nil), c.personas...),
		HasCredential: c.credential != "",
		Slots:         make(map[Slot]SlotView, len(c.slots)),
		SlotsReady:    c.slotsReadyLocked(),
		CanEvaluate:   c.canEvaluateLocked(),
		Running:       c.running,
		Results:       append([]evaluation.Result(nil), c.results...),
	}
	for s, st := range c.slots {
		v.Slots[s] = SlotView{Slot: s, Phase: st.machine.Phase(), Image: st.image, Err: st.machine.Err()}
	}
	return v
}
