package tilt

import (
	"fmt"
	"sync"
)

// Source supplies orientation samples. Absence of orientation is a normal
// state reported by Available, not an error.
type Source interface {
	// Available reports whether samples can be delivered.
	Available() bool
	// Subscribe registers fn for samples and returns a function removing it.
	// The returned function is safe to call more than once.
	Subscribe(fn func(Input)) (unsubscribe func())
}

// Dispatcher is the per-window orientation event registry. Listeners are
// called synchronously in registration order.
type Dispatcher struct {
	mu        sync.Mutex
	next      uint64
	order     []uint64
	listeners map[uint64]func(Input)
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{listeners: make(map[uint64]func(Input))}
}

// Add registers a listener and returns its idempotent remover.
func (d *Dispatcher) Add(fn func(Input)) (remove func()) {
	d.mu.Lock()
	id := d.next
	d.next++
	d.listeners[id] = fn
	d.order = append(d.order, id)
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { d.remove(id) })
	}
}

func (d *Dispatcher) remove(id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.listeners, id)
	for i, o := range d.order {
		if o == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// Dispatch delivers a sample to every listener. Listeners may add or remove
// listeners while being called.
func (d *Dispatcher) Dispatch(in Input) {
	d.mu.Lock()
	fns := make([]func(Input), 0, len(d.order))
	for _, id := range d.order {
		fns = append(fns, d.listeners[id])
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn(in)
	}
}

// ListenerCount returns the number of registered listeners.
func (d *Dispatcher) ListenerCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners)
}

// Permission is the state of the orientation permission prompt.
type Permission uint8

const (
	PermissionUnknown     Permission = iota // never asked
	PermissionGranted                       // samples flow
	PermissionDenied                        // user refused
	PermissionUnsupported                   // no sensor or API
)

var permissionNames = [...]string{"unknown", "granted", "denied", "unsupported"}

func (p Permission) String() string {
	if int(p) < len(permissionNames) {
		return permissionNames[p]
	}
	return fmt.Sprintf("permission(%d)", p)
}

// WindowSource is a permission-gated Source backed by a window's Dispatcher.
// Every permission state other than granted is treated as unavailable.
type WindowSource struct {
	events *Dispatcher

	mu   sync.Mutex
	perm Permission
}

// NewWindowSource creates a source over events with an initial permission.
// A nil dispatcher means the orientation API is absent.
func NewWindowSource(events *Dispatcher, perm Permission) *WindowSource {
	if events == nil {
		perm = PermissionUnsupported
	}
	return &WindowSource{events: events, perm: perm}
}

// Permission returns the current permission state.
func (s *WindowSource) Permission() Permission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.perm
}

// SetPermission records a new permission state. It has no effect once the
// API is known to be unsupported.
func (s *WindowSource) SetPermission(p Permission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.perm == PermissionUnsupported {
		return
	}
	s.perm = p
}

// Request runs ask if the user has never been asked and records its answer.
// It returns the resulting permission.
func (s *WindowSource) Request(ask func() Permission) Permission {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.perm == PermissionUnknown && ask != nil {
		s.perm = ask()
	}
	return s.perm
}

// Available implements Source.
func (s *WindowSource) Available() bool {
	return s.Permission() == PermissionGranted
}

// Subscribe implements Source. Without permission nothing is registered.
func (s *WindowSource) Subscribe(fn func(Input)) func() {
	if !s.Available() {
		return func() {}
	}
	return s.events.Add(fn)
}

// Emulator publishes synthetic tilt samples, for hosts without a sensor
// such as the desktop app's keyboard controls.
type Emulator struct {
	events *Dispatcher
	LR, FB float64
}

// NewEmulator creates an emulator publishing to events, starting upright.
func NewEmulator(events *Dispatcher) *Emulator {
	return &Emulator{events: events, FB: 90}
}

// Nudge changes the tilt by the given degrees, clamped to +/-90, and
// publishes the new reading.
func (e *Emulator) Nudge(dLR, dFB float64) {
	e.LR = clampDegrees(e.LR + dLR)
	e.FB = clampDegrees(e.FB + dFB)
	e.Publish()
}

// Upright resets to a device held upright (gravity straight down) and
// publishes it.
func (e *Emulator) Upright() {
	e.LR, e.FB = 0, 90
	e.Publish()
}

// Publish sends the current reading.
func (e *Emulator) Publish() {
	e.events.Dispatch(Input{TiltLR: e.LR, TiltFB: e.FB, HasOrientation: true})
}

func clampDegrees(v float64) float64 {
	if v > 90 {
		return 90
	}
	if v < -90 {
		return -90
	}
	return v
}
