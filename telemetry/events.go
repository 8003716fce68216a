// Package telemetry provides settle tracking, performance sampling, CSV
// output, bookmarks and layout snapshots for the badge world.
package telemetry

// EventType identifies telemetry events.
type EventType uint8

const (
	EventGrab EventType = iota
	EventRelease
	EventResize
	EventResimulate
	EventOrientationDropped
	EventDegraded
)

var eventNames = [...]string{"grab", "release", "resize", "resimulate", "orientation_dropped", "degraded"}

func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return "unknown"
}

// Event represents a single telemetry event.
type Event struct {
	Type    EventType `csv:"-"`
	Name    string    `csv:"event"`
	Tick    int32     `csv:"tick"`
	BadgeID uint32    `csv:"badge"`

	// Optional fields depending on event type
	Width  float64 `csv:"width"`  // resize
	Height float64 `csv:"height"` // resize
	X      float64 `csv:"x"`      // grab position or resimulation gravity
	Y      float64 `csv:"y"`
}

func newEvent(t EventType, tick int32) Event {
	return Event{Type: t, Name: t.String(), Tick: tick}
}

// NewGrabEvent creates a grab event at the pointer position.
func NewGrabEvent(tick int32, badgeID uint32, x, y float64) Event {
	e := newEvent(EventGrab, tick)
	e.BadgeID, e.X, e.Y = badgeID, x, y
	return e
}

// NewReleaseEvent creates a release event.
func NewReleaseEvent(tick int32, badgeID uint32) Event {
	e := newEvent(EventRelease, tick)
	e.BadgeID = badgeID
	return e
}

// NewResizeEvent creates a resize event for the applied container size.
func NewResizeEvent(tick int32, width, height float64) Event {
	e := newEvent(EventResize, tick)
	e.Width, e.Height = width, height
	return e
}

// NewResimulateEvent creates a resimulation event with the new gravity.
func NewResimulateEvent(tick int32, gx, gy float64) Event {
	e := newEvent(EventResimulate, tick)
	e.X, e.Y = gx, gy
	return e
}

// NewOrientationDroppedEvent records a malformed orientation sample.
func NewOrientationDroppedEvent(tick int32) Event {
	return newEvent(EventOrientationDropped, tick)
}

// NewDegradedEvent records the switch to the static layout.
func NewDegradedEvent(tick int32) Event {
	return newEvent(EventDegraded, tick)
}
