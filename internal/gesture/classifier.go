// Package gesture tells a deliberate map tap apart from a map drag.
//
// Mouse and single-finger touch input are fed through the same Classifier.
// A gesture resolves to at most one location selection; drags, slow presses
// and multi-touch gestures resolve to nothing.
package gesture

import (
	"math"
	"time"
)

const (
	// DefaultDragThreshold is the pointer travel, in pixels, that turns a
	// gesture into a drag.
	DefaultDragThreshold = 15.0
	// DefaultMaxTapDuration is the longest press still counted as a tap.
	DefaultMaxTapDuration = 300 * time.Millisecond
)

// Kind is the pointer event type.
type Kind string

const (
	KindDown   Kind = "down"
	KindMove   Kind = "move"
	KindUp     Kind = "up"
	KindCancel Kind = "cancel"
)

// Source is the input device that produced an event.
type Source string

const (
	SourceMouse Source = "mouse"
	SourceTouch Source = "touch"
)

// LatLng is a map coordinate resolved by the presentation layer.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Event is one raw pointer event. X and Y are screen pixels. Contacts is the
// number of simultaneous touch points (0 or 1 for mouse). Location is only
// meaningful on KindUp.
type Event struct {
	Kind     Kind
	Source   Source
	X, Y     float64
	Contacts int
	At       time.Time
	Location LatLng
}

// Result is what the classifier decided for a single event.
type Result struct {
	// Selected is true exactly once per tap gesture, on its pointer-up.
	Selected bool
	Location LatLng
	// SuppressScroll asks a touch front-end to cancel default scrolling.
	SuppressScroll bool
}

// Gate reports whether a location request is already running. Taps that
// land while the gate is busy are dropped.
type Gate interface {
	InFlight() bool
}

// State is the classifier's tracking state.
type State string

const (
	StateIdle     State = "idle"
	StateTracking State = "tracking"
)

// Option customizes a Classifier.
type Option func(*Classifier)

// WithDragThreshold overrides DefaultDragThreshold.
func WithDragThreshold(px float64) Option {
	return func(c *Classifier) { c.dragThreshold = px }
}

// WithMaxTapDuration overrides DefaultMaxTapDuration.
func WithMaxTapDuration(d time.Duration) Option {
	return func(c *Classifier) { c.maxTap = d }
}

// Classifier tracks one gesture at a time. It is not safe for concurrent
// use; callers serialize events per game.
type Classifier struct {
	gate          Gate
	dragThreshold float64
	maxTap        time.Duration

	state    State
	source   Source
	startX   float64
	startY   float64
	startAt  time.Time
	dragging bool
	aborted  bool
}

// New returns an idle Classifier. gate may be nil.
func New(gate Gate, opts ...Option) *Classifier {
	c := &Classifier{
		gate:          gate,
		dragThreshold: DefaultDragThreshold,
		maxTap:        DefaultMaxTapDuration,
		state:         StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current tracking state.
func (c *Classifier) State() State {
	return c.state
}

// Handle feeds one event and returns the decision for it.
func (c *Classifier) Handle(ev Event) Result {
	switch ev.Kind {
	case KindDown:
		c.down(ev)
		return Result{}
	case KindMove:
		return c.move(ev)
	case KindUp:
		return c.up(ev)
	case KindCancel:
		c.reset()
		return Result{}
	default:
		return Result{}
	}
}

func (c *Classifier) down(ev Event) {
	if c.state == StateTracking {
		// A second contact while tracking means pinch or two-finger pan.
		if ev.Contacts > 1 {
			c.aborted = true
		}
		return
	}
	if ev.Contacts > 1 {
		return
	}

	c.state = StateTracking
	c.source = ev.Source
	c.startX, c.startY = ev.X, ev.Y
	c.startAt = ev.At
	c.dragging = false
	c.aborted = false
}

func (c *Classifier) move(ev Event) Result {
	if c.state != StateTracking {
		return Result{}
	}
	if ev.Contacts > 1 {
		c.aborted = true
	}
	c.track(ev.X, ev.Y)

	return Result{SuppressScroll: c.source == SourceTouch && c.dragging}
}

func (c *Classifier) up(ev Event) Result {
	if c.state != StateTracking {
		return Result{}
	}
	defer c.reset()

	c.track(ev.X, ev.Y)
	if c.dragging || c.aborted {
		return Result{}
	}
	if ev.At.Sub(c.startAt) >= c.maxTap {
		return Result{}
	}
	if c.gate != nil && c.gate.InFlight() {
		return Result{}
	}

	return Result{Selected: true, Location: ev.Location}
}

// track marks the gesture as a drag once the pointer has travelled the
// threshold. The flag never clears before the gesture ends.
func (c *Classifier) track(x, y float64) {
	if c.dragging {
		return
	}
	if math.Hypot(x-c.startX, y-c.startY) >= c.dragThreshold {
		c.dragging = true
	}
}

func (c *Classifier) reset() {
	c.state = StateIdle
	c.source = ""
	c.startX, c.startY = 0, 0
	c.startAt = time.Time{}
	c.dragging = false
	c.aborted = false
}
