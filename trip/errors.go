// Package trip provides error handling for screencap capture operations.
//
// A capture either lands cleanly or it trips. Trips carry enough structure for
// the controller to decide what the user sees, what goes to the log, and what
// a test can assert on, without any of them being retried automatically.
package trip

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Trip types used across screencap.
const (
	// Configuration marks malformed settings input that was recovered locally.
	Configuration = "configuration"

	// CaptureUnavailable marks a renderer that could not supply a buffer.
	CaptureUnavailable = "capture_unavailable"

	// DimensionMismatch marks buffers that cannot be composited together.
	DimensionMismatch = "dimension_mismatch"

	// Encoding marks a composed buffer that could not be encoded.
	Encoding = "encoding"

	// Busy marks a capture requested while another one is in flight.
	Busy = "busy"

	// InvalidRequest marks a structurally impossible capture request.
	InvalidRequest = "invalid_request"

	// Output marks a sink that refused the encoded image.
	Output = "output"
)

// Trip represents an error during a capture with rich context.
//
// Example usage:
//
//	err := NewTrip(CaptureUnavailable, "no active capture surface",
//	    Context{"mode": "rendered", "stereo": true})
//
//	if trip.Is(err, CaptureUnavailable) {
//	    // tell the user to try a simple screenshot instead
//	}
type Trip struct {
	Type      string    // Error category for systematic handling
	Message   string    // Human-readable description
	Context   Context   // Additional debugging information
	Timestamp time.Time // When the error occurred
	Severity  Severity  // How serious this error is
	Cause     error     // Underlying error, if any
}

// Context provides structured debugging information for trips.
type Context map[string]interface{}

// Severity indicates how serious a trip is and how it should be surfaced.
type Severity int

const (
	// Stumble is recovered where it happens and never reaches the caller.
	// Example: an unparsable resolution typed into a settings field.
	Stumble Severity = iota

	// Error aborts the capture and is reported to the user.
	// Examples: no capture surface, encoder failure, busy controller.
	Error

	// Fall aborts the capture and indicates a bug in the pipeline.
	// Example: stereo halves of different heights.
	Fall
)

func (s Severity) String() string {
	switch s {
	case Stumble:
		return "stumble"
	case Error:
		return "error"
	case Fall:
		return "fall"
	default:
		return "unknown"
	}
}

// NewTrip creates a new trip with Error severity and the current timestamp.
func NewTrip(errorType, message string, context Context) *Trip {
	return &Trip{
		Type:      errorType,
		Message:   message,
		Context:   context,
		Timestamp: time.Now(),
		Severity:  Error,
	}
}

// NewStumble creates a new trip with Stumble severity.
func NewStumble(errorType, message string, context Context) *Trip {
	return NewTrip(errorType, message, context).WithSeverity(Stumble)
}

// NewFall creates a new trip with Fall severity.
func NewFall(errorType, message string, context Context) *Trip {
	return NewTrip(errorType, message, context).WithSeverity(Fall)
}

// Wrap creates an Error-severity trip around an underlying cause.
func Wrap(cause error, errorType, message string, context Context) *Trip {
	t := NewTrip(errorType, message, context)
	t.Cause = cause
	return t
}

// WithSeverity sets the severity level for this error.
func (t *Trip) WithSeverity(severity Severity) *Trip {
	t.Severity = severity
	return t
}

// Error implements the error interface.
func (t *Trip) Error() string {
	if t.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", t.Type, t.Severity, t.Message, t.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", t.Type, t.Severity, t.Message)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (t *Trip) Unwrap() error {
	return t.Cause
}

// CanRecover returns true if the capture pipeline continues despite this trip.
func (t *Trip) CanRecover() bool {
	return t.Severity == Stumble
}

// IsFall returns true if this trip points at a pipeline bug.
func (t *Trip) IsFall() bool {
	return t.Severity == Fall
}

// GetContext returns a specific context value if it exists.
func (t *Trip) GetContext(key string) (interface{}, bool) {
	if t.Context == nil {
		return nil, false
	}
	val, exists := t.Context[key]
	return val, exists
}

// UserMessage is the text shown on screen. Falls are internal and get a
// generic message; their detail only goes to the log.
func (t *Trip) UserMessage() string {
	if t.IsFall() {
		return "Screenshot failed, see the log for details"
	}
	return t.Message
}

// DetailedString returns a comprehensive error description with context.
// Context keys are sorted so the output is stable.
func (t *Trip) DetailedString() string {
	var details strings.Builder

	details.WriteString(t.Error())
	details.WriteString(fmt.Sprintf("\n  Time: %s", t.Timestamp.Format("15:04:05.000")))

	if len(t.Context) > 0 {
		keys := make([]string, 0, len(t.Context))
		for key := range t.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		details.WriteString("\n  Context:")
		for _, key := range keys {
			details.WriteString(fmt.Sprintf("\n    %s: %v", key, t.Context[key]))
		}
	}

	return details.String()
}

// As returns the first Trip in err's chain.
func As(err error) (*Trip, bool) {
	var t *Trip
	if errors.As(err, &t) {
		return t, true
	}
	return nil, false
}

// Is reports whether err's chain contains a Trip of the given type.
func Is(err error, errorType string) bool {
	for err != nil {
		var t *Trip
		if !errors.As(err, &t) {
			return false
		}
		if t.Type == errorType {
			return true
		}
		err = t.Cause
	}
	return false
}

// Handler keeps the trips recorded by one component.
//
// The history is bounded: once it holds limit entries the oldest one is
// dropped. Stumbles and trips are counted separately so a burst of recovered
// settings edits cannot push capture failures out of view.
type Handler struct {
	component string
	limit     int
	trips     []*Trip
	stumbles  []*Trip
}

// DefaultHistory is the number of trips and stumbles a Handler keeps.
const DefaultHistory = 32

// NewHandler creates a handler for a component. A non-positive limit uses
// DefaultHistory.
func NewHandler(component string, limit int) *Handler {
	if limit <= 0 {
		limit = DefaultHistory
	}
	return &Handler{
		component: component,
		limit:     limit,
	}
}

// Record adds an error to the handler's history. Nil trips are ignored.
func (h *Handler) Record(t *Trip) {
	if t == nil {
		return
	}
	if t.Severity == Stumble {
		h.stumbles = appendBounded(h.stumbles, t, h.limit)
	} else {
		h.trips = appendBounded(h.trips, t, h.limit)
	}
}

func appendBounded(list []*Trip, t *Trip, limit int) []*Trip {
	list = append(list, t)
	if len(list) > limit {
		list = list[len(list)-limit:]
	}
	return list
}

// HasTrips returns true if any errors (non-stumbles) have been recorded.
func (h *Handler) HasTrips() bool {
	return len(h.trips) > 0
}

// HasStumbles returns true if any stumbles have been recorded.
func (h *Handler) HasStumbles() bool {
	return len(h.stumbles) > 0
}

// GetTrips returns recorded errors, oldest first.
func (h *Handler) GetTrips() []*Trip {
	return h.trips
}

// GetStumbles returns recorded stumbles, oldest first.
func (h *Handler) GetStumbles() []*Trip {
	return h.stumbles
}

// Last returns the most recent non-stumble trip.
func (h *Handler) Last() (*Trip, bool) {
	if len(h.trips) == 0 {
		return nil, false
	}
	return h.trips[len(h.trips)-1], true
}

// Summary provides a concise overview of all errors and stumbles.
func (h *Handler) Summary() string {
	if len(h.trips) == 0 && len(h.stumbles) == 0 {
		return fmt.Sprintf("[%s] No issues", h.component)
	}

	return fmt.Sprintf("[%s] %d trips, %d stumbles",
		h.component, len(h.trips), len(h.stumbles))
}

// DetailedReport provides a comprehensive report of all issues.
func (h *Handler) DetailedReport() string {
	var report strings.Builder

	report.WriteString(fmt.Sprintf("=== %s Component Report ===\n", h.component))
	report.WriteString(h.Summary() + "\n")

	if len(h.trips) > 0 {
		report.WriteString("\nTrips:\n")
		for i, t := range h.trips {
			report.WriteString(fmt.Sprintf("%d. %s\n", i+1, t.DetailedString()))
		}
	}

	if len(h.stumbles) > 0 {
		report.WriteString("\nStumbles:\n")
		for i, s := range h.stumbles {
			report.WriteString(fmt.Sprintf("%d. %s\n", i+1, s.DetailedString()))
		}
	}

	return report.String()
}
