package trip

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTrip_Core tests core Trip functionality
func TestTrip_Core(t *testing.T) {
	context := Context{
		"mode":   "rendered",
		"stereo": true,
	}

	tr := NewTrip(CaptureUnavailable, "no capture surface", context)

	assert.Equal(t, CaptureUnavailable, tr.Type)
	assert.Equal(t, "no capture surface", tr.Message)
	assert.Equal(t, context, tr.Context)
	assert.Equal(t, Error, tr.Severity)
	assert.WithinDuration(t, time.Now(), tr.Timestamp, time.Second)

	assert.Contains(t, tr.Error(), "no capture surface")
	assert.Contains(t, tr.Error(), CaptureUnavailable)
	assert.Contains(t, tr.Error(), "error")
}

// TestTrip_Severities tests different severity levels
func TestTrip_Severities(t *testing.T) {
	stumble := NewStumble(Configuration, "bad resolution input", nil)
	error_ := NewTrip(Encoding, "png encode failed", nil)
	fall := NewFall(DimensionMismatch, "heights differ", nil)

	assert.Equal(t, Stumble, stumble.Severity)
	assert.Equal(t, Error, error_.Severity)
	assert.Equal(t, Fall, fall.Severity)

	assert.True(t, stumble.CanRecover())
	assert.False(t, error_.CanRecover())
	assert.False(t, fall.CanRecover())

	assert.False(t, stumble.IsFall())
	assert.False(t, error_.IsFall())
	assert.True(t, fall.IsFall())
}

func TestTrip_UserMessageHidesFalls(t *testing.T) {
	assert.Equal(t, "no capture surface",
		NewTrip(CaptureUnavailable, "no capture surface", nil).UserMessage())

	fall := NewFall(DimensionMismatch, "left 10x10, right 10x12", nil)
	assert.NotContains(t, fall.UserMessage(), "10x12")
	assert.Contains(t, fall.Error(), "10x12")
}

func TestTrip_WrapAndIs(t *testing.T) {
	cause := errors.New("disk full")
	tr := Wrap(cause, Output, "could not write screenshot", Context{"file": "a.png"})

	assert.ErrorIs(t, tr, cause)
	assert.Contains(t, tr.Error(), "disk full")

	wrapped := fmt.Errorf("capture: %w", tr)
	assert.True(t, Is(wrapped, Output))
	assert.False(t, Is(wrapped, Encoding))
	assert.False(t, Is(cause, Output))
	assert.False(t, Is(nil, Output))

	got, ok := As(wrapped)
	require.True(t, ok)
	assert.Same(t, tr, got)
}

func TestTrip_IsFollowsNestedTrips(t *testing.T) {
	inner := NewTrip(CaptureUnavailable, "renderer not ready", nil)
	outer := Wrap(inner, Busy, "controller gave up", nil)

	assert.True(t, Is(outer, Busy))
	assert.True(t, Is(outer, CaptureUnavailable))
}

// TestTrip_Methods tests trip methods
func TestTrip_Methods(t *testing.T) {
	tr := NewTrip("test", "Test message", Context{"key": "value", "another": 2})

	tr.WithSeverity(Fall)
	assert.Equal(t, Fall, tr.Severity)

	val, exists := tr.GetContext("key")
	assert.True(t, exists)
	assert.Equal(t, "value", val)

	_, exists = tr.GetContext("missing")
	assert.False(t, exists)

	detailed := tr.DetailedString()
	assert.Contains(t, detailed, "Test message")
	assert.Contains(t, detailed, "key: value")
	assert.Less(t, strings.Index(detailed, "another"), strings.Index(detailed, "key: value"))
}

// TestHandler_Basic tests basic Handler functionality
func TestHandler_Basic(t *testing.T) {
	handler := NewHandler("controller", 0)

	assert.False(t, handler.HasTrips())
	assert.Contains(t, handler.Summary(), "No issues")

	handler.Record(NewStumble(Configuration, "Minor issue", nil))
	assert.True(t, handler.HasStumbles())
	assert.False(t, handler.HasTrips())

	handler.Record(NewFall(DimensionMismatch, "Critical error", nil))
	assert.True(t, handler.HasTrips())

	last, ok := handler.Last()
	require.True(t, ok)
	assert.Equal(t, DimensionMismatch, last.Type)

	handler.Record(nil)
	assert.Len(t, handler.GetTrips(), 1)
	assert.Contains(t, handler.Summary(), "1 trips, 1 stumbles")
	assert.Contains(t, handler.DetailedReport(), "Critical error")
}

func TestHandler_BoundedHistory(t *testing.T) {
	handler := NewHandler("controller", 3)
	for i := 0; i < 5; i++ {
		handler.Record(NewTrip(Busy, fmt.Sprintf("busy %d", i), nil))
	}

	trips := handler.GetTrips()
	require.Len(t, trips, 3)
	assert.Equal(t, "busy 2", trips[0].Message)
	assert.Equal(t, "busy 4", trips[2].Message)
}

// TestSeverity_String tests severity string representation
func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "stumble", Stumble.String())
	assert.Equal(t, "error", Error.String())
	assert.Equal(t, "fall", Fall.String())
	assert.Equal(t, "unknown", Severity(42).String())
}
