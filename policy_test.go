package screencap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teranos/screencap/trip"
)

func TestPolicy_ClampsResolution(t *testing.T) {
	p := NewPolicy(memStore{})

	v, err := p.Validate(KeyResolutionX, "5000")
	require.NoError(t, err)
	assert.Equal(t, 4096, v)

	v, err = p.Validate(KeyResolutionX, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	v, err = p.Validate(KeyResolutionY, " 720 ")
	require.NoError(t, err)
	assert.Equal(t, 720, v)
}

func TestPolicy_UnparsableKeepsStoredValue(t *testing.T) {
	store := memStore{KeyResolutionX: 1280}
	p := NewPolicy(store)

	v, err := p.Validate(KeyResolutionX, "abc")
	require.NoError(t, err)
	assert.Equal(t, 1280, v)

	stumbles := p.Stumbles()
	require.Len(t, stumbles, 1)
	assert.Equal(t, trip.Configuration, stumbles[0].Type)
	assert.True(t, stumbles[0].CanRecover())

	report, corrected := p.Report()
	assert.True(t, corrected)
	assert.Contains(t, report, "1 stumbles")
}

func TestPolicy_UnparsableWithoutStoredValueUsesDefault(t *testing.T) {
	p := NewPolicy(memStore{}, DefaultSettings(800, 600)...)

	for _, raw := range []any{"", "   ", nil, "12.5", true, math.NaN()} {
		v, err := p.Validate(KeyResolutionY, raw)
		require.NoError(t, err)
		assert.Equal(t, 600, v, "input %v", raw)
	}
}

func TestPolicy_StoredValueOutOfRangeIsClampedOnFallback(t *testing.T) {
	p := NewPolicy(memStore{KeyResolutionX: 99999})

	v, err := p.Validate(KeyResolutionX, "bogus")
	require.NoError(t, err)
	assert.Equal(t, ResolutionMax, v)
	assert.Equal(t, ResolutionMax, p.Int(KeyResolutionX))
}

func TestPolicy_SnapsToAllowedValues(t *testing.T) {
	p := NewPolicy(memStore{})

	cases := map[any]int{
		1000:   1024,
		3000:   2048,
		3072:   2048, // tie goes to the smaller value
		5000:   4096,
		100000: 8192,
		"8192": 8192,
		0:      1024,
	}
	for raw, want := range cases {
		v, err := p.Validate(KeyResolution360, raw)
		require.NoError(t, err)
		assert.Equal(t, want, v, "input %v", raw)
	}
}

func TestPolicy_Floats(t *testing.T) {
	p := NewPolicy(memStore{})

	v, err := p.Validate(KeyEyeSeparation, "0.9")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, v, 1e-9)

	v, err = p.Validate(KeyEyeSeparation, 0.001)
	require.NoError(t, err)
	assert.InDelta(t, 0.01, v, 1e-9)

	v, err = p.Validate(KeyImageOffset, "0.3")
	require.NoError(t, err)
	assert.InDelta(t, 0.3, v, 1e-9)

	v, err = p.Validate(KeyImageOffset, "nope")
	require.NoError(t, err)
	assert.InDelta(t, 0.21, v, 1e-9)

	v, err = p.Validate(KeyImageOffset, 1)
	require.NoError(t, err)
	assert.InDelta(t, MaxImageOffset, v, 1e-9)
}

func TestPolicy_Bools(t *testing.T) {
	p := NewPolicy(memStore{KeyCaptureAlpha: false})

	v, err := p.Validate(KeyCaptureAlpha, "true")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = p.Validate(KeyCaptureAlpha, "maybe")
	require.NoError(t, err)
	assert.Equal(t, false, v)

	assert.False(t, p.Bool(KeyCaptureAlpha))
	assert.True(t, p.Bool(KeyMessages))
}

func TestPolicy_Idempotent(t *testing.T) {
	p := NewPolicy(memStore{})

	inputs := map[string][]any{
		KeyResolutionX:   {"5000", -3, "17", "x"},
		KeyResolution360: {1500, "9000", 4096},
		KeyEyeSeparation: {"0.75", 0.1, "y"},
		KeyDownscale:     {0, 9, "3"},
	}
	for key, raws := range inputs {
		for _, raw := range raws {
			once, err := p.Validate(key, raw)
			require.NoError(t, err)
			twice, err := p.Validate(key, once)
			require.NoError(t, err)
			assert.Equal(t, once, twice, "%s(%v)", key, raw)
		}
	}
}

func TestPolicy_ResultAlwaysInRange(t *testing.T) {
	p := NewPolicy(memStore{})

	for _, s := range p.Settings() {
		if s.Kind == KindBool {
			continue
		}
		for _, raw := range []any{-1e9, -1, 0, 0.5, 3, 1e9, "junk"} {
			v, err := p.Validate(s.Key, raw)
			require.NoError(t, err)

			var f float64
			switch n := v.(type) {
			case int:
				f = float64(n)
			case float64:
				f = n
			default:
				t.Fatalf("%s returned %T", s.Key, v)
			}
			assert.GreaterOrEqual(t, f, s.Min, "%s(%v)", s.Key, raw)
			assert.LessOrEqual(t, f, s.Max, "%s(%v)", s.Key, raw)
			if len(s.Allowed) > 0 {
				assert.Contains(t, s.Allowed, f)
			}
		}
	}
}

func TestPolicy_UnknownSetting(t *testing.T) {
	p := NewPolicy(memStore{})

	_, err := p.Validate("fov", 90)
	assert.Error(t, err)

	_, err = p.Apply("fov", 90)
	assert.Error(t, err)
}

func TestPolicy_ApplyWritesCorrectedValue(t *testing.T) {
	store := memStore{}
	p := NewPolicy(store)

	v, err := p.Apply(KeyDownscale, "7")
	require.NoError(t, err)
	assert.Equal(t, 4, v)
	assert.Equal(t, 4, store[KeyDownscale])
	assert.Equal(t, 4, p.Int(KeyDownscale))
	assert.Equal(t, 4, p.Value(KeyDownscale))
	assert.Nil(t, p.Value("fov"))
}

func TestPolicy_ApplyWithoutStore(t *testing.T) {
	p := NewPolicy(nil)

	_, err := p.Apply(KeyDownscale, 2)
	assert.Error(t, err)
	assert.Equal(t, 2, p.Int(KeyDownscale))
	assert.Empty(t, p.Stumbles())
}

func TestPolicy_SettingsOrder(t *testing.T) {
	p := NewPolicy(nil)

	var keys []string
	for _, s := range p.Settings() {
		keys = append(keys, s.Key)
	}
	assert.Equal(t, []string{
		KeyResolutionX, KeyResolutionY, KeyResolution360, KeyEyeSeparation,
		KeyImageOffset, KeyDownscale, KeyCaptureAlpha, KeyMessages,
	}, keys)

	s, ok := p.Setting(KeyResolution360)
	require.True(t, ok)
	assert.Equal(t, 1024.0, s.Min)
	assert.Equal(t, 8192.0, s.Max)
}
