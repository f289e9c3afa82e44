package screencap

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"github.com/teranos/screencap/logging"
	"github.com/teranos/screencap/trip"
)

// Setting keys understood by the default registry.
const (
	KeyResolutionX   = "resolution-x"
	KeyResolutionY   = "resolution-y"
	KeyResolution360 = "resolution-360"
	KeyEyeSeparation = "3d-eye-separation"
	KeyImageOffset   = "3d-image-stitching-offset"
	KeyDownscale     = "downscalerate"
	KeyCaptureAlpha  = "capturealpha"
	KeyMessages      = "screenshotmessage"
)

// Bounds of the rendered output resolution.
const (
	ResolutionMin = 2
	ResolutionMax = 4096
)

// MaxImageOffset is the largest stitching offset a setting can hold. An
// offset of 1 would trim each eye image away entirely.
const MaxImageOffset = 0.99

// Kind is the value type of a Setting.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Setting is one entry of the settings registry: a key, its type, and the
// values it may hold. Numeric settings are bounded by [Min, Max], or by the
// Allowed set when one is given.
type Setting struct {
	Key     string
	Label   string
	Kind    Kind
	Min     float64
	Max     float64
	Allowed []float64
	Default any
}

// DefaultSettings returns the capture settings registry. screenW and screenH
// seed the rendered resolution defaults.
func DefaultSettings(screenW, screenH int) []Setting {
	return []Setting{
		{Key: KeyResolutionX, Label: "Horizontal (width in px)", Kind: KindInt, Min: ResolutionMin, Max: ResolutionMax, Default: screenW},
		{Key: KeyResolutionY, Label: "Vertical (height in px)", Kind: KindInt, Min: ResolutionMin, Max: ResolutionMax, Default: screenH},
		{Key: KeyResolution360, Label: "360 screenshot resolution", Kind: KindInt, Allowed: []float64{1024, 2048, 4096, 8192}, Default: 4096},
		{Key: KeyEyeSeparation, Label: "3D screenshot eye separation", Kind: KindFloat, Min: 0.01, Max: 0.5, Default: 0.18},
		{Key: KeyImageOffset, Label: "3D screenshot image separation offset", Kind: KindFloat, Min: 0, Max: MaxImageOffset, Default: 0.21},
		{Key: KeyDownscale, Label: "Rendered screenshot upsampling ratio", Kind: KindInt, Min: 1, Max: 4, Default: 2},
		{Key: KeyCaptureAlpha, Label: "Transparency in rendered screenshots", Kind: KindBool, Default: true},
		{Key: KeyMessages, Label: "Show messages on screen", Kind: KindBool, Default: true},
	}
}

// Policy validates setting values against the registry and is the only
// writer of the settings store.
//
// Malformed input never fails an operation: it falls back to the value the
// store already holds, and the recovery is recorded as a configuration
// stumble.
type Policy struct {
	store    SettingsStore
	settings map[string]Setting
	order    []string
	handler  *trip.Handler
	logger   *logging.Logger
}

// NewPolicy builds a policy over store. With no settings the default
// registry for a 1920x1080 screen is used.
func NewPolicy(store SettingsStore, settings ...Setting) *Policy {
	if len(settings) == 0 {
		settings = DefaultSettings(1920, 1080)
	}

	p := &Policy{
		store:    store,
		settings: make(map[string]Setting, len(settings)),
		handler:  trip.NewHandler("policy", 0),
		logger:   logging.NopLogger(),
	}
	for _, s := range settings {
		if len(s.Allowed) > 0 {
			allowed := append([]float64(nil), s.Allowed...)
			sort.Float64s(allowed)
			s.Allowed = allowed
			s.Min, s.Max = allowed[0], allowed[len(allowed)-1]
		}
		if _, dup := p.settings[s.Key]; !dup {
			p.order = append(p.order, s.Key)
		}
		p.settings[s.Key] = s
	}
	return p
}

// WithLogger sets the logger used for recovered input.
func (p *Policy) WithLogger(logger *logging.Logger) *Policy {
	if logger != nil {
		p.logger = logger.WithComponent("policy")
	}
	return p
}

// Setting returns the registry entry for key.
func (p *Policy) Setting(key string) (Setting, bool) {
	s, ok := p.settings[key]
	return s, ok
}

// Settings returns the registry in registration order.
func (p *Policy) Settings() []Setting {
	out := make([]Setting, 0, len(p.order))
	for _, key := range p.order {
		out = append(out, p.settings[key])
	}
	return out
}

// Stumbles returns the recovered configuration errors, oldest first.
func (p *Policy) Stumbles() []*trip.Trip {
	return p.handler.GetStumbles()
}

// Report returns the handler's report of recovered edits, and whether
// there were any.
func (p *Policy) Report() (string, bool) {
	return p.handler.DetailedReport(), p.handler.HasStumbles()
}

// Validate returns the corrected value for raw: clamped into range, snapped
// to the nearest allowed value, or, when raw cannot be parsed, the value
// currently stored. The result is an int, float64 or bool according to the
// setting's Kind. The only error is an unknown setting name.
func (p *Policy) Validate(name string, raw any) (any, error) {
	s, ok := p.settings[name]
	if !ok {
		return nil, fmt.Errorf("unknown setting %q", name)
	}

	if v, ok := s.coerce(raw); ok {
		return v, nil
	}

	p.handler.Record(trip.NewStumble(trip.Configuration, "unparsable value, keeping previous",
		trip.Context{"setting": name, "input": fmt.Sprintf("%v", raw)}))
	p.logger.Debug("setting input rejected", "setting", name, "input", fmt.Sprintf("%v", raw))

	return p.current(s), nil
}

// Apply validates raw and writes the corrected value to the store. It
// returns the value that was stored.
func (p *Policy) Apply(name string, raw any) (any, error) {
	v, err := p.Validate(name, raw)
	if err != nil {
		return nil, err
	}
	if p.store == nil {
		return nil, fmt.Errorf("no settings store for %q", name)
	}
	if err := p.store.Set(name, v); err != nil {
		return nil, fmt.Errorf("failed to store setting %q: %w", name, err)
	}
	return v, nil
}

// Int returns the validated current value of an int setting.
func (p *Policy) Int(name string) int {
	i, _ := p.value(name).(int)
	return i
}

// Float returns the validated current value of a float setting.
func (p *Policy) Float(name string) float64 {
	f, _ := p.value(name).(float64)
	return f
}

// Bool returns the validated current value of a bool setting.
func (p *Policy) Bool(name string) bool {
	b, _ := p.value(name).(bool)
	return b
}

// Value returns the validated current value of any setting, or nil for an
// unknown name.
func (p *Policy) Value(name string) any {
	return p.value(name)
}

func (p *Policy) value(name string) any {
	s, ok := p.settings[name]
	if !ok {
		return nil
	}
	return p.current(s)
}

func (p *Policy) stored(name string) any {
	if p.store == nil {
		return nil
	}
	v, _ := p.store.Get(name)
	return v
}

// current is the fallback for unparsable input: the stored value if it is
// usable, otherwise the default. Both pass through coerce so the range
// invariant holds even for a hand-edited store.
func (p *Policy) current(s Setting) any {
	if stored := p.stored(s.Key); stored != nil {
		if v, ok := s.coerce(stored); ok {
			return v
		}
	}
	if v, ok := s.coerce(s.Default); ok {
		return v
	}
	return s.zero()
}

func (s Setting) zero() any {
	switch s.Kind {
	case KindBool:
		return false
	case KindFloat:
		return s.Min
	default:
		return int(s.Min)
	}
}

// coerce parses raw and forces it into the setting's range.
func (s Setting) coerce(raw any) (any, bool) {
	if raw == nil {
		return nil, false
	}
	if str, ok := raw.(string); ok {
		str = strings.TrimSpace(str)
		if str == "" {
			return nil, false
		}
		raw = str
	}

	if s.Kind == KindBool {
		b, err := cast.ToBoolE(raw)
		if err != nil {
			return nil, false
		}
		return b, true
	}

	if _, isBool := raw.(bool); isBool {
		return nil, false
	}
	f, err := cast.ToFloat64E(raw)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	if s.Kind == KindInt && f != math.Trunc(f) {
		return nil, false
	}

	f = s.bound(f)
	if s.Kind == KindInt {
		return int(math.Round(f)), true
	}
	return f, true
}

func (s Setting) bound(f float64) float64 {
	if len(s.Allowed) == 0 {
		return math.Min(math.Max(f, s.Min), s.Max)
	}
	best := s.Allowed[0]
	for _, a := range s.Allowed[1:] {
		if math.Abs(a-f) < math.Abs(best-f) {
			best = a
		}
	}
	return best
}
