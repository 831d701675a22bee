package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AumkarMali/backendVibeVideo/internal/command"
)

// Preset is the ffmpeg recipe for one operation.
type Preset struct {
	Token        command.Token
	Filters      []string
	AudioCodec   string
	AudioBitrate string
	ExtraArgs    []string
}

// Args returns the ffmpeg output arguments encoded by the preset.
func (p Preset) Args() []string {
	args := make([]string, 0, 6+len(p.ExtraArgs))
	if len(p.Filters) > 0 {
		args = append(args, "-af", strings.Join(p.Filters, ","))
	}
	if p.AudioCodec != "" {
		args = append(args, "-c:a", p.AudioCodec)
	}
	if p.AudioBitrate != "" {
		args = append(args, "-b:a", p.AudioBitrate)
	}
	args = append(args, p.ExtraArgs...)
	return args
}

var (
	highpass     = "highpass=f=80"
	denoise      = "afftdn=nf=-25"
	lightDenoise = "afftdn=nf=-18:tn=1"
	declick      = "adeclick=w=55:o=75"
	breathGate   = "agate=threshold=0.015:ratio=3:attack=5:release=120"
	trimSilence  = "silenceremove=start_periods=1:start_threshold=-45dB:stop_periods=-1:stop_duration=0.7:stop_threshold=-45dB"
	trimPauses   = "silenceremove=stop_periods=-1:stop_duration=0.35:stop_threshold=-40dB"
	loudnorm     = "loudnorm=I=-16:TP=-1.5:LRA=11"
	compress     = "acompressor=threshold=-18dB:ratio=3:attack=20:release=250"
)

// defaultPreset returns the built-in recipe for t. Operations that ffmpeg filters
// cannot express report false and stay unsupported unless a preset file adds them.
func defaultPreset(t command.Token) (Preset, bool) {
	switch t {
	case command.RemoveBackground:
		return Preset{Token: t, Filters: []string{highpass, denoise}}, true
	case command.RemoveSilence:
		return Preset{Token: t, Filters: []string{trimSilence}}, true
	case command.RemoveHesitation:
		return Preset{Token: t, Filters: []string{trimPauses}}, true
	case command.RemoveMouth:
		return Preset{Token: t, Filters: []string{declick}}, true
	case command.RemoveBreath:
		return Preset{Token: t, Filters: []string{breathGate}}, true
	case command.Normalize:
		return Preset{Token: t, Filters: []string{loudnorm}}, true
	case command.AIEnhance:
		return Preset{Token: t, Filters: []string{highpass, denoise, compress, loudnorm}}, true
	case command.PreserveMusic:
		return Preset{Token: t, Filters: []string{lightDenoise}}, true
	case command.Comprehensive:
		return Preset{Token: t, Filters: []string{highpass, denoise, declick, breathGate, trimSilence, loudnorm}}, true
	case command.RemoveStutter, command.RemoveFiller, command.Transcribe, command.Merge:
		return Preset{}, false
	default:
		return Preset{}, false
	}
}

// PresetLibrary holds the recipe for every supported operation.
type PresetLibrary struct {
	presets map[command.Token]Preset
}

// DefaultPresetLibrary holds the built-in recipes.
func DefaultPresetLibrary() *PresetLibrary {
	lib := &PresetLibrary{presets: make(map[command.Token]Preset)}
	for _, t := range command.All() {
		if p, ok := defaultPreset(t); ok {
			lib.presets[t] = p
		}
	}
	return lib
}

// Get retrieves the preset for t.
func (l *PresetLibrary) Get(t command.Token) (Preset, bool) {
	if l == nil {
		return Preset{}, false
	}
	p, ok := l.presets[t]
	return p, ok
}

// Tokens lists supported tokens in canonical order.
func (l *PresetLibrary) Tokens() []command.Token {
	var out []command.Token
	for _, t := range command.All() {
		if _, ok := l.Get(t); ok {
			out = append(out, t)
		}
	}
	return out
}

// LoadPresetFile overlays the presets in a YAML file on top of the built-in ones.
// An entry with `disabled: true` removes the operation.
func LoadPresetFile(path string) (*PresetLibrary, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("load preset file: %w", err)
	}
	type rawPreset struct {
		Filters      []string `yaml:"filters"`
		AudioCodec   string   `yaml:"audio_codec"`
		AudioBitrate string   `yaml:"audio_bitrate"`
		ExtraArgs    []string `yaml:"extra_args"`
		Disabled     bool     `yaml:"disabled"`
	}
	var payload struct {
		Presets map[string]rawPreset `yaml:"presets"`
	}
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse preset file: %w", err)
	}
	lib := DefaultPresetLibrary()
	for name, rp := range payload.Presets {
		t, err := command.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("preset file %s: %w", path, err)
		}
		if t == command.Merge {
			return nil, fmt.Errorf("preset file %s: merge is handled by the merge engine", path)
		}
		if rp.Disabled {
			delete(lib.presets, t)
			continue
		}
		if len(rp.Filters) == 0 && len(rp.ExtraArgs) == 0 {
			return nil, fmt.Errorf("preset file %s: %s needs filters or extra_args", path, name)
		}
		lib.presets[t] = Preset{
			Token:        t,
			Filters:      append([]string(nil), rp.Filters...),
			AudioCodec:   rp.AudioCodec,
			AudioBitrate: rp.AudioBitrate,
			ExtraArgs:    append([]string(nil), rp.ExtraArgs...),
		}
	}
	return lib, nil
}
