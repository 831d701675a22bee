package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AumkarMali/backendVibeVideo/internal/command"
)

func TestPresetArgs(t *testing.T) {
	p := Preset{
		Filters:      []string{"highpass=f=80", "loudnorm"},
		AudioCodec:   "aac",
		AudioBitrate: "192k",
		ExtraArgs:    []string{"-ar", "48000"},
	}
	assert.Equal(t,
		[]string{"-af", "highpass=f=80,loudnorm", "-c:a", "aac", "-b:a", "192k", "-ar", "48000"},
		p.Args())
	assert.Empty(t, Preset{}.Args())
}

func TestDefaultPresetLibrary(t *testing.T) {
	lib := DefaultPresetLibrary()
	tokens := lib.Tokens()

	assert.Contains(t, tokens, command.RemoveBackground)
	assert.Contains(t, tokens, command.Comprehensive)
	assert.NotContains(t, tokens, command.Merge)
	assert.NotContains(t, tokens, command.Transcribe)

	for _, token := range tokens {
		p, ok := lib.Get(token)
		require.True(t, ok)
		assert.Equal(t, token, p.Token)
		assert.NotEmpty(t, p.Filters, token)
	}

	var nilLib *PresetLibrary
	_, ok := nilLib.Get(command.Normalize)
	assert.False(t, ok)
}

func writePresetFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "presets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadPresetFile(t *testing.T) {
	path := writePresetFile(t, `
presets:
  transcribe:
    extra_args: ["-vn", "-f", "srt"]
  normalize:
    filters: ["loudnorm=I=-14"]
    audio_codec: libmp3lame
    audio_bitrate: 320k
  rm-silence:
    disabled: true
`)
	lib, err := LoadPresetFile(path)
	require.NoError(t, err)

	p, ok := lib.Get(command.Transcribe)
	require.True(t, ok)
	assert.Equal(t, []string{"-vn", "-f", "srt"}, p.Args())

	p, ok = lib.Get(command.Normalize)
	require.True(t, ok)
	assert.Equal(t, []string{"-af", "loudnorm=I=-14", "-c:a", "libmp3lame", "-b:a", "320k"}, p.Args())

	_, ok = lib.Get(command.RemoveSilence)
	assert.False(t, ok)

	_, ok = lib.Get(command.RemoveBackground)
	assert.True(t, ok, "untouched defaults survive the overlay")
}

func TestLoadPresetFileErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown token", body: "presets:\n  explode:\n    filters: [anull]\n"},
		{name: "merge", body: "presets:\n  merge:\n    filters: [anull]\n"},
		{name: "empty recipe", body: "presets:\n  normalize:\n    audio_codec: aac\n"},
		{name: "bad yaml", body: "presets: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPresetFile(writePresetFile(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := LoadPresetFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
