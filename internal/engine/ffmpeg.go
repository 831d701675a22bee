package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AumkarMali/backendVibeVideo/internal/command"
	"github.com/AumkarMali/backendVibeVideo/internal/locate"
)

const defaultFFmpegBinary = "ffmpeg"

// FFmpegEngine applies audio filter presets with ffmpeg. The output is written
// next to the input under the guessed name and reported by base name only.
type FFmpegEngine struct {
	Binary   string
	Executor Executor
	Presets  *PresetLibrary
}

func NewFFmpegEngine(binary string, presets *PresetLibrary) *FFmpegEngine {
	if binary == "" {
		binary = defaultFFmpegBinary
	}
	if presets == nil {
		presets = DefaultPresetLibrary()
	}
	return &FFmpegEngine{Binary: binary, Executor: CommandExecutor{}, Presets: presets}
}

func (e *FFmpegEngine) Name() string {
	return "ffmpeg"
}

func (e *FFmpegEngine) Supports(token command.Token) bool {
	_, ok := e.Presets.Get(token)
	return ok
}

func (e *FFmpegEngine) Operations() []command.Token {
	return e.Presets.Tokens()
}

func (e *FFmpegEngine) Invoke(ctx context.Context, inv Invocation) (Result, error) {
	preset, ok := e.Presets.Get(inv.Token)
	if !ok {
		return Result{}, fmt.Errorf("ffmpeg: no preset for %q", inv.Token)
	}
	output := filepath.Join(filepath.Dir(inv.Input), locate.GuessedName(inv.Input, inv.Token))
	args := e.args(inv.Input, output, preset)
	out, err := e.Executor.Run(ctx, e.Binary, args)
	if err != nil {
		_ = os.Remove(output)
		return Result{}, err
	}
	return Result{OutputPath: filepath.Base(output), Log: string(out)}, nil
}

func (e *FFmpegEngine) args(input, output string, preset Preset) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", input}
	if isVideoExt(filepath.Ext(input)) {
		args = append(args, "-c:v", "copy")
	}
	args = append(args, preset.Args()...)
	return append(args, output)
}

func isVideoExt(ext string) bool {
	switch strings.ToLower(ext) {
	case ".mp4", ".mov", ".mkv", ".webm", ".avi", ".m4v":
		return true
	}
	return false
}

// FFmpegMerger concatenates inputs with the ffmpeg concat demuxer.
type FFmpegMerger struct {
	Binary   string
	Executor Executor
}

func NewFFmpegMerger(binary string) *FFmpegMerger {
	if binary == "" {
		binary = defaultFFmpegBinary
	}
	return &FFmpegMerger{Binary: binary, Executor: CommandExecutor{}}
}

func (m *FFmpegMerger) Merge(ctx context.Context, inputs []string, output string) (string, error) {
	if len(inputs) < 2 {
		return "", fmt.Errorf("ffmpeg merge: need at least two inputs, got %d", len(inputs))
	}
	listPath := output + ".concat.txt"
	if err := os.WriteFile(listPath, []byte(concatList(inputs)), 0o644); err != nil {
		return "", fmt.Errorf("write concat list: %w", err)
	}
	defer os.Remove(listPath)

	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", output}
	if _, err := m.Executor.Run(ctx, m.Binary, args); err != nil {
		_ = os.Remove(output)
		return "", err
	}
	return output, nil
}

func concatList(inputs []string) string {
	var b strings.Builder
	for _, in := range inputs {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(in, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}
