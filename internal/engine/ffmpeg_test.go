package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AumkarMali/backendVibeVideo/internal/command"
)

// recordingExecutor captures calls and writes the last argument as the output file.
type recordingExecutor struct {
	mu     sync.Mutex
	calls  [][]string
	stdout string
	err    error
	write  bool
}

func (r *recordingExecutor) Run(_ context.Context, name string, args []string) ([]byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, append([]string{name}, args...))
	r.mu.Unlock()
	if r.write && len(args) > 0 {
		if err := os.WriteFile(args[len(args)-1], []byte("out"), 0o644); err != nil {
			return nil, err
		}
	}
	return []byte(r.stdout), r.err
}

func (r *recordingExecutor) lastCall() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

func TestFFmpegInvokeAudio(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "abc.wav")
	exec := &recordingExecutor{write: true}
	e := NewFFmpegEngine("", nil)
	e.Executor = exec

	res, err := e.Invoke(context.Background(), Invocation{Input: input, Token: command.RemoveBackground})
	require.NoError(t, err)
	assert.Equal(t, "abc-rm-bg.wav", res.OutputPath)
	assert.FileExists(t, filepath.Join(dir, "abc-rm-bg.wav"))

	call := exec.lastCall()
	require.NotEmpty(t, call)
	assert.Equal(t, "ffmpeg", call[0])
	assert.Equal(t, []string{"-y", "-hide_banner", "-loglevel", "error", "-i", input}, call[1:7])
	assert.NotContains(t, call, "-c:v")
	assert.Contains(t, call, "-af")
	assert.Equal(t, filepath.Join(dir, "abc-rm-bg.wav"), call[len(call)-1])
}

func TestFFmpegInvokeVideoCopiesStream(t *testing.T) {
	dir := t.TempDir()
	exec := &recordingExecutor{write: true}
	e := NewFFmpegEngine("/usr/bin/ffmpeg", DefaultPresetLibrary())
	e.Executor = exec

	_, err := e.Invoke(context.Background(), Invocation{Input: filepath.Join(dir, "clip.MP4"), Token: command.Normalize})
	require.NoError(t, err)
	call := exec.lastCall()
	assert.Equal(t, "/usr/bin/ffmpeg", call[0])
	assert.Equal(t, []string{"-c:v", "copy"}, call[7:9])
}

func TestFFmpegInvokeFailureRemovesOutput(t *testing.T) {
	dir := t.TempDir()
	exec := &recordingExecutor{write: true, err: errors.New("exit status 1")}
	e := NewFFmpegEngine("", nil)
	e.Executor = exec

	_, err := e.Invoke(context.Background(), Invocation{Input: filepath.Join(dir, "abc.wav"), Token: command.Normalize})
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "abc-normalize.wav"))
}

func TestFFmpegUnsupported(t *testing.T) {
	e := NewFFmpegEngine("", nil)
	assert.False(t, e.Supports(command.Transcribe))
	assert.False(t, e.Supports(command.Merge))
	_, err := e.Invoke(context.Background(), Invocation{Input: "x.wav", Token: command.Transcribe})
	assert.Error(t, err)
}

func TestFFmpegMerger(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "merged.mp4")
	var list string
	exec := &recordingExecutor{write: true}
	m := NewFFmpegMerger("")
	m.Executor = executorFunc(func(ctx context.Context, name string, args []string) ([]byte, error) {
		for i, a := range args {
			if a == "-i" {
				data, err := os.ReadFile(args[i+1])
				require.NoError(t, err)
				list = string(data)
			}
		}
		return exec.Run(ctx, name, args)
	})

	got, err := m.Merge(context.Background(), []string{"/a/one.mp4", "/a/it's.mp4"}, output)
	require.NoError(t, err)
	assert.Equal(t, output, got)
	assert.Equal(t, "file '/a/one.mp4'\nfile '/a/it'\\''s.mp4'\n", list)
	assert.NoFileExists(t, output+".concat.txt")
	assert.Equal(t, "copy", exec.lastCall()[len(exec.lastCall())-2])

	_, err = m.Merge(context.Background(), []string{"/a/one.mp4"}, output)
	assert.Error(t, err)
}

type executorFunc func(ctx context.Context, name string, args []string) ([]byte, error)

func (f executorFunc) Run(ctx context.Context, name string, args []string) ([]byte, error) {
	return f(ctx, name, args)
}

func TestCommandEngine(t *testing.T) {
	_, err := NewCommandEngine("   ", nil)
	require.Error(t, err)

	e, err := NewCommandEngine("python3 process.py --quiet", nil)
	require.NoError(t, err)
	assert.False(t, e.Supports(command.Merge))
	assert.True(t, e.Supports(command.Transcribe))
	assert.Len(t, e.Operations(), len(command.All())-1)

	exec := &recordingExecutor{stdout: "loading model\nprocessing\n/tmp/out/abc-rm-bg.wav\n\n"}
	e.Executor = exec
	res, err := e.Invoke(context.Background(), Invocation{Input: "/tmp/abc.wav", Token: command.RemoveBackground})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out/abc-rm-bg.wav", res.OutputPath)
	assert.Equal(t, []string{"python3", "process.py", "--quiet", "/tmp/abc.wav", "rm-bg"}, exec.lastCall())

	restricted, err := NewCommandEngine("tool", []command.Token{command.Normalize})
	require.NoError(t, err)
	assert.True(t, restricted.Supports(command.Normalize))
	assert.False(t, restricted.Supports(command.RemoveBackground))
}

func TestLastLine(t *testing.T) {
	assert.Equal(t, "", lastLine(""))
	assert.Equal(t, "b", lastLine("a\nb"))
	assert.Equal(t, "b", lastLine("a\n  b  \n \n"))
	assert.Equal(t, "done", strings.TrimSpace(lastLine("done")))
}

func stringsReader(s string) *strings.Reader {
	return strings.NewReader(s)
}
