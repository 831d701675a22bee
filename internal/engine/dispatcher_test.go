package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AumkarMali/backendVibeVideo/internal/command"
	"github.com/AumkarMali/backendVibeVideo/internal/locate"
	"github.com/AumkarMali/backendVibeVideo/internal/mediaerr"
	"github.com/AumkarMali/backendVibeVideo/internal/staging"
)

// fakeEngine writes "<input>:<token>" to the guessed output and reports it the
// way the configured mode says.
type fakeEngine struct {
	report string // "base", "none" or "stale"
	err    error
	delay  time.Duration
	ops    []command.Token
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Supports(token command.Token) bool {
	for _, t := range f.ops {
		if t == token {
			return true
		}
	}
	return false
}

func (f *fakeEngine) Operations() []command.Token { return f.ops }

func (f *fakeEngine) Invoke(ctx context.Context, inv Invocation) (Result, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	if f.err != nil {
		return Result{}, f.err
	}
	name := locate.GuessedName(inv.Input, inv.Token)
	out := filepath.Join(filepath.Dir(inv.Input), name)
	if err := os.WriteFile(out, []byte(fmt.Sprintf("%s:%s", filepath.Base(inv.Input), inv.Token)), 0o644); err != nil {
		return Result{}, err
	}
	switch f.report {
	case "none":
		return Result{}, nil
	case "stale":
		return Result{OutputPath: "/gone/" + name}, nil
	default:
		return Result{OutputPath: name}, nil
	}
}

func newDispatchFixture(t *testing.T, eng ProcessingEngine, timeout time.Duration) (*Dispatcher, *staging.Scope) {
	t.Helper()
	stager, err := staging.NewStager(t.TempDir(), 0, zerolog.Nop())
	require.NoError(t, err)
	scope := stager.NewScope()
	t.Cleanup(scope.Cleanup)
	loc := locate.New(stager.Root(), t.TempDir())
	return NewDispatcher(eng, loc, timeout, nil, zerolog.Nop()), scope
}

func TestDispatchLocatesOutput(t *testing.T) {
	tests := []struct {
		report string
		want   locate.Strategy
	}{
		{report: "base", want: locate.ReportedRoot},
		{report: "none", want: locate.GuessedRoot},
		{report: "stale", want: locate.GuessedRoot},
	}
	for _, tt := range tests {
		t.Run(tt.report, func(t *testing.T) {
			eng := &fakeEngine{report: tt.report, ops: []command.Token{command.RemoveBackground}}
			d, scope := newDispatchFixture(t, eng, time.Minute)
			asset, err := scope.Stage("talk.wav", stringsReader("audio"))
			require.NoError(t, err)

			artifact, err := d.Dispatch(context.Background(), asset, command.RemoveBackground)
			require.NoError(t, err)
			assert.Equal(t, tt.want, artifact.Strategy)
			assert.Equal(t, asset.Stem()+"-rm-bg.wav", artifact.Name())
		})
	}
}

func TestDispatchRejectsUnsupported(t *testing.T) {
	eng := &fakeEngine{ops: []command.Token{command.RemoveBackground}}
	d, scope := newDispatchFixture(t, eng, time.Minute)
	asset, err := scope.Stage("talk.wav", stringsReader("audio"))
	require.NoError(t, err)

	for _, token := range []command.Token{command.Normalize, "explode", ""} {
		_, err := d.Dispatch(context.Background(), asset, token)
		assert.True(t, mediaerr.Is(err, mediaerr.UnknownCommand), token)
		assert.True(t, mediaerr.Is(d.Validate(token), mediaerr.UnknownCommand), token)
	}
	assert.NoError(t, d.Validate(command.RemoveBackground))
	assert.Equal(t, []command.Token{command.RemoveBackground}, d.Operations())
}

func TestDispatchEngineFailure(t *testing.T) {
	eng := &fakeEngine{err: errors.New("model crashed"), ops: []command.Token{command.Normalize}}
	d, scope := newDispatchFixture(t, eng, time.Minute)
	asset, err := scope.Stage("talk.wav", stringsReader("audio"))
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), asset, command.Normalize)
	require.Error(t, err)
	assert.True(t, mediaerr.Is(err, mediaerr.EngineFailure))
	assert.Contains(t, mediaerr.Message(err), "model crashed")
}

func TestDispatchTimeout(t *testing.T) {
	eng := &fakeEngine{delay: time.Second, ops: []command.Token{command.Normalize}}
	d, scope := newDispatchFixture(t, eng, 20*time.Millisecond)
	asset, err := scope.Stage("talk.wav", stringsReader("audio"))
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), asset, command.Normalize)
	assert.True(t, mediaerr.Is(err, mediaerr.EngineFailure))
	assert.Contains(t, mediaerr.Message(err), "timed out")
}

func TestDispatchConcurrentRequestsStayIsolated(t *testing.T) {
	eng := &fakeEngine{report: "none", delay: 5 * time.Millisecond, ops: []command.Token{command.RemoveBackground, command.Normalize}}
	d, scope := newDispatchFixture(t, eng, time.Minute)

	const n = 12
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		token := command.RemoveBackground
		if i%2 == 1 {
			token = command.Normalize
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			asset, err := scope.Stage(fmt.Sprintf("clip-%d.wav", i), stringsReader("audio"))
			if err != nil {
				errs <- err
				return
			}
			artifact, err := d.Dispatch(context.Background(), asset, token)
			if err != nil {
				errs <- err
				return
			}
			data, err := os.ReadFile(artifact.Path)
			if err != nil {
				errs <- err
				return
			}
			if want := asset.Name() + ":" + string(token); string(data) != want {
				errs <- fmt.Errorf("artifact %s holds %q, want %q", artifact.Name(), data, want)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
