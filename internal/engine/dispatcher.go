package engine

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/AumkarMali/backendVibeVideo/internal/command"
	"github.com/AumkarMali/backendVibeVideo/internal/locate"
	"github.com/AumkarMali/backendVibeVideo/internal/mediaerr"
	"github.com/AumkarMali/backendVibeVideo/internal/metrics"
	"github.com/AumkarMali/backendVibeVideo/internal/staging"
)

// Dispatcher validates a token, runs the engine on exactly one asset and hands
// the reported result to the locator. It keeps no per-request state.
type Dispatcher struct {
	engine  ProcessingEngine
	locator *locate.Locator
	timeout time.Duration
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewDispatcher(engine ProcessingEngine, locator *locate.Locator, timeout time.Duration, m *metrics.Metrics, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		engine:  engine,
		locator: locator,
		timeout: timeout,
		metrics: m,
		logger:  logger.With().Str("component", "dispatcher").Str("engine", engine.Name()).Logger(),
	}
}

// Operations lists the tokens the engine accepts.
func (d *Dispatcher) Operations() []command.Token {
	return d.engine.Operations()
}

// Validate fails with UnknownCommand when token is not served by the engine.
func (d *Dispatcher) Validate(token command.Token) error {
	if !token.Valid() || !d.engine.Supports(token) {
		return mediaerr.New(mediaerr.UnknownCommand, "operation %q is not supported", token)
	}
	return nil
}

// Owns reports whether path lies under a directory the gateway writes to.
func (d *Dispatcher) Owns(path string) bool {
	return d.locator.Owns(path)
}

// Dispatch processes asset with token and returns the located artifact.
func (d *Dispatcher) Dispatch(ctx context.Context, asset staging.Asset, token command.Token) (locate.Artifact, error) {
	if err := d.Validate(token); err != nil {
		return locate.Artifact{}, err
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := d.engine.Invoke(ctx, Invocation{Input: asset.Path, Token: token})
	elapsed := time.Since(start)
	if err != nil {
		d.metrics.ObserveEngine(string(token), "error", elapsed)
		detail := "engine failed"
		if errors.Is(err, context.DeadlineExceeded) {
			detail = "engine timed out"
		}
		d.logger.Error().Err(err).Str("operation", string(token)).Str("input", asset.Name()).Dur("elapsed", elapsed).Msg("engine invocation failed")
		return locate.Artifact{}, mediaerr.Wrap(mediaerr.EngineFailure, err, detail)
	}
	d.metrics.ObserveEngine(string(token), "ok", elapsed)

	artifact, err := d.locator.Locate(asset.Path, token, result.OutputPath)
	if err != nil {
		d.logger.Error().Str("operation", string(token)).Str("input", asset.Name()).Str("reported", result.OutputPath).Msg("engine output not found")
		return locate.Artifact{}, err
	}
	d.metrics.IncLocator(string(artifact.Strategy))
	d.logger.Debug().
		Str("operation", string(token)).
		Str("artifact", artifact.Name()).
		Str("strategy", string(artifact.Strategy)).
		Dur("elapsed", elapsed).
		Msg("engine output located")
	return artifact, nil
}
