package merge

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/AumkarMali/backendVibeVideo/internal/command"
	"github.com/AumkarMali/backendVibeVideo/internal/engine"
	"github.com/AumkarMali/backendVibeVideo/internal/locate"
	"github.com/AumkarMali/backendVibeVideo/internal/mediaerr"
	"github.com/AumkarMali/backendVibeVideo/internal/metrics"
	"github.com/AumkarMali/backendVibeVideo/internal/staging"
)

// Service runs validated merges through a merge engine.
type Service struct {
	engine  engine.MergeEngine
	timeout time.Duration
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewService(e engine.MergeEngine, timeout time.Duration, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		engine:  e,
		timeout: timeout,
		metrics: m,
		logger:  logger.With().Str("component", "merger").Logger(),
	}
}

// Merge concatenates ordered assets into a new file in the scope. The output
// takes the extension of the first asset.
func (s *Service) Merge(ctx context.Context, scope *staging.Scope, ordered []staging.Asset) (locate.Artifact, error) {
	if len(ordered) < MinAssets {
		return locate.Artifact{}, mediaerr.New(mediaerr.UploadMissing, "merge needs at least %d files", MinAssets)
	}
	output := scope.NewPath("merged", ordered[0].Ext)
	inputs := make([]string, len(ordered))
	for i, a := range ordered {
		inputs[i] = a.Path
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	merged, err := s.engine.Merge(ctx, inputs, output)
	elapsed := time.Since(start)
	if err != nil {
		s.metrics.ObserveEngine(string(command.Merge), "error", elapsed)
		detail := "merge engine failed"
		if errors.Is(err, context.DeadlineExceeded) {
			detail = "merge engine timed out"
		}
		s.logger.Error().Err(err).Int("inputs", len(inputs)).Dur("elapsed", elapsed).Msg("merge failed")
		return locate.Artifact{}, mediaerr.Wrap(mediaerr.EngineFailure, err, detail)
	}
	s.metrics.ObserveEngine(string(command.Merge), "ok", elapsed)

	if merged == "" {
		merged = output
	}
	scope.Track(merged)
	info, err := os.Stat(merged)
	if err != nil || !info.Mode().IsRegular() {
		return locate.Artifact{}, mediaerr.New(mediaerr.OutputNotFound, "merge engine reported %s but no file exists", merged)
	}
	s.metrics.IncLocator(string(locate.Direct))
	return locate.Artifact{Path: merged, Strategy: locate.Direct}, nil
}
