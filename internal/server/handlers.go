package server

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AumkarMali/backendVibeVideo/internal/command"
	"github.com/AumkarMali/backendVibeVideo/internal/dlp"
	"github.com/AumkarMali/backendVibeVideo/internal/ledger"
	"github.com/AumkarMali/backendVibeVideo/internal/locate"
	"github.com/AumkarMali/backendVibeVideo/internal/mediaerr"
	"github.com/AumkarMali/backendVibeVideo/internal/merge"
	"github.com/AumkarMali/backendVibeVideo/internal/staging"
	"github.com/AumkarMali/backendVibeVideo/internal/stream"
)

const (
	routeProcess = "process"
	routeMerge   = "merge"

	// recorded until the operation is known to be served
	unknownOperation = "unknown"
)

// result is what a handler hands to deliver.
type result struct {
	artifact     locate.Artifact
	downloadName string
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	s.serveMedia(w, r, routeProcess, s.maxUploadBytes+formOverhead, s.process)
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	limit := s.maxUploadBytes*int64(s.maxMergeFiles) + formOverhead
	s.serveMedia(w, r, routeMerge, limit, s.merge)
}

type mediaFunc func(ctx context.Context, form *multipart.Form, scope *staging.Scope, entry *ledger.Entry) (result, error)

// serveMedia owns the request scope: every staged input and engine output is
// removed when it returns, whatever the outcome.
func (s *Server) serveMedia(w http.ResponseWriter, r *http.Request, route string, bodyLimit int64, fn mediaFunc) {
	s.metrics.RequestStarted()
	defer s.metrics.RequestFinished()

	entry := &ledger.Entry{
		RequestID: uuid.NewString(),
		Route:     route,
		Operation: unknownOperation,
		CreatedAt: time.Now().UTC(),
	}
	w.Header().Set("X-Request-ID", entry.RequestID)

	scope := s.stager.NewScope()
	defer scope.Cleanup()

	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	if err := r.ParseMultipartForm(formMemoryBytes); err != nil {
		s.fail(w, r, entry, formError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	res, err := fn(r.Context(), r.MultipartForm, scope, entry)
	if err != nil {
		s.fail(w, r, entry, err)
		return
	}
	s.deliver(w, r, entry, res)
}

func (s *Server) process(ctx context.Context, form *multipart.Form, scope *staging.Scope, entry *ledger.Entry) (result, error) {
	header := firstFile(form, "file")
	if header == nil {
		return result{}, mediaerr.New(mediaerr.UploadMissing, "a file is required")
	}
	entry.Inputs = []string{header.Filename}

	token, err := command.Interpret(formValue(form, "command"), formValue(form, "message"))
	if err != nil {
		return result{}, err
	}
	if err := s.dispatcher.Validate(token); err != nil {
		return result{}, err
	}
	entry.Operation = string(token)

	asset, err := s.stage(ctx, scope, header)
	if err != nil {
		return result{}, err
	}
	// the engine may write the guessed name even when it fails
	scope.Track(filepath.Join(s.stager.Root(), locate.GuessedName(asset.Path, token)))

	artifact, err := s.dispatcher.Dispatch(ctx, asset, token)
	if err != nil {
		return result{}, err
	}
	if s.dispatcher.Owns(artifact.Path) {
		scope.Track(artifact.Path)
	} else {
		s.logger.Warn().
			Str("request_id", entry.RequestID).
			Str("artifact", artifact.Path).
			Msg("artifact outside staging and work dirs; leaving it in place")
	}
	return result{
		artifact:     artifact,
		downloadName: stream.DownloadName(header.Filename, artifactSuffix(asset, artifact, token), artifact),
	}, nil
}

func (s *Server) merge(ctx context.Context, form *multipart.Form, scope *staging.Scope, entry *ledger.Entry) (result, error) {
	entry.Operation = string(command.Merge)
	if raw, ok := command.Override(formValue(form, "command")); ok {
		if raw != command.Merge {
			return result{}, mediaerr.New(mediaerr.UnknownCommand, "operation %q is not a merge", raw)
		}
	} else if msg := formValue(form, "message"); msg != "" && !command.HasIntent(msg) {
		return result{}, mediaerr.New(mediaerr.NoIntentDetected, "message does not ask for an action")
	}

	var headers []*multipart.FileHeader
	for _, field := range []string{"files", "file"} {
		for _, h := range form.File[field] {
			if !staging.IsBlank(h.Filename) {
				headers = append(headers, h)
			}
		}
	}
	for _, h := range headers {
		entry.Inputs = append(entry.Inputs, h.Filename)
	}
	if len(headers) < merge.MinAssets {
		return result{}, mediaerr.New(mediaerr.UploadMissing, "merge needs at least %d files, got %d", merge.MinAssets, len(headers))
	}
	if len(headers) > s.maxMergeFiles {
		return result{}, mediaerr.New(mediaerr.UploadTooLarge, "merge accepts at most %d files", s.maxMergeFiles)
	}

	assets := make([]staging.Asset, 0, len(headers))
	for _, h := range headers {
		asset, err := s.stage(ctx, scope, h)
		if err != nil {
			return result{}, err
		}
		assets = append(assets, asset)
	}
	ordered, err := merge.Validate(assets, formValue(form, "order"))
	if err != nil {
		return result{}, err
	}

	artifact, err := s.merger.Merge(ctx, scope, ordered)
	if err != nil {
		return result{}, err
	}
	return result{
		artifact:     artifact,
		downloadName: stream.DownloadName(ordered[0].OriginalName, "merged", artifact),
	}, nil
}

// artifactSuffix is what the engine appended to the staged stem, so the download
// keeps the discovered artifact's naming. Artifacts named some other way fall
// back to the token.
func artifactSuffix(asset staging.Asset, artifact locate.Artifact, token command.Token) string {
	name := artifact.Name()
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if rest, ok := strings.CutPrefix(stem, asset.Stem()+"-"); ok && rest != "" {
		return rest
	}
	return string(token)
}

func (s *Server) stage(ctx context.Context, scope *staging.Scope, header *multipart.FileHeader) (staging.Asset, error) {
	f, err := header.Open()
	if err != nil {
		return staging.Asset{}, mediaerr.Wrap(mediaerr.UploadMissing, err, "unable to read uploaded file")
	}
	defer f.Close()

	asset, err := scope.Stage(header.Filename, f)
	if err != nil {
		return staging.Asset{}, err
	}
	if err := s.scan(ctx, asset); err != nil {
		return staging.Asset{}, err
	}
	return asset, nil
}

func (s *Server) scan(ctx context.Context, asset staging.Asset) error {
	if s.scanner == nil {
		return nil
	}
	err := s.scanner.ScanAsset(ctx, asset)
	if err == nil {
		return nil
	}
	var violation *dlp.Violation
	if !errors.As(err, &violation) {
		return fmt.Errorf("upload scan failed: %w", err)
	}
	s.logger.Warn().
		Str("file", asset.OriginalName).
		Str("rule", violation.Rule).
		Bool("enforced", s.scanner.Enforced()).
		Msg("dlp violation on upload")
	if s.scanner.Enforced() {
		return mediaerr.Wrap(mediaerr.UploadRejected, violation, "upload rejected by policy")
	}
	return nil
}

func (s *Server) deliver(w http.ResponseWriter, r *http.Request, entry *ledger.Entry, res result) {
	entry.Artifact = res.downloadName
	entry.Strategy = string(res.artifact.Strategy)

	if _, err := os.Stat(res.artifact.Path); err != nil {
		s.fail(w, r, entry, mediaerr.Wrap(mediaerr.OutputNotFound, err, "artifact vanished before delivery"))
		return
	}
	if err := s.archiver.Archive(r.Context(), entry.RequestID, res.downloadName, res.artifact.Path); err != nil {
		s.fail(w, r, entry, mediaerr.Wrap(mediaerr.Internal, err, "archive artifact"))
		return
	}

	w.Header().Set("X-Operation", entry.Operation)
	w.Header().Set("X-Artifact-Name", res.artifact.Name())
	written, err := stream.Send(w, res.artifact, res.downloadName)
	entry.SizeBytes = written
	entry.CompletedAt = time.Now().UTC()
	entry.Status = ledger.StatusCompleted
	if err != nil {
		// headers may already be out; the client sees a truncated body
		entry.Status = ledger.StatusFailed
		entry.Detail = err.Error()
		s.logger.Error().Err(err).Str("request_id", entry.RequestID).Msg("artifact stream aborted")
	}
	s.ledger.Record(r.Context(), *entry)
	s.metrics.IncRequest(entry.Route, entry.Operation, entry.Status)
	s.logger.Info().
		Str("request_id", entry.RequestID).
		Str("route", entry.Route).
		Str("operation", entry.Operation).
		Str("strategy", entry.Strategy).
		Int64("bytes", written).
		Int64("latency_ms", entry.LatencyMillis()).
		Msg("media request completed")
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, entry *ledger.Entry, err error) {
	kind := mediaerr.KindOf(err)
	status := mediaerr.StatusCode(kind)
	detail := mediaerr.Message(err)
	if kind == mediaerr.Internal {
		detail = "internal error"
	}

	entry.Status = ledger.StatusFailed
	entry.ErrorKind = string(kind)
	entry.Detail = mediaerr.Message(err)
	entry.CompletedAt = time.Now().UTC()
	s.ledger.Record(r.Context(), *entry)
	s.metrics.IncRequest(entry.Route, entry.Operation, string(kind))

	evt := s.logger.Warn()
	if status >= http.StatusInternalServerError {
		evt = s.logger.Error()
	}
	evt.Err(err).
		Str("request_id", entry.RequestID).
		Str("route", entry.Route).
		Str("operation", entry.Operation).
		Str("kind", string(kind)).
		Msg("media request failed")

	writeJSON(w, status, map[string]any{
		"error":      kind,
		"detail":     detail,
		"request_id": entry.RequestID,
	})
}

func formError(err error) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return mediaerr.New(mediaerr.UploadTooLarge, "request body exceeds %d bytes", tooBig.Limit)
	}
	return mediaerr.Wrap(mediaerr.UploadMissing, err, "invalid multipart form")
}

func firstFile(form *multipart.Form, field string) *multipart.FileHeader {
	for _, h := range form.File[field] {
		if !staging.IsBlank(h.Filename) {
			return h
		}
	}
	return nil
}

func formValue(form *multipart.Form, key string) string {
	if vs := form.Value[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}
