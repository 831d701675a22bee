package staging

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/AumkarMali/backendVibeVideo/internal/mediaerr"
)

const (
	copyBufferSize = 32 * 1024
	sniffBytes     = 512
	defaultExt     = ".bin"
)

var mimeExtensionFallback = map[string]string{
	"audio/mpeg":      ".mp3",
	"audio/mp3":       ".mp3",
	"audio/mp4":       ".m4a",
	"audio/x-m4a":     ".m4a",
	"audio/wav":       ".wav",
	"audio/wave":      ".wav",
	"audio/x-wav":     ".wav",
	"audio/webm":      ".webm",
	"audio/ogg":       ".ogg",
	"audio/aiff":      ".aiff",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/quicktime": ".mov",
	"video/avi":       ".avi",
}

// Asset is an upload fully written to ephemeral storage.
type Asset struct {
	Path         string
	OriginalName string
	Ext          string
	Size         int64
}

// Name is the on-disk file name.
func (a Asset) Name() string {
	return filepath.Base(a.Path)
}

// Stem is the on-disk file name without its extension.
func (a Asset) Stem() string {
	return strings.TrimSuffix(a.Name(), a.Ext)
}

// IsBlank reports whether an upload's original filename is absent.
func IsBlank(originalName string) bool {
	return strings.TrimSpace(originalName) == ""
}

// Stager writes uploads under a shared ephemeral root. Every staged file gets a
// fresh uuid stem.
type Stager struct {
	root     string
	maxBytes int64
	logger   zerolog.Logger
}

func NewStager(root string, maxBytes int64, logger zerolog.Logger) (*Stager, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve staging dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir %s: %w", abs, err)
	}
	return &Stager{
		root:     abs,
		maxBytes: maxBytes,
		logger:   logger.With().Str("component", "stager").Logger(),
	}, nil
}

// Root is the absolute ephemeral storage directory.
func (s *Stager) Root() string {
	return s.root
}

// NewScope opens a request scoped set of ephemeral files.
func (s *Stager) NewScope() *Scope {
	return &Scope{stager: s}
}

// Scope tracks every file created on behalf of one request. Cleanup removes them
// all and is safe to call more than once.
type Scope struct {
	stager *Stager

	mu    sync.Mutex
	paths []string
}

// Stage copies r into the ephemeral root, preserving the original extension.
func (sc *Scope) Stage(originalName string, r io.Reader) (Asset, error) {
	if IsBlank(originalName) {
		return Asset{}, mediaerr.New(mediaerr.UploadMissing, "upload has no filename")
	}
	sample := make([]byte, sniffBytes)
	n, err := io.ReadFull(r, sample)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Asset{}, fmt.Errorf("read upload sample: %w", err)
	}
	sample = sample[:n]
	if n == 0 {
		return Asset{}, mediaerr.New(mediaerr.UploadMissing, "upload %q is empty", originalName)
	}

	ext := normalizeExtension(originalName)
	if ext == "" {
		ext = fallbackExtension(http.DetectContentType(sample))
	}

	path := filepath.Join(sc.stager.root, uuid.NewString()+ext)
	sc.Track(path)
	size, err := sc.stager.write(path, io.MultiReader(bytes.NewReader(sample), r))
	if err != nil {
		return Asset{}, err
	}
	return Asset{
		Path:         path,
		OriginalName: filepath.Base(originalName),
		Ext:          ext,
		Size:         size,
	}, nil
}

// NewPath reserves a unique path in the ephemeral root for an engine output.
func (sc *Scope) NewPath(suffix, ext string) string {
	name := uuid.NewString()
	if suffix != "" {
		name += "-" + suffix
	}
	path := filepath.Join(sc.stager.root, name+ext)
	sc.Track(path)
	return path
}

// Track marks path for deletion when the scope is cleaned up.
func (sc *Scope) Track(path string) {
	if path == "" {
		return
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for _, p := range sc.paths {
		if p == path {
			return
		}
	}
	sc.paths = append(sc.paths, path)
}

// Paths returns the tracked files.
func (sc *Scope) Paths() []string {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return append([]string(nil), sc.paths...)
}

// Cleanup removes every tracked file, best effort.
func (sc *Scope) Cleanup() {
	sc.mu.Lock()
	paths := sc.paths
	sc.paths = nil
	sc.mu.Unlock()

	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			sc.stager.logger.Warn().Err(err).Str("path", path).Msg("failed to remove ephemeral file")
		}
	}
}

func (s *Stager) write(path string, r io.Reader) (int64, error) {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create staged file: %w", err)
	}
	cleanup := func(err error) (int64, error) {
		out.Close()
		os.Remove(path)
		return 0, err
	}

	src := r
	if s.maxBytes > 0 {
		// one extra byte tells an exact-limit upload apart from an oversize one
		src = io.LimitReader(r, s.maxBytes+1)
	}
	written, err := io.CopyBuffer(out, src, make([]byte, copyBufferSize))
	if err != nil {
		return cleanup(fmt.Errorf("write staged file: %w", err))
	}
	if s.maxBytes > 0 && written > s.maxBytes {
		return cleanup(mediaerr.New(mediaerr.UploadTooLarge, "upload exceeds %d bytes", s.maxBytes))
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("close staged file: %w", err)
	}
	return written, nil
}

func normalizeExtension(filename string) string {
	ext := strings.ToLower(strings.TrimSpace(filepath.Ext(filename)))
	if ext == "." {
		return ""
	}
	return ext
}

func fallbackExtension(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(contentType)
	}
	if ext, ok := mimeExtensionFallback[mediaType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return defaultExt
}
