package dlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/AumkarMali/backendVibeVideo/internal/staging"
)

const scanChunkSize = 64 * 1024

// Violation describes an upload policy failure.
type Violation struct {
	Rule   string
	Detail string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("dlp violation (%s): %s", v.Rule, v.Detail)
}

// Scanner executes policy checks on staged uploads.
type Scanner interface {
	ScanAsset(ctx context.Context, asset staging.Asset) error
	Enforced() bool
}

// RuleScanner performs extension, size and byte signature checks.
type RuleScanner struct {
	blockedExt        map[string]struct{}
	maxFileSize       int64
	avSignatures      [][]byte
	enforceViolations bool
}

// NewRuleScannerFromEnv builds a scanner from environment variables.
// It can be disabled entirely via DLP_DISABLED=true.
func NewRuleScannerFromEnv() Scanner {
	if strings.EqualFold(os.Getenv("DLP_DISABLED"), "true") {
		return nil
	}

	s := &RuleScanner{
		blockedExt: map[string]struct{}{
			".exe": {},
			".bat": {},
			".ps1": {},
			".js":  {},
			".sh":  {},
			".dll": {},
		},
		enforceViolations: !strings.EqualFold(os.Getenv("DLP_MODE"), "monitor"),
	}

	if raw := os.Getenv("DLP_BLOCKED_EXTENSIONS"); raw != "" {
		s.blockedExt = parseExtensions(raw)
	}

	if raw := os.Getenv("DLP_MAX_FILE_SIZE"); raw != "" {
		if v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil && v > 0 {
			s.maxFileSize = v
		}
	}

	if raw := os.Getenv("DLP_AV_PATTERNS"); raw != "" {
		for _, pat := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(pat); trimmed != "" {
				s.avSignatures = append(s.avSignatures, []byte(trimmed))
			}
		}
	}

	return s
}

// NewRuleScanner builds a scanner from explicit rules.
func NewRuleScanner(blockedExt []string, maxFileSize int64, signatures []string, enforce bool) *RuleScanner {
	s := &RuleScanner{
		blockedExt:        parseExtensions(strings.Join(blockedExt, ",")),
		maxFileSize:       maxFileSize,
		enforceViolations: enforce,
	}
	for _, sig := range signatures {
		if sig != "" {
			s.avSignatures = append(s.avSignatures, []byte(sig))
		}
	}
	return s
}

func parseExtensions(raw string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, ext := range strings.Split(raw, ",") {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out[ext] = struct{}{}
	}
	return out
}

func (s *RuleScanner) Enforced() bool {
	return s.enforceViolations
}

func (s *RuleScanner) ScanAsset(ctx context.Context, asset staging.Asset) error {
	for _, ext := range []string{strings.ToLower(filepath.Ext(asset.OriginalName)), asset.Ext} {
		if _, blocked := s.blockedExt[ext]; blocked && ext != "" {
			return &Violation{
				Rule:   "blocked_extension",
				Detail: fmt.Sprintf("extension %q not allowed", ext),
			}
		}
	}
	if s.maxFileSize > 0 && asset.Size > s.maxFileSize {
		return &Violation{
			Rule:   "max_file_size",
			Detail: fmt.Sprintf("file size %d exceeds limit %d", asset.Size, s.maxFileSize),
		}
	}
	if len(s.avSignatures) == 0 {
		return nil
	}
	return s.scanSignatures(ctx, asset)
}

// scanSignatures streams the file, carrying the tail of each chunk over so a
// signature split across two reads is still seen.
func (s *RuleScanner) scanSignatures(ctx context.Context, asset staging.Asset) error {
	f, err := os.Open(asset.Path)
	if err != nil {
		return fmt.Errorf("open staged asset: %w", err)
	}
	defer f.Close()

	overlap := 0
	for _, sig := range s.avSignatures {
		if len(sig) > overlap {
			overlap = len(sig)
		}
	}
	overlap--

	buf := make([]byte, 0, scanChunkSize+overlap)
	chunk := make([]byte, scanChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, readErr := f.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			for _, sig := range s.avSignatures {
				if bytes.Contains(buf, sig) {
					return &Violation{
						Rule:   "av_signature",
						Detail: fmt.Sprintf("upload %s matched AV signature", asset.OriginalName),
					}
				}
			}
			if keep := min(overlap, len(buf)); keep > 0 {
				buf = append(buf[:0], buf[len(buf)-keep:]...)
			} else {
				buf = buf[:0]
			}
		}
		if errors.Is(readErr, io.EOF) {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read staged asset: %w", readErr)
		}
	}
}
