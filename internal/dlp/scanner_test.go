package dlp

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AumkarMali/backendVibeVideo/internal/staging"
)

func stagedFile(t *testing.T, name string, data []byte) staging.Asset {
	t.Helper()
	path := filepath.Join(t.TempDir(), "staged"+filepath.Ext(name))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return staging.Asset{Path: path, OriginalName: name, Ext: filepath.Ext(name), Size: int64(len(data))}
}

func violationRule(t *testing.T, err error) string {
	t.Helper()
	var v *Violation
	require.True(t, errors.As(err, &v), "expected violation, got %v", err)
	return v.Rule
}

func TestScanBlockedExtension(t *testing.T) {
	s := NewRuleScanner([]string{"exe", ".BAT"}, 0, nil, true)

	err := s.ScanAsset(context.Background(), stagedFile(t, "setup.EXE", []byte("MZ")))
	assert.Equal(t, "blocked_extension", violationRule(t, err))

	err = s.ScanAsset(context.Background(), stagedFile(t, "run.bat", []byte("echo")))
	assert.Equal(t, "blocked_extension", violationRule(t, err))

	assert.NoError(t, s.ScanAsset(context.Background(), stagedFile(t, "voice.wav", []byte("RIFF"))))
}

func TestScanMaxFileSize(t *testing.T) {
	s := NewRuleScanner(nil, 4, nil, true)
	assert.NoError(t, s.ScanAsset(context.Background(), stagedFile(t, "a.wav", []byte("1234"))))
	err := s.ScanAsset(context.Background(), stagedFile(t, "b.wav", []byte("12345")))
	assert.Equal(t, "max_file_size", violationRule(t, err))
}

func TestScanSignatureAcrossChunks(t *testing.T) {
	sig := "EICAR-TEST-SIGNATURE"
	data := bytes.Repeat([]byte{'a'}, scanChunkSize-5)
	data = append(data, []byte(sig)...)
	data = append(data, bytes.Repeat([]byte{'b'}, 100)...)

	s := NewRuleScanner(nil, 0, []string{sig, ""}, true)
	err := s.ScanAsset(context.Background(), stagedFile(t, "split.mp3", data))
	assert.Equal(t, "av_signature", violationRule(t, err))

	clean := bytes.Repeat([]byte{'c'}, 3*scanChunkSize)
	assert.NoError(t, s.ScanAsset(context.Background(), stagedFile(t, "clean.mp3", clean)))
}

func TestScanCancelled(t *testing.T) {
	s := NewRuleScanner(nil, 0, []string{"sig"}, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.ScanAsset(ctx, stagedFile(t, "a.wav", []byte("data")))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRuleScannerFromEnv(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		t.Setenv("DLP_DISABLED", "true")
		assert.Nil(t, NewRuleScannerFromEnv())
	})

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("DLP_DISABLED", "")
		t.Setenv("DLP_MODE", "")
		s := NewRuleScannerFromEnv()
		require.NotNil(t, s)
		assert.True(t, s.Enforced())
		err := s.ScanAsset(context.Background(), stagedFile(t, "payload.ps1", []byte("x")))
		assert.Equal(t, "blocked_extension", violationRule(t, err))
	})

	t.Run("monitor mode with custom rules", func(t *testing.T) {
		t.Setenv("DLP_MODE", "monitor")
		t.Setenv("DLP_BLOCKED_EXTENSIONS", "flac")
		t.Setenv("DLP_MAX_FILE_SIZE", "10")
		t.Setenv("DLP_AV_PATTERNS", "BAD , ")
		s := NewRuleScannerFromEnv()
		require.NotNil(t, s)
		assert.False(t, s.Enforced())

		assert.NoError(t, s.ScanAsset(context.Background(), stagedFile(t, "ok.exe", []byte("x"))))
		err := s.ScanAsset(context.Background(), stagedFile(t, "song.flac", []byte("x")))
		assert.Equal(t, "blocked_extension", violationRule(t, err))
		err = s.ScanAsset(context.Background(), stagedFile(t, "long.wav", bytes.Repeat([]byte{'x'}, 11)))
		assert.Equal(t, "max_file_size", violationRule(t, err))
		err = s.ScanAsset(context.Background(), stagedFile(t, "sig.wav", []byte("a BAD b")))
		assert.Equal(t, "av_signature", violationRule(t, err))
	})
}
