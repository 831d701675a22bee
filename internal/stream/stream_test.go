package stream

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AumkarMali/backendVibeVideo/internal/locate"
)

func TestSendStreamsWholeFile(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789"), ChunkSize/5)
	path := filepath.Join(t.TempDir(), "abc-rm-bg.wav")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	rec := httptest.NewRecorder()
	n, err := Send(rec, locate.Artifact{Path: path, Strategy: locate.GuessedRoot}, "My Take-rm-bg.wav")
	require.NoError(t, err)

	assert.Equal(t, int64(len(data)), n)
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, data, rec.Body.Bytes())
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))
	assert.Equal(t, strconv.Itoa(len(data)), rec.Header().Get("Content-Length"))
	assert.Equal(t, `attachment; filename="My Take-rm-bg.wav"`, rec.Header().Get("Content-Disposition"))
}

func TestSendDefaultsToArtifactName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	rec := httptest.NewRecorder()
	_, err := Send(rec, locate.Artifact{Path: path}, "")
	require.NoError(t, err)
	assert.Equal(t, `attachment; filename=out`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
}

func TestSendMissingArtifact(t *testing.T) {
	rec := httptest.NewRecorder()
	n, err := Send(rec, locate.Artifact{Path: filepath.Join(t.TempDir(), "nope.wav")}, "")
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
}

func TestDownloadName(t *testing.T) {
	artifact := locate.Artifact{Path: "/stage/1f2e-rm-bg.wav"}
	assert.Equal(t, "interview-rm-bg.wav", DownloadName("interview.WAV", "rm-bg", artifact))
	assert.Equal(t, "interview-rm-bg.wav", DownloadName("C:/uploads/interview.wav", "rm-bg", artifact))
	assert.Equal(t, "1f2e-rm-bg.wav", DownloadName("", "rm-bg", artifact))
	assert.Equal(t, "clip-merged.mp4", DownloadName("clip.mp4", "merged", locate.Artifact{Path: "/stage/x-merged.mp4"}))
}
