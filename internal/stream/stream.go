package stream

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/AumkarMali/backendVibeVideo/internal/locate"
)

// ChunkSize bounds the memory used per response.
const ChunkSize = 32 * 1024

// Send streams the artifact to w as an attachment named downloadName.
// Errors before the first byte is written are returned so the caller can still
// answer with an error body; later errors only abort the copy.
func Send(w http.ResponseWriter, artifact locate.Artifact, downloadName string) (int64, error) {
	f, err := os.Open(artifact.Path)
	if err != nil {
		return 0, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat artifact: %w", err)
	}
	if downloadName == "" {
		downloadName = artifact.Name()
	}

	h := w.Header()
	h.Set("Content-Type", ContentType(downloadName))
	h.Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": downloadName}))
	w.WriteHeader(http.StatusOK)

	written, err := io.CopyBuffer(w, f, make([]byte, ChunkSize))
	if err != nil {
		return written, fmt.Errorf("stream artifact: %w", err)
	}
	return written, nil
}

// ContentType guesses a MIME type from the file extension.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// DownloadName builds the attachment name from the caller's original file name
// and a suffix naming the result, keeping the artifact's extension.
func DownloadName(originalName, suffix string, artifact locate.Artifact) string {
	ext := filepath.Ext(artifact.Path)
	stem := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	if stem == "" || stem == "." {
		return artifact.Name()
	}
	return stem + "-" + strings.ReplaceAll(suffix, " ", "-") + ext
}
