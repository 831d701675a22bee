package locate

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AumkarMali/backendVibeVideo/internal/command"
	"github.com/AumkarMali/backendVibeVideo/internal/mediaerr"
)

// Strategy names the candidate that produced an artifact.
type Strategy string

const (
	ReportedAbsolute Strategy = "reported-absolute"
	ReportedWorkDir  Strategy = "reported-workdir"
	ReportedRoot     Strategy = "reported-root"
	GuessedWorkDir   Strategy = "guessed-workdir"
	GuessedRoot      Strategy = "guessed-root"
	PrefixScan       Strategy = "prefix-scan"
	Direct           Strategy = "direct"
)

// Artifact is an engine output discovered on disk.
type Artifact struct {
	Path     string
	Strategy Strategy
}

// Name is the artifact's file name.
func (a Artifact) Name() string {
	return filepath.Base(a.Path)
}

// Locator finds engine outputs whose location is not reliably reported.
type Locator struct {
	Root    string
	WorkDir string
}

func New(root, workDir string) *Locator {
	if workDir == "" {
		if wd, err := os.Getwd(); err == nil {
			workDir = wd
		}
	}
	return &Locator{Root: root, WorkDir: workDir}
}

// Owns reports whether path lies inside the root or the working directory.
// Engine-reported absolute paths may point anywhere.
func (l *Locator) Owns(path string) bool {
	for _, dir := range []string{l.Root, l.WorkDir} {
		if dir == "" {
			continue
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			continue
		}
		if rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

type candidate struct {
	path     string
	strategy Strategy
}

// GuessedName is the conventional output name for input processed with token:
// <stem>-<token><ext>, with spaces in the token replaced by hyphens.
func GuessedName(inputPath string, token command.Token) string {
	base := filepath.Base(inputPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return stem + "-" + strings.ReplaceAll(string(token), " ", "-") + ext
}

// Locate probes the candidates in priority order and returns the first that exists.
// reported is whatever path the engine handed back, possibly empty.
func (l *Locator) Locate(inputPath string, token command.Token, reported string) (Artifact, error) {
	for _, c := range l.candidates(inputPath, token, reported) {
		if isFile(c.path) {
			return Artifact{Path: c.path, Strategy: c.strategy}, nil
		}
	}
	if path, ok := l.scan(inputPath); ok {
		return Artifact{Path: path, Strategy: PrefixScan}, nil
	}
	return Artifact{}, mediaerr.New(mediaerr.OutputNotFound,
		"no output found for %s processed with %s", filepath.Base(inputPath), token)
}

func (l *Locator) candidates(inputPath string, token command.Token, reported string) []candidate {
	var out []candidate
	reported = strings.TrimSpace(reported)
	if reported != "" {
		if filepath.IsAbs(reported) {
			out = append(out, candidate{reported, ReportedAbsolute})
		} else {
			if l.WorkDir != "" {
				out = append(out, candidate{filepath.Join(l.WorkDir, reported), ReportedWorkDir})
			}
			if l.Root != "" {
				out = append(out, candidate{filepath.Join(l.Root, reported), ReportedRoot})
			}
		}
	}
	guessed := GuessedName(inputPath, token)
	if l.WorkDir != "" {
		out = append(out, candidate{filepath.Join(l.WorkDir, guessed), GuessedWorkDir})
	}
	if l.Root != "" {
		out = append(out, candidate{filepath.Join(l.Root, guessed), GuessedRoot})
	}
	return out
}

// scan picks the most recently modified "<stem>-*<ext>" entry in the root.
func (l *Locator) scan(inputPath string) (string, bool) {
	if l.Root == "" {
		return "", false
	}
	entries, err := os.ReadDir(l.Root)
	if err != nil {
		return "", false
	}
	base := filepath.Base(inputPath)
	ext := filepath.Ext(base)
	prefix := strings.TrimSuffix(base, ext) + "-"

	type match struct {
		path    string
		modTime int64
	}
	var matches []match
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || filepath.Ext(name) != ext {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		matches = append(matches, match{filepath.Join(l.Root, name), info.ModTime().UnixNano()})
	}
	if len(matches) == 0 {
		return "", false
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].modTime != matches[j].modTime {
			return matches[i].modTime > matches[j].modTime
		}
		return matches[i].path < matches[j].path
	})
	return matches[0].path, true
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
