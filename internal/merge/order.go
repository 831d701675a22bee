package merge

import (
	"strconv"
	"strings"

	"github.com/AumkarMali/backendVibeVideo/internal/mediaerr"
	"github.com/AumkarMali/backendVibeVideo/internal/staging"
)

// MinAssets is the fewest uploads a merge accepts.
const MinAssets = 2

// ParseOrder parses a comma separated permutation of [0, n).
func ParseOrder(raw string, n int) ([]int, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != n {
		return nil, mediaerr.New(mediaerr.MergeOrderMismatch,
			"order has %d entries but %d files were uploaded", len(parts), n)
	}
	seen := make([]bool, n)
	order := make([]int, n)
	for i, part := range parts {
		idx, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, mediaerr.New(mediaerr.MergeOrderMismatch, "order entry %q is not an integer", strings.TrimSpace(part))
		}
		if idx < 0 || idx >= n {
			return nil, mediaerr.New(mediaerr.MergeOrderMismatch, "order index %d is out of range [0, %d)", idx, n)
		}
		if seen[idx] {
			return nil, mediaerr.New(mediaerr.MergeOrderMismatch, "order index %d appears more than once", idx)
		}
		seen[idx] = true
		order[i] = idx
	}
	return order, nil
}

// Validate drops blank uploads, requires at least two assets and applies the
// optional order. Without an order the upload order is kept.
func Validate(assets []staging.Asset, rawOrder string) ([]staging.Asset, error) {
	kept := make([]staging.Asset, 0, len(assets))
	for _, a := range assets {
		if !staging.IsBlank(a.OriginalName) {
			kept = append(kept, a)
		}
	}
	if len(kept) < MinAssets {
		return nil, mediaerr.New(mediaerr.UploadMissing, "merge needs at least %d files, got %d", MinAssets, len(kept))
	}
	if strings.TrimSpace(rawOrder) == "" {
		return kept, nil
	}
	order, err := ParseOrder(rawOrder, len(kept))
	if err != nil {
		return nil, err
	}
	out := make([]staging.Asset, len(kept))
	for i, idx := range order {
		out[i] = kept[idx]
	}
	return out, nil
}
