// Package fingerprint derives deterministic cache keys from analysis requests.
//
// Two semantically identical requests must produce the same key, so every
// field is length-prefixed before hashing (a raw concatenation could let
// adjacent fields collide) and targets are normalized and sorted so ordering
// does not matter.
package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/archway-dev/archway/internal/domain"
)

// Key fingerprints the semantically relevant fields of req: kind, normalized
// targets, query, and the options that influence the payload. The request id
// and timeout are deliberately excluded; they never change the answer.
func Key(req domain.AnalysisRequest) string {
	h := sha256.New()
	writeField(h, string(req.Kind))
	for _, t := range NormalizeTargets(req.Targets) {
		writeField(h, t)
	}
	writeField(h, strings.TrimSpace(req.Query))
	writeField(h, req.Options.Provider)
	writeField(h, req.Options.Model)
	writeField(h, strconv.Itoa(req.Options.MaxOutputTokens))
	writeField(h, strconv.FormatFloat(req.Options.Creativity, 'f', -1, 64))
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeTargets cleans, deduplicates, and sorts target paths.
func NormalizeTargets(targets []string) []string {
	seen := make(map[string]struct{}, len(targets))
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		t = filepath.Clean(strings.TrimSpace(t))
		if t == "" || t == "." {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func writeField(h hash.Hash, field string) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(field)))
	h.Write(n[:])
	h.Write([]byte(field))
}
