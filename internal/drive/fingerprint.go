package drive

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/rohits-web03/edudrive/internal/apperr"
)

// Fingerprint is the content identity of an upload.
type Fingerprint struct {
	Hash string // lowercase hex SHA-256
	Size int64
}

// ComputeFingerprint hashes r to the end and rewinds it, so the same
// stream can be handed to the blob store afterwards.
func ComputeFingerprint(r io.ReadSeeker) (Fingerprint, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("hash content: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return Fingerprint{}, fmt.Errorf("rewind content: %w", err)
	}
	return Fingerprint{Hash: hex.EncodeToString(h.Sum(nil)), Size: n}, nil
}

var hexHash = regexp.MustCompile(`^[0-9a-f]{64}$`)

// NormalizeHash validates a client-declared SHA-256 hex digest.
func NormalizeHash(hash string) (string, error) {
	h := strings.ToLower(strings.TrimSpace(hash))
	if !hexHash.MatchString(h) {
		return "", apperr.New(apperr.InvalidInput, "contentHash must be a hex SHA-256 digest").
			WithDetails(map[string]any{"field": "contentHash"})
	}
	return h, nil
}
