package artifact

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
)

var (
	// ErrEmptyCaseID is returned when key derivation gets no case id.
	ErrEmptyCaseID = errors.New("artifact key: empty case id")
	// ErrEmptyTemplateVersion is returned when the template version is unset.
	ErrEmptyTemplateVersion = errors.New("artifact key: empty template version")
)

// ComputeKey derives the stable content key identifying one PDF-to-be-produced.
// Identical inputs always yield the identical key; the key is what collapses
// duplicate submissions into a single generation job.
//
// Each component is length-prefixed before hashing so that no choice of
// component values can collide with a different split of the same bytes
// (a plain separator would be ambiguous if inputs may contain it).
func ComputeKey(caseID, templateType, templateVersion, dataHash string) (string, error) {
	if caseID == "" {
		return "", ErrEmptyCaseID
	}
	if templateVersion == "" {
		return "", ErrEmptyTemplateVersion
	}

	h := sha256.New()
	var lenBuf [8]byte
	for _, part := range []string{caseID, templateType, templateVersion, dataHash} {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(part)))
		h.Write(lenBuf[:])
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
