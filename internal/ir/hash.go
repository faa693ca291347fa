package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix allows the
// algorithm to change without colliding with old hashes.
const (
	DomainStory = "storyweave/story/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data). The null byte keeps
// the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// StoryHash computes the content hash of a story definition. Two configs
// with the same hash build identical tables and graphs.
func StoryHash(cfg *Config) (string, error) {
	canonical, err := MarshalCanonical(cfg.Value())
	if err != nil {
		return "", fmt.Errorf("StoryHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainStory, canonical), nil
}

// MustStoryHash is like StoryHash but panics on error.
// Use only in tests.
func MustStoryHash(cfg *Config) string {
	h, err := StoryHash(cfg)
	if err != nil {
		panic(err)
	}
	return h
}
