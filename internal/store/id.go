package store

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
)

const (
	base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	idHashLength   = 8
	idMaxAttempts  = 20

	versionIDPrefix = "v"
	versionIDDigits = 12
)

// GenerateID returns a new random ID using prefix.
// It retries on collisions using the provided exists function.
func GenerateID(prefix string, exists func(string) (bool, error)) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("id prefix is required")
	}

	for i := 0; i < idMaxAttempts; i++ {
		hash, err := randomBase36(idHashLength)
		if err != nil {
			return "", err
		}
		id := fmt.Sprintf("%s-%s", prefix, hash)
		if exists == nil {
			return id, nil
		}
		ok, err := exists(id)
		if err != nil {
			return "", err
		}
		if !ok {
			return id, nil
		}
	}

	return "", fmt.Errorf("unable to generate unique id")
}

// GenerateWorkspaceID returns a new workspace id using the ws- prefix.
func GenerateWorkspaceID(exists func(string) (bool, error)) (string, error) {
	return GenerateID("ws", exists)
}

// FormatVersionID renders a sequence number as a version id. Ids are
// zero-padded so lexical order matches numeric order.
func FormatVersionID(seq int64) string {
	return fmt.Sprintf("%s%0*d", versionIDPrefix, versionIDDigits, seq)
}

// ParseVersionID returns the sequence number encoded in a version id.
func ParseVersionID(id string) (int64, error) {
	id = strings.TrimSpace(id)
	if !strings.HasPrefix(id, versionIDPrefix) || len(id) != len(versionIDPrefix)+versionIDDigits {
		return 0, fmt.Errorf("invalid version id %q", id)
	}
	seq, err := strconv.ParseInt(id[len(versionIDPrefix):], 10, 64)
	if err != nil || seq <= 0 {
		return 0, fmt.Errorf("invalid version id %q", id)
	}
	return seq, nil
}

func randomBase36(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	out := make([]byte, length)
	for i := 0; i < length; i++ {
		out[i] = base36Alphabet[int(b[i])%len(base36Alphabet)]
	}
	return string(out), nil
}
