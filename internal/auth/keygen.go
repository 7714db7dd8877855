package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"regexp"
)

// Capability key format: pv_{env}_{secret}
// Example: pv_live_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b
const KeySecretLen = 64 // hex encoded 32 bytes

// Environment indicators for key prefix.
const (
	EnvLive = "live"
	EnvTest = "test"
)

var keyFormatRegex = regexp.MustCompile(`^pv_(live|test)_[a-f0-9]{64}$`)

// GenerateCapabilityKey creates a new random capability key for env.
// Unknown environments default to live.
func GenerateCapabilityKey(env string) (string, error) {
	if env != EnvLive && env != EnvTest {
		env = EnvLive
	}

	secret := make([]byte, KeySecretLen/2)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}

	return fmt.Sprintf("pv_%s_%s", env, hex.EncodeToString(secret)), nil
}

// ValidateKeyFormat reports whether key looks like a generated capability key.
// Operators may configure keys of any shape; this is only advisory.
func ValidateKeyFormat(key string) bool {
	return keyFormatRegex.MatchString(key)
}

// MatchCapabilityKey compares a presented key with the configured one in
// constant time. Both are hashed first so the length of the configured key
// does not leak through timing. An empty presented key never matches.
func MatchCapabilityKey(presented, expected string) bool {
	if presented == "" || expected == "" {
		return false
	}
	p := sha256.Sum256([]byte(presented))
	e := sha256.Sum256([]byte(expected))
	return subtle.ConstantTimeCompare(p[:], e[:]) == 1
}
