// Package id provides centralized ID generation for framehost.
//
// IDs are prefixed ULIDs: lexicographically sortable by creation time,
// readable in logs (frm_*, req_*), and typed so a frame ID cannot be passed
// where a request ID is expected.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// FrameID identifies an embedded frame session
type FrameID string

// RequestID identifies an API request or trace span
type RequestID string

const (
	FramePrefix   = "frm"
	RequestPrefix = "req"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator
func NewGenerator() *Generator {
	return &Generator{
		entropy: rand.Reader,
	}
}

// NewGeneratorWithEntropy creates a generator with custom entropy source
// Useful for testing with deterministic entropy
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewFrameID generates a new frame session ID
func NewFrameID() FrameID {
	return FrameID(Default().GenerateWithPrefix(FramePrefix))
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

func (id FrameID) String() string   { return string(id) }
func (id RequestID) String() string { return string(id) }

// ParseFrameID validates a frame ID received from a client
func ParseFrameID(s string) (FrameID, error) {
	if err := validatePrefixed(s, FramePrefix); err != nil {
		return "", err
	}
	return FrameID(s), nil
}

func validatePrefixed(s, prefix string) error {
	rest, ok := strings.CutPrefix(s, prefix+"_")
	if !ok {
		return fmt.Errorf("id %q: missing %q prefix", s, prefix)
	}
	if !IsValid(rest) {
		return fmt.Errorf("id %q: malformed ULID", s)
	}
	return nil
}

// IsValid checks if an ID string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.ParseStrict(id)
	return err == nil
}

// Timestamp extracts the creation time from a bare or prefixed ULID
func Timestamp(id string) (time.Time, error) {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	parsed, err := ulid.Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
