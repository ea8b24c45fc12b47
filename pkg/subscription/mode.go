package subscription

import (
	"fmt"
	"strings"
)

// Mode is the notification frequency for a topic.
type Mode uint8

const (
	// ModeInstant notifies on every event. Loaded topics default to it.
	ModeInstant Mode = iota
	// ModeDigest batches notifications.
	ModeDigest
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeInstant:
		return "instant"
	case ModeDigest:
		return "digest"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// Ptr returns a pointer to a copy of m, for building MutationRequests.
func (m Mode) Ptr() *Mode {
	return &m
}

// ParseMode parses a mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "instant":
		return ModeInstant, nil
	case "digest":
		return ModeDigest, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// MarshalText encodes the mode as its name.
func (m Mode) MarshalText() ([]byte, error) {
	if m > ModeDigest {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, uint8(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
