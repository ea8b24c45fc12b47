package subscription

import (
	"fmt"
	"strings"
)

// Subscription is one topic and its notification mode.
type Subscription struct {
	Topic string `json:"topic" yaml:"topic"`
	Mode  Mode   `json:"mode" yaml:"mode"`
}

// Snapshot is an immutable, ordered subscription list with unique topics.
// The zero value is an empty snapshot.
type Snapshot struct {
	subs []Subscription
}

// NewSnapshot builds a snapshot, rejecting empty or repeated topics.
func NewSnapshot(subs ...Subscription) (Snapshot, error) {
	seen := make(map[string]struct{}, len(subs))
	out := make([]Subscription, 0, len(subs))
	for _, s := range subs {
		if strings.TrimSpace(s.Topic) == "" {
			return Snapshot{}, fmt.Errorf("%w: empty", ErrInvalidTopic)
		}
		if _, dup := seen[s.Topic]; dup {
			return Snapshot{}, fmt.Errorf("%w: %q", ErrDuplicateTopic, s.Topic)
		}
		seen[s.Topic] = struct{}{}
		out = append(out, s)
	}
	return Snapshot{subs: out}, nil
}

// snapshotFromTopics maps a remote topic list to a snapshot in response
// order with ModeInstant. Empty and repeated topics are dropped, keeping the
// first occurrence.
func snapshotFromTopics(topics []string) Snapshot {
	seen := make(map[string]struct{}, len(topics))
	subs := make([]Subscription, 0, len(topics))
	for _, t := range topics {
		if strings.TrimSpace(t) == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		subs = append(subs, Subscription{Topic: t, Mode: ModeInstant})
	}
	return Snapshot{subs: subs}
}

// Len returns the number of subscriptions.
func (s Snapshot) Len() int {
	return len(s.subs)
}

// At returns the i-th subscription.
func (s Snapshot) At(i int) Subscription {
	return s.subs[i]
}

// Find returns the subscription for topic.
func (s Snapshot) Find(topic string) (Subscription, bool) {
	if i := s.index(topic); i >= 0 {
		return s.subs[i], true
	}
	return Subscription{}, false
}

func (s Snapshot) index(topic string) int {
	for i, sub := range s.subs {
		if sub.Topic == topic {
			return i
		}
	}
	return -1
}

// Topics returns the topics in order. The result is never nil so that it
// encodes as an empty JSON array.
func (s Snapshot) Topics() []string {
	out := make([]string, len(s.subs))
	for i, sub := range s.subs {
		out[i] = sub.Topic
	}
	return out
}

// Subscriptions returns a copy of the list.
func (s Snapshot) Subscriptions() []Subscription {
	out := make([]Subscription, len(s.subs))
	copy(out, s.subs)
	return out
}

// Equal reports whether both snapshots hold the same subscriptions in the
// same order.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s.subs) != len(other.subs) {
		return false
	}
	for i := range s.subs {
		if s.subs[i] != other.subs[i] {
			return false
		}
	}
	return true
}

// Apply returns the snapshot that results from req. The bool is false when
// req clears a topic that has no entry; the receiver is then returned as is.
func (s Snapshot) Apply(req MutationRequest) (Snapshot, bool) {
	i := s.index(req.Topic)
	switch {
	case i < 0 && req.Mode == nil:
		return s, false
	case i < 0:
		out := make([]Subscription, len(s.subs), len(s.subs)+1)
		copy(out, s.subs)
		return Snapshot{subs: append(out, Subscription{Topic: req.Topic, Mode: *req.Mode})}, true
	case req.Mode == nil:
		out := make([]Subscription, 0, len(s.subs)-1)
		out = append(out, s.subs[:i]...)
		return Snapshot{subs: append(out, s.subs[i+1:]...)}, true
	default:
		out := s.Subscriptions()
		out[i].Mode = *req.Mode
		return Snapshot{subs: out}, true
	}
}

func (s Snapshot) String() string {
	parts := make([]string, len(s.subs))
	for i, sub := range s.subs {
		parts[i] = sub.Topic + ":" + sub.Mode.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
