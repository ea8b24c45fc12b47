package subscription

import (
	"fmt"
	"strings"
)

// MutationRequest asks for a topic to be set to a mode, or removed when Mode
// is nil.
type MutationRequest struct {
	Topic string
	Mode  *Mode
}

// Set returns a request subscribing topic with mode.
func Set(topic string, mode Mode) MutationRequest {
	return MutationRequest{Topic: topic, Mode: mode.Ptr()}
}

// Clear returns a request removing the subscription for topic.
func Clear(topic string) MutationRequest {
	return MutationRequest{Topic: topic}
}

// IsClear reports whether the request removes the topic.
func (r MutationRequest) IsClear() bool {
	return r.Mode == nil
}

// Validate checks the topic.
func (r MutationRequest) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidTopic)
	}
	return nil
}

// modeName is the mode name, or "" for a clear.
func (r MutationRequest) modeName() string {
	if r.Mode == nil {
		return ""
	}
	return r.Mode.String()
}

func (r MutationRequest) String() string {
	if r.Mode == nil {
		return "clear " + r.Topic
	}
	return "set " + r.Topic + "=" + r.Mode.String()
}
