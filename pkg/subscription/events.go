package subscription

import (
	"time"

	"github.com/hermes-notify/subsync/pkg/log"
)

// eventSink stamps sync events with the session ID before handing them to
// the configured event logger.
type eventSink struct {
	logger    log.Logger
	sessionID string
}

func newEventSink(logger log.Logger, sessionID string) eventSink {
	return eventSink{logger: log.OrNoop(logger), sessionID: sessionID}
}

func (e eventSink) emit(layer log.Layer, cat log.Category, fill func(*log.Event)) {
	ev := log.Event{
		Timestamp: time.Now(),
		SessionID: e.sessionID,
		Layer:     layer,
		Category:  cat,
	}
	fill(&ev)
	e.logger.Log(ev)
}

func (e eventSink) fetch(method, path string, d time.Duration, err error) {
	cat := log.CategoryLoad
	if method != "GET" {
		cat = log.CategoryMutation
	}
	e.emit(log.LayerFetch, cat, func(ev *log.Event) {
		ev.Fetch = &log.FetchEvent{Method: method, Path: path, Duration: d, Failed: err != nil}
	})
	if err != nil {
		e.failure(log.LayerFetch, err, method+" "+path)
	}
}

func (e eventSink) snapshot(s Snapshot, reason string) {
	e.emit(log.LayerStore, log.CategoryState, func(ev *log.Event) {
		modes := make([]string, s.Len())
		for i := range modes {
			modes[i] = s.At(i).Mode.String()
		}
		ev.Snapshot = &log.SnapshotEvent{Topics: s.Topics(), Modes: modes, Reason: reason}
	})
}

func (e eventSink) mutation(token uint64, req MutationRequest, outcome log.Outcome) {
	e.emit(log.LayerCoordinator, log.CategoryMutation, func(ev *log.Event) {
		ev.Mutation = &log.MutationEvent{
			Token:   token,
			Topic:   req.Topic,
			Mode:    req.modeName(),
			Outcome: outcome,
		}
	})
}

func (e eventSink) failure(layer log.Layer, err error, context string) {
	e.emit(layer, log.CategoryError, func(ev *log.Event) {
		ev.Error = &log.ErrorEventData{Layer: layer, Message: err.Error(), Context: context}
	})
}
