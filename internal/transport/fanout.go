// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transport

import "errors"

// Fanout combines several targets into one: posts go to every sender and
// handlers are registered on every receiver.
type Fanout struct {
	senders   []Target
	receivers []Target
}

func NewFanout(senders, receivers []Target) *Fanout {
	return &Fanout{
		senders:   append([]Target(nil), senders...),
		receivers: append([]Target(nil), receivers...),
	}
}

// PostMessage posts to all senders, even when some fail, and joins the errors.
func (f *Fanout) PostMessage(data any, targetOrigin string, transfer []any) error {
	var errs []error
	for _, t := range f.senders {
		if err := t.PostMessage(data, targetOrigin, transfer); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) AddMessageHandler(h MessageHandler) {
	for _, t := range f.receivers {
		t.AddMessageHandler(h)
	}
}

func (f *Fanout) RemoveMessageHandler(h MessageHandler) {
	for _, t := range f.receivers {
		t.RemoveMessageHandler(h)
	}
}

var _ Target = (*Fanout)(nil)
