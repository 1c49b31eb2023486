package inmem

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"observe/internal/domain"
)

// Outbox records outbound mail instead of delivering it.
type Outbox struct {
	mu   sync.Mutex
	sent []domain.Mail
	fail error
}

// NewOutbox creates an empty outbox.
func NewOutbox() *Outbox {
	return &Outbox{}
}

// FailWith makes subsequent sends return err. A nil err restores delivery.
func (o *Outbox) FailWith(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fail = err
}

func (o *Outbox) Send(_ context.Context, m domain.Mail) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail != nil {
		return o.fail
	}
	o.sent = append(o.sent, m)
	slog.Info("mail queued in outbox", "to", m.To, "subject", m.Subject)
	return nil
}

// Sent returns the messages recorded so far.
func (o *Outbox) Sent() []domain.Mail {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.sent)
}
