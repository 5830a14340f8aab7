package audit

import (
	"context"

	"github.com/rs/zerolog/log"

	contractx "github.com/techflow/careflow/agent/contract"
)

// Publisher is the slice of the queue client the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, destination string, payload any) error
}

// NotifyingLog wraps an ActionLog and publishes each record to an operator
// webhook after the durable write succeeds. Publish failures are logged and
// swallowed: the file is the source of truth, the webhook is advisory.
type NotifyingLog struct {
	next        contractx.ActionLog
	publisher   Publisher
	destination string
}

func NewNotifyingLog(next contractx.ActionLog, publisher Publisher, destination string) *NotifyingLog {
	return &NotifyingLog{
		next:        next,
		publisher:   publisher,
		destination: destination,
	}
}

func (n *NotifyingLog) Append(ctx context.Context, rec contractx.ActionRecord) error {
	if err := n.next.Append(ctx, rec); err != nil {
		return err
	}
	if n.publisher == nil || n.destination == "" {
		return nil
	}
	if err := n.publisher.Publish(ctx, n.destination, rec); err != nil {
		log.Warn().Err(err).Str("customer_id", rec.CustomerID).Msg("action notification failed")
	}
	return nil
}
