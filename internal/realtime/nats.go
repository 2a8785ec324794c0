package realtime

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSTransport consumes push events from a NATS subject. On-prem hospital
// deployments that run the platform in a cluster expose the event stream on
// NATS directly instead of per-client websockets.
type NATSTransport struct {
	conn       *nats.Conn
	subject    string
	dispatcher *Dispatcher
	logger     zerolog.Logger
}

// NewNATSTransport connects to the given NATS URL.
func NewNATSTransport(url, subject string, dispatcher *Dispatcher, logger zerolog.Logger) (*NATSTransport, error) {
	conn, err := nats.Connect(url, nats.RetryOnFailedConnect(true))
	if err != nil {
		return nil, err
	}

	return &NATSTransport{
		conn:       conn,
		subject:    subject,
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "nats_transport").Logger(),
	}, nil
}

// Run subscribes and pumps events until ctx is cancelled.
func (t *NATSTransport) Run(ctx context.Context) {
	sub, err := t.conn.Subscribe(t.subject, func(msg *nats.Msg) {
		t.dispatcher.HandleRaw(ctx, msg.Data)
	})
	if err != nil {
		t.logger.Error().Err(err).Str("subject", t.subject).Msg("failed to subscribe to event subject")
		return
	}

	<-ctx.Done()

	if err := sub.Drain(); err != nil {
		t.logger.Warn().Err(err).Msg("failed to drain event subscription")
	}
	t.conn.Close()
}
