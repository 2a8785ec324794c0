package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	wsHandshakeTimeout = 10 * time.Second
	wsReadLimit        = 1 << 20
	wsInitialBackoff   = time.Second
	wsMaxBackoff       = 30 * time.Second
	wsPongWait         = 60 * time.Second
	wsPingPeriod       = 45 * time.Second
)

// WebsocketTransport maintains a persistent connection to the platform's
// push endpoint and feeds raw frames into the dispatcher. Disconnects are
// retried with capped exponential backoff until the context is cancelled.
type WebsocketTransport struct {
	url        string
	token      string
	dispatcher *Dispatcher
	logger     zerolog.Logger
	dialer     *websocket.Dialer
}

// NewWebsocketTransport constructs a transport for the given ws:// or
// wss:// URL.
func NewWebsocketTransport(url, token string, dispatcher *Dispatcher, logger zerolog.Logger) *WebsocketTransport {
	return &WebsocketTransport{
		url:        url,
		token:      token,
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "ws_transport").Logger(),
		dialer:     &websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout},
	}
}

// Run connects and pumps events until ctx is cancelled.
func (t *WebsocketTransport) Run(ctx context.Context) {
	backoff := wsInitialBackoff

	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := t.connect(ctx)
		if err != nil {
			t.logger.Warn().Err(err).Dur("retry_in", backoff).Msg("websocket connect failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, wsMaxBackoff)
			continue
		}

		backoff = wsInitialBackoff
		t.logger.Info().Str("url", t.url).Msg("websocket connected")
		t.pump(ctx, conn)
	}
}

func (t *WebsocketTransport) connect(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if t.token != "" {
		header.Set("Authorization", "Bearer "+t.token)
	}

	conn, resp, err := t.dialer.DialContext(ctx, t.url, header)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	conn.SetReadLimit(wsReadLimit)
	return conn, nil
}

// pump reads frames until the connection drops. A ping loop keeps the
// connection alive through idle periods.
func (t *WebsocketTransport) pump(ctx context.Context, conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsHandshakeTimeout)); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				t.logger.Warn().Err(err).Msg("websocket read failed, reconnecting")
			}
			return
		}
		t.dispatcher.HandleRaw(ctx, raw)
	}
}
