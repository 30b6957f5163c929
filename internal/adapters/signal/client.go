package signal

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/satoru2478-wq/v-calls/internal/core"
)

// ErrTransportLoss means the relay connection went away. Nothing reconnects.
var ErrTransportLoss = errors.New("relay connection lost")

// Client is a peer's connection to the relay.
// It implements core.SignalConnection.
type Client struct {
	conn   *WsSignalConn
	opts   Options
	logger zerolog.Logger
}

func Dial(ctx context.Context, url string, o Options) (*Client, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay %s: %w", url, err)
	}
	return NewClient(ws, o), nil
}

func NewClient(conn WSConn, o Options) *Client {
	return &Client{
		conn:   NewWsSignalConn(conn, o.SendBuffer),
		opts:   o,
		logger: log.With().Str("module", "signal.client").Logger(),
	}
}

func (c *Client) TrySend(f core.Frame) error { return c.conn.TrySend(f) }

func (c *Client) Close() { c.conn.Close() }

// Run pumps frames in both directions until ctx ends or the relay drops.
// onFrame runs on the read goroutine.
func (c *Client) Run(ctx context.Context, onFrame func(core.Frame)) error {
	pumpCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go writePump(pumpCtx, c.conn, c.opts, c.logger)
	stop := context.AfterFunc(ctx, c.conn.Close)
	defer stop()

	err := readPump(pumpCtx, c.conn, c.opts, onFrame)
	c.conn.Close()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	c.logger.Warn().Err(err).Msg("relay connection closed")
	return fmt.Errorf("%w: %v", ErrTransportLoss, err)
}
