package signal

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/satoru2478-wq/v-calls/internal/core"
)

const (
	defaultSendBuffer = 32
	defaultWriteWait  = 5 * time.Second
)

// Options tune one side of a relay connection. Zero PingPeriod or PongWait
// disables that keepalive half.
type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	PongWait   time.Duration
	WriteWait  time.Duration
	SendBuffer int
}

func (o Options) writeWait() time.Duration {
	if o.WriteWait <= 0 {
		return defaultWriteWait
	}
	return o.WriteWait
}

// writePump drains c.send to the network and pings on every PingPeriod.
// It closes c on exit.
func writePump(ctx context.Context, c *WsSignalConn, o Options, logger zerolog.Logger) {
	defer c.Close()

	var tick <-chan time.Time
	if o.PingPeriod > 0 {
		ticker := time.NewTicker(o.PingPeriod)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				logger.Debug().Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(o.writeWait())); err != nil {
				logger.Error().Err(err).Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Warn().Err(err).Msg("writePump write error")
				return
			}
		case <-tick:
			if err := c.conn.SetWriteDeadline(time.Now().Add(o.writeWait())); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Warn().Err(err).Msg("writePump ping failed")
				return
			}
		}
	}
}

// readPump hands every inbound frame to onFrame until the connection fails.
// The returned error is the read error that ended it.
func readPump(ctx context.Context, c *WsSignalConn, o Options, onFrame func(core.Frame)) error {
	if o.ReadLimit > 0 {
		c.conn.SetReadLimit(o.ReadLimit)
	}
	if o.PongWait > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(o.PongWait))
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(o.PongWait))
		})
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		onFrame(core.Frame(data))
	}
}
