// Package signal carries relay frames over WebSocket: the server-side
// controller that feeds the relay, and the client a peer dials in with.
package signal

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/satoru2478-wq/v-calls/internal/app"
	"github.com/satoru2478-wq/v-calls/internal/core"
)

// ClientTokenKey is the gin context key the HTTP layer stores the cookie token under.
const ClientTokenKey = "client_token"

type SignalWSController struct {
	Relay   *app.Relay
	Opts    Options
	Limiter *RateLimiter
}

// ControllerOptions add server-only settings to Options. RateLimit <= 0
// disables rate limiting.
type ControllerOptions struct {
	Options
	RateLimit  int
	RateWindow time.Duration
}

func NewSignalWSController(relay *app.Relay, o ControllerOptions) *SignalWSController {
	ctl := &SignalWSController{Relay: relay, Opts: o.Options}
	if o.RateLimit > 0 && o.RateWindow > 0 {
		ctl.Limiter = NewRateLimiter(o.RateLimit, o.RateWindow)
	}
	return ctl
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and registers the connection with the
// relay under a fresh session id. It returns once the pumps are running.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(uuid.NewString())
	logger := log.With().Str("module", "signal").Str("sid", string(sid)).Logger()

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error().Err(err).Msg("ws upgrade")
		return
	}
	logger.Info().Str("client_token", c.GetString(ClientTokenKey)).Str("remote", c.ClientIP()).Msg("new WS connection")

	conn := NewWsSignalConn(ws, ctl.Opts.SendBuffer)
	ctl.Relay.Accept(sid, conn)

	ctx, cancel := context.WithCancel(ctx)
	go writePump(ctx, conn, ctl.Opts, logger)
	go func() {
		defer cancel()
		defer conn.Close()
		defer ctl.Relay.OnClose(sid)

		err := readPump(ctx, conn, ctl.Opts, func(f core.Frame) {
			if ctl.Limiter != nil && !ctl.Limiter.Allow(sid) {
				logger.Debug().Msg("rate limited, frame dropped")
				return
			}
			ctl.Relay.OnMessage(sid, f)
		})
		if ctl.Limiter != nil {
			ctl.Limiter.Forget(sid)
		}
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
			logger.Warn().Err(err).Msg("readPump closing")
			return
		}
		logger.Info().Msg("readPump closing")
	}()
}
