package http

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/satoru2478-wq/v-calls/internal/adapters/signal"
	"github.com/satoru2478-wq/v-calls/internal/config"
)

const (
	sessionName     = "VCallsSessions"
	clientTokenKey  = "ct"
	clientTokenDays = 7
)

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware keeps a per-browser token in the cookie session. The
// relay only logs it; connections are identified on their own.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Default(c)
		token, _ := s.Get(clientTokenKey).(string)
		if token == "" {
			token = genClientToken()
			s.Set(clientTokenKey, token)
			if err := s.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save session")
			}
		}
		c.Set(signal.ClientTokenKey, token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, ctl *signal.SignalWSController) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * clientTokenDays, HttpOnly: true})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(ClientTokenMiddleware())

	index := filepath.Join(cfg.StaticPath, "index.html")
	if _, err := os.Stat(cfg.StaticPath); err == nil {
		r.Static("/static", cfg.StaticPath)
	} else {
		log.Warn().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("static directory missing, page not served")
	}

	signalHandler := func(c *gin.Context) {
		ctl.HandleSignal(ctx, c)
	}

	// The browser page opens its socket on the page origin itself.
	r.GET("/", func(c *gin.Context) {
		if websocket.IsWebSocketUpgrade(c.Request) {
			signalHandler(c)
			return
		}
		if _, err := os.Stat(index); err != nil {
			c.String(http.StatusNotFound, "no client page installed")
			return
		}
		c.File(index)
	})
	r.GET("/ws", signalHandler)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "connections": ctl.Relay.Hub.Count()})
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")
	return r
}
