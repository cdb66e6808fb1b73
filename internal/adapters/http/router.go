package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/dkeye/Roulette/internal/adapters/ui"
	"github.com/dkeye/Roulette/internal/app/chat"
	"github.com/dkeye/Roulette/internal/app/lobby"
	"github.com/dkeye/Roulette/internal/config"
	"github.com/dkeye/Roulette/internal/core"
	"github.com/dkeye/Roulette/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

// Controller is the lobby as seen by the local UI.
type Controller interface {
	Snapshot(ctx context.Context) (core.Snapshot, error)
	SendChat(ctx context.Context, text string) (domain.ChatMessage, error)
	Skip(ctx context.Context) error
	Report(ctx context.Context) error
	Leave(ctx context.Context) error
	SetMuted(ctx context.Context, kind string, muted bool) error
}

const clientTokenKey = "client_token"

// ClientTokenMiddleware gives every browser a stable token kept in the
// cookie session.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get(clientTokenKey).(string)
		if token == "" {
			token = uuid.NewString()
			session.Set(clientTokenKey, token)
			if err := session.Save(); err != nil {
				log.Error().Err(err).Str("module", "adapters.http").Msg("save session")
			}
		}
		c.Set(clientTokenKey, token)
		c.Next()
	}
}

// SetupRouter wires the control API, the event socket and the static UI.
func SetupRouter(ctx context.Context, cfg *config.Config, identity domain.Identity, ctl Controller, hub *ui.Hub) http.Handler {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions("RouletteSessions", store))
	r.Use(ClientTokenMiddleware())

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
		r.GET("/", func(c *gin.Context) {
			c.File(cfg.StaticPath + "/index.html")
		})
	}

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	api.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"email":       identity.Email,
			"name":        identity.DisplayName,
			"clientToken": c.GetString(clientTokenKey),
		})
	})

	api.GET("/state", func(c *gin.Context) {
		snap, err := ctl.Snapshot(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		if snap.Chat == nil {
			snap.Chat = []domain.ChatMessage{}
		}
		if snap.RemoteTracks == nil {
			snap.RemoteTracks = []core.TrackInfo{}
		}
		c.JSON(http.StatusOK, snap)
	})

	api.POST("/chat", func(c *gin.Context) {
		var req struct {
			Text string `json:"text"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
		msg, err := ctl.SendChat(c.Request.Context(), req.Text)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, msg)
	})

	command := func(fn func(context.Context) error) gin.HandlerFunc {
		return func(c *gin.Context) {
			if err := fn(c.Request.Context()); err != nil {
				abortWithError(c, err)
				return
			}
			c.Status(http.StatusNoContent)
		}
	}
	api.POST("/skip", command(ctl.Skip))
	api.POST("/report", command(ctl.Report))
	api.POST("/leave", command(ctl.Leave))

	api.POST("/mute", func(c *gin.Context) {
		var req struct {
			Kind  string `json:"kind" binding:"required"`
			Muted bool   `json:"muted"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
		if err := ctl.SetMuted(c.Request.Context(), req.Kind, req.Muted); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	api.GET("/ws/events", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("client", c.GetString(clientTokenKey)).Msg("ws events endpoint hit")
		hub.Serve(ctx, c.Writer, c.Request, c.GetString(clientTokenKey))
	})

	return cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}).Handler(r)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, lobby.ErrUnknownKind):
		return http.StatusBadRequest
	case errors.Is(err, lobby.ErrNoActiveRoom), errors.Is(err, lobby.ErrNotConnected):
		return http.StatusConflict
	case errors.Is(err, chat.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, lobby.ErrLeft):
		return http.StatusGone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
