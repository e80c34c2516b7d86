package http

import (
	"context"
	"net/http"
	"time"

	"github.com/dkeye/Duet/internal/adapters/signal"
	"github.com/dkeye/Duet/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const sessionName = "DuetSessions"

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// requestLogger logs one line per request through zerolog.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("module", "adapters.http").
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}

type Server struct {
	Dir    Directory
	Visits VisitService
	Push   *signal.PushController
}

func SetupRouter(ctx context.Context, cfg *config.Config, srv *Server) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(requestLogger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(ClientTokenMiddleware())

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	auth := api.Group("/auth")
	auth.POST("/register", srv.register)
	auth.POST("/login", srv.login)
	auth.POST("/logout", srv.logout)
	auth.GET("/me", requireUser(), srv.me)

	rooms := api.Group("/rooms", requireUser())
	rooms.GET("", srv.listRooms)
	rooms.POST("", srv.createRoom)
	rooms.GET("/:id", srv.room)
	rooms.POST("/:id/join", srv.joinRoom)
	rooms.POST("/:id/leave", srv.leaveRoom)
	rooms.GET("/:id/members", srv.members)
	rooms.GET("/:id/playback", srv.playback)
	rooms.PATCH("/:id/playback", srv.updatePlayback)
	rooms.GET("/:id/queue", srv.queue)
	rooms.POST("/:id/queue", srv.addToQueue)
	rooms.PATCH("/:id/queue/:itemId", srv.updateQueueItem)

	api.GET("/tracks/search", requireUser(), srv.searchTracks)

	visits := api.Group("/visits", requireUser())
	visits.GET("/:id", srv.visit)
	visits.POST("/:id/mute", srv.toggleMute)
	visits.POST("/:id/camera", srv.toggleCamera)
	visits.POST("/:id/chat", srv.sendChat)
	visits.POST("/:id/recording", srv.startRecording)
	visits.DELETE("/:id/recording", srv.stopRecording)
	visits.PUT("/:id/recording/feeds/:feed", srv.pauseRecording)

	api.GET("/ws/visits/:id", requireUser(), func(c *gin.Context) {
		v, ok := srv.liveVisit(c)
		if !ok {
			return
		}
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws visit endpoint hit")
		srv.Push.HandleVisit(ctx, c, v.Room, v)
	})

	return r
}
