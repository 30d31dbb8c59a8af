package http

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/linguacall/server/internal/adapters/signal"
	"github.com/linguacall/server/internal/adapters/store"
	"github.com/linguacall/server/internal/app"
	"github.com/linguacall/server/internal/config"
)

func SetupRouter(ctx context.Context, cfg *config.Config, hub *app.Hub, st *store.Store) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.Static("/static", cfg.StaticPath)

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	ws := signal.NewController(hub, cfg)
	r.GET("/ws/:user_id", func(c *gin.Context) {
		ws.Handle(ctx, c)
	})

	calls := &CallsController{Hub: hub, Store: st}
	api := r.Group("/api/calls")
	api.POST("/invite", calls.Invite)
	api.GET("/my-calls", calls.MyCalls)

	return r
}
