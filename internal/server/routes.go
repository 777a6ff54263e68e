package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func (s *Server) registerRoutes(engine *gin.Engine) {
	if s.Config.CORS.Enabled {
		engine.Use(cors.New(cors.Config{
			AllowOrigins:     s.Config.CORS.AllowedOrigins,
			AllowMethods:     s.Config.CORS.AllowedMethods,
			AllowHeaders:     s.Config.CORS.AllowedHeaders,
			ExposeHeaders:    s.Config.CORS.ExposedHeaders,
			AllowCredentials: s.Config.CORS.AllowCredentials,
			MaxAge:           s.Config.CORS.MaxAge,
		}))
	}

	engine.Use(PrincipalMiddleware(s.Config.Auth))

	engine.GET("/healthz", s.handleHealthz)

	api := engine.Group(s.Config.BasePath + "/api")
	{
		api.POST("/raw", s.handleIngestRaw)
		api.GET("/raw", s.handleListRaw)
		api.GET("/raw/:id", s.handleGetRaw)

		api.POST("/cleaned/:id/derive", s.handleDeriveCleaned)
		api.GET("/cleaned/:id", s.handleGetCleaned)
		api.PUT("/cleaned/:id/scores", s.handleUpdateScores)

		api.POST("/aggregates", s.handleAggregateWeek)
		api.POST("/aggregates/run", s.handleAggregateRun)
		api.GET("/aggregates/:company/:week", s.handleGetAggregate)

		api.GET("/checks", s.handleListChecks)
		api.POST("/checks/run", s.handleRunChecks)
	}
}
