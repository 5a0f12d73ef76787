package http

import (
	"log/slog"

	"github.com/gdugdh24/mpit2026-roulette/internal/delivery/http/handler"
	"github.com/gdugdh24/mpit2026-roulette/internal/delivery/http/middleware"
	"github.com/gin-gonic/gin"
)

type Router struct {
	authHandler    *handler.AuthHandler
	profileHandler *handler.ProfileHandler
	matchHandler   *handler.MatchHandler
	sessionHandler *handler.SessionHandler
	friendHandler  *handler.FriendHandler
	authMiddleware *middleware.AuthMiddleware
	log            *slog.Logger

	// devLogin exposes POST /auth/dev. Never enabled in production.
	devLogin bool
}

func NewRouter(
	authHandler *handler.AuthHandler,
	profileHandler *handler.ProfileHandler,
	matchHandler *handler.MatchHandler,
	sessionHandler *handler.SessionHandler,
	friendHandler *handler.FriendHandler,
	authMiddleware *middleware.AuthMiddleware,
	log *slog.Logger,
	devLogin bool,
) *Router {
	return &Router{
		authHandler:    authHandler,
		profileHandler: profileHandler,
		matchHandler:   matchHandler,
		sessionHandler: sessionHandler,
		friendHandler:  friendHandler,
		authMiddleware: authMiddleware,
		log:            log,
		devLogin:       devLogin,
	}
}

func (r *Router) Setup() *gin.Engine {
	router := gin.Default()
	router.Use(middleware.LogErrors(r.log))

	// Health check (supports both GET and HEAD)
	healthHandler := func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	// API v1
	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			if r.devLogin {
				auth.POST("/dev", r.authHandler.DevLogin)
			}
			auth.GET("/me", r.authMiddleware.RequireAuth(), r.authHandler.Me)
		}

		// Protected routes
		protected := v1.Group("")
		protected.Use(r.authMiddleware.RequireAuth())
		{
			profile := protected.Group("/profile")
			{
				profile.GET("/me", r.profileHandler.GetMyProfile)
				profile.GET("/:user_id", r.profileHandler.GetProfileByUserID)
			}

			match := protected.Group("/match/search")
			{
				match.POST("", r.matchHandler.FindPartner)
				match.GET("/:ticket_id", r.matchHandler.GetTicket)
				match.DELETE("/:ticket_id", r.matchHandler.CancelSearch)
				match.GET("/:ticket_id/events", r.matchHandler.TicketEvents)
			}

			sessions := protected.Group("/sessions/:session_id")
			{
				sessions.GET("", r.sessionHandler.GetSession)
				sessions.POST("/decision", r.sessionHandler.SubmitDecision)
				sessions.POST("/leave", r.sessionHandler.LeaveSession)
				sessions.POST("/detach", r.sessionHandler.Detach)
				sessions.POST("/ack", r.sessionHandler.Acknowledge)
				sessions.GET("/events", r.sessionHandler.Events)
				sessions.GET("/icebreakers", r.sessionHandler.Icebreakers)
			}

			protected.GET("/friends", r.friendHandler.ListFriends)
		}
	}

	return router
}
