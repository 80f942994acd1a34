package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// SetupRoutes configures all application routes and middleware.
func SetupRoutes(router *gin.Engine, env *Env) {
	router.Use(gin.Recovery())
	router.Use(SecurityHeadersMiddleware())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{env.Cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Admin-Token"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
	}))

	limiter := NewIPRateLimiter(rate.Limit(rateLimitRPS), rateLimitBurst)
	go func() {
		for {
			time.Sleep(10 * time.Minute)
			limiter.prune()
		}
	}()

	api := router.Group("/api")
	{
		api.GET("/election", env.ElectionInfo)

		api.GET("/vote", env.BallotState)
		api.POST("/vote", env.BallotState)
		api.POST("/vote/create", env.CreateVote)
		api.POST("/vote/delete", env.DeleteVote)

		api.POST("/vote/register", RateLimitMiddleware(limiter), env.RegisterVoter)
		api.GET("/vote/verify", env.VerifyVoter)
		api.POST("/vote/register/resend", RateLimitMiddleware(limiter), env.ResendVerification)

		api.GET("/nominate/positions", env.NominationPositions)
		api.POST("/nominate", RateLimitMiddleware(limiter), env.CreateNomination)
		api.GET("/nominate/verify", env.VerifyCandidate)
	}

	admin := api.Group("/admin", AdminAuthMiddleware(env.Cfg.AdminToken))
	{
		admin.GET("/elections/:id/export", env.ExportVotes)
		admin.POST("/elections/:id/end", env.EndElection)
	}
}
