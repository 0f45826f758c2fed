package http

import (
	"database/sql"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	accessservice "vpn-bot-backend/internal/features/access/service"
)

// Server is the small operational HTTP surface next to the bot: health
// checks, the payment-gateway return page, and a token-guarded balances
// listing for the admin.
type Server struct {
	engine *gin.Engine
	addr   string
}

type Options struct {
	Port       int
	Origin     string
	AdminToken string
	Debug      bool
}

func NewServer(opts Options, db *sql.DB, rdb *redis.Client, access accessservice.AccessService) *Server {
	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowOrigins: []string{opts.Origin},
		AllowMethods: []string{http.MethodGet},
		AllowHeaders: []string{"Authorization"},
	}))

	engine.GET("/healthz", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "store": err.Error()})
			return
		}
		if err := rdb.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// The payment gateway redirects the payer here after checkout; the
	// actual settlement happens through reconciliation, not this page.
	engine.GET("/return", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK,
			"<html><body><h3>Payment received for processing.</h3>"+
				"<p>Return to the Telegram bot and press “Check payment”.</p></body></html>")
	})

	api := engine.Group("/api/v1", bearerAuth(opts.AdminToken))
	api.GET("/balances", func(c *gin.Context) {
		users, err := access.ListUsers(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": users})
	})

	return &Server{
		engine: engine,
		addr:   fmt.Sprintf(":%d", opts.Port),
	}
}

func bearerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" || c.GetHeader("Authorization") != "Bearer "+token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (s *Server) Run() error {
	return s.engine.Run(s.addr)
}
