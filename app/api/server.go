package api

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer wires the routes. metricsHandler serves /metrics when non-nil.
func NewServer(handler *Handler, apiAccessKey string, metricsHandler http.Handler) *gin.Engine {
	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health", "/metrics"},
	}))

	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey, metricsHandler)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string, metricsHandler http.Handler) {
	r.GET("/topics/:name", handler.GetTopicJSON)
	r.GET("/topics/:name/csv", handler.GetTopicCSV)
	r.GET("/topics/:name/report", handler.GetTopicReport)
	r.GET("/topics/:name/rss", handler.GetTopicRSS)

	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	if apiAccessKey != "" {
		api := r.Group("/api")
		api.Use(authMiddleware(apiAccessKey))
		{
			api.GET("/topics", handler.APIListTopics)
			api.GET("/topics/:name", handler.APIGetTopicDetails)
			api.POST("/topics/:name/collect", handler.APICollectTopic)
			api.POST("/topics/:name/rescore", handler.APIRescoreTopic)
			api.POST("/topics/:name/export", handler.APIExportTopic)
			api.POST("/topics/:name/reload", handler.APIReloadTopic)
		}
		slog.Info("API endpoints enabled with authentication")
	} else {
		slog.Info("API endpoints disabled (API_ACCESS_KEY not set)")
	}

	r.GET("/", func(c *gin.Context) {
		endpoints := map[string]string{
			"topic":  "/topics/<name>",
			"csv":    "/topics/<name>/csv",
			"report": "/topics/<name>/report",
			"rss":    "/topics/<name>/rss",
			"health": "/health",
			"stats":  "/stats",
		}
		if metricsHandler != nil {
			endpoints["metrics"] = "/metrics"
		}

		if apiAccessKey != "" {
			endpoints["topics"] = "/api/topics (requires X-API-Key header)"
			endpoints["details"] = "/api/topics/<name> (requires X-API-Key header)"
			endpoints["collect"] = "/api/topics/<name>/collect (POST, requires X-API-Key header)"
			endpoints["rescore"] = "/api/topics/<name>/rescore (POST, requires X-API-Key header)"
			endpoints["export"] = "/api/topics/<name>/export (POST, requires X-API-Key header)"
			endpoints["reload"] = "/api/topics/<name>/reload (POST, requires X-API-Key header)"
		}

		c.JSON(http.StatusOK, gin.H{
			"service":     "Buzz Comb",
			"version":     handler.version,
			"description": "Social and news monitor that keeps only on-topic posts and ranks them by relevance and engagement",
			"endpoints":   endpoints,
			"api_status": map[string]any{
				"enabled":       apiAccessKey != "",
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiAccessKey)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
