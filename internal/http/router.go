package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ai-chat/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	jwtSvc *service.JWTService,
	authH *AuthHandler,
	chatH *ChatHandler,
	convH *ConversationHandler,
	dbPing func(ctx context.Context) error,
) *gin.Engine {
	r := gin.New()

	r.Use(zapLoggerMiddleware(logger), recoveryMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		if dbPing != nil {
			if err := dbPing(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := r.Group("/auth")
	auth.POST("/signin", authH.SignIn)
	auth.POST("/refresh", authH.RefreshToken)
	auth.POST("/logout", authH.Logout)

	protected := r.Group("")
	protected.Use(JWTAuthMiddleware(jwtSvc))
	protected.GET("/me", authH.Me)
	protected.POST("/chat", chatH.PostChat)
	protected.GET("/models", convH.ListModels)
	protected.GET("/conversations", convH.ListConversations)
	protected.DELETE("/conversations", convH.DeleteConversation)
	protected.PATCH("/conversations", convH.RenameConversation)
	protected.GET("/conversations/:id/messages", convH.ListMessages)

	return r
}

// recoveryMiddleware convierte panics en 500. http.ErrAbortHandler se
// re-lanza tal cual: net/http lo reconoce y cierra la conexión sin el chunk
// terminal, que es el corte abrupto que necesita un stream fallido.
func recoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(r)
				}
				logger.Error("panic recovered", zap.Any("panic", r))
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
