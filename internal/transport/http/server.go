package http

import (
	"github.com/gin-gonic/gin"

	"offerdesk/internal/bootstrap"
	"offerdesk/internal/transport/http/handler"
	"offerdesk/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(middleware.RequestLog(app.Log), gin.Recovery())
	router.MaxMultipartMemory = 32 << 20

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	svc := app.Services
	authHandler := handler.NewAuthHandler(svc.Auth)
	collectionHandler := handler.NewCollectionHandler(svc.Documents, svc.Retrieval, svc.QA, svc.Comparison)
	documentHandler := handler.NewDocumentHandler(svc.Documents)
	shareHandler := handler.NewShareHandler(svc.Shares, svc.Retrieval, svc.QA, svc.Comparison)

	Register(router.Group("/api/v1"), app.Config.Auth.JWTSecret, Handlers{
		Auth:        authHandler,
		Collections: collectionHandler,
		Documents:   documentHandler,
		Shares:      shareHandler,
	})
	return router
}

type Handlers struct {
	Auth        *handler.AuthHandler
	Collections *handler.CollectionHandler
	Documents   *handler.DocumentHandler
	Shares      *handler.ShareHandler
}

// Register mounts the API routes on v1.
func Register(v1 *gin.RouterGroup, jwtSecret string, h Handlers) {
	authJWT := middleware.AuthJWT(jwtSecret)

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/login", h.Auth.Login)
	authGroup.GET("/me", authJWT, h.Auth.Me)

	collections := v1.Group("/collections", authJWT)
	collections.POST("", h.Collections.Upload)
	collections.GET("/:token/documents", h.Collections.ListDocuments)
	collections.GET("/:token/chunks", h.Collections.ListChunks)
	collections.POST("/:token/ask", h.Collections.Ask)
	collections.GET("/:token/comparison", h.Collections.Comparison)

	documents := v1.Group("/documents", authJWT)
	documents.POST("/:id/reembed", h.Documents.Reembed)
	documents.DELETE("/:id", h.Documents.Delete)

	v1.POST("/shares", authJWT, h.Shares.Create)

	public := v1.Group("/public/shares")
	public.GET("/:token/chunks", h.Shares.Chunks)
	public.POST("/:token/ask", h.Shares.Ask)
	public.GET("/:token/comparison", h.Shares.Comparison)
}
