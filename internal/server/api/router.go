// Package api is the REST surface of docusigner, built on gin.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/docusigner/internal/logging"
	"github.com/dmitrijs2005/docusigner/internal/server/models"
	"github.com/dmitrijs2005/docusigner/internal/server/services"
	"github.com/gin-gonic/gin"
)

// DocumentService is implemented by services.DocumentService.
type DocumentService interface {
	Upload(ctx context.Context, ownerID, originalName string, data []byte, ip string) (*models.Document, error)
	Get(ctx context.Context, documentID, userID string) (*models.Document, error)
	AuditTrail(ctx context.Context, documentID, userID string) ([]models.AuditEntry, error)
	OpenArtifact(ctx context.Context, name string) ([]byte, error)
}

// SigningService is implemented by services.SigningService.
type SigningService interface {
	SignOwned(ctx context.Context, documentID, userID string, fields []models.Field, ip string) (string, error)
	SubmitExternalSign(ctx context.Context, token string, fields []models.Field, ip string) (time.Time, error)
}

// InviteService is implemented by services.InviteService.
type InviteService interface {
	CreateInvite(ctx context.Context, in services.CreateInviteInput) (*services.Invitation, error)
	ResendInvite(ctx context.Context, requestID, requesterID, ip string) (*services.Invitation, error)
	FetchForSigning(ctx context.Context, token string) (*services.SigningView, error)
	SubmitReject(ctx context.Context, token, reason, ip string) error
	ListRequests(ctx context.Context, requesterID string) ([]models.ExternalRequestView, error)
}

type Router struct {
	engine    *gin.Engine
	logger    logging.Logger
	jwtSecret []byte
	documents DocumentService
	signing   SigningService
	invites   InviteService
}

func NewRouter(logger logging.Logger, secretKey string, docs DocumentService, signing SigningService, invites InviteService) *Router {
	engine := gin.New()
	engine.MaxMultipartMemory = maxUploadBytes

	r := &Router{
		engine:    engine,
		logger:    logger.With("module", "http"),
		jwtSecret: []byte(secretKey),
		documents: docs,
		signing:   signing,
		invites:   invites,
	}

	engine.Use(RequestID())
	engine.Use(LogRequests(r.logger))
	engine.Use(RecoverPanic(r.logger))

	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "up", "name": "docusigner"})
	})
	r.engine.GET("/uploads/:name", r.download)

	external := r.engine.Group("/api/external/sign")
	{
		external.GET("/:token", r.fetchForSigning)
		external.POST("/:token", r.submitExternalSign)
		external.POST("/:token/reject", r.submitReject)
	}

	authorized := r.engine.Group("/api")
	authorized.Use(RequireAuth(r.jwtSecret))
	{
		authorized.POST("/docs/upload", r.upload)
		authorized.GET("/docs/:id", r.getDocument)
		authorized.GET("/audit/:docId", r.auditTrail)
		authorized.POST("/signatures/finalize", r.finalize)
		authorized.POST("/external-signatures", r.createInvite)
		authorized.GET("/external-signatures", r.listRequests)
		authorized.POST("/external-signatures/:id/resend", r.resendInvite)
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}

// Handler exposes the engine for http.Server and tests.
func (r *Router) Handler() http.Handler {
	return r.engine
}
