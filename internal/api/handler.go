package api

import (
	"errors"
	"net/http"
	"time"

	"gadget-hub/internal/service"
	"gadget-hub/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	authService    *service.AuthService
	listingService *service.ListingService
	importService  *service.ImportService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	authService *service.AuthService,
	listingService *service.ListingService,
	importService *service.ImportService,
) *Handler {
	return &Handler{
		authService:    authService,
		listingService: listingService,
		importService:  importService,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/auth/register", h.register)
	router.POST("/auth/login", h.login)
	router.POST("/auth/federated", h.federatedSignIn)

	router.GET("/products", h.listProducts)
	router.GET("/products/:id", h.getProduct)

	authed := router.Group("/", authMiddleware(h.authService))
	{
		authed.PUT("/auth/profile", h.updateProfile)
		authed.POST("/products", h.createProduct)
		authed.PUT("/products/import/:id", h.importQuantity)
		authed.GET("/my-exports/:email", h.myExports)
		authed.PUT("/my-exports/:id", h.updateProduct)
		authed.DELETE("/my-exports/:id", h.deleteProduct)
		authed.GET("/my-imports/:uid", h.myImports)
		authed.DELETE("/my-imports/:uid/:id", h.removeImport)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

type registerRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	session, err := h.authService.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName, req.PhotoURL)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	session, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

type federatedRequest struct {
	Provider    string `json:"provider" binding:"required"`
	Email       string `json:"email" binding:"required"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

func (h *Handler) federatedSignIn(c *gin.Context) {
	var req federatedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	session, err := h.authService.FederatedSignIn(c.Request.Context(), req.Provider, req.Email, req.DisplayName, req.PhotoURL)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

type profileRequest struct {
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

// updateProfile rewrites the caller's display name and avatar and returns
// a fresh session for the client to persist whole-record.
func (h *Handler) updateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	claims := claimsFrom(c)
	session, err := h.authService.UpdateProfile(c.Request.Context(), claims.UserID, req.DisplayName, req.PhotoURL)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// listProducts returns all listings
func (h *Handler) listProducts(c *gin.Context) {
	listings, err := h.listingService.ListListings(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, listings)
}

// getProduct returns a single listing
func (h *Handler) getProduct(c *gin.Context) {
	listing, err := h.listingService.GetListing(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, listing)
}

// createProduct creates a listing owned by the authenticated user
func (h *Handler) createProduct(c *gin.Context) {
	var fields service.ListingFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body", "details": err.Error()})
		return
	}

	claims := claimsFrom(c)
	listing, err := h.listingService.CreateListing(c.Request.Context(), claims.Email, &fields)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, listing)
}

type importRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// importQuantity transfers quantity from a listing to the caller's
// import record. Honors the Idempotency-Key header so retried requests
// cannot double-count.
func (h *Handler) importQuantity(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	claims := claimsFrom(c)
	result, err := h.importService.ImportQuantity(
		c.Request.Context(),
		c.Param("id"),
		claims.UserID,
		req.Quantity,
		c.GetHeader("Idempotency-Key"),
	)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// myExports returns the authenticated user's listings
func (h *Handler) myExports(c *gin.Context) {
	claims := claimsFrom(c)
	if claims.Email != c.Param("email") {
		c.JSON(http.StatusForbidden, gin.H{"message": "Cannot read another user's exports"})
		return
	}

	listings, err := h.listingService.ListingsByOwner(c.Request.Context(), claims.Email)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, listings)
}

// updateProduct replaces all editable fields of an owned listing
func (h *Handler) updateProduct(c *gin.Context) {
	var fields service.ListingFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body", "details": err.Error()})
		return
	}

	claims := claimsFrom(c)
	updated, err := h.listingService.UpdateListing(c.Request.Context(), claims.Email, c.Param("id"), &fields)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// deleteProduct removes an owned listing
func (h *Handler) deleteProduct(c *gin.Context) {
	claims := claimsFrom(c)
	if err := h.listingService.DeleteListing(c.Request.Context(), claims.Email, c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// myImports returns the authenticated user's import records
func (h *Handler) myImports(c *gin.Context) {
	claims := claimsFrom(c)
	if claims.UserID != c.Param("uid") {
		c.JSON(http.StatusForbidden, gin.H{"message": "Cannot read another user's imports"})
		return
	}

	records, err := h.importService.ListImports(c.Request.Context(), claims.UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, records)
}

// removeImport deletes the caller's import record for a listing
func (h *Handler) removeImport(c *gin.Context) {
	claims := claimsFrom(c)
	if claims.UserID != c.Param("uid") {
		c.JSON(http.StatusForbidden, gin.H{"message": "Cannot modify another user's imports"})
		return
	}

	if err := h.importService.RemoveImport(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// writeError maps domain errors to HTTP status codes with a
// human-readable message body.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid email or password"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"message": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	case errors.Is(err, store.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{"message": "Not enough stock available, try a smaller quantity"})
	case errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
	}
}
