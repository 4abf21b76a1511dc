package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"customer-api/internal/domain"
	"customer-api/internal/service"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	resources  []service.DocumentService
	tokens     service.TokenService
	logger     *logrus.Logger
	corsOrigin string
}

func NewHandler(tokens service.TokenService, logger *logrus.Logger, corsOrigin string, resources ...service.DocumentService) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		resources:  resources,
		tokens:     tokens,
		logger:     logger,
		corsOrigin: corsOrigin,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.logger), corsMiddleware(h.corsOrigin))

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Hello World!")
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})
	router.POST("/generateToken", h.generateToken)

	for _, svc := range h.resources {
		h.registerResource(router, svc)
	}
}

func (h *Handler) registerResource(router *gin.Engine, svc service.DocumentService) {
	res := svc.Resource()
	group := router.Group("/" + res.Name)
	if res.Protected {
		group.Use(h.requireToken())
	}

	rh := &resourceHandler{Handler: h, svc: svc, res: res}
	group.GET("", rh.list)
	group.POST("", rh.create)
	group.PUT("/:id", rh.update)
	group.DELETE("/:id", rh.delete)
}

// generateToken accepts any truthy JSON username. Non-string values are
// embedded in their JSON text form.
func (h *Handler) generateToken(c *gin.Context) {
	var body domain.Document
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username is required."})
		return
	}
	if err := service.ValidateRequired(body, []string{"username"}); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username is required."})
		return
	}

	token, err := h.tokens.Issue(usernameClaim(body["username"]))
	if err != nil {
		if isInvalidInput(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username is required."})
			return
		}
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func usernameClaim(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}

type resourceHandler struct {
	*Handler
	svc service.DocumentService
	res domain.Resource
}

func (h *resourceHandler) list(c *gin.Context) {
	filter := domain.Filter{}
	for _, field := range h.res.FilterFields {
		if value := c.Query(field); value != "" {
			filter[field] = value
		}
	}

	docs, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondData(c, http.StatusOK, docs, fmt.Sprintf("%s Retrieved Successfully.", h.res.PluralTitle()))
}

func (h *resourceHandler) create(c *gin.Context) {
	doc, ok := h.bindDocument(c)
	if !ok {
		return
	}

	res, err := h.svc.Create(c.Request.Context(), doc)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondData(c, http.StatusCreated, res, fmt.Sprintf("%s created successfully.", h.res.Title()))
}

func (h *resourceHandler) update(c *gin.Context) {
	doc, ok := h.bindDocument(c)
	if !ok {
		return
	}

	res, err := h.svc.Update(c.Request.Context(), c.Param("id"), doc)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondData(c, http.StatusOK, res, fmt.Sprintf("%s updated successfully.", h.res.Title()))
}

func (h *resourceHandler) delete(c *gin.Context) {
	res, err := h.svc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failWith(c, err, internalDeleteErrorMessage)
		return
	}
	respondData(c, http.StatusOK, res, fmt.Sprintf("%s deleted successfully.", h.res.Title()))
}

func (h *resourceHandler) bindDocument(c *gin.Context) (domain.Document, bool) {
	var doc domain.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body.", "error": err.Error()})
		return nil, false
	}
	if doc == nil {
		doc = domain.Document{}
	}
	return doc, true
}
