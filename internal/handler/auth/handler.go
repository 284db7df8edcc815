package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medipass-api/internal/handler"
	"github.com/jwalitptl/medipass-api/internal/model"
	"github.com/jwalitptl/medipass-api/internal/service/auth"
	"github.com/jwalitptl/medipass-api/internal/service/directory"
	apperrors "github.com/jwalitptl/medipass-api/pkg/errors"
)

type Handler struct {
	svc *auth.Service
	dir *directory.Service
}

func NewHandler(svc *auth.Service, dir *directory.Service) *Handler {
	return &Handler{svc: svc, dir: dir}
}

// RegisterPublicRoutes mounts the routes reachable without a token.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/auth/login", h.Login)
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, admin gin.HandlerFunc) {
	r.POST("/auth/logout", h.Logout)

	accounts := r.Group("/accounts")
	{
		accounts.PUT("/:login/active", admin, h.SetActive)
		accounts.PUT("/:login/contact", h.SetContact)
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}

	tokens, err := h.svc.Login(c.Request.Context(), req.Login, req.Secret)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, tokens)
}

func (h *Handler) Logout(c *gin.Context) {
	token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer"))
	if err := h.svc.Logout(c.Request.Context(), token); err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, "logged out successfully")
}

type activeRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (h *Handler) SetActive(c *gin.Context) {
	var req activeRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}
	login := c.Param("login")
	if err := h.dir.SetAccountActive(c.Request.Context(), login, *req.Active); err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, gin.H{"login": login, "active": *req.Active})
}

// SetContact lets account holders edit their own contact details; administrators may edit any.
func (h *Handler) SetContact(c *gin.Context) {
	login := c.Param("login")
	actor := handler.ActorFrom(c)
	if actor == nil || (actor.Kind() != model.KindAdministrator && !strings.EqualFold(c.GetString("login"), login)) {
		handler.Fail(c, apperrors.Forbidden(nil))
		return
	}

	var req model.UpdateContactRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}
	if err := h.dir.SetContact(c.Request.Context(), login, req); err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, gin.H{"login": login})
}
