package catalog

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"anilog/internal/auth"
	"anilog/pkg/models"
)

type Handler struct {
	Repo *Repo
	Log  *zap.Logger
}

func NewHandler(repo *Repo, log *zap.Logger) *Handler {
	return &Handler{Repo: repo, Log: log}
}

// RegisterRoutes wires the public browse surface and the admin-only
// direct mutations. The admin group already carries the auth chain.
func (h *Handler) RegisterRoutes(public, admin *gin.RouterGroup) {
	public.GET("", h.list)
	public.GET("/search", h.search)
	public.GET("/:id", h.getByID)

	admin.POST("", h.create)
	admin.PUT("/:id", h.update)
	admin.DELETE("/:id", h.remove)
}

func (h *Handler) list(c *gin.Context) {
	page := parseInt(c.Query("page"), 1)
	limit := parseInt(c.Query("limit"), 20)

	items, err := h.Repo.List(c.Request.Context(), page, limit)
	if err != nil {
		h.Log.Error("list animations failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, items)
}

func (h *Handler) search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "search query \"q\" is required"})
		return
	}

	items, err := h.Repo.SearchTitle(c.Request.Context(), q)
	if err != nil {
		h.Log.Error("search failed", zap.String("q", q), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	c.JSON(http.StatusOK, items)
}

// getByID returns the record itself, or its OTT link set when
// ?type=ott-links is given.
func (h *Handler) getByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	switch c.Query("type") {
	case "", "item":
		a, err := h.Repo.GetByID(c.Request.Context(), id)
		if err != nil {
			h.Log.Error("get animation failed", zap.Int64("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
			return
		}
		if a == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusOK, a)

	case "ott-links":
		links, err := h.Repo.ListOttLinks(c.Request.Context(), id)
		if err != nil {
			h.Log.Error("get ott links failed", zap.Int64("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
			return
		}
		c.JSON(http.StatusOK, links)

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid type"})
	}
}

func (h *Handler) ListProviders(c *gin.Context) {
	providers, err := h.Repo.ListOttProviders(c.Request.Context())
	if err != nil {
		h.Log.Error("list providers failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, providers)
}

// create is the admin direct-add path. The queue is bypassed and the
// version history is stamped with the admin's own identity.
func (h *Handler) create(c *gin.Context) {
	var f models.AnimationFields
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	claims := auth.MustGetClaims(c)
	if claims != nil {
		f.Contributor = claims.Username
	}

	if f.Title == "" || f.Year == 0 || f.Season == "" || f.Contributor == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title, year, season and contributor are required"})
		return
	}
	if !models.ValidSeason(f.Season) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid season"})
		return
	}

	id, err := h.Repo.Create(c.Request.Context(), f)
	if err != nil {
		h.Log.Error("create animation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id, "message": "animation created"})
}

func (h *Handler) update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var f models.AnimationFields
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if f.Title == "" || f.Year == 0 || f.Season == "" || f.Contributor == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title, year, season and contributor are required"})
		return
	}
	if !models.ValidSeason(f.Season) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid season"})
		return
	}

	if err := h.Repo.Update(c.Request.Context(), id, f); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		h.Log.Error("update animation failed", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "animation updated"})
}

// remove is the admin direct-delete path; the OTT links go with it.
func (h *Handler) remove(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := h.Repo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		h.Log.Error("delete animation failed", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "animation deleted"})
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
