package moderation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"anilog/internal/auth"
	"anilog/internal/catalog"
	"anilog/internal/feed"
	"anilog/pkg/models"
)

// Handler is the submission gateway plus the admin moderation surface.
// Admin ADD and DELETE intents are applied to the catalog immediately;
// everything else is queued for review.
type Handler struct {
	Queue   *Queue
	Engine  *Engine
	Catalog *catalog.Repo
	Hub     *feed.Hub
	Log     *zap.Logger
}

func NewHandler(queue *Queue, engine *Engine, cat *catalog.Repo, hub *feed.Hub, log *zap.Logger) *Handler {
	return &Handler{Queue: queue, Engine: engine, Catalog: cat, Hub: hub, Log: log}
}

// RegisterRoutes wires the open submission endpoint (optional auth for
// caller classification) and the admin-only queue operations.
func (h *Handler) RegisterRoutes(submit, admin *gin.RouterGroup) {
	submit.POST("", h.submit)

	admin.GET("", h.listPending)
	admin.POST("/:id/process", h.process)
}

type submitReq struct {
	ItemID      *int64          `json:"item_id"`
	AnimationID *int64          `json:"animation_id"` // accepted alias for OTT_UPDATE
	RequestType string          `json:"request_type"`
	RequestData json.RawMessage `json:"request_data"`
}

func (r *submitReq) targetID() *int64 {
	if r.ItemID != nil {
		return r.ItemID
	}
	return r.AnimationID
}

func (h *Handler) submit(c *gin.Context) {
	var req submitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	claims := auth.MustGetClaims(c)
	isAdmin := claims != nil && claims.Role == auth.RoleAdmin

	switch req.RequestType {
	case models.RequestAdd:
		h.submitAdd(c, req, claims, isAdmin)
	case models.RequestEdit:
		h.submitEdit(c, req, claims)
	case models.RequestDelete:
		h.submitDelete(c, req, claims, isAdmin)
	case models.RequestOttUpdate:
		h.submitOttUpdate(c, req)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request type"})
	}
}

// normalizeAnimationPayload fills the contributor from the caller's
// authenticated identity when present, then validates the field set.
func normalizeAnimationPayload(raw json.RawMessage, claims *auth.Claims) (*AnimationPayload, error) {
	var p AnimationPayload
	if len(raw) == 0 {
		return nil, models.ErrInvalidRequest
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, models.ErrInvalidRequest
	}
	if claims != nil {
		p.Contributor = claims.Username
	}
	if p.Title == "" || p.Year == 0 || p.Season == "" || p.Contributor == "" {
		return nil, models.ErrInvalidRequest
	}
	if !models.ValidSeason(p.Season) {
		return nil, models.ErrInvalidRequest
	}
	return &p, nil
}

func (h *Handler) submitAdd(c *gin.Context, req submitReq, claims *auth.Claims, isAdmin bool) {
	p, err := normalizeAnimationPayload(req.RequestData, claims)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title, year, season and contributor are required"})
		return
	}

	if isAdmin {
		id, err := h.Catalog.Create(c.Request.Context(), p.Fields())
		if err != nil {
			h.Log.Error("admin direct add failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"applied": true, "id": id, "message": "animation created"})
		return
	}

	h.enqueue(c, NewRequest{
		RequestType: models.RequestAdd,
		RequestData: mustMarshal(p),
		Contributor: p.Contributor,
	})
}

func (h *Handler) submitEdit(c *gin.Context, req submitReq, claims *auth.Claims) {
	itemID := req.targetID()
	if itemID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item_id is required"})
		return
	}

	p, err := normalizeAnimationPayload(req.RequestData, claims)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title, year, season and contributor are required"})
		return
	}

	h.enqueue(c, NewRequest{
		ItemID:      itemID,
		RequestType: models.RequestEdit,
		RequestData: mustMarshal(p),
		Contributor: p.Contributor,
	})
}

func (h *Handler) submitDelete(c *gin.Context, req submitReq, claims *auth.Claims, isAdmin bool) {
	itemID := req.targetID()
	if itemID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item_id is required"})
		return
	}

	if isAdmin {
		if err := h.Catalog.Delete(c.Request.Context(), *itemID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			h.Log.Error("admin direct delete failed", zap.Int64("id", *itemID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"applied": true, "message": "animation deleted"})
		return
	}

	contributor := contributorFrom(req.RequestData, claims)
	h.enqueue(c, NewRequest{
		ItemID:      itemID,
		RequestType: models.RequestDelete,
		RequestData: req.RequestData,
		Contributor: contributor,
	})
}

func (h *Handler) submitOttUpdate(c *gin.Context, req submitReq) {
	itemID := req.targetID()
	if itemID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "animation_id is required"})
		return
	}

	if _, err := decodeOttPayload(req.RequestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ott_urls array is required"})
		return
	}

	claims := auth.MustGetClaims(c)
	h.enqueue(c, NewRequest{
		ItemID:      itemID,
		RequestType: models.RequestOttUpdate,
		RequestData: req.RequestData,
		Contributor: contributorFrom(req.RequestData, claims),
	})
}

func (h *Handler) enqueue(c *gin.Context, req NewRequest) {
	id, err := h.Queue.Enqueue(c.Request.Context(), req)
	if err != nil {
		h.Log.Error("enqueue failed", zap.String("request_type", req.RequestType), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit request"})
		return
	}

	if h.Hub != nil {
		ev := feed.QueueEvent{
			Type:        feed.EventSubmitted,
			RequestID:   id,
			RequestType: req.RequestType,
			ItemID:      req.ItemID,
			At:          time.Now().UTC(),
		}
		go h.Hub.BroadcastJSON(ev)
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":      id,
		"message": "request submitted; it will be applied after admin approval",
	})
}

func (h *Handler) listPending(c *gin.Context) {
	requests, err := h.Queue.ListPending(c.Request.Context())
	if err != nil {
		h.Log.Error("list pending failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch request list"})
		return
	}
	c.JSON(http.StatusOK, requests)
}

type processReq struct {
	Action string `json:"action"`
}

func (h *Handler) process(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	var req processReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	var message string
	switch req.Action {
	case "approve":
		err = h.Engine.Approve(c.Request.Context(), id)
		message = "request approved and applied"
	case "reject":
		err = h.Engine.Reject(c.Request.Context(), id)
		message = "request rejected"
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid action"})
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "request not found"})
		case errors.Is(err, models.ErrInvalidRequest),
			errors.Is(err, models.ErrInvalidPayload),
			errors.Is(err, models.ErrInvalidRequestType):
			c.JSON(http.StatusBadRequest, gin.H{"error": "request cannot be applied"})
		default:
			h.Log.Error("process request failed",
				zap.Int64("request_id", id),
				zap.String("action", req.Action),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process request"})
		}
		return
	}

	if h.Hub != nil {
		ev := feed.QueueEvent{
			Type:      feed.EventResolved,
			RequestID: id,
			Action:    req.Action,
			At:        time.Now().UTC(),
		}
		go h.Hub.BroadcastJSON(ev)
	}

	c.JSON(http.StatusOK, gin.H{"message": message})
}

func contributorFrom(raw json.RawMessage, claims *auth.Claims) string {
	if claims != nil {
		return claims.Username
	}
	var p struct {
		Contributor string `json:"contributor"`
	}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &p)
	}
	return p.Contributor
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
