package moderation

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"anilog/internal/catalog"
	"anilog/pkg/models"
)

// Engine applies or discards queued requests. An approval and the
// removal of its queue entry commit in one transaction: if the apply
// fails the entry survives for retry, and of two concurrent approvals
// of the same id only one can win the conditional delete; the loser
// rolls back its apply and reports NotFound.
type Engine struct {
	DB  *sql.DB
	Log *zap.Logger
}

func NewEngine(db *sql.DB, log *zap.Logger) *Engine {
	return &Engine{DB: db, Log: log}
}

// Approve applies the request's effect to the catalog and retires the
// queue entry. On an unknown request type the entry is left queued.
func (e *Engine) Approve(ctx context.Context, id int64) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approve: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	req, err := getRequest(ctx, tx, id)
	if err != nil {
		return err
	}
	if req == nil {
		return fmt.Errorf("approve %d: %w", id, models.ErrNotFound)
	}

	if err := e.apply(ctx, tx, req); err != nil {
		return err
	}

	if err := removeRequest(ctx, tx, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit approve: %w", err)
	}

	e.Log.Info("request approved",
		zap.Int64("request_id", req.ID),
		zap.String("request_type", req.RequestType),
	)
	return nil
}

func (e *Engine) apply(ctx context.Context, tx *sql.Tx, req *models.PendingRequest) error {
	switch req.RequestType {
	case models.RequestAdd:
		p, err := decodeAnimationPayload(req.RequestData)
		if err != nil {
			return err
		}
		if _, err := catalog.InsertAnimation(ctx, tx, p.Fields()); err != nil {
			return err
		}
		return nil

	case models.RequestEdit:
		if req.ItemID == nil {
			return fmt.Errorf("edit request without item id: %w", models.ErrInvalidRequest)
		}
		p, err := decodeAnimationPayload(req.RequestData)
		if err != nil {
			return err
		}
		return catalog.UpdateAnimation(ctx, tx, *req.ItemID, p.Fields())

	case models.RequestDelete:
		if req.ItemID == nil {
			return fmt.Errorf("delete request without item id: %w", models.ErrInvalidRequest)
		}
		return catalog.DeleteAnimationCascade(ctx, tx, *req.ItemID)

	case models.RequestOttUpdate:
		if req.ItemID == nil {
			return fmt.Errorf("ott update without item id: %w", models.ErrInvalidRequest)
		}
		p, err := decodeOttPayload(req.RequestData)
		if err != nil {
			return err
		}
		return catalog.ReplaceOttLinks(ctx, tx, *req.ItemID, p.Links())

	default:
		return fmt.Errorf("request type %q: %w", req.RequestType, models.ErrInvalidRequestType)
	}
}

// Reject discards the request. The catalog is untouched.
func (e *Engine) Reject(ctx context.Context, id int64) error {
	if err := removeRequest(ctx, e.DB, id); err != nil {
		return err
	}
	e.Log.Info("request rejected", zap.Int64("request_id", id))
	return nil
}
