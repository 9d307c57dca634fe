package moderation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"anilog/internal/catalog"
	"anilog/pkg/models"
)

// Queue is the durable pending-request store. Entries only ever leave
// it by deletion; there is no status column.
type Queue struct {
	DB *sql.DB
}

func NewQueue(db *sql.DB) *Queue {
	return &Queue{DB: db}
}

type NewRequest struct {
	ItemID      *int64
	RequestType string
	RequestData json.RawMessage
	Contributor string
}

func (q *Queue) Enqueue(ctx context.Context, req NewRequest) (int64, error) {
	var data any
	if len(req.RequestData) > 0 {
		data = string(req.RequestData)
	}

	res, err := q.DB.ExecContext(ctx, `
		INSERT INTO pending_requests (item_id, request_type, request_data, contributor, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, req.ItemID, req.RequestType, data, req.Contributor, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("enqueue request: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("enqueue request id: %w", err)
	}
	return id, nil
}

const requestColumns = `id, item_id, request_type, request_data, contributor, created_at`

func scanRequest(row interface{ Scan(...any) error }) (*models.PendingRequest, error) {
	var (
		r           models.PendingRequest
		itemID      sql.NullInt64
		data        sql.NullString
		contributor sql.NullString
	)

	if err := row.Scan(&r.ID, &itemID, &r.RequestType, &data, &contributor, &r.CreatedAt); err != nil {
		return nil, err
	}

	if itemID.Valid {
		v := itemID.Int64
		r.ItemID = &v
	}
	if data.Valid {
		r.RequestData = json.RawMessage(data.String)
	}
	r.Contributor = contributor.String
	return &r, nil
}

// ListPending returns every queued request, newest first, with the
// stored payload string surfaced as parsed JSON.
func (q *Queue) ListPending(ctx context.Context) ([]models.PendingRequest, error) {
	rows, err := q.DB.QueryContext(ctx, `
		SELECT `+requestColumns+`
		FROM pending_requests
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	out := make([]models.PendingRequest, 0, 16)
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending: %w", err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (q *Queue) GetByID(ctx context.Context, id int64) (*models.PendingRequest, error) {
	return getRequest(ctx, q.DB, id)
}

func getRequest(ctx context.Context, q catalog.DBTX, id int64) (*models.PendingRequest, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM pending_requests
		WHERE id = ?
	`, id)

	r, err := scanRequest(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	return r, nil
}

// Remove deletes the entry. A miss is NotFound, not a no-op: the engine
// relies on the affected-rows check as its concurrency guard.
func (q *Queue) Remove(ctx context.Context, id int64) error {
	return removeRequest(ctx, q.DB, id)
}

func removeRequest(ctx context.Context, q catalog.DBTX, id int64) error {
	res, err := q.ExecContext(ctx, `DELETE FROM pending_requests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("remove request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove request rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("remove request %d: %w", id, models.ErrNotFound)
	}
	return nil
}
