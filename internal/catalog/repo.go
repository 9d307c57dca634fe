package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"anilog/pkg/models"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx. The moderation engine
// runs the exported statement functions inside its own transaction so an
// approval and its queue cleanup commit together.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const animationColumns = `id, title, image, year, season, pv_url, opening_url, ending_url, contributor, version_history, created_at`

func scanAnimation(row interface{ Scan(...any) error }) (*models.Animation, error) {
	var (
		a           models.Animation
		image       sql.NullString
		pvURL       sql.NullString
		openingURL  sql.NullString
		endingURL   sql.NullString
		historyJSON string
	)

	if err := row.Scan(
		&a.ID, &a.Title, &image, &a.Year, &a.Season,
		&pvURL, &openingURL, &endingURL, &a.Contributor,
		&historyJSON, &a.CreatedAt,
	); err != nil {
		return nil, err
	}

	a.Image = image.String
	a.PVURL = pvURL.String
	a.OpeningURL = openingURL.String
	a.EndingURL = endingURL.String

	_ = json.Unmarshal([]byte(historyJSON), &a.VersionHistory)
	return &a, nil
}

// InsertAnimation creates a record with a single-entry version history.
func InsertAnimation(ctx context.Context, q DBTX, f models.AnimationFields) (int64, error) {
	if f.Title == "" || f.Year == 0 || f.Season == "" || f.Contributor == "" {
		return 0, fmt.Errorf("insert animation: %w", models.ErrInvalidRequest)
	}

	now := time.Now().UTC()
	history, err := json.Marshal([]models.VersionEntry{{
		Contributor: f.Contributor,
		Timestamp:   now,
		Action:      "create",
	}})
	if err != nil {
		return 0, fmt.Errorf("marshal version history: %w", err)
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO animations (title, image, year, season, pv_url, opening_url, ending_url, contributor, version_history, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, f.Title, f.Image, f.Year, f.Season, f.PVURL, f.OpeningURL, f.EndingURL, f.Contributor, string(history), now)
	if err != nil {
		return 0, fmt.Errorf("insert animation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert animation id: %w", err)
	}
	return id, nil
}

// UpdateAnimation overwrites the full mutable field set and appends an
// "edit" entry to the version history. Absent fields are overwritten
// with their zero values; callers must supply the complete set.
func UpdateAnimation(ctx context.Context, q DBTX, id int64, f models.AnimationFields) error {
	var historyJSON string
	err := q.QueryRowContext(ctx, `
		SELECT version_history FROM animations WHERE id = ?
	`, id).Scan(&historyJSON)
	if err == sql.ErrNoRows {
		return fmt.Errorf("update animation %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read version history: %w", err)
	}

	var history []models.VersionEntry
	_ = json.Unmarshal([]byte(historyJSON), &history)
	history = append(history, models.VersionEntry{
		Contributor: f.Contributor,
		Timestamp:   time.Now().UTC(),
		Action:      "edit",
	})
	updated, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("marshal version history: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		UPDATE animations
		SET title = ?, image = ?, year = ?, season = ?,
		    pv_url = ?, opening_url = ?, ending_url = ?,
		    contributor = ?, version_history = ?
		WHERE id = ?
	`, f.Title, f.Image, f.Year, f.Season, f.PVURL, f.OpeningURL, f.EndingURL, f.Contributor, string(updated), id)
	if err != nil {
		return fmt.Errorf("update animation: %w", err)
	}
	return nil
}

// DeleteAnimationCascade removes the record and its OTT links. The
// links go first so the catalog never holds links to a missing record.
func DeleteAnimationCascade(ctx context.Context, q DBTX, id int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM ott_urls WHERE animation_id = ?`, id); err != nil {
		return fmt.Errorf("delete ott links: %w", err)
	}

	res, err := q.ExecContext(ctx, `DELETE FROM animations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete animation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete animation rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("delete animation %d: %w", id, models.ErrNotFound)
	}
	return nil
}

// ReplaceOttLinks swaps the full link set for one animation. Must run
// inside a transaction so a failure between the delete and the inserts
// cannot leave the animation with a partial set. The target is checked
// first: links must never point at a missing record, and a queued link
// update can outlive its animation.
func ReplaceOttLinks(ctx context.Context, q DBTX, animationID int64, links []models.OttLink) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM animations WHERE id = ?`, animationID).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("replace ott links %d: %w", animationID, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("check animation: %w", err)
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM ott_urls WHERE animation_id = ?`, animationID); err != nil {
		return fmt.Errorf("clear ott links: %w", err)
	}

	for _, l := range links {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO ott_urls (animation_id, provider_id, url)
			VALUES (?, ?, ?)
		`, animationID, l.ProviderID, l.URL); err != nil {
			return fmt.Errorf("insert ott link: %w", err)
		}
	}
	return nil
}

func (r *Repo) Create(ctx context.Context, f models.AnimationFields) (int64, error) {
	return InsertAnimation(ctx, r.DB, f)
}

func (r *Repo) Update(ctx context.Context, id int64, f models.AnimationFields) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		return UpdateAnimation(ctx, tx, id, f)
	})
}

func (r *Repo) Delete(ctx context.Context, id int64) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		return DeleteAnimationCascade(ctx, tx, id)
	})
}

func (r *Repo) ReplaceLinks(ctx context.Context, animationID int64, links []models.OttLink) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		return ReplaceOttLinks(ctx, tx, animationID, links)
	})
}

func (r *Repo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Animation, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+animationColumns+`
		FROM animations
		WHERE id = ?
	`, id)

	a, err := scanAnimation(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getByID: %w", err)
	}
	return a, nil
}

// List returns one page ordered by year, season and creation time, all
// descending. Page and limit fall back to 1/20.
func (r *Repo) List(ctx context.Context, page, limit int) ([]models.Animation, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	offset := (page - 1) * limit

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+animationColumns+`
		FROM animations
		ORDER BY year DESC, season DESC, created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	return collectAnimations(rows, limit)
}

// SearchTitle does a plain substring match; result order is whatever
// the store returns.
func (r *Repo) SearchTitle(ctx context.Context, query string) ([]models.Animation, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+animationColumns+`
		FROM animations
		WHERE title LIKE ?
	`, "%"+query+"%")
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	return collectAnimations(rows, 0)
}

func collectAnimations(rows *sql.Rows, capHint int) ([]models.Animation, error) {
	out := make([]models.Animation, 0, capHint)
	for rows.Next() {
		a, err := scanAnimation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan animation: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) ListOttLinks(ctx context.Context, animationID int64) ([]models.OttLink, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT o.animation_id, o.provider_id, p.name, o.url
		FROM ott_urls AS o
		JOIN ott_providers AS p ON o.provider_id = p.id
		WHERE o.animation_id = ?
	`, animationID)
	if err != nil {
		return nil, fmt.Errorf("list ott links: %w", err)
	}
	defer rows.Close()

	out := make([]models.OttLink, 0, 4)
	for rows.Next() {
		var l models.OttLink
		if err := rows.Scan(&l.AnimationID, &l.ProviderID, &l.ProviderName, &l.URL); err != nil {
			return nil, fmt.Errorf("scan ott link: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) ListOttProviders(ctx context.Context) ([]models.OttProvider, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, name FROM ott_providers ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list ott providers: %w", err)
	}
	defer rows.Close()

	out := make([]models.OttProvider, 0, 8)
	for rows.Next() {
		var p models.OttProvider
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("scan ott provider: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
