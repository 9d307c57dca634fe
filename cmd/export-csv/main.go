package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"anilog/pkg/database"
)

// Dumps the catalog and its OTT links to CSV for backup or analysis.
func main() {
	var (
		animationsOut = flag.String("animations", "data/animations.csv", "output CSV path for animations")
		ottOut        = flag.String("ott", "data/ott_urls.csv", "output CSV path for OTT links")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Open(database.DefaultConfig())
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := exportAnimations(ctx, db, *animationsOut); err != nil {
		log.Fatalf("export animations failed: %v", err)
	}
	if err := exportOttLinks(ctx, db, *ottOut); err != nil {
		log.Fatalf("export ott links failed: %v", err)
	}

	log.Printf("exported animations to %s and ott links to %s", *animationsOut, *ottOut)
}

func exportAnimations(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "title", "year", "season", "image", "pv_url", "opening_url", "ending_url", "contributor", "created_at"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT id, title, year, season, image, pv_url, opening_url, ending_url, contributor, created_at
        FROM animations
        ORDER BY year DESC, season DESC, created_at DESC
    `)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id          int64
			title       string
			year        int64
			season      string
			image       sql.NullString
			pvURL       sql.NullString
			openingURL  sql.NullString
			endingURL   sql.NullString
			contributor string
			createdAt   sql.NullTime
		)

		if err := rows.Scan(&id, &title, &year, &season, &image, &pvURL, &openingURL, &endingURL, &contributor, &createdAt); err != nil {
			return err
		}

		created := ""
		if createdAt.Valid {
			created = createdAt.Time.Format(time.RFC3339)
		}

		if err := w.Write([]string{
			strconv.FormatInt(id, 10),
			title,
			strconv.FormatInt(year, 10),
			season,
			image.String,
			pvURL.String,
			openingURL.String,
			endingURL.String,
			contributor,
			created,
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func exportOttLinks(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"animation_id", "provider", "url"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT o.animation_id, p.name, o.url
        FROM ott_urls AS o
        JOIN ott_providers AS p ON o.provider_id = p.id
        ORDER BY o.animation_id
    `)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			animationID int64
			provider    string
			url         string
		)

		if err := rows.Scan(&animationID, &provider, &url); err != nil {
			return err
		}

		if err := w.Write([]string{
			strconv.FormatInt(animationID, 10),
			provider,
			url,
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}
