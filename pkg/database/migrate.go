package database

import (
	"database/sql"
	"fmt"
	"strings"
)

// schemaSQL is applied statement by statement on startup. Everything is
// IF NOT EXISTS so re-running against an existing database is a no-op.
//
// AUTOINCREMENT on animations and pending_requests keeps ids from being
// reused after deletion.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS animations (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    title           TEXT NOT NULL,
    image           TEXT,
    year            INTEGER NOT NULL,
    season          TEXT NOT NULL,
    pv_url          TEXT,
    opening_url     TEXT,
    ending_url      TEXT,
    contributor     TEXT NOT NULL,
    version_history TEXT NOT NULL DEFAULT '[]',
    created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_animations_year_season ON animations (year DESC, season DESC);

CREATE TABLE IF NOT EXISTS ott_providers (
    id   INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS ott_urls (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    animation_id INTEGER NOT NULL,
    provider_id  INTEGER NOT NULL REFERENCES ott_providers(id),
    url          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ott_urls_animation ON ott_urls (animation_id);

CREATE TABLE IF NOT EXISTS pending_requests (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    item_id      INTEGER,
    request_type TEXT NOT NULL,
    request_data TEXT,
    contributor  TEXT,
    created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS admins (
    id            TEXT PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    token_version INTEGER NOT NULL DEFAULT 0,
    created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

INSERT OR IGNORE INTO ott_providers (id, name) VALUES
    (1, 'Netflix'),
    (2, 'Laftel'),
    (3, 'TVING'),
    (4, 'Watcha'),
    (5, 'Disney+')
`

// Migrate applies the embedded schema.
func Migrate(db *sql.DB) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
