package models

import "time"

// Season labels used across the catalog. The site is organized by
// broadcast quarter, labelled in Korean ("1분기" = Q1).
var Seasons = []string{"1분기", "2분기", "3분기", "4분기"}

func ValidSeason(s string) bool {
	for _, v := range Seasons {
		if v == s {
			return true
		}
	}
	return false
}

// VersionEntry is one line of an animation's append-only change log.
type VersionEntry struct {
	Contributor string    `json:"contributor"`
	Timestamp   time.Time `json:"timestamp"`
	Action      string    `json:"action"` // "create" or "edit"
}

type Animation struct {
	ID             int64          `json:"id"`
	Title          string         `json:"title"`
	Image          string         `json:"image,omitempty"`
	Year           int            `json:"year"`
	Season         string         `json:"season"`
	PVURL          string         `json:"pv_url,omitempty"`
	OpeningURL     string         `json:"opening_url,omitempty"`
	EndingURL      string         `json:"ending_url,omitempty"`
	Contributor    string         `json:"contributor"`
	VersionHistory []VersionEntry `json:"version_history"`
	CreatedAt      time.Time      `json:"created_at"`
}

// AnimationFields is the full mutable field set of an animation.
// Updates overwrite all of these; there is no partial merge.
type AnimationFields struct {
	Title       string `json:"title"`
	Image       string `json:"image"`
	Year        int    `json:"year"`
	Season      string `json:"season"`
	PVURL       string `json:"pv_url"`
	OpeningURL  string `json:"opening_url"`
	EndingURL   string `json:"ending_url"`
	Contributor string `json:"contributor"`
}
