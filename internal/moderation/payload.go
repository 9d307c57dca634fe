package moderation

import (
	"encoding/json"
	"fmt"

	"anilog/pkg/models"
)

// Payload shapes are keyed by request type and validated when the queue
// entry is read, never trusted as stored.

// AnimationPayload carries the full field set for ADD and EDIT.
type AnimationPayload struct {
	Title       string `json:"title"`
	Image       string `json:"image"`
	Year        int    `json:"year"`
	Season      string `json:"season"`
	PVURL       string `json:"pv_url"`
	OpeningURL  string `json:"opening_url"`
	EndingURL   string `json:"ending_url"`
	Contributor string `json:"contributor"`
}

func (p *AnimationPayload) Fields() models.AnimationFields {
	return models.AnimationFields{
		Title:       p.Title,
		Image:       p.Image,
		Year:        p.Year,
		Season:      p.Season,
		PVURL:       p.PVURL,
		OpeningURL:  p.OpeningURL,
		EndingURL:   p.EndingURL,
		Contributor: p.Contributor,
	}
}

func decodeAnimationPayload(raw json.RawMessage) (*AnimationPayload, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing payload: %w", models.ErrInvalidPayload)
	}
	var p AnimationPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", models.ErrInvalidPayload)
	}
	if p.Title == "" || p.Year == 0 || p.Season == "" || p.Contributor == "" {
		return nil, fmt.Errorf("payload missing required fields: %w", models.ErrInvalidPayload)
	}
	if !models.ValidSeason(p.Season) {
		return nil, fmt.Errorf("payload season %q: %w", p.Season, models.ErrInvalidPayload)
	}
	return &p, nil
}

// OttPayload is the OTT_UPDATE shape: the full replacement link set.
type OttPayload struct {
	OttURLs []OttEntry `json:"ott_urls"`
}

type OttEntry struct {
	ProviderID int64  `json:"provider_id"`
	URL        string `json:"url"`
}

func (p *OttPayload) Links() []models.OttLink {
	links := make([]models.OttLink, 0, len(p.OttURLs))
	for _, e := range p.OttURLs {
		links = append(links, models.OttLink{ProviderID: e.ProviderID, URL: e.URL})
	}
	return links
}

func decodeOttPayload(raw json.RawMessage) (*OttPayload, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing payload: %w", models.ErrInvalidPayload)
	}

	// ott_urls must be present and array-shaped; an empty array is a
	// valid request to clear all links.
	var probe struct {
		OttURLs json.RawMessage `json:"ott_urls"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil || len(probe.OttURLs) == 0 {
		return nil, fmt.Errorf("decode payload: %w", models.ErrInvalidPayload)
	}

	var p OttPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("ott_urls is not an array: %w", models.ErrInvalidPayload)
	}
	if p.OttURLs == nil {
		return nil, fmt.Errorf("ott_urls missing: %w", models.ErrInvalidPayload)
	}
	return &p, nil
}
