package models

type OttProvider struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type OttLink struct {
	AnimationID  int64  `json:"animation_id,omitempty"`
	ProviderID   int64  `json:"provider_id"`
	ProviderName string `json:"provider_name,omitempty"`
	URL          string `json:"url"`
}
