package models

// ScrapeRequest is the payload for POST /api/v1/scrape (serve mode).
type ScrapeRequest struct {
	// URL is the target page to scrape. Required.
	URL string `json:"url" binding:"required,url"`

	// Mode selects the data product: "links" (default) or "detail".
	Mode Mode `json:"mode,omitempty" binding:"omitempty,oneof=links detail"`
}

// Defaults applies default values to unset fields.
func (r *ScrapeRequest) Defaults() {
	if r.Mode == "" {
		r.Mode = ModeLinks
	}
}
