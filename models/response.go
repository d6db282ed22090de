package models

// ScrapeResponse is the response for POST /api/v1/scrape.
type ScrapeResponse struct {
	// Success indicates whether the scrape completed without errors.
	Success bool `json:"success"`

	// StatusCode is the HTTP status code from the scraped page.
	StatusCode int `json:"status_code,omitempty"`

	// FinalURL is the URL after following all redirects.
	FinalURL string `json:"final_url,omitempty"`

	// Links is the ordered outbound link set (links mode).
	Links []string `json:"links,omitempty"`

	// Detail is the title+text product (detail mode).
	Detail *JobDetail `json:"detail,omitempty"`

	// ConsentResolved reports whether a consent overlay was dismissed.
	ConsentResolved bool `json:"consent_resolved"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down how long the operation took.
type TimingInfo struct {
	TotalMs int64 `json:"total_ms"`
}

// LeaseStats is a snapshot of page-lease usage for health reporting.
type LeaseStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status     string     `json:"status"`
	Uptime     string     `json:"uptime"`
	LeaseStats LeaseStats `json:"lease_stats"`
	Version    string     `json:"version"`
}
