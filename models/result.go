package models

// JobDetail is the detail-mode data product. Field names form the wire
// contract with the inference collaborator that parses stdout directly.
type JobDetail struct {
	JobTitle string `json:"job_title"`
	Text     string `json:"text"`
}

// ConsentOutcome records what the consent resolver did. It is informational
// only and never part of the literal output schema.
type ConsentOutcome struct {
	Attempted bool
	Resolved  bool
}

// ScrapeResult is the unified return type for a completed task. Exactly one
// of Links or Detail is populated, selected by Mode.
type ScrapeResult struct {
	Mode Mode

	// Links is the ordered outbound link set (link-extraction mode).
	// Every entry is an absolute http/https URL. Not deduplicated;
	// downstream owns normalization.
	Links []string

	// Detail is the title+text product (detail-extraction mode).
	Detail *JobDetail

	// Consent reports overlay-dismissal diagnostics.
	Consent ConsentOutcome

	// StatusCode is the HTTP status of the final navigation, 0 when unknown.
	StatusCode int

	// FinalURL is the URL after following all redirects.
	FinalURL string
}
