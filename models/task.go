package models

// Mode selects the data product a task extracts.
type Mode string

const (
	// ModeLinks extracts the page's outbound link set, one absolute URL per line.
	ModeLinks Mode = "links"

	// ModeDetail extracts the page title and rendered visible text as one JSON object.
	ModeDetail Mode = "detail"
)

// Valid reports whether m is a known extraction mode.
func (m Mode) Valid() bool {
	return m == ModeLinks || m == ModeDetail
}

// ScrapeTask describes one unit of work: a single URL and the extraction
// mode to apply to it. Tasks are immutable once created.
type ScrapeTask struct {
	URL  string
	Mode Mode
}
