// Benchmark drives a running harvesterd through both extraction modes and
// reports latency and completeness per URL.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// CLI flags
var (
	apiURL = flag.String("api-url", "http://localhost:8080", "harvesterd base URL")
	apiKey = flag.String("api-key", "", "API key for authenticated requests")
	runs   = flag.Int("runs", 3, "Number of runs per URL for averaging")
	output = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Test URLs covering list pages (links mode) and detail pages (detail mode).
var testURLs = []struct {
	Label string
	URL   string
	Mode  string
}{
	{"Static", "https://example.com", "links"},
	{"Blog", "https://go.dev/blog/go1.21", "detail"},
	{"Docs", "https://go.dev/doc/effective_go", "detail"},
	{"News", "https://www.bbc.com/news", "links"},
	{"Complex", "https://github.com/go-rod/rod", "detail"},
}

// --- Request / Response types (mirrors models package) ---

type scrapeRequest struct {
	URL  string `json:"url"`
	Mode string `json:"mode"`
}

type jobDetail struct {
	JobTitle string `json:"job_title"`
	Text     string `json:"text"`
}

type scrapeResponse struct {
	Success         bool         `json:"success"`
	StatusCode      int          `json:"status_code"`
	FinalURL        string       `json:"final_url"`
	Links           []string     `json:"links"`
	Detail          *jobDetail   `json:"detail"`
	ConsentResolved bool         `json:"consent_resolved"`
	Timing          timingInfo   `json:"timing"`
	Error           *errorDetail `json:"error,omitempty"`
}

type timingInfo struct {
	TotalMs int64 `json:"total_ms"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --- Benchmark result types ---

type runResult struct {
	Run             int    `json:"run"`
	TotalMs         int64  `json:"total_ms"`
	StatusCode      int    `json:"status_code"`
	LinkCount       int    `json:"link_count"`
	TextLength      int    `json:"text_length"`
	HasTitle        bool   `json:"has_title"`
	ConsentResolved bool   `json:"consent_resolved"`
	Success         bool   `json:"success"`
	Error           string `json:"error,omitempty"`
}

type urlAverages struct {
	TotalMs    float64 `json:"total_ms"`
	LinkCount  float64 `json:"link_count"`
	TextLength float64 `json:"text_length"`
}

type urlResult struct {
	URL      string       `json:"url"`
	Label    string       `json:"label"`
	Mode     string       `json:"mode"`
	Runs     []runResult  `json:"runs"`
	Averages *urlAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp  string      `json:"timestamp"`
	APIURL     string      `json:"api_url"`
	RunsPerURL int         `json:"runs_per_url"`
	Results    []urlResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== Harvester Benchmark Suite ===")
	fmt.Printf("API URL:   %s\n", *apiURL)
	fmt.Printf("Runs/URL:  %d\n", *runs)
	fmt.Printf("Output:    %s\n", *output)
	fmt.Println()

	// Quick connectivity check.
	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure harvesterd is running\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     *apiURL,
		RunsPerURL: *runs,
	}

	for _, t := range testURLs {
		fmt.Printf("Benchmarking [%s/%s] %s ...\n", t.Label, t.Mode, t.URL)
		ur := urlResult{URL: t.URL, Label: t.Label, Mode: t.Mode}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkURL(t.URL, t.Mode, i)
			if rr.Success {
				fmt.Printf("OK  %dms  %d links  %d chars\n", rr.TotalMs, rr.LinkCount, rr.TextLength)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			ur.Runs = append(ur.Runs, rr)
		}

		ur.Averages = computeAverages(ur.Runs)
		report.Results = append(report.Results, ur)
		fmt.Println()
	}

	printTable(report.Results)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func benchmarkURL(url, mode string, run int) runResult {
	rr := runResult{Run: run}

	bodyBytes, err := json.Marshal(scrapeRequest{URL: url, Mode: mode})
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}

	req, err := http.NewRequest("POST", *apiURL+"/api/v1/scrape", bytes.NewReader(bodyBytes))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	client := &http.Client{Timeout: 180 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	var sr scrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}

	rr.Success = sr.Success
	rr.StatusCode = sr.StatusCode
	rr.TotalMs = sr.Timing.TotalMs
	rr.LinkCount = len(sr.Links)
	rr.ConsentResolved = sr.ConsentResolved
	if sr.Detail != nil {
		rr.TextLength = len(sr.Detail.Text)
		rr.HasTitle = sr.Detail.JobTitle != ""
	}
	if sr.Error != nil {
		rr.Error = sr.Error.Message
	}

	return rr
}

func computeAverages(runs []runResult) *urlAverages {
	var successCount int
	var avg urlAverages

	for _, r := range runs {
		if !r.Success {
			continue
		}
		successCount++
		avg.TotalMs += float64(r.TotalMs)
		avg.LinkCount += float64(r.LinkCount)
		avg.TextLength += float64(r.TextLength)
	}

	if successCount == 0 {
		return nil
	}

	n := float64(successCount)
	avg.TotalMs /= n
	avg.LinkCount /= n
	avg.TextLength /= n
	return &avg
}

func printTable(results []urlResult) {
	fmt.Println(strings.Repeat("─", 80))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "URL\tMode\tAvg Latency\tLinks\tText Len\tStatus\n")
	fmt.Fprintf(w, "───\t────\t───────────\t─────\t────────\t──────\n")

	for _, r := range results {
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\t%s\tFAILED\t-\t-\t-\n", truncateURL(r.URL, 40), r.Mode)
			continue
		}

		fmt.Fprintf(w, "%s\t%s\t%dms\t%d\t%d\t%d\n",
			truncateURL(r.URL, 40),
			r.Mode,
			int64(r.Averages.TotalMs),
			int(r.Averages.LinkCount),
			int(r.Averages.TextLength),
			dominantStatus(r.Runs),
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 80))
}

func dominantStatus(runs []runResult) int {
	counts := map[int]int{}
	for _, r := range runs {
		if r.Success {
			counts[r.StatusCode]++
		}
	}
	best, bestCount := 0, 0
	for code, count := range counts {
		if count > bestCount {
			best = code
			bestCount = count
		}
	}
	return best
}

func truncateURL(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
