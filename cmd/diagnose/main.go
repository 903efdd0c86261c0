// Command diagnose is a terminal client for the recommendation API: give it
// an issue description and it prints ranked parts with confidence and the
// suggested next steps.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/FieldmateAI/fieldmate-mvp/engine/domain"
	"github.com/FieldmateAI/fieldmate-mvp/engine/recommend"
)

func main() {
	var (
		apiURL  = flag.String("api", envOr("FIELDMATE_API", "http://localhost:8080"), "recommendation API base URL")
		series  = flag.String("series", "", "machine series hint, e.g. L3901")
		maxRecs = flag.Int("max", 0, "max recommendations (0 = server default)")
		timeout = flag.Duration("timeout", 60*time.Second, "request timeout")
	)
	flag.Parse()

	issue := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if issue == "" {
		issue = readStdin()
	}
	if issue == "" {
		fmt.Fprintln(os.Stderr, "usage: diagnose [-api URL] [-series HINT] describe the problem...")
		os.Exit(2)
	}

	client := &http.Client{Timeout: *timeout}
	resp, err := fetchRecommendation(client, *apiURL, domain.RecommendationRequest{
		UserIssue:          issue,
		MachineSeries:      *series,
		MaxRecommendations: *maxRecs,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "diagnose: %v\n", err)
		os.Exit(1)
	}

	printReport(os.Stdout, resp)
}

func fetchRecommendation(client *http.Client, baseURL string, req domain.RecommendationRequest) (*recommend.RecommendationResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpResp, err := client.Post(strings.TrimRight(baseURL, "/")+"/api/recommendations", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		json.NewDecoder(httpResp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = httpResp.Status
		}
		return nil, fmt.Errorf("api error: %s", apiErr.Error)
	}

	var resp recommend.RecommendationResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}

func printReport(w io.Writer, resp *recommend.RecommendationResponse) {
	fmt.Fprintf(w, "Issue: %s\n", resp.UserIssue)
	fmt.Fprintf(w, "Method: %s  Cases: %d  Confidence: %.0f%% (%s)  %.0f ms\n\n",
		resp.SearchMethod, resp.TotalSimilar,
		resp.Confidence.OverallConfidence*100, resp.Confidence.Quality,
		resp.ProcessingTimeMS,
	)

	if resp.ErrorMessage != "" {
		fmt.Fprintf(w, "Warning: %s\n\n", resp.ErrorMessage)
	}

	if len(resp.RecommendedParts) == 0 {
		fmt.Fprintln(w, "No parts to recommend.")
	} else {
		fmt.Fprintln(w, "Recommended parts:")
		for i, p := range resp.RecommendedParts {
			fmt.Fprintf(w, "  %d. %-16s %3.0f%%  %-6s  %s\n",
				i+1, p.PartNumber, p.Confidence*100, p.Priority, p.Reasoning)
		}
		fmt.Fprintln(w)
	}

	if resp.Explanation != "" {
		fmt.Fprintf(w, "%s\n\n", resp.Explanation)
	}
	if len(resp.NextSteps) > 0 {
		fmt.Fprintln(w, "Next steps:")
		for _, s := range resp.NextSteps {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
}

// readStdin returns piped input, or "" when stdin is a terminal.
func readStdin() string {
	stat, err := os.Stdin.Stat()
	if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
		return ""
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
