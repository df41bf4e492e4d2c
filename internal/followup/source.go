package followup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// SAMStatusProvider re-checks an opportunity against the SAM.gov
// search API, keyed by solicitation number.
type SAMStatusProvider struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
}

func NewSAMStatusProvider(apiKey string) *SAMStatusProvider {
	return &SAMStatusProvider{
		Client:  &http.Client{Timeout: 15 * time.Second},
		BaseURL: "https://api.sam.gov/opportunities/v2/search",
		APIKey:  apiKey,
	}
}

type samSearchResponse struct {
	OpportunitiesData []map[string]any `json:"opportunitiesData"`
}

func (p *SAMStatusProvider) FetchCurrentStatus(ctx context.Context, externalRef, source string) (StatusResult, error) {
	q := url.Values{}
	q.Set("api_key", p.APIKey)
	q.Set("solnum", externalRef)
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, "GET", p.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return StatusResult{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return StatusResult{}, fmt.Errorf("SAM.gov request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return StatusResult{}, fmt.Errorf("SAM.gov returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed samSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return StatusResult{}, fmt.Errorf("decoding SAM.gov response: %w", err)
	}
	if len(parsed.OpportunitiesData) == 0 {
		return StatusResult{}, fmt.Errorf("solicitation %q not found on SAM.gov", externalRef)
	}

	record := parsed.OpportunitiesData[0]
	statusText, _ := record["type"].(string)
	return StatusResult{
		StatusText: strings.ToLower(strings.TrimSpace(statusText)),
		Raw:        record,
	}, nil
}

// HTMLStatusSource configures the page scrape for one portal that has
// no JSON API: a URL template with a %s slot for the external ref and
// a CSS selector pointing at the status banner.
type HTMLStatusSource struct {
	URLTemplate string `yaml:"url_template"`
	Selector    string `yaml:"selector"`
}

// HTMLStatusProvider scrapes portal detail pages for sources without a
// structured status endpoint.
type HTMLStatusProvider struct {
	Client  *http.Client
	Sources map[string]HTMLStatusSource
}

func NewHTMLStatusProvider(sources map[string]HTMLStatusSource) *HTMLStatusProvider {
	return &HTMLStatusProvider{
		Client:  &http.Client{Timeout: 20 * time.Second},
		Sources: sources,
	}
}

func (p *HTMLStatusProvider) FetchCurrentStatus(ctx context.Context, externalRef, source string) (StatusResult, error) {
	cfg, ok := p.Sources[source]
	if !ok {
		return StatusResult{}, fmt.Errorf("no status page configured for source %q", source)
	}

	pageURL := fmt.Sprintf(cfg.URLTemplate, url.PathEscape(externalRef))
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return StatusResult{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "procura-followup/1.0")

	resp, err := p.Client.Do(req)
	if err != nil {
		return StatusResult{}, fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return StatusResult{}, fmt.Errorf("portal returned %d for %s", resp.StatusCode, pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return StatusResult{}, fmt.Errorf("parsing portal page: %w", err)
	}

	statusText := strings.TrimSpace(doc.Find(cfg.Selector).First().Text())
	if statusText == "" {
		return StatusResult{}, fmt.Errorf("status selector %q matched nothing on %s", cfg.Selector, pageURL)
	}

	return StatusResult{
		StatusText: strings.ToLower(statusText),
		Raw:        map[string]any{"url": pageURL, "selector": cfg.Selector},
	}, nil
}

// MultiProvider routes a status check to the provider registered for
// the opportunity's source.
type MultiProvider struct {
	Providers map[string]SourceStatusProvider
}

func (m *MultiProvider) FetchCurrentStatus(ctx context.Context, externalRef, source string) (StatusResult, error) {
	provider, ok := m.Providers[source]
	if !ok {
		return StatusResult{}, fmt.Errorf("no status provider for source %q", source)
	}
	return provider.FetchCurrentStatus(ctx, externalRef, source)
}
