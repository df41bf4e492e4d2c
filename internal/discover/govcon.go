package discover

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/procura/backend/internal/models"
)

func decodeBody(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}

// GovConConnector pulls opportunities from a GovCon-style bid board
// API (JSON list keyed by "results").
type GovConConnector struct {
	Client *http.Client
	Config ConnectorConfig
}

func NewGovConConnector(cfg ConnectorConfig) *GovConConnector {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &GovConConnector{
		Client: &http.Client{Timeout: timeout},
		Config: cfg,
	}
}

func (c *GovConConnector) ID() string { return c.Config.ID }

type govconRecord struct {
	BidNumber   string  `json:"bid_number"`
	Title       string  `json:"title"`
	Agency      string  `json:"agency"`
	Description string  `json:"description"`
	NAICS       string  `json:"naics"`
	SetAside    string  `json:"set_aside"`
	PostedAt    string  `json:"posted_at"`
	ClosesAt    string  `json:"closes_at"`
	ValueUSD    float64 `json:"value_usd"`
	DetailURL   string  `json:"detail_url"`
}

type govconResponse struct {
	Total   int            `json:"total"`
	Results []govconRecord `json:"results"`
}

func (c *GovConConnector) Fetch(ctx context.Context) ([]models.Opportunity, error) {
	limit := c.Config.MaxRecords
	if limit <= 0 {
		limit = 50
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("status", "open")
	if len(c.Config.Keywords) > 0 {
		q.Set("q", strings.Join(c.Config.Keywords, " "))
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.Config.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.Config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.Config.APIKey)
	}

	log.Printf("[GovCon] Fetching opportunities limit=%d keywords=%v", limit, c.Config.Keywords)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("API returned %d: %s", resp.StatusCode, string(body))
	}

	var apiResp govconResponse
	if err := decodeBody(resp.Body, &apiResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	log.Printf("[GovCon] Got %d opportunities (total: %d)", len(apiResp.Results), apiResp.Total)

	var opps []models.Opportunity
	for _, rec := range apiResp.Results {
		if rec.BidNumber == "" || rec.Title == "" {
			continue
		}

		opp := models.Opportunity{
			ExternalRef:    rec.BidNumber,
			Source:         "govcon",
			Title:          rec.Title,
			Agency:         rec.Agency,
			Description:    rec.Description,
			NAICSCode:      rec.NAICS,
			SetAside:       rec.SetAside,
			EstimatedValue: rec.ValueUSD,
			Status:         models.OppStatusOpen,
			URL:            rec.DetailURL,
		}

		if t, err := time.Parse(time.RFC3339, rec.PostedAt); err == nil {
			utc := t.UTC()
			opp.PostedDate = &utc
		}
		if t, err := time.Parse(time.RFC3339, rec.ClosesAt); err == nil {
			utc := t.UTC()
			opp.DueDate = &utc
		}

		if opp.DueDate != nil && opp.DueDate.Before(time.Now().UTC()) {
			continue
		}

		opps = append(opps, opp)
	}

	return opps, nil
}
