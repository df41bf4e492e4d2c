package discover

import (
	"context"
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

// Connector fetches raw opportunities from one external source.
type Connector interface {
	ID() string
	Fetch(ctx context.Context) ([]models.Opportunity, error)
}

// SAMConnector pulls contract opportunities from the SAM.gov search API.
type SAMConnector struct {
	Client *http.Client
	Config ConnectorConfig
}

func NewSAMConnector(cfg ConnectorConfig) *SAMConnector {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &SAMConnector{
		Client: &http.Client{Timeout: timeout},
		Config: cfg,
	}
}

func (c *SAMConnector) ID() string { return c.Config.ID }

// samRecord captures the fields we use from the SAM.gov search response.
type samRecord struct {
	NoticeID         string `json:"noticeId"`
	SolicitationNo   string `json:"solicitationNumber"`
	Title            string `json:"title"`
	Department       string `json:"fullParentPathName"`
	PostedDate       string `json:"postedDate"`
	ResponseDeadline string `json:"responseDeadLine"`
	NAICSCode        string `json:"naicsCode"`
	SetAside         string `json:"typeOfSetAside"`
	Type             string `json:"type"`
	Description      string `json:"description"`
	UILink           string `json:"uiLink"`
	Award            struct {
		Amount string `json:"amount"`
	} `json:"award"`
}

type samResponse struct {
	TotalRecords      int         `json:"totalRecords"`
	OpportunitiesData []samRecord `json:"opportunitiesData"`
}

func (c *SAMConnector) Fetch(ctx context.Context) ([]models.Opportunity, error) {
	limit := c.Config.MaxRecords
	if limit <= 0 {
		limit = 100
	}

	q := url.Values{}
	q.Set("api_key", c.Config.APIKey)
	q.Set("ptype", "o") // solicitation notices only
	q.Set("limit", strconv.Itoa(limit))
	q.Set("postedFrom", time.Now().UTC().AddDate(0, 0, -30).Format("01/02/2006"))
	q.Set("postedTo", time.Now().UTC().Format("01/02/2006"))
	if len(c.Config.NAICSCodes) > 0 {
		q.Set("ncode", strings.Join(c.Config.NAICSCodes, ","))
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.Config.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	log.Printf("[SAM] Fetching opportunities limit=%d naics=%v", limit, c.Config.NAICSCodes)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("API returned %d: %s", resp.StatusCode, string(body))
	}

	var apiResp samResponse
	if err := decodeBody(resp.Body, &apiResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	log.Printf("[SAM] Got %d opportunities (total: %d)", len(apiResp.OpportunitiesData), apiResp.TotalRecords)

	var opps []models.Opportunity
	for _, rec := range apiResp.OpportunitiesData {
		externalRef := rec.SolicitationNo
		if externalRef == "" {
			externalRef = rec.NoticeID
		}
		if externalRef == "" || rec.Title == "" {
			continue
		}

		opp := models.Opportunity{
			ExternalRef: externalRef,
			Source:      "sam",
			Title:       rec.Title,
			Agency:      lastPathSegment(rec.Department),
			Description: rec.Description,
			NAICSCode:   rec.NAICSCode,
			SetAside:    rec.SetAside,
			Status:      models.OppStatusOpen,
			URL:         rec.UILink,
		}

		if t, err := time.Parse("2006-01-02", rec.PostedDate); err == nil {
			opp.PostedDate = &t
		}
		// Deadlines arrive with an offset, e.g. 2026-09-15T17:00:00-04:00
		if t, err := time.Parse(time.RFC3339, rec.ResponseDeadline); err == nil {
			utc := t.UTC()
			opp.DueDate = &utc
		} else if t, err := time.Parse("2006-01-02", rec.ResponseDeadline); err == nil {
			opp.DueDate = &t
		}

		if rec.Award.Amount != "" {
			clean := strings.ReplaceAll(strings.ReplaceAll(rec.Award.Amount, "$", ""), ",", "")
			if val, err := strconv.ParseFloat(clean, 64); err == nil {
				opp.EstimatedValue = val
			}
		}

		// Skip already-expired notices
		if opp.DueDate != nil && opp.DueDate.Before(time.Now().UTC()) {
			continue
		}

		opps = append(opps, opp)
	}

	return opps, nil
}

// lastPathSegment extracts the awarding agency from SAM's dotted
// hierarchy path ("DEPT OF DEFENSE.DEPT OF THE ARMY.…").
func lastPathSegment(path string) string {
	parts := strings.Split(path, ".")
	return strings.TrimSpace(parts[len(parts)-1])
}
