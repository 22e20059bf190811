// Package crawler drives an Apify website-content crawl and feeds the result
// to the assistant as a single plain-text document.
package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/paragondesignz/spachat/assistant"
)

// DefaultBaseURL is the Apify public API endpoint.
const DefaultBaseURL = "https://api.apify.com"

// DefaultActorID is the hosted website-content-crawler actor.
const DefaultActorID = "apify~website-content-crawler"

// WebsiteFileName is the well-known assistant file a crawl replaces.
const WebsiteFileName = "website-content.txt"

// ErrRunFailed is returned when the crawl run finishes in a terminal state
// other than success.
var ErrRunFailed = errors.New("crawl run failed")

// AssistantService is the slice of the assistant client the crawler needs.
type AssistantService interface {
	UploadFile(ctx context.Context, name string, content []byte, contentType string) (*assistant.File, error)
	ListFiles(ctx context.Context) ([]assistant.File, error)
	DeleteFile(ctx context.Context, fileID string) error
}

// Client talks to the Apify API.
type Client struct {
	http         *resty.Client
	actorID      string
	pollInterval time.Duration
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithActorID overrides the crawler actor.
func WithActorID(id string) Option {
	return func(c *Client) { c.actorID = id }
}

// WithPollInterval overrides the run-status polling cadence.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// NewClient creates an Apify client. baseURL falls back to DefaultBaseURL
// when empty.
func NewClient(baseURL, token string, logger *slog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetQueryParam("token", token).
			SetTimeout(time.Minute),
		actorID:      DefaultActorID,
		pollInterval: 5 * time.Second,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run describes an actor run.
type Run struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

// Terminal reports whether the run has finished, successfully or not.
func (r *Run) Terminal() bool {
	switch r.Status {
	case "SUCCEEDED", "FAILED", "ABORTED", "TIMED-OUT":
		return true
	}
	return false
}

// Page is one crawled document from the run's dataset.
type Page struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

type runEnvelope struct {
	Data Run `json:"data"`
}

type runInput struct {
	StartURLs     []startURL `json:"startUrls"`
	MaxCrawlPages int        `json:"maxCrawlPages,omitempty"`
}

type startURL struct {
	URL string `json:"url"`
}

// StartRun kicks off a crawl of the given site.
func (c *Client) StartRun(ctx context.Context, siteURL string, maxPages int) (*Run, error) {
	input := runInput{StartURLs: []startURL{{URL: siteURL}}, MaxCrawlPages: maxPages}

	var env runEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(input).
		SetResult(&env).
		Post("/v2/acts/" + c.actorID + "/runs")
	if err != nil {
		return nil, fmt.Errorf("starting crawl run: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("starting crawl run: status %d", resp.StatusCode())
	}
	return &env.Data, nil
}

// WaitForRun polls the run until it reaches a terminal state or the context
// is cancelled. A terminal state other than SUCCEEDED returns ErrRunFailed.
func (c *Client) WaitForRun(ctx context.Context, runID string) (*Run, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		var env runEnvelope
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(&env).
			Get("/v2/actor-runs/" + runID)
		if err != nil {
			return nil, fmt.Errorf("polling crawl run: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("polling crawl run: status %d", resp.StatusCode())
		}

		run := env.Data
		if run.Terminal() {
			if run.Status != "SUCCEEDED" {
				return &run, fmt.Errorf("%w: status %s", ErrRunFailed, run.Status)
			}
			return &run, nil
		}
		c.logger.Debug("crawl run in progress", slog.String("run_id", runID), slog.String("status", run.Status))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// DatasetItems fetches the crawled pages from a run's dataset.
func (c *Client) DatasetItems(ctx context.Context, datasetID string) ([]Page, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("format", "json").
		Get("/v2/datasets/" + datasetID + "/items")
	if err != nil {
		return nil, fmt.Errorf("fetching dataset items: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetching dataset items: status %d", resp.StatusCode())
	}

	var pages []Page
	if err := json.Unmarshal(resp.Body(), &pages); err != nil {
		return nil, fmt.Errorf("decoding dataset items: %w", err)
	}
	return pages, nil
}

// CrawlResult summarizes a completed crawl-and-upload cycle.
type CrawlResult struct {
	RunID    string `json:"run_id"`
	Pages    int    `json:"pages"`
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
}

// CrawlSite runs the full cycle: start a crawl, wait for it, collect the
// pages and replace the assistant's website file.
func (c *Client) CrawlSite(ctx context.Context, siteURL string, maxPages int, assistantSvc AssistantService) (*CrawlResult, error) {
	run, err := c.StartRun(ctx, siteURL, maxPages)
	if err != nil {
		return nil, err
	}
	c.logger.Info("crawl started", slog.String("run_id", run.ID), slog.String("site", siteURL))

	run, err = c.WaitForRun(ctx, run.ID)
	if err != nil {
		return nil, err
	}

	pages, err := c.DatasetItems(ctx, run.DefaultDatasetID)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, errors.New("crawl produced no pages")
	}

	doc := renderPages(siteURL, pages)

	files, err := assistantSvc.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing assistant files: %w", err)
	}
	for _, f := range files {
		if f.Name != WebsiteFileName {
			continue
		}
		if err := assistantSvc.DeleteFile(ctx, f.ID); err != nil && !errors.Is(err, assistant.ErrFileNotFound) {
			c.logger.Warn("failed to delete stale website file",
				slog.String("file_id", f.ID),
				slog.String("error", err.Error()))
		}
	}

	file, err := assistantSvc.UploadFile(ctx, WebsiteFileName, doc, "text/plain")
	if err != nil {
		return nil, fmt.Errorf("uploading website content: %w", err)
	}

	c.logger.Info("crawl uploaded",
		slog.String("run_id", run.ID),
		slog.Int("pages", len(pages)),
		slog.String("file_id", file.ID))
	return &CrawlResult{
		RunID:    run.ID,
		Pages:    len(pages),
		FileID:   file.ID,
		FileName: file.Name,
	}, nil
}

func renderPages(siteURL string, pages []Page) []byte {
	var b strings.Builder
	b.WriteString("Website Content: " + siteURL + "\n\n")
	for _, p := range pages {
		text := strings.TrimSpace(p.Text)
		if text == "" {
			continue
		}
		b.WriteString("## " + p.URL + "\n\n")
		b.WriteString(text + "\n\n")
	}
	return []byte(b.String())
}
