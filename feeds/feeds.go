// Package feeds syncs storefront content into the assistant's knowledge. It
// pulls Shopify Atom feeds, flattens them to plain text and replaces the
// corresponding assistant file.
package feeds

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/paragondesignz/spachat/assistant"
)

// Well-known assistant file names. Each sync replaces the previous copy.
const (
	ProductsFileName = "store-products.txt"
	BlogFileName     = "store-blog.txt"
)

// AssistantService is the slice of the assistant client the syncer needs.
type AssistantService interface {
	UploadFile(ctx context.Context, name string, content []byte, contentType string) (*assistant.File, error)
	ListFiles(ctx context.Context) ([]assistant.File, error)
	DeleteFile(ctx context.Context, fileID string) error
}

// Syncer fetches storefront feeds and pushes them to the assistant.
type Syncer struct {
	http      *resty.Client
	assistant AssistantService
	storeURL  string
	logger    *slog.Logger
	now       func() time.Time
}

// NewSyncer creates a feed syncer for the given storefront base URL, for
// example "https://shop.example.com".
func NewSyncer(storeURL string, assistantSvc AssistantService, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("Accept", "application/atom+xml")
	return &Syncer{
		http:      client,
		assistant: assistantSvc,
		storeURL:  strings.TrimRight(storeURL, "/"),
		logger:    logger,
		now:       time.Now,
	}
}

// Result summarizes one sync run.
type Result struct {
	Entries  int       `json:"entries"`
	FileID   string    `json:"file_id"`
	FileName string    `json:"file_name"`
	SyncedAt time.Time `json:"synced_at"`
}

// SyncProducts replaces the assistant's product catalogue file with the
// current contents of the storefront's all-products Atom feed.
func (s *Syncer) SyncProducts(ctx context.Context) (*Result, error) {
	feed, err := s.fetchFeed(ctx, s.storeURL+"/collections/all.atom")
	if err != nil {
		return nil, err
	}
	doc := renderEntries("Product Catalogue", feed.Entries)
	return s.replaceFile(ctx, ProductsFileName, doc, len(feed.Entries))
}

// SyncBlog replaces the assistant's blog file with the current contents of a
// storefront blog's Atom feed.
func (s *Syncer) SyncBlog(ctx context.Context, handle string) (*Result, error) {
	if handle == "" {
		handle = "news"
	}
	feed, err := s.fetchFeed(ctx, s.storeURL+"/blogs/"+handle+".atom")
	if err != nil {
		return nil, err
	}
	doc := renderEntries("Blog Articles", feed.Entries)
	return s.replaceFile(ctx, BlogFileName, doc, len(feed.Entries))
}

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Title   string      `xml:"title"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title   string     `xml:"title"`
	Updated string     `xml:"updated"`
	Links   []atomLink `xml:"link"`
	Summary string     `xml:"summary"`
	Content string     `xml:"content"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

func (e atomEntry) url() string {
	for _, l := range e.Links {
		if l.Rel == "" || l.Rel == "alternate" {
			return l.Href
		}
	}
	return ""
}

func (s *Syncer) fetchFeed(ctx context.Context, url string) (*atomFeed, error) {
	resp, err := s.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching feed %s: %w", url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetching feed %s: status %d", url, resp.StatusCode())
	}

	var feed atomFeed
	if err := xml.Unmarshal(resp.Body(), &feed); err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", url, err)
	}
	if len(feed.Entries) == 0 {
		return nil, errors.New("feed contained no entries")
	}
	return &feed, nil
}

// renderEntries flattens feed entries to the plain-text document uploaded to
// the assistant.
func renderEntries(heading string, entries []atomEntry) []byte {
	var b strings.Builder
	b.WriteString(heading + "\n")
	b.WriteString(strings.Repeat("=", len(heading)) + "\n\n")

	for _, e := range entries {
		b.WriteString("## " + strings.TrimSpace(e.Title) + "\n")
		if url := e.url(); url != "" {
			b.WriteString("URL: " + url + "\n")
		}
		if e.Updated != "" {
			b.WriteString("Updated: " + e.Updated + "\n")
		}
		body := e.Content
		if body == "" {
			body = e.Summary
		}
		if text := StripHTML(body); text != "" {
			b.WriteString("\n" + text + "\n")
		}
		b.WriteString("\n")
	}
	return []byte(b.String())
}

// replaceFile removes any existing assistant file with the same well-known
// name, then uploads the fresh document.
func (s *Syncer) replaceFile(ctx context.Context, name string, content []byte, entries int) (*Result, error) {
	files, err := s.assistant.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing assistant files: %w", err)
	}
	for _, f := range files {
		if f.Name != name {
			continue
		}
		if err := s.assistant.DeleteFile(ctx, f.ID); err != nil && !errors.Is(err, assistant.ErrFileNotFound) {
			s.logger.Warn("failed to delete stale feed file",
				slog.String("file", name),
				slog.String("file_id", f.ID),
				slog.String("error", err.Error()))
		}
	}

	file, err := s.assistant.UploadFile(ctx, name, content, "text/plain")
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", name, err)
	}

	now := s.now().UTC()
	s.logger.Info("feed synced",
		slog.String("file", name),
		slog.Int("entries", entries),
		slog.String("file_id", file.ID))
	return &Result{
		Entries:  entries,
		FileID:   file.ID,
		FileName: file.Name,
		SyncedAt: now,
	}, nil
}
