// Package api exposes the REST surface: the public chat widget endpoints and
// the session-protected admin dashboard endpoints.
package api

import (
	"context"
	_ "embed"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-openapi/runtime/middleware"

	"github.com/paragondesignz/spachat/adminauth"
	"github.com/paragondesignz/spachat/assistant"
	"github.com/paragondesignz/spachat/chatlog"
	"github.com/paragondesignz/spachat/crawler"
	"github.com/paragondesignz/spachat/feeds"
	"github.com/paragondesignz/spachat/knowledgebase"
	"github.com/paragondesignz/spachat/stats"
)

//go:embed openapi.yaml
var openapiSpec []byte

// AssistantChat is the slice of the assistant client the handlers use.
type AssistantChat interface {
	Chat(ctx context.Context, messages []assistant.Message) (*assistant.Answer, error)
	UploadFile(ctx context.Context, name string, content []byte, contentType string) (*assistant.File, error)
	ListFiles(ctx context.Context) ([]assistant.File, error)
	DescribeFile(ctx context.Context, fileID string) (*assistant.File, error)
	DeleteFile(ctx context.Context, fileID string) error
}

// CallbackMailer sends email for callback requests: the staff notification
// and the visitor's confirmation.
type CallbackMailer interface {
	SendCallbackNotification(ctx context.Context, log *chatlog.Log) (string, error)
	SendCustomerConfirmation(ctx context.Context, email, userName string) (string, error)
}

// SiteCrawler runs the website crawl cycle.
type SiteCrawler interface {
	CrawlSite(ctx context.Context, siteURL string, maxPages int, assistantSvc crawler.AssistantService) (*crawler.CrawlResult, error)
}

// API holds the dependencies needed by the REST handlers.
type API struct {
	auth      *adminauth.Authenticator
	chats     *chatlog.Store
	kb        *knowledgebase.Store
	assistant AssistantChat
	syncer    *feeds.Syncer
	crawler   SiteCrawler
	stats     *stats.Aggregator
	mailer    CallbackMailer
	audit     *auditLogger

	crawlSite        string
	crawlMaxPages    int
	chatInstructions string
}

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.audit = newAuditLogger(logger)
	}
}

// WithMailer enables callback notification email.
func WithMailer(m CallbackMailer) Option {
	return func(a *API) {
		a.mailer = m
	}
}

// WithSyncer enables the storefront feed sync endpoints.
func WithSyncer(s *feeds.Syncer) Option {
	return func(a *API) {
		a.syncer = s
	}
}

// WithChatInstructions sets the system guidance prepended to each
// visitor conversation before it is sent to the assistant.
func WithChatInstructions(instructions string) Option {
	return func(a *API) {
		a.chatInstructions = instructions
	}
}

// WithCrawler enables the website scrape endpoint against the given site.
func WithCrawler(c SiteCrawler, site string, maxPages int) Option {
	return func(a *API) {
		a.crawler = c
		a.crawlSite = site
		a.crawlMaxPages = maxPages
	}
}

// New creates a new API instance.
func New(auth *adminauth.Authenticator, chats *chatlog.Store, kb *knowledgebase.Store, assistantSvc AssistantChat, statsAgg *stats.Aggregator, opts ...Option) *API {
	a := &API{
		auth:      auth,
		chats:     chats,
		kb:        kb,
		assistant: assistantSvc,
		stats:     statsAgg,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.audit == nil {
		a.audit = newAuditLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}
	return a
}

// Router returns a chi.Router with all API routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(SecurityHeaders)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/redoc",
	}, nil))

	// Public widget endpoints. These are embedded on the storefront, so they
	// answer cross-origin requests.
	r.Group(func(r chi.Router) {
		r.Use(publicCORS)
		r.Options("/chat", preflightOK)
		r.Post("/chat", a.Chat)
		r.Get("/chat/{sessionID}", a.ChatHistory)
		r.Options("/contact", preflightOK)
		r.Post("/contact", a.ContactRequest)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/auth/login", a.Login)
		r.Post("/auth/logout", a.Logout)
		r.Get("/auth/session", a.SessionProbe)

		r.Group(func(r chi.Router) {
			r.Use(a.RequireAdmin)

			r.Get("/stats", a.Stats)

			r.Get("/chats", a.ListChats)
			r.Delete("/chats", a.DeleteChats)
			r.Get("/chats/export", a.ExportChats)
			r.Get("/chats/{sessionID}", a.GetChat)
			r.Delete("/chats/{sessionID}", a.DeleteChat)
			r.Post("/chats/{sessionID}/contacted", a.SetChatContacted)

			r.Get("/knowledgebase", a.ListKnowledgebase)
			r.Post("/knowledgebase/text", a.CreateTextItem)
			r.Post("/knowledgebase/upload", a.UploadItem)
			r.Get("/knowledgebase/{itemID}", a.GetItem)
			r.Get("/knowledgebase/{itemID}/content", a.GetItemContent)
			r.Put("/knowledgebase/{itemID}", a.UpdateTextItem)
			r.Patch("/knowledgebase/{itemID}", a.UpdateItemMetadata)
			r.Delete("/knowledgebase/{itemID}", a.DeleteItem)
			r.Post("/knowledgebase/{itemID}/submit", a.SubmitItem)

			r.Get("/files", a.ListAssistantFiles)
			r.Get("/files/{fileID}", a.DescribeAssistantFile)
			r.Delete("/files/{fileID}", a.DeleteAssistantFile)

			r.Post("/sync/products", a.SyncProducts)
			r.Post("/sync/blog", a.SyncBlog)
			r.Post("/scrape", a.ScrapeSite)
		})
	})

	return r
}
