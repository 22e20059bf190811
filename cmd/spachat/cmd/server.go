package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/paragondesignz/spachat/adminauth"
	"github.com/paragondesignz/spachat/api"
	"github.com/paragondesignz/spachat/assistant"
	"github.com/paragondesignz/spachat/chatlog"
	"github.com/paragondesignz/spachat/crawler"
	"github.com/paragondesignz/spachat/feeds"
	"github.com/paragondesignz/spachat/internal/config"
	"github.com/paragondesignz/spachat/knowledgebase"
	"github.com/paragondesignz/spachat/mailer"
	"github.com/paragondesignz/spachat/stats"
	bboltstorage "github.com/paragondesignz/spachat/storage/bbolt"
)

var (
	listenAddr    string
	dataDir       string
	crawlMaxPages int
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the chat and admin dashboard server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("listen") {
			cfg.ListenAddr = listenAddr
		}
		if cmd.Flags().Changed("data-dir") {
			cfg.DataDir = dataDir
		}

		logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}

		objects, err := bboltstorage.NewStoreFromFile(cfg.DataDir+"/spachat.db", nil)
		if err != nil {
			return fmt.Errorf("failed to open object storage: %w", err)
		}
		defer objects.Close()

		assistantClient := assistant.NewClient(cfg.AssistantBaseURL, cfg.AssistantAPIKey, cfg.AssistantName)
		chats := chatlog.NewStore(objects)
		kb := knowledgebase.NewStore(objects, assistantClient)

		agg, err := stats.NewAggregator(chats, cfg.StatsTimeZone)
		if err != nil {
			return err
		}

		auth := adminauth.New(cfg.AdminPassword, cfg.AdminSessionSecret,
			adminauth.WithSecureCookies(cfg.Production()))
		if cfg.AdminPassword == "" || cfg.AdminSessionSecret == "" {
			logger.Warn("admin authentication is not fully configured",
				slog.Bool("password_set", cfg.AdminPassword != ""),
				slog.Bool("session_secret_set", cfg.AdminSessionSecret != ""))
		}

		opts := []api.Option{api.WithLogger(logger)}
		if cfg.ChatInstructions != "" {
			opts = append(opts, api.WithChatInstructions(cfg.ChatInstructions))
		}
		if cfg.ResendAPIKey != "" && cfg.NotificationEmail != "" {
			opts = append(opts, api.WithMailer(
				mailer.New("", cfg.ResendAPIKey, cfg.EmailFrom, cfg.NotificationEmail)))
		}
		if cfg.StoreURL != "" {
			opts = append(opts, api.WithSyncer(
				feeds.NewSyncer(cfg.StoreURL, assistantClient, logger)))
		}
		if cfg.ApifyToken != "" {
			opts = append(opts, api.WithCrawler(
				crawler.NewClient("", cfg.ApifyToken, logger),
				cfg.CrawlerSite, crawlMaxPages))
		}

		a := api.New(auth, chats, kb, assistantClient, agg, opts...)

		r := chi.NewRouter()
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		r.Mount("/api/v1", a.Router())

		server := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      5 * time.Minute,
			IdleTimeout:       60 * time.Second,
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		printBanner()
		fmt.Printf("Starting server on %s (data: %s)...\n", cfg.ListenAddr, cfg.DataDir)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			fmt.Printf("\nReceived %s, shutting down...\n", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().StringVarP(&listenAddr, "listen", "l", ":8080", "Address to listen on")
	serverCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Directory for persistent data")
	serverCmd.Flags().IntVar(&crawlMaxPages, "crawl-max-pages", 100, "Page cap for website crawls")
}
