package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/alecgard/mbnakom/internal/auth"
	"github.com/alecgard/mbnakom/internal/backend"
	"github.com/alecgard/mbnakom/internal/config"
	"github.com/alecgard/mbnakom/internal/contact"
	"github.com/alecgard/mbnakom/internal/crypto"
	"github.com/alecgard/mbnakom/internal/i18n"
	"github.com/alecgard/mbnakom/internal/leads"
	"github.com/alecgard/mbnakom/internal/metrics"
	"github.com/alecgard/mbnakom/internal/ratelimit"
	"github.com/alecgard/mbnakom/internal/session"
	"github.com/alecgard/mbnakom/internal/token"
	"github.com/alecgard/mbnakom/internal/ui"
	"github.com/alecgard/mbnakom/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the website server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()

	decoder := token.NewDecoder(cfg.Auth.VerifyKey)
	if cfg.Auth.VerifyKey == "" {
		slog.Warn("no verify key set, session tokens are trusted without signature checks")
	}
	sessions := session.NewManager(decoder, session.Options{
		CookieName: cfg.Session.CookieName,
		MaxAge:     cfg.Session.MaxAge,
		Secure:     cfg.Session.Secure,
	})
	guard := auth.NewGuard(decoder, sessions.CookieName())
	guard.SetMetrics(m)

	catalog, err := i18n.LoadCatalog()
	if err != nil {
		return err
	}
	renderer, err := ui.New(cfg.Server.Dev)
	if err != nil {
		return err
	}

	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	client.SetMetrics(m)

	var mailer contact.Mailer = contact.Unconfigured{}
	if cfg.MailConfigured() {
		smtp, err := contact.NewSMTPMailer(contact.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
			To:       cfg.Mail.To,
			Timeout:  cfg.Mail.Timeout,
		})
		if err != nil {
			return err
		}
		mailer = smtp
	} else {
		slog.Warn("smtp credentials not set, contact mail is disabled")
	}
	contactService := contact.NewService(mailer)
	contactService.SetMetrics(m)

	deps := web.RouterDeps{
		Backend:  client,
		Sessions: sessions,
		Guard:    guard,
		Catalog:  catalog,
		Renderer: renderer,
		Contact:  contactService,
		Metrics:  m,
	}

	var collector *leads.Collector
	if cfg.LeadsEnabled() {
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			return err
		}
		slog.Info("connected to database")

		store, err := newLeadStore(pool, cfg.Leads.EncryptionKey)
		if err != nil {
			return err
		}
		collector = leads.NewCollector(store, cfg.Leads.BatchSize, cfg.Leads.FlushInterval)
		collector.SetMetrics(m)
		go collector.Start(ctx)

		contactService.SetArchive(collector)
		deps.Leads = collector
		m.RegisterLeadBuffer(collector.Pending)
		m.RegisterDBPoolCollector(func() metrics.DBPoolStats {
			s := pool.Stat()
			return metrics.DBPoolStats{
				TotalConns:    s.TotalConns(),
				IdleConns:     s.IdleConns(),
				AcquiredConns: s.AcquiredConns(),
				MaxConns:      s.MaxConns(),
			}
		})
	}

	deps.ContactLimiter = newLimiter(ctx, cfg.RateLimit.Contact)
	deps.FormLimiter = newLimiter(ctx, cfg.RateLimit.Forms)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      web.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", cfg.Addr(), "backend", cfg.Backend.BaseURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	err = srv.Shutdown(shutdownCtx)
	if collector != nil {
		collector.Stop()
	}
	return err
}

// newLeadStore opens the lead archive, sealing contact details when a key is
// configured.
func newLeadStore(pool *pgxpool.Pool, key string) (*leads.Store, error) {
	c, err := crypto.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("leads encryption key: %w", err)
	}
	if c == nil {
		return leads.NewStore(pool, nil), nil
	}
	return leads.NewStore(pool, c), nil
}

// newLimiter returns nil when the limit is disabled.
func newLimiter(ctx context.Context, lc config.LimitConfig) *ratelimit.Limiter {
	if lc.Rate <= 0 {
		return nil
	}
	l := ratelimit.New(lc.Rate, lc.Window)
	go l.SweepEvery(ctx, lc.Window)
	return l
}
