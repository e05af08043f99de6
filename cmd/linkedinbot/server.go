package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/jonypilatti/linkedinbot/internal/api"
	"github.com/jonypilatti/linkedinbot/internal/auth"
	"github.com/jonypilatti/linkedinbot/internal/config"
	"github.com/jonypilatti/linkedinbot/internal/linkedin"
	"github.com/jonypilatti/linkedinbot/internal/llm"
	"github.com/jonypilatti/linkedinbot/internal/profile"
	"github.com/jonypilatti/linkedinbot/internal/resume"
	"github.com/jonypilatti/linkedinbot/internal/session"
	"github.com/jonypilatti/linkedinbot/internal/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the linkedinbot daemon (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running linkedinbot daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon and session status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "linkedinbot.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "linkedinbot version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// Ensure API token exists in the secret store.
	apiToken, err := config.GetAPIToken(config.NewKeychain())
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Write PID file. Check if a daemon is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("linkedinbot is already running (PID %d)", pid)
			return fmt.Errorf("daemon already running (PID %d)", pid)
		}
		printWarning("linkedinbot is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("daemon already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open storage.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	profileMgr := profile.NewManager(store)

	// A resume PDF seeds the profile summary used for message personalization.
	if cfg.Bot.ResumePath != "" {
		if err := seedSummaryFromResume(profileMgr, cfg.Bot.ResumePath); err != nil {
			slog.Warn("resume text not loaded", "path", cfg.Bot.ResumePath, "error", err)
		}
	}

	// Check local inference engine readiness. Personalization degrades to
	// template defaults when it is down, so this is not fatal.
	generator := llm.New(cfg.LMStudio.BaseURL, cfg.LMStudio.Model)
	pingCtx, cancelPing := context.WithTimeout(ctx, 3*time.Second)
	if !generator.IsRunning(pingCtx) {
		slog.Warn("LM Studio not reachable, messages will use plain templates", "base_url", cfg.LMStudio.BaseURL)
	}
	cancelPing()

	mode, err := session.ParseMode(cfg.Bot.Mode)
	if err != nil {
		return fmt.Errorf("invalid bot mode: %w", err)
	}

	var skills []string
	for _, s := range strings.Split(cfg.Bot.Skills, ",") {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}

	network := linkedin.New(cfg.LinkedIn.BaseURL, cfg.LinkedIn.ClientID, cfg.LinkedIn.ClientSecret, cfg.LinkedIn.RedirectURI)
	tokens := auth.NewStore(cfg.Storage.DataDir)

	ctrl, err := session.NewController(session.Config{
		Mode: mode,
		Limits: session.Limits{
			MaxApplicationsPerDay: cfg.Bot.MaxApplicationsPerDay,
			MaxMessagesPerDay:     cfg.Bot.MaxMessagesPerDay,
		},
		ExcludeCompany: cfg.Bot.ExcludeCompany,
		Skills:         skills,
		MinScore:       cfg.Bot.MinScore,
		ResumeID:       cfg.Bot.ResumeID,
		MaxAttempts:    cfg.Bot.MaxAttempts,
		BaseDelay:      config.Duration(cfg.Bot.RetryBaseDelay, time.Second),
		Cooldown:       config.Duration(cfg.Bot.RateLimitCooldown, time.Minute),
		PacingMin:      config.Duration(cfg.Bot.PacingMin, 2*time.Second),
		PacingMax:      config.Duration(cfg.Bot.PacingMax, 6*time.Second),
	}, network, generator, store, tokens, logger)
	if err != nil {
		return fmt.Errorf("building session controller: %w", err)
	}
	defer ctrl.Close()

	handler := api.NewHandler(api.Deps{
		Controller: ctrl,
		Store:      store,
		Profile:    profileMgr,
		APIToken:   apiToken,
		Version:    version,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Build and start MCP server (stdio transport in a goroutine).
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Store:   store,
		Profile: profileMgr,
		Session: ctrl,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "linkedinbot listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// seedSummaryFromResume fills the profile summary from the resume PDF when no
// summary has been set yet.
func seedSummaryFromResume(mgr *profile.Manager, path string) error {
	p, err := mgr.Get()
	if err != nil {
		return err
	}
	if p.Summary != "" {
		return nil
	}
	text, err := resume.ExtractText(path)
	if err != nil {
		return err
	}
	if err := mgr.SetField("summary", text); err != nil {
		return err
	}
	slog.Info("profile summary seeded from resume", "path", path, "chars", len(text))
	return nil
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("linkedinbot is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop linkedinbot (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to linkedinbot (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	running := false
	if err != nil {
		printStatus("Daemon", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			running = true
			printStatus("Daemon", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Daemon", "error (HTTP %d)", resp.StatusCode)
		}
	}

	// Check LM Studio.
	lmResp, err := client.Get(cfg.LMStudio.BaseURL + "/models")
	if err != nil {
		printStatus("LM Studio", "not running")
	} else {
		lmResp.Body.Close()
		printStatus("LM Studio", "running at %s", cfg.LMStudio.BaseURL)
	}

	printStatus("Mode", "%s", cfg.Bot.Mode)

	// Show session state and quota usage if the daemon is up.
	if running {
		if c, err := newAPIClient(); err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			var snap struct {
				State        string `json:"state"`
				Applications int    `json:"applications_today"`
				Messages     int    `json:"messages_today"`
				Limits       struct {
					MaxApplicationsPerDay int
					MaxMessagesPerDay     int
				} `json:"limits"`
			}
			if c.getJSON(ctx, "/session", &snap) == nil {
				printStatus("Session", "%s", snap.State)
				printStatus("Applications", "%d/%d today", snap.Applications, snap.Limits.MaxApplicationsPerDay)
				printStatus("Messages", "%d/%d today", snap.Messages, snap.Limits.MaxMessagesPerDay)
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
