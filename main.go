// Command math-mahjong starts the Math Mahjong game server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, snapshot storage, rule preset, debug logging,
// version output, and optional ngrok tunneling for easy external access
// during development.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/kouya0205/math-mahjong/api"
	"github.com/kouya0205/math-mahjong/game/config"
	"github.com/kouya0205/math-mahjong/game/engine"
	"github.com/kouya0205/math-mahjong/game/service"
	"github.com/kouya0205/math-mahjong/game/session"
	"github.com/kouya0205/math-mahjong/transport/mcp"
	"github.com/kouya0205/math-mahjong/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Math Mahjong Server"
)

// Configuration flags control how the server starts and which services are enabled.
var (
	port         = flag.Int("port", 0, "HTTP server port (overrides MM_PORT)")
	host         = flag.String("host", "", "HTTP server host (overrides MM_HOST)")
	snapshotPath = flag.String("snapshot-path", "", "Path to the snapshot database (overrides MM_SNAPSHOT_PATH)")
	rulesPreset  = flag.String("rules", "", "Rules preset: standard, quick, open (overrides MM_RULES)")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Enable ngrok tunnel")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with API, WebSocket, and MCP endpoint (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
		fmt.Fprintf(os.Stderr, "  mcp-stdio        Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "  mcp              Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                    # Run HTTP server on default port 8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -port 9090         # Run HTTP server on port 9090\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -rules quick       # Shorter games: 5-card hands, 2-digit targets\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s stdio-mcp          # Run MCP stdio server\n", os.Args[0])
	}
}

// application bundles everything main wires together.
type application struct {
	cfg      *config.Server
	rules    engine.Rules
	logger   *zap.Logger
	registry *session.Registry
	store    session.Store
	writer   *session.Writer
	service  *service.Service
}

// main parses flags, initializes services, and starts the selected mode.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	flag.Parse()

	// Show version if requested
	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	cfg, err := config.LoadServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	applyFlagOverrides(cfg)

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Determine mode from command
	args := flag.Args()
	mode := "server" // default
	if len(args) > 0 {
		mode = args[0]
	}

	logger.Info("starting",
		zap.String("app", AppName),
		zap.String("version", Version),
		zap.String("mode", mode),
		zap.String("rules", cfg.RulesPreset))

	app, err := initializeServices(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize services", zap.Error(err))
	}
	defer app.close()

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		runStdioMCPWithInternalServer(app)

	case "server", "http":
		runHTTPServer(app)

	default:
		logger.Fatal("unknown mode", zap.String("mode", mode))
	}
}

// applyFlagOverrides layers non-zero command-line flags over the
// environment configuration.
func applyFlagOverrides(cfg *config.Server) {
	if *host != "" {
		cfg.Host = *host
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *snapshotPath != "" {
		cfg.SnapshotPath = *snapshotPath
	}
	if *rulesPreset != "" {
		cfg.RulesPreset = *rulesPreset
	}
	if *debug {
		cfg.Debug = true
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// initializeServices wires the registry, snapshot store, and game
// service, and starts the background cleanup routine.
func initializeServices(cfg *config.Server, logger *zap.Logger) (*application, error) {
	rules, err := config.LoadRules(cfg.RulesPreset)
	if err != nil {
		return nil, err
	}

	// Snapshot storage is best-effort: a broken SQLite path degrades to
	// an in-memory store rather than refusing to start.
	var store session.Store
	sqliteStore, err := session.OpenSQLiteStore(cfg.SnapshotPath)
	if err != nil {
		logger.Warn("snapshot db unavailable, using in-memory store",
			zap.String("path", cfg.SnapshotPath),
			zap.Error(err))
		store = session.NewMemoryStore()
	} else {
		store = sqliteStore
	}

	writer, err := session.NewWriter(store, 4, logger)
	if err != nil {
		return nil, fmt.Errorf("create snapshot writer: %w", err)
	}

	registry := session.NewRegistry(logger)
	svc := service.NewService(registry, rules, writer, logger)

	app := &application{
		cfg:      cfg,
		rules:    rules,
		logger:   logger,
		registry: registry,
		store:    store,
		writer:   writer,
		service:  svc,
	}

	go roomCleanupRoutine(app)

	return app, nil
}

func (app *application) close() {
	app.writer.Close()
	if err := app.store.Close(); err != nil {
		app.logger.Warn("close snapshot store", zap.Error(err))
	}
}

// roomCleanupRoutine periodically removes rooms that have not been
// touched within the retention window, along with their snapshots.
func roomCleanupRoutine(app *application) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		removed := app.registry.CleanupIdle(24 * time.Hour)
		for _, roomID := range removed {
			app.writer.EnqueueDelete(roomID)
		}
		if len(removed) > 0 {
			app.logger.Info("cleaned up idle rooms", zap.Int("removed", len(removed)))
		}
	}
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled (via flag or environment), it also provisions a public tunnel.
func runHTTPServer(app *application) {
	logger := app.logger

	// Create WebSocket hub and wire it as the event sink
	hub := websocket.NewHub(app.service, logger)
	go hub.Run()
	defer hub.Stop()
	app.service.SetBroadcaster(hub)

	// Create API server
	apiServer := api.NewServer(app.service, hub)

	addr := fmt.Sprintf("%s:%d", app.cfg.Host, app.cfg.Port)

	// Create MCP client for /mcp endpoint
	baseURL := fmt.Sprintf("http://%s", addr)
	mcpClient := mcp.NewClient(baseURL)

	// Create main router that combines API and MCP
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info("http server listening",
			zap.String("addr", addr),
			zap.String("rest", fmt.Sprintf("http://%s/api", addr)),
			zap.String("websocket", fmt.Sprintf("ws://%s/ws", addr)),
			zap.String("mcp", fmt.Sprintf("http://%s/mcp", addr)))

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Check if ngrok should be enabled (from flag or environment)
	ngrokShouldRun := *ngrokEnabled
	if !ngrokShouldRun {
		if envEnabled := os.Getenv("NGROK_ENABLED"); envEnabled == "true" || envEnabled == "1" {
			ngrokShouldRun = true
		}
	}

	if ngrokShouldRun {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, app, mainRouter)
		}()
	}

	sig := <-stop
	logger.Info("shutting down", zap.String("signal", sig.String()))
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown error", zap.Error(err))
	}

	wg.Wait()
	logger.Info("server stopped")
}

// runNgrokTunnel provisions a public tunnel and serves the same router
// through it.
func runNgrokTunnel(ctx context.Context, app *application, handler http.Handler) {
	logger := app.logger

	authToken := *ngrokAuth
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTHTOKEN")
		if authToken == "" {
			authToken = os.Getenv("NGROK_AUTH_TOKEN")
		}
	}
	if authToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	domain := *ngrokDomain
	if domain == "" {
		domain = os.Getenv("NGROK_DOMAIN")
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logger.Info("using custom ngrok domain", zap.String("domain", domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Warn("failed to start ngrok tunnel", zap.Error(err))
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", zap.Error(err))
		}
	}()

	logger.Info("ngrok tunnel established", zap.String("url", tun.URL()))

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		logger.Warn("ngrok server error", zap.Error(err))
	}
	logger.Info("ngrok tunnel closed")
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API on the configured address; if
// unavailable, it starts a minimal internal HTTP API bound to a random
// loopback port and targets that.
func runStdioMCPWithInternalServer(app *application) {
	logger := app.logger

	var baseURL string

	// First, try to connect to an external API server
	externalURL := fmt.Sprintf("http://%s:%d", app.cfg.Host, app.cfg.Port)
	logger.Info("checking for external api server", zap.String("url", externalURL))

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/api/rooms")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		logger.Info("external api server found, using it for mcp", zap.String("url", externalURL))
		baseURL = externalURL
	} else {
		// No external server found, start internal one
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			logger.Fatal("failed to get available port", zap.Error(err))
		}

		internalAddr := listener.Addr().String()
		logger.Info("starting internal http server for mcp stdio", zap.String("addr", internalAddr))

		hub := websocket.NewHub(app.service, logger)
		go hub.Run()
		app.service.SetBroadcaster(hub)

		apiServer := api.NewServer(app.service, hub)
		httpServer := &http.Server{Handler: apiServer}

		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				logger.Warn("internal http server error", zap.Error(err))
			}
		}()

		// Wait a moment for the server to be ready
		time.Sleep(100 * time.Millisecond)

		baseURL = fmt.Sprintf("http://%s", internalAddr)
	}

	mcpClient := mcp.NewClient(baseURL)

	logger.Info("mcp stdio server ready", zap.String("base_url", baseURL))

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		logger.Fatal("mcp stdio server error", zap.Error(err))
	}
}
