// Command tout-va-bien starts the Tout va bien puzzle server.
//
// It supports two modes:
//  1. "server" (default): runs the HTTP server exposing the REST API, the level
//     publishing API, WebSocket board updates, and an /mcp HTTP endpoint
//  2. "stdio-mcp": runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Settings come from the environment (and a .env file); flags override them.
// An optional ngrok tunnel exposes the server during development.
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
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wricardo/tout-va-bien/api"
	"github.com/wricardo/tout-va-bien/game/config"
	"github.com/wricardo/tout-va-bien/game/levelstore"
	"github.com/wricardo/tout-va-bien/game/service"
	"github.com/wricardo/tout-va-bien/game/session"
	"github.com/wricardo/tout-va-bien/transport/levelapi"
	"github.com/wricardo/tout-va-bien/transport/mcp"
	"github.com/wricardo/tout-va-bien/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Tout va bien Server"
)

// settings holds the server configuration read from the environment
type settings struct {
	Port           int           `env:"PORT" envDefault:"8080"`
	Host           string        `env:"HOST" envDefault:"localhost"`
	LevelsDir      string        `env:"LEVELS_DIR" envDefault:"levels"`
	LevelStore     string        `env:"LEVEL_STORE" envDefault:"file"`
	LevelStorePath string        `env:"LEVEL_STORE_PATH"`
	APIURL         string        `env:"API_URL"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	Debug          bool          `env:"DEBUG"`
	NgrokEnabled   bool          `env:"NGROK_ENABLED"`
	NgrokAuthToken string        `env:"NGROK_AUTHTOKEN"`
	NgrokDomain    string        `env:"NGROK_DOMAIN"`
	SessionMaxAge  time.Duration `env:"SESSION_MAX_AGE" envDefault:"24h"`
}

// loadSettings parses the environment into settings
func loadSettings() (settings, error) {
	var s settings
	if err := env.Parse(&s); err != nil {
		return s, fmt.Errorf("parse env: %w", err)
	}
	return s, nil
}

// storePath returns where published levels are kept for the configured backend
func (s settings) storePath() string {
	if s.LevelStorePath != "" {
		return s.LevelStorePath
	}
	if s.LevelStore == levelstore.BackendSQLite {
		return "published.db"
	}
	return "published"
}

// bindFlags registers the command-line flags on fs, defaulting from s.
// Parsing fs writes the overrides back into s.
func bindFlags(fs *flag.FlagSet, s *settings) (showVersion *bool) {
	fs.IntVar(&s.Port, "port", s.Port, "HTTP server port")
	fs.StringVar(&s.Host, "host", s.Host, "HTTP server host")
	fs.StringVar(&s.LevelsDir, "levels-dir", s.LevelsDir, "Directory containing level files")
	fs.StringVar(&s.LevelStore, "level-store", s.LevelStore, "Published level backend (file or sqlite)")
	fs.StringVar(&s.LevelStorePath, "level-store-path", s.LevelStorePath, "Published level directory or database file")
	fs.StringVar(&s.APIURL, "api-url", s.APIURL, "Community level API (empty: publish to the local store)")
	fs.StringVar(&s.LogLevel, "log-level", s.LogLevel, "Log level (debug, info, warn, error)")
	fs.BoolVar(&s.Debug, "debug", s.Debug, "Enable debug logging")
	fs.BoolVar(&s.NgrokEnabled, "ngrok", s.NgrokEnabled, "Enable ngrok tunnel")
	fs.StringVar(&s.NgrokAuthToken, "ngrok-auth", s.NgrokAuthToken, "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	fs.StringVar(&s.NgrokDomain, "ngrok-domain", s.NgrokDomain, "Custom ngrok domain (optional)")
	fs.DurationVar(&s.SessionMaxAge, "session-max-age", s.SessionMaxAge, "Inactivity after which a session is dropped")
	showVersion = fs.Bool("version", false, "Show version information")

	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, "Usage: %s [OPTIONS] [MODE]\n\n", fs.Name())
		fmt.Fprintf(out, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(out, "Available modes:\n")
		fmt.Fprintf(out, "  server, http     Run HTTP server with API, WebSocket, and MCP endpoint (default)\n")
		fmt.Fprintf(out, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
		fmt.Fprintf(out, "  mcp-stdio        Alias for stdio-mcp\n")
		fmt.Fprintf(out, "  mcp              Alias for stdio-mcp\n")
		fmt.Fprintf(out, "\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(out, "\nExamples:\n")
		fmt.Fprintf(out, "  %s                          # Run HTTP server on default port 8080\n", fs.Name())
		fmt.Fprintf(out, "  %s -port 9090               # Run HTTP server on port 9090\n", fs.Name())
		fmt.Fprintf(out, "  %s -level-store sqlite      # Keep published levels in published.db\n", fs.Name())
		fmt.Fprintf(out, "  %s stdio-mcp                # Run MCP stdio server\n", fs.Name())
	}
	return showVersion
}

// setupLogging configures the global zerolog logger
func setupLogging(s settings) {
	level, err := zerolog.ParseLevel(s.LogLevel)
	if err != nil || s.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	if s.Debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

// main loads settings, initializes services, and starts the selected mode.
func main() {
	// Load .env file if it exists
	envErr := godotenv.Load()

	cfg, err := loadSettings()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid environment")
	}

	fs := flag.NewFlagSet(filepath.Base(os.Args[0]), flag.ExitOnError)
	showVersion := bindFlags(fs, &cfg)
	fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	setupLogging(cfg)
	if envErr == nil {
		log.Debug().Msg("loaded environment variables from .env file")
	} else if !os.IsNotExist(envErr) {
		log.Warn().Err(envErr).Msg("error loading .env file")
	}

	mode := "server"
	if fs.NArg() > 0 {
		mode = fs.Arg(0)
	}

	log.Info().Str("version", Version).Str("mode", mode).Msgf("starting %s", AppName)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize services")
	}
	defer svc.Close()

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		runStdioMCPWithInternalServer(ctx, cfg, svc.game)

	case "server", "http":
		runHTTPServer(ctx, cfg, svc.game)

	default:
		log.Fatal().Msgf("Unknown mode: %s. Use 'server' (default) or 'stdio-mcp'", mode)
	}
}

// services groups the components the server modes run on
type services struct {
	game     service.GameService
	sessions *session.Manager
	levels   *config.Manager
	store    levelstore.Store
}

// Close releases the published level store
func (s *services) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// initializeServices wires the level catalog, the published level store,
// the community publisher and the game service. It starts the session
// cleanup routine and a first community level refresh in the background.
func initializeServices(ctx context.Context, cfg settings) (*services, error) {
	levels, err := config.NewManager(cfg.LevelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create level catalog: %w", err)
	}

	store, err := levelstore.Open(cfg.LevelStore, cfg.storePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open level store: %w", err)
	}

	opts := []service.Option{service.WithLevelStore(store)}
	if cfg.APIURL != "" {
		opts = append(opts, service.WithPublisher(levelapi.NewClient(cfg.APIURL)))
		log.Info().Str("api", cfg.APIURL).Msg("community levels from remote API")
	} else {
		log.Info().Str("backend", cfg.LevelStore).Str("path", cfg.storePath()).Msg("community levels from local store")
	}

	sessions := session.NewManager()
	gameService := service.NewGameService(sessions, levels, opts...)

	go sessionCleanupRoutine(ctx, sessions, cfg.SessionMaxAge)
	go refreshCommunityLevels(ctx, gameService)

	return &services{
		game:     gameService,
		sessions: sessions,
		levels:   levels,
		store:    store,
	}, nil
}

// refreshCommunityLevels performs the startup community level fetch
func refreshCommunityLevels(ctx context.Context, gameService service.GameService) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	result, err := gameService.RefreshCommunityLevels(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("community level refresh skipped")
		return
	}
	if result.Error == "" {
		log.Info().Int("fetched", result.Fetched).Int("merged", result.Merged).Msg("community levels loaded")
	}
}

// cleanupInterval picks how often expired sessions are swept
func cleanupInterval(maxAge time.Duration) time.Duration {
	interval := maxAge / 4
	if interval > time.Hour {
		return time.Hour
	}
	if interval < time.Minute {
		return time.Minute
	}
	return interval
}

// sessionCleanupRoutine periodically removes sessions that have not been accessed
// within the provided retention window.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, maxAge time.Duration) {
	if maxAge <= 0 {
		return
	}

	ticker := time.NewTicker(cleanupInterval(maxAge))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(maxAge); removed > 0 {
				log.Info().Int("removed", removed).Msg("cleaned up expired sessions")
			}
		}
	}
}

// mcpHandler serves MCP JSON-RPC messages over plain HTTP POST
func mcpHandler(mcpClient *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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
	}
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, cfg settings, gameService service.GameService) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	apiServer := api.NewServer(gameService, hub)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Info().
			Str("addr", addr).
			Str("api", fmt.Sprintf("http://%s/api", addr)).
			Str("websocket", fmt.Sprintf("ws://%s/ws?session=<session_id>", addr)).
			Str("mcp", fmt.Sprintf("http://%s/mcp", addr)).
			Msg("HTTP server listening")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	if cfg.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, cfg, mainRouter)
		}()
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	wg.Wait()
	log.Info().Msg("server stopped")
}

// runNgrokTunnel serves handler through an ngrok endpoint until ctx ends
func runNgrokTunnel(ctx context.Context, cfg settings, handler http.Handler) {
	authToken := cfg.NgrokAuthToken
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTH_TOKEN")
	}
	if authToken == "" {
		log.Warn().Msg("ngrok enabled but no auth token provided (use -ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	log.Info().Msg("starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if cfg.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.NgrokDomain))
		log.Info().Str("domain", cfg.NgrokDomain).Msg("using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Error().Err(err).Msg("failed to start ngrok tunnel")
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close ngrok tunnel")
		}
	}()

	ngrokURL := tun.URL()
	log.Info().
		Str("url", ngrokURL).
		Str("api", ngrokURL+"/api").
		Str("levels", ngrokURL+"/levels").
		Str("mcp", ngrokURL+"/mcp").
		Msg("ngrok tunnel established")

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		log.Error().Err(err).Msg("ngrok server error")
	}
	log.Info().Msg("ngrok tunnel closed")
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It reuses an API server already listening on the configured address; if
// none answers, it starts an internal HTTP API on a random loopback port.
func runStdioMCPWithInternalServer(ctx context.Context, cfg settings, gameService service.GameService) {
	externalURL := fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)
	baseURL := externalURL

	log.Info().Str("url", externalURL).Msg("checking for external API server")

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/health")
	external := err == nil && resp.StatusCode < 500
	if err == nil {
		resp.Body.Close()
	}

	if external {
		log.Info().Str("url", externalURL).Msg("external API server found, using it for MCP")
	} else {
		log.Info().Msg("no external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			log.Fatal().Err(err).Msg("failed to get available port")
		}

		hub := websocket.NewHub()
		go hub.Run(ctx)

		httpServer := &http.Server{
			Handler: api.NewServer(gameService, hub),
		}

		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("internal HTTP server error")
			}
		}()
		defer httpServer.Close()

		baseURL = fmt.Sprintf("http://%s", listener.Addr().String())
		log.Info().Str("url", baseURL).Msg("internal HTTP server started for MCP stdio")
	}

	mcpClient := mcp.NewClient(baseURL)

	log.Info().Str("api", baseURL).Msg("MCP stdio server ready")
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		log.Error().Err(err).Msg("MCP stdio server error")
	}
}
