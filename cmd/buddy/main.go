// Buddy - voice-and-vision assistant front end with a 3D avatar stage.
package main

import (
	"context"
	"flag"
	stdlog "log"
	"os/signal"
	"syscall"

	"github.com/oni-labs/go-buddy/internal/log"
	"github.com/oni-labs/go-buddy/pkg/buddy"
	"github.com/oni-labs/go-buddy/pkg/speech"
)

func main() {
	cfg := parseFlags()

	if cfg.Debug {
		log.Init("debug")
	} else {
		log.Init("info")
	}

	engine := speech.NewWSEngine(cfg.TTSAddr)
	if err := engine.Connect(); err != nil {
		log.Warn("speech daemon unreachable, continuing without audio", "addr", cfg.TTSAddr, "error", err)
	}

	app, err := buddy.New(cfg, buddy.Deps{Engine: engine})
	if err != nil {
		stdlog.Fatalf("configuration error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Init(ctx); err != nil {
		stdlog.Fatalf("initialization failed: %v", err)
	}
	defer app.Shutdown()

	if err := app.Run(ctx); err != nil && ctx.Err() == nil {
		stdlog.Fatalf("runtime error: %v", err)
	}
}

// parseFlags parses command line flags and returns configuration.
func parseFlags() buddy.Config {
	cfg := buddy.DefaultConfig()

	configPath := flag.String("config", "buddy.yaml", "Path to YAML config file")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	backendURL := flag.String("backend", "", "Backend base URL (overrides BUDDY_BACKEND_URL)")
	ttsAddr := flag.String("tts", "", "Speech daemon websocket address")
	dashboard := flag.Bool("dashboard", true, "Serve the web dashboard and stage")
	port := flag.String("port", cfg.DashboardPort, "Dashboard listen port")
	flag.Parse()

	if err := cfg.LoadFile(*configPath); err != nil {
		stdlog.Fatalf("config file error: %v", err)
	}
	cfg.LoadEnvConfig()

	if *debug {
		cfg.Debug = true
	}
	if *backendURL != "" {
		cfg.BackendURL = *backendURL
	}
	if *ttsAddr != "" {
		cfg.TTSAddr = *ttsAddr
	}
	cfg.DashboardEnabled = *dashboard
	if *port != "" {
		cfg.DashboardPort = *port
	}
	return cfg
}
