package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/netrasec/jaal/internal/analyzer"
	"github.com/netrasec/jaal/internal/api"
	"github.com/netrasec/jaal/internal/bus"
	"github.com/netrasec/jaal/internal/callback"
	"github.com/netrasec/jaal/internal/config"
	"github.com/netrasec/jaal/internal/engine"
	"github.com/netrasec/jaal/internal/fatigue"
	"github.com/netrasec/jaal/internal/intel"
	"github.com/netrasec/jaal/internal/openrouter"
	"github.com/netrasec/jaal/internal/persona"
	"github.com/netrasec/jaal/internal/replay"
	"github.com/netrasec/jaal/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("jaal starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage: Postgres when configured, in-memory otherwise.
	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		if err := pg.Migrate(ctx); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		st = pg
		slog.Info("database connected")
	} else {
		st = store.NewMemory()
		slog.Warn("DATABASE_URL not set, using in-memory store")
	}
	defer st.Close()

	// Generative backend (optional). Without a key every reply comes
	// from the Hinglish templates.
	var gen persona.Generator
	if cfg.OpenRouterKey != "" {
		llm := openrouter.NewClient(cfg.OpenRouterKey, cfg.OpenRouterModel)
		gen = persona.NewGenerativeStrategy(llm, slog.Default())
		slog.Info("openrouter client ready", "model", cfg.OpenRouterModel)
	} else {
		slog.Warn("OPENROUTER_API_KEY not set, replies are template-only")
	}
	responder := persona.NewResponder(gen, slog.Default())

	// Report sink (optional).
	var sink engine.ReportSink
	if cfg.CallbackURL != "" {
		sink = callback.NewSink(cfg.CallbackURL, cfg.CallbackToken, slog.Default())
		slog.Info("report sink ready", "url", cfg.CallbackURL)
	} else {
		slog.Warn("CALLBACK_URL not set, reports are logged but not delivered")
	}

	// NATS (optional).
	var pub engine.Publisher
	var busClient *bus.Client
	if cfg.NatsURL != "" {
		var err error
		busClient, err = bus.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer busClient.Close()
		pub = busClient
		slog.Info("NATS connected", "url", cfg.NatsURL)
	}

	eng := engine.New(
		st,
		analyzer.New(cfg.Tunables),
		intel.New(),
		fatigue.NewTracker(st, slog.Default()),
		responder,
		sink,
		pub,
		slog.Default(),
	)

	// Scammer turns can arrive as events as well as over HTTP.
	if busClient != nil {
		err := busClient.Subscribe(bus.SubjectTurnInbound, func(_ string, data []byte) {
			var turn bus.InboundTurn
			if err := json.Unmarshal(data, &turn); err != nil {
				slog.Warn("malformed inbound turn event", "error", err)
				return
			}
			if _, err := eng.HandleTurn(ctx, turn.SessionID, turn.Text, turn.Sender, turn.Channel); err != nil {
				slog.Error("handle inbound turn", "session_id", turn.SessionID, "error", err)
			}
		})
		if err != nil {
			slog.Error("failed to subscribe to inbound turns", "error", err)
			os.Exit(1)
		}
	}

	// Replay mode: feed a recorded transcript through the engine and exit.
	if len(os.Args) > 2 && os.Args[1] == "replay" {
		runner := replay.NewRunner(eng, cfg.ReplayStatePath, slog.Default())
		sum, err := runner.Run(ctx, os.Args[2])
		if err != nil {
			slog.Error("replay failed", "error", err)
			os.Exit(1)
		}
		eng.Wait()
		slog.Info("replay finished",
			"turns", sum.TurnsHandled,
			"intel", sum.IntelCaptured,
			"reports", sum.ReportsSent)
		return
	}

	srv := api.NewServer(eng, st, cfg.APIKey, cfg.Port, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	if pub != nil {
		if err := pub.Publish("jaal.agent.registered", map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"port":      cfg.Port,
		}); err != nil {
			slog.Warn("failed to publish registration", "error", err)
		}
	}

	slog.Info("jaal ready", "port", cfg.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	eng.Wait()
	slog.Info("jaal stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
