// Command metasepia is the chat bot entrypoint.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs versioned migrations (embedded SQL fallback).
//   - Joins the tracked channels over IRC and, when Helix credentials are set,
//     polls their titles; both feed topic changes to the session tracker.
//   - Answers chat commands about current and past sessions.
//   - Exposes a minimal HTTP server with /healthz, /status, /sessions and /metrics.
//
// The first SIGINT/SIGTERM closes the open session, drains pending writes for
// up to SHUTDOWN_TIMEOUT and exits; a second signal exits immediately.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/metasepia/alias"
	"github.com/onnwee/metasepia/chat"
	"github.com/onnwee/metasepia/command"
	"github.com/onnwee/metasepia/config"
	"github.com/onnwee/metasepia/db"
	"github.com/onnwee/metasepia/server"
	"github.com/onnwee/metasepia/session"
	"github.com/onnwee/metasepia/telemetry"
	"github.com/onnwee/metasepia/twitchapi"
)

const version = "1.0.0"

func main() {
	os.Exit(run())
}

func setupLogging() {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))
}

// bot routes chat events to the tracker and the dispatcher.
type bot struct {
	tracker    *session.Tracker
	dispatcher *command.Dispatcher
}

func (b bot) HandleTopic(ctx context.Context, channel, text string) {
	b.tracker.HandleTopic(ctx, text)
}

func (b bot) HandleMessage(ctx context.Context, sender, destination, text string) {
	b.dispatcher.Dispatch(ctx, sender, destination, text)
}

// watchSignals cancels on the first signal. Once shutdown has started, by a
// signal or because ctx ended after a transport failure, any further signal
// exits immediately with status 1.
func watchSignals(ctx context.Context, sigs <-chan os.Signal, cancel context.CancelFunc, exit func(int)) {
	select {
	case <-sigs:
		slog.Info("shutdown requested")
		cancel()
	case <-ctx.Done():
	}
	<-sigs
	slog.Warn("second shutdown request, exiting immediately")
	exit(1)
}

func run() int {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()
	setupLogging()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		return 1
	}
	if err := cfg.ValidateChatReady(); err != nil {
		slog.Error("chat not configured", slog.Any("err", err))
		return 1
	}

	telemetry.Init()
	shutdownTracing, err := telemetry.InitTracing("metasepia", version)
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		return 1
	}
	defer shutdownTracing()

	database, err := db.Connect(cfg.DBDsn)
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		return 1
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.RunMigrations(database); err != nil {
		slog.Warn("versioned migrations failed, attempting fallback to embedded SQL",
			slog.Any("err", err),
			slog.String("component", "db_migrate"))
		if err := db.Migrate(context.Background(), database); err != nil {
			slog.Error("failed to migrate db (both versioned and embedded SQL failed)", slog.Any("err", err))
			return 1
		}
	}

	aliases := alias.NewResolver(cfg.Aliases)
	store := db.NewStore(database)
	worker := session.NewWorker(context.Background())
	tracker := session.NewTracker(store, worker)

	events := make(chan chat.Event, 64)
	client := chat.NewClient(chat.ClientOptions{
		Nick:       cfg.IRCNick,
		OAuthToken: cfg.IRCOAuthToken,
		Address:    cfg.IRCAddress,
		TLS:        cfg.IRCTLS,
		Channels:   cfg.TrackedChannels,
	}, events)
	dispatcher := command.NewDispatcher(command.Config{
		Prefix:  cfg.CommandPrefix,
		Nick:    cfg.IRCNick,
		Silent:  cfg.SilentDestinations,
		Timeout: cfg.CommandTimeout,
	}, client, store, aliases)

	producers := []chat.Producer{chat.ProducerFunc(client.Connect)}
	if cfg.HelixEnabled() {
		ts := &twitchapi.TokenSource{ClientID: cfg.TwitchClientID, ClientSecret: cfg.TwitchClientSecret}
		producers = append(producers, &chat.TitlePoller{
			Helix:    &twitchapi.HelixClient{AppTokenSource: ts, ClientID: cfg.TwitchClientID},
			Channels: cfg.TrackedChannels,
			Interval: cfg.TopicPollInterval,
			Events:   events,
		})
	} else {
		slog.Info("helix title polling disabled (missing client id/secret or TOPIC_POLL_INTERVAL=0)")
	}
	svc := &chat.Service{
		Events:    events,
		Producers: producers,
		Handler:   bot{tracker: tracker, dispatcher: dispatcher},
		Tracked:   cfg.TrackedChannels,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go watchSignals(ctx, sigs, cancel, os.Exit)

	httpDone := make(chan struct{})
	go func() {
		defer close(httpDone)
		h := server.NewMux(server.NewHandlers(store, store, aliases))
		if err := server.Start(ctx, h, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	slog.Info("bot starting", slog.String("nick", cfg.IRCNick), slog.Any("channels", cfg.TrackedChannels))
	exitCode := 0
	if err := svc.Run(ctx); err != nil {
		slog.Error("chat transport failed", slog.Any("err", err))
		exitCode = 1
	}
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := tracker.Shutdown(shutdownCtx); err != nil {
		slog.Warn("pending session writes not flushed", slog.Any("err", err), slog.Duration("timeout", cfg.ShutdownTimeout))
	}
	if err := worker.Close(shutdownCtx); err != nil {
		slog.Warn("persistence worker abandoned jobs", slog.Any("err", err))
	}
	client.Disconnect()

	select {
	case <-httpDone:
	case <-time.After(cfg.ShutdownTimeout):
		slog.Warn("http server did not stop in time")
	}
	slog.Info("shutdown complete", slog.Int("exit_code", exitCode))
	return exitCode
}
