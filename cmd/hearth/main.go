// Command hearth is a terminal push-to-talk client for the hearth
// conversational backend.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gordonklaus/portaudio"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/hearthvoice/hearth/internal/config"
	"github.com/hearthvoice/hearth/internal/convo"
	"github.com/hearthvoice/hearth/internal/observe"
	"github.com/hearthvoice/hearth/internal/session"
	"github.com/hearthvoice/hearth/pkg/audio"
	"github.com/hearthvoice/hearth/pkg/provider/stt"
	oaistt "github.com/hearthvoice/hearth/pkg/provider/stt/openai"
	srvstt "github.com/hearthvoice/hearth/pkg/provider/stt/server"
	"github.com/hearthvoice/hearth/pkg/provider/tts"
	oaitts "github.com/hearthvoice/hearth/pkg/provider/tts/openai"
	srvtts "github.com/hearthvoice/hearth/pkg/provider/tts/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	sessionID := flag.String("session", "", "resume an existing conversation session ID")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "hearth: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "hearth: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	id := *sessionID
	if id == "" {
		id = uuid.NewString()
	}

	slog.Info("hearth starting",
		"config", *configPath,
		"session_id", id,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics ───────────────────────────────────────────────────────────────
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise metrics provider", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()

	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux}
		go func() {
			slog.Info("metrics endpoint listening", "addr", cfg.Server.MetricsAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics listener error", "err", err)
			}
		}()
		defer metricsSrv.Close()
	}

	// ── Audio subsystem ───────────────────────────────────────────────────────
	if err := portaudio.Initialize(); err != nil {
		slog.Error("failed to initialise audio subsystem", "err", err)
		return 1
	}
	defer func() {
		if err := portaudio.Terminate(); err != nil {
			slog.Warn("audio subsystem terminate error", "err", err)
		}
	}()

	// ── Providers ─────────────────────────────────────────────────────────────
	sttProvider, err := buildSTT(cfg)
	if err != nil {
		slog.Error("failed to create stt provider", "err", err, "name", cfg.Providers.STT.Name)
		return 1
	}
	ttsProvider, err := buildTTS(cfg)
	if err != nil {
		slog.Error("failed to create tts provider", "err", err, "name", cfg.Providers.TTS.Name)
		return 1
	}
	slog.Info("providers created", "stt", cfg.Providers.STT.Name, "tts", cfg.Providers.TTS.Name)

	// ── Conversation consumer ─────────────────────────────────────────────────
	var (
		chat     *convo.Chat
		consumer session.Consumer
	)
	if cfg.Backend.ChatWebSocketEnabled() {
		chat, err = convo.Dial(ctx, cfg.Backend.BaseURL, id)
		if err != nil {
			slog.Error("failed to open chat channel", "err", err)
			return 1
		}
		defer chat.Close()
		consumer = chat
	} else {
		// Transcription-only mode: print what was heard and stay quiet.
		consumer = session.ConsumerFunc(func(_ context.Context, text string, isFallback bool) error {
			if isFallback {
				fmt.Printf("\n  (no speech recognised) %s\n\n", text)
			} else {
				fmt.Printf("\n  you said: %s\n\n", text)
			}
			return nil
		})
	}

	// ── Session ───────────────────────────────────────────────────────────────
	sess := session.New(session.Config{
		ID:                id,
		Device:            audio.NewManager(),
		STT:               sttProvider,
		TTS:               ttsProvider,
		Consumer:          consumer,
		MaxDuration:       cfg.Capture.MaxSeconds,
		FlushIntervalMs:   cfg.Capture.FlushIntervalMs,
		MinPayloadBytes:   cfg.Capture.MinPayloadBytes,
		AutoListenEnabled: cfg.AutoListen.Enabled,
		OnElapsed: func(seconds int) {
			fmt.Printf("\r  recording… %ds ", seconds)
		},
		OnNotice: func(msg string) {
			fmt.Printf("\n  %s\n", msg)
		},
	})
	defer sess.Close()

	group, ctx := errgroup.WithContext(ctx)

	if chat != nil {
		group.Go(func() error {
			return chat.Listen(ctx, func(text string) {
				fmt.Printf("\n  assistant: %s\n\n", text)
				sess.HandleReply(ctx, text, "")
			})
		})
	}

	group.Go(func() error {
		return inputLoop(ctx, sess)
	})

	printBanner(sess)

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// inputLoop reads single-line commands from stdin until "q" or ctx ends.
func inputLoop(ctx context.Context, sess *session.Session) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch line {
			case "":
				if err := sess.ToggleRecording(); err != nil {
					fmt.Printf("  cannot record: %v\n", err)
				} else if sess.Recording() {
					fmt.Println("  recording — press ENTER to stop")
				} else {
					fmt.Println("  stopped")
				}
			case "a":
				sess.SetAutoListen(!sess.AutoListenEnabled())
				fmt.Printf("  auto-listen: %v\n", sess.AutoListenEnabled())
			case "q":
				return nil
			default:
				fmt.Println("  commands: ENTER = toggle recording, a = toggle auto-listen, q = quit")
			}
		}
	}
}

func printBanner(sess *session.Session) {
	fmt.Println("╔════════════════════════════════════════╗")
	fmt.Println("║  hearth — voice client                 ║")
	fmt.Println("╠════════════════════════════════════════╣")
	fmt.Println("║  ENTER  toggle recording               ║")
	fmt.Println("║  a      toggle auto-listen             ║")
	fmt.Println("║  q      quit                           ║")
	fmt.Println("╚════════════════════════════════════════╝")
	fmt.Printf("  auto-listen: %v\n\n", sess.AutoListenEnabled())
}

// ── Provider wiring ───────────────────────────────────────────────────────────

func buildSTT(cfg *config.Config) (stt.Provider, error) {
	entry := cfg.Providers.STT
	switch entry.Name {
	case "server", "":
		return srvstt.New(cfg.Backend.BaseURL)
	case "openai":
		var opts []oaistt.Option
		if entry.Model != "" {
			opts = append(opts, oaistt.WithModel(entry.Model))
		}
		return oaistt.New(entry.APIKey, opts...)
	default:
		return nil, fmt.Errorf("unknown stt provider %q", entry.Name)
	}
}

func buildTTS(cfg *config.Config) (tts.Provider, error) {
	entry := cfg.Providers.TTS
	switch entry.Name {
	case "server", "":
		return srvtts.New(cfg.Backend.BaseURL)
	case "openai":
		var opts []oaitts.Option
		if entry.Model != "" {
			opts = append(opts, oaitts.WithModel(entry.Model))
		}
		return oaitts.New(entry.APIKey, opts...)
	default:
		return nil, fmt.Errorf("unknown tts provider %q", entry.Name)
	}
}

// ── Logger ────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
