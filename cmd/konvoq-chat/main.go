// ABOUTME: Interactive terminal client for a Konvoq chat widget deployment
// ABOUTME: Wires storage, language, transport, and the conversation engine

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/konvoq/widget-engine/internal/config"
	"github.com/konvoq/widget-engine/internal/conversation"
	"github.com/konvoq/widget-engine/internal/feedback"
	"github.com/konvoq/widget-engine/internal/language"
	"github.com/konvoq/widget-engine/internal/session"
	"github.com/konvoq/widget-engine/internal/storage"
	"github.com/konvoq/widget-engine/internal/transport"
)

// Version is set by goreleaser at build time.
var version = "dev"

// getConfigPath returns the path to the widget config file.
// Priority: KONVOQ_CONFIG env var > ./config.yaml > XDG_CONFIG_HOME/konvoq/widget.yaml
func getConfigPath() string {
	if envPath := os.Getenv("KONVOQ_CONFIG"); envPath != "" {
		return envPath
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "konvoq", "widget.yaml")
}

func main() {
	// A .env next to the binary is convenient for widget keys; absence is fine.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to config file (default: auto-detect)")
	lang := flag.String("lang", "", "Language code for this run (persisted for later runs)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("konvoq-chat %s\n", version)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath, *lang); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nGoodbye!")
}

func run(ctx context.Context, configPath, langFlag string) error {
	if configPath == "" {
		configPath = getConfigPath()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	var kv storage.KV
	if cfg.Database.Path != "" {
		sq, err := storage.NewSQLite(cfg.Database.Path, logger)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer sq.Close()
		kv = sq
	} else {
		logger.Debug("no database path configured, state will not survive restarts")
		kv = storage.NewMemory()
	}

	client := transport.New(cfg.Widget.Endpoint, cfg.Widget.BaseURL, cfg.Widget.Key, logger)

	// Server-published settings fill whatever the local file left empty.
	if cfg.Widget.Endpoint != "" {
		fetchCtx, fetchCancel := context.WithTimeout(ctx, 10*time.Second)
		settings, err := client.FetchWidgetSettings(fetchCtx)
		fetchCancel()
		if err != nil {
			logger.Warn("could not fetch widget settings, using local config only", "error", err)
		} else {
			cfg.Merge(*settings)
		}
	}

	var activeLang string
	if langFlag != "" {
		activeLang = language.Save(kv, cfg.Widget.Key, langFlag)
	} else {
		activeLang = language.Resolve(kv, cfg.Widget.Key,
			cfg.Widget.DefaultLanguageValue(), cfg.Widget.HasDefaultLanguage())
	}

	sessions := session.New(kv, cfg.Widget.Key, logger)
	presenter := newTerminalPresenter()
	rating := feedback.NewRating(client, sessions, logger)
	contact := feedback.NewContact(client, presenter, logger)

	engine := conversation.New(conversation.Config{
		PlanType:           cfg.Widget.PlanType,
		Language:           activeLang,
		MaxMessageLength:   cfg.Widget.MaxMessageLength,
		EndpointConfigured: cfg.Widget.Endpoint != "",
		WelcomeMessage:     cfg.Widget.WelcomeMessage,
	}, sessions, client, presenter, terminalRenderer{}, rating, contact, logger)

	gray := color.New(color.FgHiBlack)
	gray.Printf("konvoq-chat %s · widget %s · language %s\n", version, cfg.Widget.Key, language.Label(activeLang))
	gray.Println("Type a message and press Enter. /help for commands. Ctrl+C to quit.")
	fmt.Println()

	engine.ShowWelcome()

	return interact(ctx, engine)
}

// lineReader reads stdin lines in a goroutine so the loop stays
// cancellable.
type lineReader struct {
	lines chan string
	errs  chan error
}

func newLineReader() *lineReader {
	r := &lineReader{
		lines: make(chan string),
		errs:  make(chan error, 1),
	}
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			r.lines <- scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			r.errs <- err
		} else {
			r.errs <- io.EOF
		}
	}()
	return r
}

func (r *lineReader) read(ctx context.Context, prompt string) (string, error) {
	fmt.Print(prompt)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-r.errs:
		return "", err
	case line := <-r.lines:
		return strings.TrimSpace(line), nil
	}
}

func interact(ctx context.Context, engine *conversation.Engine) error {
	reader := newLineReader()

	for {
		if engine.State() == conversation.StateContactFallback {
			if engine.ContactSubmitted() {
				return nil
			}
			if err := contactForm(ctx, reader, engine); err != nil {
				if err == io.EOF || err == context.Canceled {
					return nil
				}
				return err
			}
			continue
		}

		input, err := reader.read(ctx, "> ")
		if err != nil {
			if err == io.EOF || err == context.Canceled {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}
		if input == "" {
			continue
		}

		switch {
		case input == "/quit" || input == "/exit" || input == "/q":
			return nil
		case input == "/help":
			printHelp()
			continue
		case input == "/up":
			engine.SubmitRating(ctx, conversation.RatingUp)
			continue
		case input == "/down":
			engine.SubmitRating(ctx, conversation.RatingDown)
			continue
		}

		if err := engine.Send(ctx, input); err != nil {
			// validation errors were already surfaced inline
			continue
		}
		fmt.Println()
	}
}

// contactForm collects the fallback form fields and submits them.
func contactForm(ctx context.Context, reader *lineReader, engine *conversation.Engine) error {
	name, err := reader.read(ctx, "name (optional)> ")
	if err != nil {
		return err
	}
	email, err := reader.read(ctx, "email> ")
	if err != nil {
		return err
	}
	message, err := reader.read(ctx, "message> ")
	if err != nil {
		return err
	}

	if err := engine.SubmitContact(ctx, name, email, message); err != nil {
		if err == feedback.ErrEmailRequired {
			return nil // inline highlight already shown, re-run the form
		}
		fmt.Printf("[error] %v\n", err)
	}
	return nil
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /up, /down     Rate the conversation when prompted")
	fmt.Println("  /help          Show this help")
	fmt.Println("  /quit          Exit")
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output on stderr with thread-safe
// writes. Stdout stays clean for the conversation itself.
type colorHandler struct {
	mu    sync.Mutex
	level slog.Level
	attrs []slog.Attr
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Fprint(os.Stderr, buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level: h.level,
		attrs: newAttrs,
	}
}

func (h *colorHandler) WithGroup(_ string) slog.Handler {
	return h
}
