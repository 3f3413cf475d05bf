package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"agrobot/internal/agent"
	"agrobot/internal/channel"
	"agrobot/internal/config"
	"agrobot/internal/domain"
	"agrobot/internal/identity"
	"agrobot/internal/intent"
	"agrobot/internal/provider"
	"agrobot/internal/store"
	"agrobot/internal/tool"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "agrobot",
		Short: "agrobot: WhatsApp assistant for agricultural operations",
		Long:  "agrobot turns WhatsApp text and voice messages into field, work order, personnel, client and cost records.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.agrobot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(gatewayCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(userCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists at %s", cfgPath)
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			return nil
		},
	}
}

func loadConfig() (*config.Config, error) {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func setLogLevel(level string) {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// stack is everything the message path needs, wired once per process.
type stack struct {
	store    *store.Store
	pipeline *agent.Pipeline
}

// buildStack opens the database and assembles the full message pipeline.
// The fetcher is channel-specific, so it arrives as an argument.
func buildStack(cfg *config.Config, fetcher agent.MediaFetcher) (*stack, error) {
	s, err := store.Open(cfg.Database.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	prov := provider.NewOpenAI(provider.OpenAIConfig{
		APIKey:  cfg.Provider.APIKey,
		APIBase: cfg.Provider.APIBase,
		Model:   cfg.Provider.Model,
		Logger:  logger,
	})

	var classifier *intent.Classifier
	if cfg.Classifier.Enabled {
		embedder := provider.NewEmbeddings(provider.EmbeddingsConfig{
			APIKey:  cfg.Embeddings.APIKey,
			APIBase: cfg.Embeddings.APIBase,
			Model:   cfg.Embeddings.Model,
			Logger:  logger,
		})
		classifier = intent.NewClassifier(embedder, cfg.Classifier.Threshold, logger)
		if cfg.Classifier.ExamplesPath != "" {
			if err := classifier.LoadExamples(cfg.Classifier.ExamplesPath); err != nil {
				s.Close()
				return nil, fmt.Errorf("intent examples: %w", err)
			}
		}
	}

	whisper := provider.NewWhisper(provider.WhisperConfig{
		APIKey:  cfg.Whisper.APIKey,
		APIBase: cfg.Whisper.APIBase,
		Model:   cfg.Whisper.Model,
		Logger:  logger,
	})

	registry := tool.NewRegistry(logger)
	tool.RegisterAll(registry, time.Now)

	orchestrator := agent.NewOrchestrator(agent.OrchestratorConfig{
		Provider:    prov,
		Registry:    registry,
		Model:       cfg.Provider.Model,
		MaxTokens:   cfg.Provider.MaxTokens,
		Temperature: cfg.Provider.Temperature,
		Logger:      logger,
	})

	audio, err := agent.NewAudioStore(cfg.Audio.Dir, logger)
	if err != nil {
		s.Close()
		return nil, err
	}

	pipeline := agent.NewPipeline(agent.PipelineConfig{
		Resolver:     identity.NewResolver(s, logger),
		Store:        s,
		Transcriber:  whisper,
		Classifier:   classifier,
		Orchestrator: orchestrator,
		Fetcher:      fetcher,
		Audio:        audio,
		Logger:       logger,
	})

	return &stack{store: s, pipeline: pipeline}, nil
}

// fetcherFunc adapts a closure to agent.MediaFetcher.
type fetcherFunc func(ctx context.Context, ref string) (io.ReadCloser, error)

func (f fetcherFunc) FetchMedia(ctx context.Context, ref string) (io.ReadCloser, error) {
	return f(ctx, ref)
}

func gatewayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Start the WhatsApp webhook server",
		Long:  "Starts the webhook HTTP server and processes incoming WhatsApp messages. Press Ctrl+C to stop.",
		RunE:  runGateway,
	}
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setLogLevel(cfg.General.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The WhatsApp channel fetches its own media, so it is both the inbound
	// adapter and the pipeline's fetcher. The closure breaks the cycle.
	var wa *channel.WhatsApp
	st, err := buildStack(cfg, fetcherFunc(func(ctx context.Context, ref string) (io.ReadCloser, error) {
		return wa.FetchMedia(ctx, ref)
	}))
	if err != nil {
		return err
	}
	defer st.store.Close()

	wa = channel.NewWhatsApp(channel.WhatsAppChannelConfig{
		Config:  cfg.WhatsApp,
		Handler: st.pipeline,
		Logger:  logger,
	})

	srv := &http.Server{
		Addr:              cfg.General.ListenAddr,
		Handler:           wa.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", "addr", cfg.General.ListenAddr, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down gateway...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

func chatCmd() *cobra.Command {
	var phone string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive local chat against the pipeline",
		Long:  "Reads messages from stdin and runs them through the same pipeline the webhook uses. Requires a registered phone.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setLogLevel(cfg.General.LogLevel)

			st, err := buildStack(cfg, nil)
			if err != nil {
				return err
			}
			defer st.store.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Printf("agrobot chat as %s. Ctrl+D to exit.\n", phone)
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				text := strings.TrimSpace(scanner.Text())
				if text == "" {
					continue
				}
				reply := st.pipeline.Handle(ctx, domain.InboundMessage{
					From:      phone,
					Text:      text,
					Timestamp: time.Now(),
				})
				fmt.Println(reply)
			}
			return scanner.Err()
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "phone number to impersonate (must exist in the users table)")
	cmd.MarkFlagRequired("phone")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show config and provider health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false, "err", err)
				return nil
			}
			logger.Info("config", "path", cfgPath, "loaded", true)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			prov := provider.NewOpenAI(provider.OpenAIConfig{
				APIKey:  cfg.Provider.APIKey,
				APIBase: cfg.Provider.APIBase,
				Model:   cfg.Provider.Model,
				Logger:  logger,
			})
			if err := prov.Healthy(ctx); err != nil {
				logger.Warn("provider", "name", prov.Name(), "healthy", false, "err", err)
			} else {
				logger.Info("provider", "name", prov.Name(), "model", cfg.Provider.Model, "healthy", true)
			}
			return nil
		},
	}
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage authorized users",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add [name] [phone]",
		Short: "Register a user authorized to message the bot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s, err := store.Open(cfg.Database.Path, logger)
			if err != nil {
				return err
			}
			defer s.Close()

			phone := identity.NormalizePhone(args[1])
			id, err := s.CreateUser(cmd.Context(), domain.User{
				Name:   args[0],
				Phone:  phone,
				Active: true,
			})
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			logger.Info("user created", "id", id, "name", args[0], "phone", phone)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "deactivate [id]",
		Short: "Deactivate a user (keeps their data)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s, err := store.Open(cfg.Database.Path, logger)
			if err != nil {
				return err
			}
			defer s.Close()

			var id int64
			if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			if err := s.SetUserActive(cmd.Context(), id, false); err != nil {
				return fmt.Errorf("deactivate: %w", err)
			}
			logger.Info("user deactivated", "id", id)
			return nil
		},
	})

	return cmd
}
