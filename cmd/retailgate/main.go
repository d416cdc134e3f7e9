package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zen-systems/retailgate/pkg/adapter"
	"github.com/zen-systems/retailgate/pkg/agent"
	"github.com/zen-systems/retailgate/pkg/archive"
	"github.com/zen-systems/retailgate/pkg/capability"
	"github.com/zen-systems/retailgate/pkg/config"
	"github.com/zen-systems/retailgate/pkg/docs"
	"github.com/zen-systems/retailgate/pkg/router"
	"github.com/zen-systems/retailgate/pkg/server"
	"github.com/zen-systems/retailgate/pkg/store"
	"github.com/zen-systems/retailgate/pkg/trace"
)

var (
	configFile string
	mockFlag   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "retailgate",
		Short: "Natural-language retail assistant over a policy document and a SQL store",
		Long: `Retailgate answers retail questions by routing each query to a policy
	document lookup, generated SQL against the retail store, or both, with
	a PII guardrail on every result.`,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&mockFlag, "mock", false, "use the mock adapter instead of live providers")

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(schemaCmd())
	rootCmd.AddCommand(routeCmd())
	rootCmd.AddCommand(routesCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func askCmd() *cobra.Command {
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question through the pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			a, closeSink, err := buildAgent(cfg, nil)
			if err != nil {
				return err
			}
			defer closeSink()

			ctx, cancel := context.WithTimeout(cmd.Context(), server.DefaultTimeout)
			defer cancel()

			resp := a.Handle(ctx, args[0])
			if jsonFlag {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}

			if resp.Message != "" {
				fmt.Println(resp.Message)
			}
			if resp.Result != nil && !resp.Result.Failed() && len(resp.Result.Rows) > 0 {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(resp.Result.Rows); err != nil {
					return err
				}
			}
			if resp.Error != "" {
				fmt.Fprintf(os.Stderr, "error: %s\n", resp.Error)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonFlag, "json", false, "print the full response as JSON")
	return cmd
}

func serveCmd() *cobra.Command {
	var addrFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pipeline over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			a, closeSink, err := buildAgent(cfg, logger)
			if err != nil {
				return err
			}
			defer closeSink()

			addr := cfg.ListenAddr
			if addrFlag != "" {
				addr = addrFlag
			}

			srv := server.New(a, server.WithLogger(logger.Sugar()))

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start(addr)
			}()
			logger.Sugar().Infow("listening", "addr", addr)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-sigCh:
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(ctx)
			}
		},
	}

	cmd.Flags().StringVar(&addrFlag, "addr", "", "listen address (overrides config)")
	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create and seed the retail store with sample data",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			st, err := store.New(cfg.StorePath)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			if err := st.Seed(cmd.Context()); err != nil {
				return fmt.Errorf("failed to seed store: %w", err)
			}
			fmt.Printf("Seeded %s\n", cfg.StorePath)
			return nil
		},
	}
}

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the store schema summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			st, err := store.New(cfg.StorePath)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			schema, err := st.SchemaSummary(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read schema: %w", err)
			}
			fmt.Println(schema)
			return nil
		},
	}
}

func routeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "route [question]",
		Short: "Classify a question and print the routing result without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			adapters, err := createAdapters(cfg)
			if err != nil {
				return err
			}
			caps, err := capability.NewClient(adapters, resolveRoutes(cfg))
			if err != nil {
				return fmt.Errorf("failed to create capability client: %w", err)
			}

			r := router.New(caps)
			result, err := r.Route(cmd.Context(), trace.NewLogger(trace.Nop{}, uuid.NewString()), args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Show which adapter and model serves each capability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			routes := resolveRoutes(cfg)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CAPABILITY\tADAPTER\tMODEL")

			names := []string{
				capability.CapClassify,
				capability.CapPolicyContext,
				capability.CapGenerateSQL,
				capability.CapCorrectSQL,
				capability.CapAnswerFromDocs,
			}
			for _, name := range names {
				route := routes.Default
				if override, ok := routes.ByCapability[name]; ok {
					if override.Adapter != "" {
						route.Adapter = override.Adapter
					}
					if override.Model != "" {
						route.Model = override.Model
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, route.Adapter, route.Model)
			}
			return w.Flush()
		},
	}
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadFromPath(configFile)
	}
	return config.Load()
}

// buildAgent assembles the full pipeline. The returned func closes the
// trace sink.
func buildAgent(cfg *config.Config, logger *zap.Logger) (*agent.Agent, func(), error) {
	adapters, err := createAdapters(cfg)
	if err != nil {
		return nil, nil, err
	}

	jsonl, err := trace.NewJSONLWriter(cfg.TracePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	var sink trace.Sink = jsonl
	if logger != nil {
		sink = trace.Multi{jsonl, trace.NewZapSink(logger)}
	}

	arch, err := archive.NewStore(filepath.Join(cfg.ConfigDir, "archive"))
	if err != nil {
		jsonl.Close()
		return nil, nil, fmt.Errorf("failed to open artifact archive: %w", err)
	}

	caps, err := capability.NewClient(adapters, resolveRoutes(cfg),
		capability.WithSink(sink),
		capability.WithArchive(arch),
	)
	if err != nil {
		jsonl.Close()
		return nil, nil, fmt.Errorf("failed to create capability client: %w", err)
	}

	st, err := store.New(cfg.StorePath)
	if err != nil {
		jsonl.Close()
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}

	doc := docs.Load(cfg.PolicyDocPath)
	a := agent.New(caps, st, doc,
		agent.WithSink(sink),
		agent.WithMaxAttempts(cfg.MaxAttempts),
	)
	return a, func() { _ = jsonl.Close() }, nil
}

// createAdapters instantiates every provider with a configured API key.
// The mock adapter is always present so --mock and tests never depend
// on credentials.
func createAdapters(cfg *config.Config) (map[string]adapter.Adapter, error) {
	adapters := make(map[string]adapter.Adapter)

	if !mockFlag {
		if cfg.AnthropicAPIKey != "" {
			a, err := adapter.NewAnthropicAdapter(cfg.AnthropicAPIKey)
			if err != nil {
				return nil, fmt.Errorf("failed to create anthropic adapter: %w", err)
			}
			adapters["anthropic"] = a
		}
		if cfg.OpenAIAPIKey != "" {
			a, err := adapter.NewOpenAIAdapter(cfg.OpenAIAPIKey)
			if err != nil {
				return nil, fmt.Errorf("failed to create openai adapter: %w", err)
			}
			adapters["openai"] = a
		}
		if cfg.GoogleAPIKey != "" {
			a, err := adapter.NewGoogleAdapter(cfg.GoogleAPIKey)
			if err != nil {
				return nil, fmt.Errorf("failed to create google adapter: %w", err)
			}
			adapters["google"] = a
		}
		if cfg.DeepSeekAPIKey != "" {
			a, err := adapter.NewDeepSeekAdapter(cfg.DeepSeekAPIKey)
			if err != nil {
				return nil, fmt.Errorf("failed to create deepseek adapter: %w", err)
			}
			adapters["deepseek"] = a
		}
	}

	adapters["mock"] = demoMockAdapter()
	return adapters, nil
}

// resolveRoutes fills in a usable default route when the config leaves
// it blank: the first configured provider in a fixed preference order,
// or the mock adapter under --mock.
func resolveRoutes(cfg *config.Config) capability.Routes {
	routes := cfg.Routes
	if mockFlag {
		routes.Default = capability.Route{Adapter: "mock", Model: "mock-1"}
		routes.ByCapability = nil
		return routes
	}
	if routes.Default.Adapter != "" {
		return routes
	}

	preferred := []struct {
		name  string
		model string
	}{
		{"openai", "gpt-5.2-instant"},
		{"anthropic", "claude-sonnet-4-20250514"},
		{"google", "gemini-2.0-pro"},
		{"deepseek", "deepseek-chat"},
	}
	for _, p := range preferred {
		if cfg.HasAdapter(p.name) {
			routes.Default = capability.Route{Adapter: p.name, Model: p.model}
			return routes
		}
	}
	routes.Default = capability.Route{Adapter: "mock", Model: "mock-1"}
	return routes
}

// demoMockAdapter answers each capability prompt with a canned retail
// response, keyed by the instruction text each prompt carries.
func demoMockAdapter() *adapter.MockAdapter {
	responses := map[string]string{
		"tool routing classifier": `{"requires_sql": true, "requires_policy": false, "unknown": false, "explanation": "demo classification"}`,
		"SQLite expert":           "SELECT name, price FROM products ORDER BY price DESC LIMIT 5",
		"helping fix a SQLite":    "SELECT COUNT(*) AS n FROM orders",
		"extract business policy": "Returns are accepted within 30 days of delivery with a 15% restocking fee.",
		"compliance/policy":       "Returns are accepted within 30 days of delivery; a 15% restocking fee applies.",
	}
	return adapter.NewMockAdapterWithResponses(responses, "SELECT 'no matching table' AS message")
}
