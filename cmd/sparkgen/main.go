// Package main is the entry point for the sparkgen CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/storyspark/sparkgen/internal/config"
	"github.com/storyspark/sparkgen/internal/core"
	"github.com/storyspark/sparkgen/internal/provider"
	"github.com/storyspark/sparkgen/pkg/app"

	// Compiled-in modules register themselves via init().
	_ "github.com/storyspark/sparkgen/internal/gateway"
	_ "github.com/storyspark/sparkgen/modules/provider/anthropic"
	_ "github.com/storyspark/sparkgen/modules/provider/gemini"
	_ "github.com/storyspark/sparkgen/modules/provider/openai"
	_ "github.com/storyspark/sparkgen/modules/provider/openrouter"
	_ "github.com/storyspark/sparkgen/modules/store/sqlite"
	_ "github.com/storyspark/sparkgen/modules/store/supabase"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sparkgen",
		Short:         "AI copy generation service with multi-provider fallback",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(versionCmd(), startCmd(), configCmd(), providersCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled modules",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("sparkgen %s (commit: %s, built: %s)\n", version, commit, date)
			mods := core.GetModules()
			if len(mods) == 0 {
				fmt.Println("\nNo compiled modules.")
				return
			}
			fmt.Println("\nCompiled modules:")
			for _, mod := range mods {
				fmt.Printf("  %s\n", mod.ID)
			}
		},
	}
}

func startCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start sparkgen with all configured modules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			dataDir, _ := cmd.Flags().GetString("data-dir")
			verbose, _ := cmd.Flags().GetBool("verbose")

			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}

			return app.Run(app.RunParams{
				ConfigPath: cfgPath,
				Version:    version,
				Commit:     commit,
				Date:       date,
				DataDir:    dataDir,
				LogLevel:   level,
			})
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	cmd.Flags().String("data-dir", "", "Override the data directory")
	cmd.Flags().BoolP("verbose", "v", false, "Enable debug logging")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(configCheckCmd(), configInitCmd())
	return cmd
}

func configCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			ids := config.Resolve(cfg)
			fmt.Printf("Configuration OK (%d modules)\n", len(ids))
			for _, id := range ids {
				fmt.Printf("  %s\n", id)
			}
			return nil
		},
	}
}

func configInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively generate a configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			outPath, _ := cmd.Flags().GetString("output")

			var (
				providers = []string{"openai", "anthropic"}
				bind      = "127.0.0.1:8080"
				useSQLite = true
			)

			form := huh.NewForm(
				huh.NewGroup(
					huh.NewMultiSelect[string]().
						Title("Which providers should be in the fallback order?").
						Options(
							huh.NewOption("OpenAI", "openai").Selected(true),
							huh.NewOption("Anthropic", "anthropic").Selected(true),
							huh.NewOption("Google Gemini", "gemini"),
							huh.NewOption("OpenRouter", "openrouter"),
						).
						Value(&providers),
					huh.NewInput().
						Title("HTTP bind address").
						Value(&bind),
					huh.NewConfirm().
						Title("Store generation history in a local SQLite database?").
						Value(&useSQLite),
				),
			)
			if err := form.Run(); err != nil {
				return err
			}
			if len(providers) == 0 {
				return fmt.Errorf("at least one provider is required")
			}

			content := renderConfig(providers, bind, useSQLite)
			if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(outPath, []byte(content), 0o600); err != nil {
				return err
			}

			fmt.Printf("Wrote %s\n", outPath)
			fmt.Println("Set the provider API keys via environment variables before starting:")
			for _, p := range providers {
				fmt.Printf("  %s\n", keyEnvFor(p))
			}
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "sparkgen.yaml", "Where to write the configuration")
	return cmd
}

// renderConfig builds a starter YAML config with the chosen providers in
// their default priority order.
func renderConfig(providers []string, bind string, useSQLite bool) string {
	var b strings.Builder
	b.WriteString("version: \"1\"\n\nmodules:\n")

	for _, p := range providers {
		fmt.Fprintf(&b, "  provider.%s:\n    api_key_env: %s\n", p, keyEnvFor(p))
	}

	if useSQLite {
		b.WriteString("  store.sqlite: {}\n")
	}

	fmt.Fprintf(&b, "  gateway.http:\n    bind: %s\n", bind)
	return b.String()
}

func keyEnvFor(providerName string) string {
	return strings.ToUpper(providerName) + "_API_KEY"
}

func providersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Provider operations",
	}
	cmd.AddCommand(providersTestCmd())
	return cmd
}

// providersTestCmd loads the configured modules and fires a connectivity
// prompt at one provider, bypassing the fallback chain.
func providersTestCmd() *cobra.Command {
	testCmd := &cobra.Command{
		Use:   "test <name>",
		Short: "Send a connectivity test prompt to one provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			cfgPath, _ := cmd.Flags().GetString("config")
			if cfgPath == "" {
				resolved, err := app.ResolveConfigPath()
				if err != nil {
					return err
				}
				cfgPath = resolved
			}

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelWarn,
			}))
			appCtx := core.NewAppContext(logger, app.DefaultDataDir())
			appCtx = appCtx.WithModuleConfigs(cfg.Modules)

			application := core.NewApp(appCtx)
			if err := application.LoadModules(config.Resolve(cfg)); err != nil {
				return err
			}
			defer application.Stop()

			candidate, err := findCandidate(application, cfg, name)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			start := time.Now()
			result, err := candidate.Generate(ctx, provider.GenerationRequest{
				Prompt:    "Teste de conectividade. Responda apenas OK.",
				MaxTokens: 10,
				UserID:    "cli",
				Context:   "provider_test",
			})
			if err != nil {
				return fmt.Errorf("%s test failed (%s): %w", name, provider.KindOf(err), err)
			}

			fmt.Printf("%s OK (model %s, %v)\n", name, result.Model, time.Since(start).Truncate(time.Millisecond))
			return nil
		},
	}
	testCmd.Flags().StringP("config", "c", "", "Path to configuration file")
	return testCmd
}

func findCandidate(application *core.App, cfg *config.Config, name string) (provider.Candidate, error) {
	for _, id := range config.Resolve(cfg) {
		mod, ok := application.Module(id)
		if !ok {
			continue
		}
		if c, ok := mod.(provider.Candidate); ok && c.Describe().Name == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("provider %q is not configured", name)
}
