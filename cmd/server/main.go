package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"content-targeting-engine/internal/app/server"
	"content-targeting-engine/internal/config"
	"content-targeting-engine/internal/engine"
	"content-targeting-engine/internal/storage"
)

var logLevel string

func main() {
	rootCmd := &cobra.Command{
		Use:   "targeting",
		Short: "Rule-based banners, plays, recommendations and glossary terms",
		RunE:  serveCmd().RunE,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override server.log_level")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(matchCmd())
	rootCmd.AddCommand(termsCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() config.Config {
	cfg := config.Load()
	if logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}
	config.SetupLogging(cfg.Server.LogLevel)
	return cfg
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			server.Run(loadConfig())
			return nil
		},
	}
}

func matchCmd() *cobra.Command {
	var (
		bundlePath string
		recordPath string
		tctx       engine.Context
	)

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Evaluate a content bundle against one record",
		RunE: func(cmd *cobra.Command, args []string) error {
			loadConfig()

			bundle, err := storage.LoadBundleFile(bundlePath)
			if err != nil {
				return err
			}
			rec, err := readRecord(recordPath)
			if err != nil {
				return err
			}

			eng := engine.NewEngine(nil, engine.Options{})
			eng.Install(bundle)
			ctx := cmd.Context()

			return printJSON(map[string]any{
				"banners":         eng.MatchBanners(ctx, rec, tctx),
				"plays":           eng.MatchPlays(ctx, rec, tctx),
				"recommendations": eng.Recommend(ctx, rec, tctx),
			})
		},
	}

	cmd.Flags().StringVar(&bundlePath, "bundle", "", "content bundle YAML")
	cmd.Flags().StringVar(&recordPath, "record", "", "record JSON object")
	cmd.Flags().StringVar(&tctx.ObjectType, "object-type", "", "object type of the record")
	cmd.Flags().StringVar(&tctx.Pipeline, "pipeline", "", "pipeline of the record")
	cmd.Flags().StringVar(&tctx.Stage, "stage", "", "stage of the record")
	_ = cmd.MarkFlagRequired("bundle")
	_ = cmd.MarkFlagRequired("record")
	return cmd
}

func termsCmd() *cobra.Command {
	var bundlePath string

	cmd := &cobra.Command{
		Use:   "terms",
		Short: "Print the glossary term map of a content bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			loadConfig()

			bundle, err := storage.LoadBundleFile(bundlePath)
			if err != nil {
				return err
			}
			eng := engine.NewEngine(nil, engine.Options{})
			eng.Install(bundle)
			return printJSON(eng.Terms())
		},
	}

	cmd.Flags().StringVar(&bundlePath, "bundle", "", "content bundle YAML")
	_ = cmd.MarkFlagRequired("bundle")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the content tables and change triggers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			store, err := storage.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(ctx); err != nil {
				return err
			}
			log.Info().Str("db", cfg.Postgres.DBName).Msg("schema applied")
			return nil
		},
	}
}

func readRecord(path string) (engine.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open record: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	var rec engine.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", path, err)
	}
	return rec, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
