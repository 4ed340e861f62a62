package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/spf13/cobra"

	"newsbias/internal/bootstrap"
	"newsbias/internal/config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "biascheck",
		Short: "Score AI-generated news summaries for bias and policy compliance",
		Long: `biascheck fetches the original article, gathers approved-corpus context and
related news coverage, and asks a hosted model to score an AI-generated summary
for factual accuracy, bias, and alignment with company policy.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)

			level := "info"
			if err == nil {
				level = cfg.Logging.Level
			}
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				level = "debug"
			}
			slog.SetDefault(bootstrap.NewLogger(os.Stderr, level, "text"))
			if err != nil {
				slog.Debug("configuration not loaded", "path", path, "err", err)
			}

			cmd.SetContext(context.WithValue(contextOf(cmd), loadedConfigKey{}, &loadedConfig{cfg: cfg, err: err}))
			return nil
		},
	}
	root.Version = version
	root.SetVersionTemplate(`{{printf "biascheck version %s\n" .Version}}`)

	root.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	root.PersistentFlags().StringP("config", "c", "", "Path to YAML configuration file")
	root.PersistentFlags().String("region", "", "AWS region (defaults to the SDK chain)")

	root.AddCommand(newEvaluateCmd())
	root.AddCommand(newEvaluationCmd())
	root.AddCommand(newCorpusCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute is the main entry point for the CLI application.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type loadedConfigKey struct{}

// loadedConfig is the result of the single config load done before any
// subcommand runs. Commands that need no configuration ignore err.
type loadedConfig struct {
	cfg *config.Config
	err error
}

// configFor returns the configuration loaded by the root pre-run, loading it
// now when the command runs outside the root.
func configFor(cmd *cobra.Command) (*config.Config, error) {
	if lc, ok := contextOf(cmd).Value(loadedConfigKey{}).(*loadedConfig); ok {
		return lc.cfg, lc.err
	}
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// loadRuntime returns the configuration and the AWS SDK config for a subcommand.
func loadRuntime(cmd *cobra.Command) (*config.Config, aws.Config, error) {
	cfg, err := configFor(cmd)
	if err != nil {
		return nil, aws.Config{}, err
	}

	var opts []func(*awsconfig.LoadOptions) error
	if region, _ := cmd.Flags().GetString("region"); region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
		cfg.Corpus.Region = region
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(contextOf(cmd), opts...)
	if err != nil {
		return nil, aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}
	if cfg.Corpus.Region == "" {
		cfg.Corpus.Region = awsCfg.Region
	}
	return cfg, awsCfg, nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
