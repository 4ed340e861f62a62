package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"newsbias/internal/bootstrap"
	"newsbias/internal/usecase"
)

type evaluator interface {
	Evaluate(ctx context.Context, in usecase.EvaluateInput) (usecase.EvaluateOutput, error)
}

func newEvaluateCmd() *cobra.Command {
	var (
		articleURL  string
		summary     string
		summaryFile string
		printPrompt bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score an AI-generated summary against its source article",
		Long: `Fetch the article at --url, collect policy context and external news
references, and print the model's bias/accuracy evaluation of the summary.
The summary is read from --summary, --summary-file, or stdin when the file is "-".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := readSummary(summary, summaryFile, cmd.InOrStdin())
			if err != nil {
				return err
			}

			cfg, awsCfg, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			svc, err := bootstrap.NewEvaluateService(contextOf(cmd), cfg, bootstrap.NewClients(awsCfg))
			if err != nil {
				return err
			}
			return runEvaluate(contextOf(cmd), svc, usecase.EvaluateInput{
				ArticleURL: articleURL,
				Summary:    text,
			}, cmd.OutOrStdout(), printPrompt)
		},
	}

	cmd.Flags().StringVar(&articleURL, "url", "", "URL of the original article")
	cmd.Flags().StringVar(&summary, "summary", "", "AI-generated summary to evaluate")
	cmd.Flags().StringVar(&summaryFile, "summary-file", "", "Read the summary from a file (\"-\" for stdin)")
	cmd.Flags().BoolVar(&printPrompt, "print-prompt", false, "Print the assembled prompt before the result")
	_ = cmd.MarkFlagRequired("url")
	cmd.MarkFlagsMutuallyExclusive("summary", "summary-file")

	return cmd
}

func readSummary(inline, path string, stdin io.Reader) (string, error) {
	switch {
	case inline != "":
		return inline, nil
	case path == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read summary from stdin: %w", err)
		}
		return string(b), nil
	case path != "":
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read summary file: %w", err)
		}
		return string(b), nil
	default:
		return "", errors.New("one of --summary or --summary-file is required")
	}
}

func runEvaluate(ctx context.Context, svc evaluator, in usecase.EvaluateInput, w io.Writer, printPrompt bool) error {
	out, err := svc.Evaluate(ctx, in)
	if err != nil {
		return err
	}
	if printPrompt {
		fmt.Fprintf(w, "Prompt:\n%s\n\n", out.Prompt)
	}
	fmt.Fprintf(w, "Evaluation Result:\n%s\n", strings.TrimRight(out.Result, "\n"))
	return nil
}
