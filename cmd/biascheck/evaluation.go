package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"newsbias/internal/bootstrap"
	"newsbias/internal/domain"
	"newsbias/internal/repository"
)

type evaluationReader interface {
	GetEvaluation(ctx context.Context, id string) (domain.Evaluation, error)
}

func newEvaluationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluation",
		Short: "Inspect recorded evaluations",
	}
	cmd.AddCommand(newEvaluationGetCmd())
	return cmd
}

func newEvaluationGetCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get <evaluation-id>",
		Short: "Print a recorded evaluation from the store table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, awsCfg, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			store, err := bootstrap.NewEvaluationStore(cfg, bootstrap.NewClients(awsCfg))
			if err != nil {
				return err
			}
			return runGetEvaluation(contextOf(cmd), store, args[0], cmd.OutOrStdout(), asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the record as JSON")
	return cmd
}

func runGetEvaluation(ctx context.Context, store evaluationReader, id string, w io.Writer, asJSON bool) error {
	e, err := store.GetEvaluation(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("evaluation %s not found", id)
	}
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(e)
	}
	fmt.Fprintf(w, "ID: %s\nArticle: %s\nModel: %s\nCreated: %s\n\nSummary:\n%s\n\nEvaluation Result:\n%s\n",
		e.ID, e.ArticleURL, e.ModelID, e.CreatedAt.Format(time.RFC3339), e.Summary, e.Result)
	return nil
}
