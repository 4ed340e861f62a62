package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"newsbias/internal/bootstrap"
	"newsbias/internal/corpus"
)

func newCorpusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Manage the local copy of the approved corpus",
	}
	cmd.AddCommand(newCorpusDownloadCmd())
	return cmd
}

func newCorpusDownloadCmd() *cobra.Command {
	var (
		dir       string
		bucket    string
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download every object of the approved-corpus bucket",
		Long: `Download all objects of the corpus bucket into a local directory. The bucket
defaults to the configured template filled with the caller's account id and
region. Existing files are kept unless --overwrite is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, awsCfg, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			d, err := bootstrap.NewCorpusDownloader(bootstrap.NewClients(awsCfg))
			if err != nil {
				return err
			}

			ctx := contextOf(cmd)
			if bucket == "" {
				region, err := cfg.CorpusRegion()
				if err != nil {
					return err
				}
				bucket, err = d.ResolveBucket(ctx, cfg.Corpus.BucketTemplate, region)
				if err != nil {
					return err
				}
			}
			if dir == "" {
				dir = cfg.Corpus.Dir
			}

			report, err := d.Download(ctx, bucket, corpus.Options{Dir: dir, Overwrite: overwrite})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Bucket: %s\nDownloaded: %d\nSkipped: %d\n",
				report.Bucket, report.Downloaded, report.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Target directory (defaults to corpus.dir)")
	cmd.Flags().StringVar(&bucket, "bucket", "", "Bucket name (overrides the derived name)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace files that already exist locally")
	return cmd
}
