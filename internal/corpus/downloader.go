// Package corpus mirrors the approved-corpus bucket to a local directory.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// DefaultBucketTemplate names the corpus bucket after the caller's account and region.
const DefaultBucketTemplate = "news-corpus-{account}-{region}"

type s3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type stsAPI interface {
	GetCallerIdentity(ctx context.Context, in *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Report summarises one download run.
type Report struct {
	Bucket     string
	Downloaded int
	Skipped    int
}

// Options controls where and how objects are written.
type Options struct {
	Dir       string
	Overwrite bool
}

type Downloader struct {
	s3  s3API
	sts stsAPI
}

func NewDownloader(s3Client s3API, stsClient stsAPI) (*Downloader, error) {
	if s3Client == nil {
		return nil, errors.New("corpus: s3 client must not be nil")
	}
	if stsClient == nil {
		return nil, errors.New("corpus: sts client must not be nil")
	}
	return &Downloader{s3: s3Client, sts: stsClient}, nil
}

// BucketName fills the {account} and {region} placeholders of template.
func BucketName(template, account, region string) string {
	if strings.TrimSpace(template) == "" {
		template = DefaultBucketTemplate
	}
	r := strings.NewReplacer("{account}", account, "{region}", region)
	return r.Replace(template)
}

// ResolveBucket looks up the caller's account id and builds the bucket name.
func (d *Downloader) ResolveBucket(ctx context.Context, template, region string) (string, error) {
	if strings.TrimSpace(region) == "" {
		return "", errors.New("corpus: region is required")
	}
	out, err := d.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("corpus: get caller identity: %w", err)
	}
	account := aws.ToString(out.Account)
	if account == "" {
		return "", errors.New("corpus: caller identity has no account id")
	}
	return BucketName(template, account, region), nil
}

// Download copies every object of bucket into opts.Dir, following list
// continuation tokens. Existing files are kept unless opts.Overwrite is set.
func (d *Downloader) Download(ctx context.Context, bucket string, opts Options) (Report, error) {
	report := Report{Bucket: bucket}
	if strings.TrimSpace(bucket) == "" {
		return report, errors.New("corpus: bucket is required")
	}
	if strings.TrimSpace(opts.Dir) == "" {
		return report, errors.New("corpus: target directory is required")
	}
	root, err := filepath.Abs(opts.Dir)
	if err != nil {
		return report, fmt.Errorf("corpus: resolve target directory: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return report, fmt.Errorf("corpus: create target directory: %w", err)
	}

	p := s3.NewListObjectsV2Paginator(d.s3, &s3.ListObjectsV2Input{Bucket: aws.String(bucket)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return report, fmt.Errorf("corpus: list %q: %w", bucket, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == "" || strings.HasSuffix(key, "/") {
				continue
			}
			dest, err := localPath(root, key)
			if err != nil {
				return report, err
			}
			if !opts.Overwrite && fileExists(dest) {
				slog.Debug("corpus object already present", "key", key)
				report.Skipped++
				continue
			}
			if err := d.fetch(ctx, bucket, key, dest); err != nil {
				return report, err
			}
			report.Downloaded++
		}
	}
	return report, nil
}

func (d *Downloader) fetch(ctx context.Context, bucket, key, dest string) error {
	out, err := d.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("corpus: get %q: %w", key, err)
	}
	defer func() { _ = out.Body.Close() }()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("corpus: create directory for %q: %w", key, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".corpus-*")
	if err != nil {
		return fmt.Errorf("corpus: create temp file for %q: %w", key, err)
	}
	if _, err := io.Copy(tmp, out.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("corpus: write %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("corpus: close %q: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("corpus: move %q into place: %w", key, err)
	}
	return nil
}

// localPath maps an object key under root, rejecting keys that escape it.
func localPath(root, key string) (string, error) {
	dest := filepath.Join(root, filepath.FromSlash(key))
	rel, err := filepath.Rel(root, dest)
	if err != nil || rel == "." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return "", fmt.Errorf("corpus: object key %q escapes target directory", key)
	}
	return dest, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
