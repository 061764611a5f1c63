package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/sonigo"
	"github.com/hupe1980/sonigo/blobstore"
	miniostore "github.com/hupe1980/sonigo/blobstore/minio"
	"github.com/hupe1980/sonigo/blobstore/s3"
)

var (
	similarOptions   string
	similarRoot      string
	similarWorkers   int
	similarTopK      int
	similarChunkSize int
	similarDryRun    bool
	similarStore     string
	similarMaxLoads  int
	similarIOLimit   int64
)

var similarCmd = &cobra.Command{
	Use:   "similar",
	Short: "Batch near-duplicate detection over a clip library",
	Long: `Scan a clip library and write one similarity artifact per directory.

The root must be uniformly laid out: every directory holds either only
subdirectories or only clip files. Each clip directory becomes one unit;
its clips are embedded with the configured model and the pairwise cosine
similarities are reduced to a per-clip neighbor list, stored as
similarities.bin next to the clips.

Units that already have an artifact are skipped, so interrupted runs can
simply be restarted.

Example model options file (model.yaml):
  model_path: simclip.onnx
  sample_rate: 22050
  clip_seconds: 5
  dimension: 512
  mel:
    num_bins: 80
    fft_size: 1024
    hop_length: 256

Examples:
  sonigo similar --options model.yaml --root /data/clips
  sonigo similar --options model.yaml --root /data/clips --workers 8 --top-k 10
  sonigo similar --options model.yaml --root /data/clips --store s3://bucket/prefix
  sonigo similar --options model.yaml --root /data/clips --dry-run -v`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := []sonigo.Option{
			sonigo.WithWorkers(similarWorkers),
			sonigo.WithTopK(similarTopK),
			sonigo.WithChunkSize(similarChunkSize),
			sonigo.WithDryRun(similarDryRun),
			sonigo.WithLogger(newLogger()),
		}

		if similarMaxLoads > 0 || similarIOLimit > 0 {
			opts = append(opts, sonigo.WithResourceLimits(similarMaxLoads, similarIOLimit))
		}

		if similarStore != "" {
			store, err := openStore(cmd.Context(), similarStore)
			if err != nil {
				return err
			}
			opts = append(opts, sonigo.WithStore(store))
		}

		p, err := sonigo.Open(similarOptions, opts...)
		if err != nil {
			return err
		}
		defer p.Close()

		summary, err := p.Run(cmd.Context(), similarRoot)
		if err != nil {
			return err
		}

		fmt.Printf("units=%d processed=%d skipped=%d failed=%d\n",
			summary.Units, summary.Processed, summary.Skipped, summary.Failed)

		if summary.Failed > 0 {
			return fmt.Errorf("%d unit(s) failed", summary.Failed)
		}

		return nil
	},
}

func init() {
	similarCmd.Flags().StringVarP(&similarOptions, "options", "f", "", "model options YAML file (required)")
	similarCmd.Flags().StringVar(&similarRoot, "root", "", "clip library root (required)")
	similarCmd.Flags().IntVar(&similarWorkers, "workers", 0, "worker pool size (default GOMAXPROCS)")
	similarCmd.Flags().IntVar(&similarTopK, "top-k", 0, "neighbors kept per clip")
	similarCmd.Flags().IntVar(&similarChunkSize, "chunk-size", 0, "pairwise scoring chunk size")
	similarCmd.Flags().BoolVar(&similarDryRun, "dry-run", false, "score units without writing artifacts")
	similarCmd.Flags().StringVar(&similarStore, "store", "", "artifact store, e.g. s3://bucket/prefix or local:/path (default: next to clips)")
	similarCmd.Flags().IntVar(&similarMaxLoads, "max-loads", 0, "max concurrent clip loads (0 = unlimited)")
	similarCmd.Flags().Int64Var(&similarIOLimit, "io-limit", 0, "clip read budget in bytes/sec (0 = unlimited)")

	_ = similarCmd.MarkFlagRequired("options")
	_ = similarCmd.MarkFlagRequired("root")
}

// openStore resolves a --store spec into a blobstore implementation.
// Supported forms: s3://bucket[/prefix], minio://endpoint/bucket[/prefix]
// (credentials from MINIO_ACCESS_KEY / MINIO_SECRET_KEY) and local:/path.
func openStore(ctx context.Context, spec string) (blobstore.Store, error) {
	switch {
	case strings.HasPrefix(spec, "s3://"):
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(spec, "s3://"), "/")
		if bucket == "" {
			return nil, fmt.Errorf("invalid store %q: missing bucket", spec)
		}
		var optFns []s3.Option
		if prefix != "" {
			optFns = append(optFns, s3.WithPrefix(prefix))
		}
		return s3.New(ctx, bucket, optFns...)
	case strings.HasPrefix(spec, "minio://"):
		endpoint, rest, _ := strings.Cut(strings.TrimPrefix(spec, "minio://"), "/")
		bucket, prefix, _ := strings.Cut(rest, "/")
		if endpoint == "" || bucket == "" {
			return nil, fmt.Errorf("invalid store %q: want minio://endpoint/bucket[/prefix]", spec)
		}
		client, err := miniogo.New(endpoint, &miniogo.Options{
			Creds:  credentials.NewEnvMinio(),
			Secure: true,
		})
		if err != nil {
			return nil, err
		}
		return miniostore.NewStore(client, bucket, prefix), nil
	case strings.HasPrefix(spec, "local:"):
		root := strings.TrimPrefix(spec, "local:")
		if root == "" {
			return nil, fmt.Errorf("invalid store %q: missing path", spec)
		}
		return blobstore.NewLocalStore(root), nil
	default:
		return nil, fmt.Errorf("unsupported store %q (want s3://bucket[/prefix] or local:/path)", spec)
	}
}
