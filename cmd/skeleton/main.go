// skeleton 从远端 hub 拉取仓库文件树，在本地生成同构的占位骨架。
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fake-hub/fake-hub/internal/config"
	"github.com/fake-hub/fake-hub/internal/hub"
	"github.com/fake-hub/fake-hub/internal/skeleton"
	"github.com/fake-hub/fake-hub/internal/version"
)

var (
	flagRepoType    string
	flagRevision    string
	flagEndpoint    string
	flagToken       string
	flagHubRoot     string
	flagDst         string
	flagIncludes    []string
	flagExcludes    []string
	flagMaxFiles    int
	flagTimeout     time.Duration
	flagForce       bool
	flagDryRun      bool
	flagFill        bool
	flagFillSize    string
	flagFillContent string
	flagVerbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "skeleton <repo_id>",
	Short: "Materialize a repository skeleton from a remote hub",
	Long: "Fetch the file tree of a remote repository and recreate it locally\n" +
		"as empty or pattern-filled placeholder files, plus a digest sidecar.",
	Version: version.Full(),
	Args:    cobra.ExactArgs(1),
	RunE:    runSkeleton,
}

func init() {
	rootCmd.Flags().StringVarP(&flagRepoType, "repo-type", "t", "", "repository type: model or dataset (required)")
	rootCmd.Flags().StringVarP(&flagRevision, "revision", "r", "main", "revision to fetch the tree for")
	rootCmd.Flags().StringVarP(&flagEndpoint, "endpoint", "e", "", "remote hub endpoint (default: HF_REMOTE_ENDPOINT or https://huggingface.co)")
	rootCmd.Flags().StringVar(&flagToken, "token", "", "bearer token for the remote hub (default: HF_TOKEN)")
	rootCmd.Flags().StringVar(&flagHubRoot, "hub-root", "", "local hub root (default: HubRoot from config, FAKE_HUB_ROOT aware)")
	rootCmd.Flags().StringVar(&flagDst, "dst", "", "explicit destination directory, overrides the hub layout")
	rootCmd.Flags().StringArrayVar(&flagIncludes, "include", nil, "glob pattern to include (repeatable)")
	rootCmd.Flags().StringArrayVar(&flagExcludes, "exclude", nil, "glob pattern to exclude (repeatable)")
	rootCmd.Flags().IntVar(&flagMaxFiles, "max-files", -1, "keep at most N files after filtering (-1 = unlimited)")
	rootCmd.Flags().DurationVar(&flagTimeout, "timeout", 30*time.Second, "remote tree fetch timeout (default: UpstreamTimeout from config)")
	rootCmd.Flags().BoolVar(&flagForce, "force", false, "overwrite existing files")
	rootCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "print the placement plan without touching disk")
	rootCmd.Flags().BoolVar(&flagFill, "fill", false, "fill placeholder files instead of leaving them empty")
	rootCmd.Flags().StringVar(&flagFillSize, "fill-size", "", "placeholder file size, e.g. 16MiB (implies --fill)")
	rootCmd.Flags().StringVar(&flagFillContent, "fill-content", "FAKE", "byte pattern repeated to fill placeholder files")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	rootCmd.MarkFlagRequired("repo-type")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSkeleton(cmd *cobra.Command, args []string) error {
	repoID := args[0]

	kind, err := hub.ParseRepoKind(flagRepoType)
	if err != nil {
		return err
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if flagVerbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	// 服务端同款配置提供 HubRoot 与超时的默认值，文件缺失时走内置默认。
	cfg, err := config.Load(os.Getenv("FAKE_HUB_CONFIG"))
	if err != nil {
		return err
	}

	endpoint := flagEndpoint
	if endpoint == "" {
		endpoint = os.Getenv("HF_REMOTE_ENDPOINT")
	}
	if endpoint == "" {
		endpoint = "https://huggingface.co"
	}
	token := flagToken
	if token == "" {
		token = os.Getenv("HF_TOKEN")
	}
	hubRoot := flagHubRoot
	if hubRoot == "" {
		hubRoot = cfg.Global.HubRoot
	}
	timeout := flagTimeout
	if !cmd.Flags().Changed("timeout") {
		timeout = cfg.Global.UpstreamTimeout.DurationValue()
	}

	fill, err := buildFillSpec(cmd)
	if err != nil {
		return err
	}

	opts := skeleton.Options{
		Kind:       kind,
		RepoID:     repoID,
		Revision:   flagRevision,
		HubRoot:    hubRoot,
		DstRoot:    flagDst,
		Includes:   flagIncludes,
		Excludes:   flagExcludes,
		MaxEntries: flagMaxFiles,
		Fill:       fill,
		Force:      flagForce,
		DryRun:     flagDryRun,
	}

	client := skeleton.NewClient(endpoint, token, timeout)
	result, err := skeleton.NewMaterializer(client, logger).Materialize(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("materialize %s: %w", repoID, err)
	}

	if flagDryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "dry run: %d files would be created under %s\n", len(result.Created), result.Root)
		for _, rel := range result.Created {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", rel)
		}
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created %d files under %s\n", len(result.Created), result.Root)
	fmt.Fprintf(cmd.OutOrStdout(), "sidecar: %s\n", result.SidecarPath)
	return nil
}

// buildFillSpec 把 --fill/--fill-size/--fill-content 组合成 FillSpec。
// 单给 --fill 时默认 16MiB；给了 --fill-size 则隐含 --fill。
func buildFillSpec(cmd *cobra.Command) (*skeleton.FillSpec, error) {
	if !flagFill && !cmd.Flags().Changed("fill-size") {
		return nil, nil
	}
	raw := flagFillSize
	if raw == "" {
		raw = "16MiB"
	}
	size, err := skeleton.ParseFillSize(raw)
	if err != nil {
		return nil, err
	}
	return &skeleton.FillSpec{Size: size, Pattern: []byte(flagFillContent)}, nil
}
