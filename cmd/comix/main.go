package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/comix-generator/internal/cli"
	"github.com/fpang/comix-generator/internal/comix"
	"github.com/fpang/comix-generator/internal/config"
	"github.com/fpang/comix-generator/internal/controller"
	"github.com/fpang/comix-generator/internal/logging"
	"github.com/fpang/comix-generator/internal/metrics"
	"github.com/fpang/comix-generator/internal/publish"
	"github.com/fpang/comix-generator/internal/terminal"
)

// Set at build time with -ldflags "-X main.commitHash=... -X main.buildTime=...".
var (
	commitHash = "dev"
	buildTime  = ""
)

// CLI flags
var (
	titleFlag      string
	captionFlags   []string
	outFlag        string
	endpointFlag   string
	timeoutFlag    time.Duration
	tokenFlag      string
	envFileFlag    string
	htmlFlag       bool
	zipFlag        string
	thumbnailsFlag int
	guiFlag        bool
	emfFlag        bool
	s3Flag         string
	linkExpiryFlag time.Duration
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "comix",
	Short: "Generate a three-panel comic strip from captions",
	Long: `comix sends a title and three captions to the comic generation service and
writes the three generated panels and the composite strip to a directory.

Generation usually takes well under a minute; the request is abandoned after
--timeout (default 2m). Missing captions are prompted for when running in a
terminal, or in dialogs with --gui.

Examples:
  comix --title "My Day" --caption "I woke up" --caption "I ate breakfast" --caption "I went to work"
  comix -c "Cat sees box" -c "Cat sits in box" -c "Box is too small" --out ./strips --html
  comix --zip my-day.zip --thumbnails 256
  comix --html --s3 s3://my-bucket/strips --link-expiry 24h
  comix --gui   # Dialog mode - asks for title and captions`,
	Args: cobra.NoArgs,
	Run:  runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&titleFlag, "title", "t", "", "Comic title (optional)")
	rootCmd.Flags().StringArrayVarP(&captionFlags, "caption", "c", nil, "Panel caption; give exactly three")
	rootCmd.Flags().StringVarP(&outFlag, "out", "o", "", "Output directory (default from COMIX_OUTPUT_DIR or ./"+config.DefaultOutputDir+")")
	rootCmd.Flags().StringVar(&endpointFlag, "endpoint", "", "Generation endpoint URL (default from COMIX_ENDPOINT)")
	rootCmd.Flags().DurationVar(&timeoutFlag, "timeout", controller.DefaultTimeout, "How long to wait for the generated images")
	rootCmd.Flags().StringVar(&tokenFlag, "token", "", "Access token or the link containing it (default from COMIX_TOKEN)")
	rootCmd.Flags().StringVar(&envFileFlag, "env-file", config.DefaultEnvFile, "Optional dotenv file with COMIX_* settings")
	rootCmd.Flags().BoolVar(&htmlFlag, "html", false, "Also write index.html showing the strip")
	rootCmd.Flags().StringVar(&zipFlag, "zip", "", "Also bundle the output into this zstd-compressed ZIP file")
	rootCmd.Flags().IntVar(&thumbnailsFlag, "thumbnails", 0, "Write PNG thumbnails with this maximum side (0 = none)")
	rootCmd.Flags().BoolVar(&guiFlag, "gui", false, "Use native dialogs for input and notices")
	rootCmd.Flags().BoolVar(&emfFlag, "emf", false, "Print CloudWatch EMF metrics to stdout")
	rootCmd.Flags().StringVar(&s3Flag, "s3", "", "Also upload the output to s3://bucket/prefix and print share links")
	rootCmd.Flags().DurationVar(&linkExpiryFlag, "link-expiry", publish.DefaultLinkExpiry, "Validity of the share links printed with --s3")
}

// exitCode is set by runMain and returned to the shell once cobra is done.
var exitCode = cli.ExitOK

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(cli.ExitError)
	}
	os.Exit(exitCode)
}

// runMain is the main execution logic called by Cobra.
func runMain(cmd *cobra.Command, args []string) {
	exitCode = run(cmd)
}

// run performs one generation and returns the process exit code.
func run(cmd *cobra.Command) int {
	start := time.Now()
	logging.Init()

	cfg, err := config.Load(envFileFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if cfg.LogLevel != "" {
		logging.InitWithWriter(os.Stderr, cfg.LogLevel)
	}
	applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	var dest publish.Destination
	if s3Flag != "" {
		if dest, err = publish.ParseDestination(s3Flag); err != nil {
			log.Fatal().Err(err).Msg("Invalid --s3 destination")
		}
	}
	if len(captionFlags) > comix.CaptionCount {
		log.Fatal().Int("given", len(captionFlags)).Msgf("At most %d captions can be given", comix.CaptionCount)
	}

	logging.NewStartupLogger("comix").
		CommitHash(commitHash).
		BuildTime(buildTime).
		SSMParam("token", cfg.TokenSSMParam).
		Config("endpoint", cfg.Endpoint).
		Config("outputDir", cfg.OutputDir).
		Config("timeout", cfg.Timeout.String()).
		Feature("html", htmlFlag).
		Feature("zip", zipFlag != "").
		Feature("gui", guiFlag).
		Feature("emf", emfFlag).
		Feature("s3", s3Flag != "").
		InitDuration(time.Since(start)).
		Log()

	title, captions := collectInputs(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client, token := cli.InitGenerator(ctx, cfg, "comix/"+commitHash)

	surface := terminal.NewSurface(os.Stderr, terminal.Options{
		OutputDir:    cfg.OutputDir,
		ThumbnailMax: thumbnailsFlag,
		Dialogs:      guiFlag,
	})

	opts := []controller.Option{
		controller.WithTimeout(cfg.Timeout),
		controller.WithToken(token),
	}
	if emfFlag {
		opts = append(opts, controller.WithObserver(func(o controller.Outcome, elapsed time.Duration) {
			metrics.RecordGeneration(os.Stdout, cfg.Endpoint, o.String(), elapsed)
		}))
	}

	ctrl, err := controller.New(surface.Handles(title, captions), client, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up generation")
	}

	submitted := time.Now()
	outcome, err := ctrl.Submit(ctx)
	if outcome == controller.OutcomeSuccess {
		req, _ := comix.NewGenerationRequest(title, captions[:])
		files, werr := writeExtras(surface, req, cfg.OutputDir, time.Now())
		if werr != nil {
			log.Error().Err(werr).Msg("Failed to write additional output")
			return cli.ExitError
		}
		cli.PrintSummary(os.Stdout, surface.Slots(), time.Since(submitted))
		if s3Flag != "" {
			if perr := publishFiles(ctx, dest, files); perr != nil {
				log.Error().Err(perr).Msg("Failed to publish to S3")
				return cli.ExitError
			}
		}
	}

	return cli.HandleGenerateError(outcome, err)
}

// applyFlags overrides configuration with flags given on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("out") {
		cfg.OutputDir = outFlag
	}
	if cmd.Flags().Changed("endpoint") {
		cfg.Endpoint = endpointFlag
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = timeoutFlag
	}
	if cmd.Flags().Changed("token") {
		cfg.Token = tokenFlag
	}
}

// collectInputs merges flags with interactive answers for anything missing.
func collectInputs(cmd *cobra.Command) (string, [comix.CaptionCount]string) {
	var captions [comix.CaptionCount]string
	copy(captions[:], captionFlags)

	var ask func(label string) string
	switch {
	case guiFlag:
		ask = askDialog
	case isatty.IsTerminal(os.Stdin.Fd()):
		ask = cli.NewPrompter(os.Stdin, os.Stderr).Ask
	default:
		return titleFlag, captions
	}
	return cli.FillInputs(ask, titleFlag, captions, cmd.Flags().Changed("title"))
}

func askDialog(label string) string {
	answer, err := terminal.PromptDialog(label)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			fmt.Fprintln(os.Stderr, "Cancelled.")
			os.Exit(cli.ExitInvalid)
		}
		log.Warn().Err(err).Msg("Dialog unavailable")
		return ""
	}
	return answer
}
