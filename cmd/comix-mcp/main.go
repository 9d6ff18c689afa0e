// Command comix-mcp serves the comic generator as a Model Context Protocol
// tool over stdio.
package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/comix-generator/internal/cli"
	"github.com/fpang/comix-generator/internal/config"
	"github.com/fpang/comix-generator/internal/controller"
	"github.com/fpang/comix-generator/internal/logging"
)

var commitHash = "dev"

// CLI flags
var (
	endpointFlag string
	timeoutFlag  time.Duration
	tokenFlag    string
	envFileFlag  string
	emfFlag      bool
)

var rootCmd = &cobra.Command{
	Use:   "comix-mcp",
	Short: "Serve the comic generator as an MCP tool over stdio",
	Long: `comix-mcp exposes one tool, generate_comic, to MCP clients. The tool takes
an optional title and exactly three captions and returns the three panels and
the composite strip as image content.

Logs go to stderr; stdout carries the protocol.

Examples:
  comix-mcp
  comix-mcp --endpoint http://localhost:8000/generate-images --timeout 3m`,
	Args: cobra.NoArgs,
	Run:  runMain,
}

func init() {
	rootCmd.Flags().StringVar(&endpointFlag, "endpoint", "", "Generation endpoint URL (default from COMIX_ENDPOINT)")
	rootCmd.Flags().DurationVar(&timeoutFlag, "timeout", controller.DefaultTimeout, "How long each generation may take")
	rootCmd.Flags().StringVar(&tokenFlag, "token", "", "Access token or the link containing it (default from COMIX_TOKEN)")
	rootCmd.Flags().StringVar(&envFileFlag, "env-file", config.DefaultEnvFile, "Optional dotenv file with COMIX_* settings")
	rootCmd.Flags().BoolVar(&emfFlag, "emf", false, "Write CloudWatch EMF metrics to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(cli.ExitError)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	logging.Init()

	cfg, err := config.Load(envFileFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if cfg.LogLevel != "" {
		logging.InitWithWriter(os.Stderr, cfg.LogLevel)
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
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	logging.NewStartupLogger("comix-mcp").
		CommitHash(commitHash).
		SSMParam("token", cfg.TokenSSMParam).
		Config("endpoint", cfg.Endpoint).
		Config("timeout", cfg.Timeout.String()).
		Feature("emf", emfFlag).
		Log()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client, token := cli.InitGenerator(ctx, cfg, "comix-mcp/"+commitHash)
	g := &generator{
		gen:     client,
		timeout: cfg.Timeout,
		token:   token,
		status:  os.Stderr,
		label:   "comix-mcp",
	}
	if emfFlag {
		g.emf = os.Stderr
	}

	server := newServer(g)
	log.Info().Str("endpoint", cfg.Endpoint).Msg("Serving generate_comic over stdio")
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("MCP server stopped")
	}
}

func newServer(g *generator) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "comix-generator", Version: commitHash}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_comic",
		Description: "Generate a three-panel comic strip from a title and exactly three captions.",
	}, g.handle)
	return server
}
