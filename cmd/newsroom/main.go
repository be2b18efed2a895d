// newsroom serves article recommendations, RAG briefings and model
// comparisons over HTTP, and exposes the same tools over MCP.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/matiasleandrokruk/newsroom/internal/infra/config"
	"github.com/matiasleandrokruk/newsroom/internal/logging"
	"github.com/matiasleandrokruk/newsroom/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("newsroom", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	showVersion := fs.Bool("version", false, "Show version information")
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config", "", "Path to a YAML config file")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	}
	if *showHelp {
		printHelp(out)
		return 0
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	}

	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(out, "unknown command %q\n\n", rest[0]) //nolint:errcheck
		printHelp(out)
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(out, err) //nolint:errcheck
		return 1
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	return cmd(cfg, rest[1:], out)
}

type command func(cfg *config.Config, args []string, out io.Writer) int

var commands = map[string]command{
	"serve":  runServe,
	"ingest": runIngest,
	"mcp":    runMCP,
	"token":  runToken,
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func printHelp(out io.Writer) {
	helpText := `newsroom - article recommendations and briefings

Usage:
  newsroom [options] <command> [arguments]

Options:
  --version          Show version information
  --help             Show this help message
  --config <path>    YAML config file (default: $CONFIG_PATH or ./config.yaml)

Commands:
  serve              Start the HTTP server
  ingest [path]      Load a JSON or YAML dataset and embed it
  mcp                Serve the recommend and briefing tools over stdio
  token --subject s  Mint an admin token for the protected routes

Examples:
  newsroom --version
  newsroom serve
  newsroom ingest data/dummy_articles.json
  newsroom token --subject ops`
	fmt.Fprintln(out, helpText) //nolint:errcheck
}
