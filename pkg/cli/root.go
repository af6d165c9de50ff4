package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// DefaultConfigPath is used when neither --config nor SOAPCONNECT_CONFIG is set.
const DefaultConfigPath = "soapconnect.yaml"

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	logFile    string
	logFileLvl string
	jsonOutput bool
}

// NewRootCommand builds the soapconnect command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "soapconnect",
		Short: "soapconnect calls SOAP services through their WSDL as JSON",
		Long: `soapconnect reads a service's WSDL capability document and exposes every
operation it declares as a JSON-in, JSON-out call. It can list operations,
invoke them, translate payloads between JSON and XML, and serve the whole
operation table as an HTTP gateway.

Settings are read from a YAML or JSON file (--config, SOAPCONNECT_CONFIG,
or ./soapconnect.yaml).`,
		SilenceUsage:  true,
		SilenceErrors: true, // We handle errors in Execute()
	}

	defaultConfig := os.Getenv("SOAPCONNECT_CONFIG")
	if defaultConfig == "" {
		defaultConfig = DefaultConfigPath
	}
	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", defaultConfig, "Settings file (YAML or JSON)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides settings)")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format: text or json (overrides settings)")
	pf.StringVar(&opts.logFile, "log-file", "", "Also append JSON logs to this file")
	pf.StringVar(&opts.logFileLvl, "log-file-level", "debug", "Log level of the --log-file copy")
	pf.BoolVar(&opts.jsonOutput, "json", false, "Output command results in JSON format")

	cmd.AddCommand(
		newOperationsCmd(opts),
		newCallCmd(opts),
		newToXMLCmd(opts),
		newToJSONCmd(opts),
		newPingCmd(opts),
		newServeCmd(opts),
		newValidateCmd(opts),
		newVersionCmd(opts),
	)
	return cmd
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
