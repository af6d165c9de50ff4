package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/getmockd/soapconnect/pkg/cli/internal/output"
	"github.com/getmockd/soapconnect/pkg/config"
	"github.com/getmockd/soapconnect/pkg/connector"
	"github.com/getmockd/soapconnect/pkg/logging"
	"github.com/getmockd/soapconnect/pkg/metrics"
)

// session is the state shared by commands that talk to a service.
type session struct {
	settings *config.Settings
	logger   *slog.Logger
	conn     *connector.Connector
	closers  []io.Closer
}

func (s *session) Close() {
	for _, c := range s.closers {
		_ = c.Close()
	}
}

// newSession loads settings, builds the logger and creates a connector.
// The connector is not connected yet.
func (o *rootOptions) newSession(cmd *cobra.Command, m *metrics.Metrics) (*session, error) {
	settings, err := config.LoadFromFile(o.configPath)
	if err != nil {
		return nil, err
	}

	s := &session{settings: settings}
	logger, err := o.newLogger(settings, cmd.ErrOrStderr(), s)
	if err != nil {
		return nil, err
	}
	s.logger = logger
	s.conn = connector.New(*settings, connector.WithLogger(logger), connector.WithMetrics(m))
	return s, nil
}

func (o *rootOptions) newLogger(settings *config.Settings, stderr io.Writer, s *session) (*slog.Logger, error) {
	level := settings.Logging.Level
	if o.logLevel != "" {
		level = o.logLevel
	}
	format := settings.Logging.Format
	if o.logFormat != "" {
		format = o.logFormat
	}

	cfg := logging.Config{
		Level:  logging.ParseLevel(level),
		Format: logging.ParseFormat(format),
		Output: stderr,
	}
	if o.logFile != "" {
		f, err := os.OpenFile(o.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		s.closers = append(s.closers, f)
		cfg.Tee = f
		cfg.TeeLevel = logging.ParseLevel(o.logFileLvl)
	}
	return logging.New(cfg), nil
}

// connect waits for the table, bounded by the configured connection timeout.
func (s *session) connect(ctx context.Context) (*connector.Table, error) {
	ctx, cancel := context.WithTimeout(ctx, s.settings.ConnectionTimeoutDuration())
	defer cancel()
	return s.conn.Connect(ctx)
}

// printResult writes data as JSON in --json mode, otherwise calls textFn.
// In JSON mode only the JSON document is written to stdout.
func (o *rootOptions) printResult(w io.Writer, data any, textFn func()) error {
	if o.jsonOutput {
		return output.JSON(w, data)
	}
	textFn()
	return nil
}
