package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// PingOutput is the --json form of ping.
type PingOutput struct {
	Connected  bool   `json:"connected"`
	Operations int    `json:"operations,omitempty"`
	Error      string `json:"error,omitempty"`
}

func newPingCmd(opts *rootOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that the service's capability document can be loaded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.newSession(cmd, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			out := cmd.OutOrStdout()
			if err := s.conn.Ping(ctx); err != nil {
				_ = opts.printResult(out, PingOutput{Error: err.Error()}, func() {})
				return err
			}

			n := s.conn.Table().Len()
			return opts.printResult(out, PingOutput{Connected: true, Operations: n}, func() {
				fmt.Fprintf(out, "connected (%d operations)\n", n)
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up after this long (default: settings connectionTimeout)")
	return cmd
}
