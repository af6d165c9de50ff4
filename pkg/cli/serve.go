package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/soapconnect/pkg/connector"
	"github.com/getmockd/soapconnect/pkg/gateway"
	"github.com/getmockd/soapconnect/pkg/metrics"
	"github.com/getmockd/soapconnect/pkg/ratelimit"
)

// DefaultGatewayAddr is the default listen address of serve.
const DefaultGatewayAddr = ":8089"

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		addr           string
		rateLimit      float64
		burst          int
		trustedProxies []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the operation table as an HTTP gateway",
		Long: `Serve the operation table as an HTTP gateway.

Routes:
  GET  /health                 readiness check
  GET  /metrics                Prometheus metrics
  GET  /operations             exposed operations
  POST /operations/{name}      invoke with a JSON body
  POST /jsonToXML/{name}       encode a JSON body as request XML
  POST /xmlToJSON/{name}       decode a response envelope`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m := metrics.Init()
			s, err := opts.newSession(cmd, m)
			if err != nil {
				return err
			}
			defer s.Close()

			gwOpts := []gateway.Option{gateway.WithLogger(s.logger), gateway.WithMetrics(m)}
			if rateLimit > 0 {
				gwOpts = append(gwOpts, gateway.WithRateLimit(ratelimit.Config{
					Rate:           rateLimit,
					Burst:          burst,
					TrustedProxies: trustedProxies,
				}))
			}
			gw := gateway.New(s.conn, gwOpts...)

			// Connect in the background so the gateway can answer /health
			// while the capability document loads.
			s.conn.ConnectAsync(func(t *connector.Table, err error) {
				if err != nil {
					s.logger.Warn("initial connect failed; will retry on demand", "error", err)
					return
				}
				s.logger.Info("operation table ready", "operations", t.Len())
			})

			if err := gw.Start(addr); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "gateway listening on %s\n", gw.Addr())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return gw.Stop(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", DefaultGatewayAddr, "Listen address")
	cmd.Flags().Float64Var(&rateLimit, "rate-limit", 0, "Requests per second per client IP (0 = unlimited)")
	cmd.Flags().IntVar(&burst, "burst", 0, "Rate limit burst (default: twice the rate)")
	cmd.Flags().StringSliceVar(&trustedProxies, "trusted-proxy", nil, "CIDR or IP whose X-Forwarded-For is trusted")
	return cmd
}
