package commands

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/code-payments/billing-bridge/billing/memory"
	"github.com/code-payments/billing-bridge/channel"
	"github.com/code-payments/billing-bridge/metrics"
)

// serve: expose a sandbox native layer over the method channel.
func serveCmd() *cobra.Command {
	var (
		listenAddr  string
		metricsAddr string
		open        bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a sandbox native billing layer behind a method channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listenAddr == "" {
				listenAddr = cfg.ListenAddr
			}
			if metricsAddr == "" {
				metricsAddr = cfg.MetricsAddr
			}

			p, err := cfg.ParsedPlatform()
			if err != nil {
				return err
			}
			encoder, err := codecFor(p)
			if err != nil {
				return err
			}

			var opts []memory.Option
			if open {
				opts = append(opts, memory.WithoutAuthentication())
			}
			sandbox := memory.NewInvoker(encoder, demoCatalog(), opts...)

			reg := metrics.NewRegistry()
			serv := channel.NewGRPCServer(log, channel.NewServer(log, metrics.NewInvoker(sandbox, reg)))

			lis, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var metricsServer *http.Server
			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", reg.Handler())
				metricsServer = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

				go func() {
					if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Warn("Metrics server stopped", zap.Error(err))
					}
				}()
			}

			log.Info("Serving billing method channel",
				zap.String("addr", lis.Addr().String()),
				zap.String("platform", p.String()),
				zap.String("metrics_addr", metricsAddr),
			)
			return runChannel(ctx, log, serv, lis, metricsServer)
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (default BILLING_LISTEN_ADDR)")
	cmd.Flags().StringVar(&metricsAddr, "metrics", "", "prometheus listen address (default BILLING_METRICS_ADDR)")
	cmd.Flags().BoolVar(&open, "open", false, "serve every method without a prior configure")
	return cmd
}

// runChannel serves the method channel until ctx is done or Serve fails. In
// both cases the channel and metrics servers are stopped before it returns.
func runChannel(ctx context.Context, log *zap.Logger, serv *grpc.Server, lis net.Listener, metricsServer *http.Server) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)

		<-ctx.Done()
		log.Info("Shutting down")
		serv.GracefulStop()
		if metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				log.Warn("Failed to shutdown metrics server", zap.Error(err))
			}
		}
	}()

	err := serv.Serve(lis)
	if errors.Is(err, grpc.ErrServerStopped) {
		// Stopped before Serve got going.
		err = nil
	}
	if err != nil {
		log.Warn("Method channel stopped", zap.Error(err))
	}
	cancel()
	<-stopped
	return err
}
