package commands

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/code-payments/billing-bridge/config"
)

var (
	envFile  string
	addr     string
	platform string
	timeout  time.Duration

	cfg *config.Config
	log *zap.Logger
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "billingctl",
		Short:         "Drive a native billing layer over its method channel",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(envFile)
			if err != nil {
				return err
			}
			if addr != "" {
				loaded.ChannelAddr = addr
			}
			if platform != "" {
				loaded.Platform = platform
			}

			l, err := loaded.NewLogger()
			if err != nil {
				return err
			}

			cfg, log = loaded, l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				_ = log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional env file with BILLING_* settings")
	root.PersistentFlags().StringVar(&addr, "addr", "", "method channel address (default BILLING_CHANNEL_ADDR)")
	root.PersistentFlags().StringVar(&platform, "platform", "", "native platform, ios or android (default BILLING_PLATFORM)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "deadline for each command")

	root.AddCommand(
		serveCmd(),
		configureCmd(),
		productsCmd(),
		purchaseCmd(),
		subscriptionsCmd(),
		productIDsCmd(),
		entitlementsCmd(),
		itemsCmd(),
		plansCmd(),
	)
	return root
}
