package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/code-payments/billing-bridge/billing"
	"github.com/code-payments/billing-bridge/billing/android"
	"github.com/code-payments/billing-bridge/billing/apple"
	"github.com/code-payments/billing-bridge/billing/memory"
	"github.com/code-payments/billing-bridge/channel"
)

// codec is a platform normalizer that can also render native payloads.
type codec interface {
	billing.Normalizer
	memory.Encoder
}

func codecFor(p billing.Platform) (codec, error) {
	switch p {
	case billing.PlatformIOS:
		return apple.NewNormalizer(), nil
	case billing.PlatformAndroid:
		return android.NewNormalizer(), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", p)
	}
}

// runWithClient dials the method channel, configures the native layer and
// runs op. A non-nil result is printed as JSON.
func runWithClient(cmd *cobra.Command, op func(ctx context.Context, client *billing.Client) (any, error)) error {
	p, err := cfg.ParsedPlatform()
	if err != nil {
		return err
	}
	if err := cfg.RequireCredentials(p); err != nil {
		return err
	}
	normalizer, err := codecFor(p)
	if err != nil {
		return err
	}

	cc, err := grpc.NewClient(cfg.ChannelAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to create connection: %w", err)
	}
	defer cc.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	client := billing.NewClient(log, channel.NewClient(log, cc), normalizer, cfg.ClientOptions()...)
	if err := client.Configure(ctx, cfg.Credentials()); err != nil {
		return err
	}

	res, err := op(ctx, client)
	if err != nil {
		return err
	}
	if res == nil {
		return nil
	}
	return printJSON(cmd.OutOrStdout(), res)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
