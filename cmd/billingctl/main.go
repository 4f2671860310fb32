package main

import (
	"os"

	"github.com/code-payments/billing-bridge/cmd/billingctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
