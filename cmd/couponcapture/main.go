package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/RDL-Tech-Solutions/MTW-sub002/docs"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "couponcapture",
		Short:         "coupon capture service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		serveCommand(),
		captureCommand(),
		expireCommand(),
		verifyCommand(),
		cleanupCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
