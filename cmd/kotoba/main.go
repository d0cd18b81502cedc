package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"codeberg.org/snonux/kotoba/internal/cli"
	"codeberg.org/snonux/kotoba/internal/processor"
)

func main() {
	// Create flags instance
	flags := cli.NewFlags()

	// Create root command; every subcommand runs through the processor
	rootCmd := cli.CreateRootCommand(flags, func(cmd *cobra.Command, action cli.Action, args []string) error {
		return runCommand(cmd, action, args, flags)
	})

	// Set up command initialization
	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
	})

	// Execute command
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCommand(cmd *cobra.Command, action cli.Action, args []string, flags *cli.Flags) error {
	// Config file values apply where no flag was given
	cli.ApplyConfig(cmd, flags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	proc := processor.NewProcessor(flags)
	defer proc.Close()

	return proc.Run(ctx, action, args)
}
