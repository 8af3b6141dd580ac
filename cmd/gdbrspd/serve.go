package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/embedded-tools/gdbrspd/internal/gdbserver"
	"github.com/embedded-tools/gdbrspd/internal/target"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Bind a TCP listener and serve GDB RSP sessions against a target",
		RunE:  runServe,
	}
	cmd.Flags().String("listen", "127.0.0.1:2331", "address to listen on")
	cmd.Flags().String("target", "", "path to a target descriptor JSON file (required)")
	cmd.Flags().Int("hw-breakpoints", 2, "number of hardware breakpoint slots to simulate (0 disables hardware breakpoints)")
	cmd.Flags().Bool("verbose", false, "add microsecond precision to log timestamps")
	cmd.MarkFlagRequired("target")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	listenAddr, err := cmd.Flags().GetString("listen")
	if err != nil {
		return err
	}
	targetPath, err := cmd.Flags().GetString("target")
	if err != nil {
		return err
	}
	hwBreakpoints, err := cmd.Flags().GetInt("hw-breakpoints")
	if err != nil {
		return err
	}
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return err
	}

	logFlags := log.LstdFlags
	if verbose {
		logFlags |= log.Lmicroseconds
	}
	logger := log.New(os.Stderr, "gdbrspd: ", logFlags)

	td, err := loadTargetConfig(targetPath)
	if err != nil {
		return err
	}

	ctrl := target.NewSimulatedController(td.Arch, hwBreakpoints)

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("serve: listen on %s: %w", listenAddr, err)
	}
	logger.Printf("listening on %s (target family %s)", ln.Addr(), td.Family)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := gdbserver.New(ln, td, ctrl, logger)
	err = srv.Serve(ctx)
	if err == context.Canceled {
		logger.Print("shutting down")
		return nil
	}
	return err
}
