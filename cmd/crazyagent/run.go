package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rahul/crazyagent/internal/action"
	"github.com/rahul/crazyagent/internal/session"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <instruction>",
	Short: "Compile and execute an instruction",
	Long: `Run compiles an instruction and executes its steps against the
configured UI tree provider, printing each step as it completes.
Interrupting the command cancels the run at the next step boundary.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return execute(ctx, cmd.OutOrStdout(), rt.session, strings.Join(args, " "))
}

// execute submits one instruction and prints its progress. A failed run is
// returned as an error wrapping the failure reason.
func execute(ctx context.Context, out io.Writer, sess *session.Session, instruction string) error {
	result, err := sess.Submit(ctx, instruction, func(se action.StepExecution) {
		fmt.Fprintln(out, session.FormatExecution(se))
	})
	if err != nil {
		return err
	}
	if result.Failed() {
		return result.Err()
	}
	fmt.Fprintln(out, result.Message)
	return nil
}
