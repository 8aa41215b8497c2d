package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rahul/crazyagent/internal/observability"
	"github.com/rahul/crazyagent/internal/session"
	"github.com/rahul/crazyagent/internal/store"
	"github.com/rahul/crazyagent/internal/uitree"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Read instructions interactively",
	Long: `Repl reads one instruction per line and executes it.
Ctrl-C cancels the instruction being executed; on an empty prompt it exits.

Commands:
  status         show the session state
  history        list recent runs
  history <run>  show the steps of a run (id prefix)
  screen         list the text and clickable nodes of the memory tree
  home           press the provider's home button
  reset          clear the last run
  quit           exit`,
	Args: cobra.NoArgs,
	RunE: runRepl,
}

func init() {
	rootCmd.AddCommand(replCmd)
}

const (
	replPrompt   = "crazyagent> "
	historyLimit = 10
	runIDPrefix  = 8
)

// lineReader is satisfied by *term.Terminal.
type lineReader interface {
	ReadLine() (string, error)
}

type scannerReader struct {
	scanner *bufio.Scanner
}

func (s scannerReader) ReadLine() (string, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.scanner.Text(), nil
}

// runScope derives the context of a single instruction.
type runScope func(context.Context) (context.Context, context.CancelFunc)

func runRepl(cmd *cobra.Command, _ []string) error {
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

	if !observability.IsTerminal(os.Stdin) {
		in := scannerReader{bufio.NewScanner(cmd.InOrStdin())}
		return repl(ctx, in, cmd.OutOrStdout(), rt, context.WithCancel)
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to enter raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	keys := newKeyReader(os.Stdin)
	screen := struct {
		io.Reader
		io.Writer
	}{keys, os.Stdout}
	terminal := term.NewTerminal(screen, replPrompt)
	observability.PrintBanner(terminal)
	return repl(ctx, terminal, terminal, rt, keys.interruptible)
}

// repl executes instructions read from in until EOF, quit or ctx is done.
func repl(ctx context.Context, in lineReader, out io.Writer, rt *runtime, scope runScope) error {
	for ctx.Err() == nil {
		line, err := in.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		command, arg, _ := strings.Cut(line, " ")
		switch strings.ToLower(command) {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "status":
			fmt.Fprintln(out, session.FormatState(rt.session.State()))
			fmt.Fprintln(out, observability.StatusLine())
		case "history":
			if arg = strings.TrimSpace(arg); arg != "" {
				printRunSteps(ctx, out, rt.journal, arg)
			} else {
				printHistory(ctx, out, rt.journal)
			}
		case "screen":
			printScreen(out, rt.holder)
		case "home":
			pressHome(ctx, out, rt.holder)
		case "reset":
			if err := rt.session.Reset(); err != nil {
				fmt.Fprintln(out, "Error:", err)
				continue
			}
			fmt.Fprintln(out, "Ready.")
		default:
			runCtx, done := scope(ctx)
			err := execute(runCtx, out, rt.session, line)
			done()
			if err != nil {
				fmt.Fprintln(out, "Error:", err)
			}
		}
	}
	return nil
}

func shortID(id string) string {
	if len(id) > runIDPrefix {
		return id[:runIDPrefix]
	}
	return id
}

func printHistory(ctx context.Context, out io.Writer, journal *store.Journal) {
	runs, err := journal.Runs(ctx, historyLimit)
	if err != nil {
		fmt.Fprintln(out, "Error:", err)
		return
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs yet.")
		return
	}
	for _, r := range runs {
		fmt.Fprintf(out, "%s  %s  %-8s %2d steps  %s  %s\n",
			shortID(r.ID), r.StartedAt.Format("15:04:05"), r.Status, r.TotalSteps, r.Command, r.Message)
	}
}

// printRunSteps prints the recorded steps of the most recent run whose id
// starts with prefix.
func printRunSteps(ctx context.Context, out io.Writer, journal *store.Journal, prefix string) {
	runs, err := journal.Runs(ctx, 100)
	if err != nil {
		fmt.Fprintln(out, "Error:", err)
		return
	}
	for _, r := range runs {
		if !strings.HasPrefix(r.ID, prefix) {
			continue
		}
		steps, err := journal.Steps(ctx, r.ID)
		if err != nil {
			fmt.Fprintln(out, "Error:", err)
			return
		}
		fmt.Fprintf(out, "%s  %s (%d of %d steps attempted)\n", shortID(r.ID), r.Command, len(steps), r.TotalSteps)
		for _, s := range steps {
			fmt.Fprintf(out, "%2d. %-8s %-14s %s: %s\n", s.Index+1, s.Status, s.Action, s.Description, s.Message)
		}
		return
	}
	fmt.Fprintf(out, "No run matches %q.\n", prefix)
}

func printScreen(out io.Writer, holder *uitree.Holder) {
	tree, ok := holder.Current().(*uitree.Tree)
	if !ok {
		fmt.Fprintln(out, "Screen inspection needs the memory provider.")
		return
	}
	fmt.Fprintln(out, "Text:")
	for _, text := range tree.AllText() {
		fmt.Fprintf(out, "  %s\n", text)
	}
	fmt.Fprintln(out, "Clickable:")
	for _, e := range tree.Clickable() {
		label := e.Label
		if label == "" {
			label = e.Description
		}
		if e.Disabled {
			label += " (disabled)"
		}
		fmt.Fprintf(out, "  %s\n", label)
	}
}

func pressHome(ctx context.Context, out io.Writer, holder *uitree.Holder) {
	homer, ok := holder.Current().(uitree.Homer)
	if !ok {
		fmt.Fprintln(out, "The provider has no home button.")
		return
	}
	pressed, err := homer.PressHome(ctx)
	switch {
	case err != nil:
		fmt.Fprintln(out, "Error:", err)
	case !pressed:
		fmt.Fprintln(out, "Home was not pressed.")
	default:
		fmt.Fprintln(out, "Home.")
	}
}
