// Package cli provides the Cobra command tree and output wiring for domainlens.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tbckr/domainlens/internal/config"
	"github.com/tbckr/domainlens/internal/output"
	"github.com/tbckr/domainlens/internal/version"
	"github.com/tbckr/domainlens/internal/worker"
)

// newRootCmd builds the top-level Cobra command.
// Callers must set stdout/stderr via cmd.SetOut / cmd.SetErr before Execute.
func newRootCmd() *cobra.Command {
	// d is populated by PersistentPreRunE before any subcommand's RunE runs.
	// Cobra only executes the innermost PersistentPreRunE in the command
	// chain, so subcommands must not define their own unless they also skip
	// the need for d (see completion).
	var d deps

	cmd := &cobra.Command{
		Use:   "domainlens",
		Short: "domainlens analyzes the mail and web stack of a domain",
		Long: `domainlens resolves the MX records of a domain and fingerprints the
technologies of its website, merging both into one cached analysis.

Run "domainlens serve" for the HTTP API or "domainlens analyze" for one-off lookups.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			resolved, err := buildDeps(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			d = *resolved
			return nil
		},
	}

	config.RegisterFlags(cmd.PersistentFlags())
	config.RegisterFlagCompletions(cmd)

	cmd.Version = version.Version
	cmd.SetVersionTemplate("domainlens version {{.Version}}\n")

	cmd.AddGroup(
		&cobra.Group{ID: "analysis", Title: "Analysis Commands:"},
		&cobra.Group{ID: "utility", Title: "Utility Commands:"},
	)

	cmd.AddCommand(
		newAnalyzeCmd(&d),
		newServeCmd(&d),
		newConfigCmd(&d),
		newCompletionCmd(),
		newVersionCmd(&d),
	)

	return cmd
}

// Execute builds the root command and runs it with args (without the
// program name).
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.ExecuteContext(ctx)
}

// resolveInputs returns positional args, or reads non-empty lines from stdin when
// no args are provided. Returns an error if stdin is an interactive terminal with
// no args (i.e. the user forgot to pass an argument or pipe input).
func resolveInputs(cmd *cobra.Command, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	r := cmd.InOrStdin()
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec // file descriptors fit in int
		return nil, fmt.Errorf("no input: pass a domain or pipe stdin")
	}
	return worker.ReadInputs(r)
}

// writeResult formats and writes a result to stdout.
func writeResult(stdout io.Writer, d *deps, result any) error {
	if err := output.Write(stdout, output.Format(d.cfg.Output), result); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// newLogger returns the text logger used by every command. Debug output is
// enabled by --verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
