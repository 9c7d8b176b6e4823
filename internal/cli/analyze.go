package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tbckr/domainlens/internal/analysis"
	"github.com/tbckr/domainlens/internal/engine"
	"github.com/tbckr/domainlens/internal/worker"
)

func newAnalyzeCmd(d *deps) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "analyze [domain...]",
		Short: "Analyze the MX records and web technologies of domains",
		Long: `Analyze one or more domains. Domains are taken from the arguments or,
when none are given, one per line from stdin (blank lines and # comments are
skipped). URLs and e-mail addresses are reduced to their host.`,
		Example: `  domainlens analyze example.com
  domainlens analyze -o json https://www.example.org/about
  cat domains.txt | domainlens analyze -c 20 -o table`,
		GroupID: "analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := resolveInputs(cmd, args)
			if err != nil {
				return err
			}
			if len(inputs) == 0 {
				return fmt.Errorf("no input: supply a domain as argument or pipe via stdin")
			}

			s, err := d.newStack()
			if err != nil {
				return err
			}
			defer func() {
				if err := s.Close(); err != nil {
					d.logger.Warn("closing resources", "error", err)
				}
			}()

			opts := engine.AnalyzeOptions{Format: d.cfg.Output, Refresh: refresh}
			analyze := func(ctx context.Context, input string) (*analysis.Result, error) {
				return s.engine.Analyze(ctx, input, opts)
			}

			if len(inputs) == 1 {
				result, err := analyze(cmd.Context(), inputs[0])
				if err != nil {
					return err
				}
				logPartial(d, result)
				return writeResult(cmd.OutOrStdout(), d, result)
			}

			// Bulk mode
			results := worker.Run(cmd.Context(), inputs, d.cfg.Concurrency, analyze)
			valid := make(analysis.Results, 0, len(results))
			for _, r := range results {
				if r.Err != nil {
					d.logger.Error("analysis failed", "input", r.Input, "error", r.Err)
					continue
				}
				logPartial(d, r.Output)
				valid = append(valid, r.Output)
			}
			if len(valid) == 0 {
				return fmt.Errorf("all %d analyses failed", len(inputs))
			}
			return writeResult(cmd.OutOrStdout(), d, valid)
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore cached analyses")
	return cmd
}

func logPartial(d *deps, r *analysis.Result) {
	for _, se := range r.SourceErrors {
		d.logger.Warn("incomplete analysis", "domain", r.Domain, "source", se.Source, "kind", se.Kind, "reason", se.Reason)
	}
}
