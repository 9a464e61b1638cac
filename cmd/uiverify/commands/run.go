package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/copyleftdev/uiverify/internal/report"
	"github.com/copyleftdev/uiverify/internal/runtypes"
	"github.com/copyleftdev/uiverify/internal/scenario"
	"github.com/copyleftdev/uiverify/internal/suites"
)

// run [scenario...]: execute scenarios and print one line per result.
func runCmd() *cobra.Command {
	var (
		all        bool
		files      []string
		parallel   int
		strict     bool
		reportPath string
	)
	cmd := &cobra.Command{
		Use:   "run [scenario...]",
		Short: "Run scenarios against the target app",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := suites.LoadRegistry(cfg.Scenarios.Paths)
			if err != nil {
				return err
			}
			selected, err := selectScenarios(registry, args, files, all)
			if err != nil {
				return err
			}
			if parallel < 1 {
				parallel = 1
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			rm, err := newRunManager()
			if err != nil {
				return err
			}
			defer shutdownRunManager(rm)

			logger.Info("running scenarios",
				zap.Int("count", len(selected)),
				zap.Int("parallel", parallel),
				zap.String("target", cfg.Target.Origin()),
			)

			finished := make([]*runtypes.Run, len(selected))
			var g errgroup.Group
			g.SetLimit(parallel)
			for i, sc := range selected {
				i, sc := i, sc
				g.Go(func() error {
					run, err := rm.Execute(ctx, runtypes.NewRun(sc, ""))
					if run == nil {
						return err
					}
					finished[i] = run
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			failed := printResults(cmd.OutOrStdout(), finished, strict)
			if reportPath != "" {
				if err := report.WriteFile(reportPath, finished); err != nil {
					return err
				}
				logger.Info("report written", zap.String("path", reportPath))
			}
			if failed > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d scenario(s) failed\n", failed)
				return errFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "run every registered scenario")
	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "YAML scenario file or directory to run (repeatable)")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 1, "maximum scenarios run at once")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on any scenario failure, not only strict scenarios")
	cmd.Flags().StringVar(&reportPath, "report", "", "write a JSON report to this path")
	return cmd
}

// selectScenarios resolves names, files and --all into a de-duplicated list.
func selectScenarios(registry *suites.Registry, names, files []string, all bool) ([]*scenario.Scenario, error) {
	var out []*scenario.Scenario
	seen := make(map[string]bool)
	add := func(sc *scenario.Scenario) {
		if !seen[sc.Name] {
			seen[sc.Name] = true
			out = append(out, sc)
		}
	}

	if all {
		for _, sc := range registry.All() {
			add(sc)
		}
	}
	for _, name := range names {
		sc, err := registry.Lookup(name)
		if err != nil {
			return nil, err
		}
		add(sc)
	}
	for _, f := range files {
		loaded, err := scenario.LoadPath(f)
		if err != nil {
			return nil, err
		}
		for _, sc := range loaded {
			add(sc)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no scenarios selected: name one, use --all or --file")
	}
	return out, nil
}

// printResults writes one line per run and returns how many failures count
// against the exit status.
func printResults(w io.Writer, finished []*runtypes.Run, strict bool) int {
	failed := 0
	for _, run := range finished {
		if run == nil {
			continue
		}
		res := run.Result
		if res == nil {
			res = &runtypes.Result{}
		}
		switch run.Status {
		case runtypes.StatusPassed:
			fmt.Fprintf(w, "PASS  %-24s %s\n", run.Name(), res.Duration.Round(time.Millisecond))
		default:
			fmt.Fprintf(w, "FAIL  %-24s %s\n", run.Name(), res.Error)
			if strict || run.Strict() {
				failed++
			}
		}
		for _, note := range res.Notes {
			fmt.Fprintf(w, "      note: %s\n", note)
		}
		for _, shot := range res.Screenshots {
			fmt.Fprintf(w, "      screenshot: %s\n", shot)
		}
		if res.Snapshot != "" {
			fmt.Fprintf(w, "      dom: %s\n", res.Snapshot)
		}
	}
	return failed
}
