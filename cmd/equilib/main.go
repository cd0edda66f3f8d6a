package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/equilib/internal/automation"
	"github.com/san-kum/equilib/internal/config"
	"github.com/san-kum/equilib/internal/export"
	"github.com/san-kum/equilib/internal/metrics"
	"github.com/san-kum/equilib/internal/optim"
	"github.com/san-kum/equilib/internal/problems"
	"github.com/san-kum/equilib/internal/rootfind"
	"github.com/san-kum/equilib/internal/storage"
	"github.com/san-kum/equilib/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir  string
	logLevel string
	// run overrides
	configFile   string
	preset       string
	steps        int
	maxLoad      float64
	unload       bool
	algorithm    string
	onFailure    string
	elements     int
	precondition bool
	noSave       bool
	// plot
	width  int
	height int
	// sweep
	sweepParam string
	sweepFrom  float64
	sweepTo    float64
	sweepN     int
	// tune
	tuneParams  []string
	tuneMetric  string
	tuneWorkers int
	// svg
	strokeColor string
	// root
	rootTarget float64
	rootLo     float64
	rootHi     float64
	rootGuess  float64
	rootXTol   float64
	rootTrace  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "equilib",
		Short: "quasi-static equilibrium paths by trust-region minimisation",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunInteractive(problems.NewRegistry())
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".equilib", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [problem]",
		Short: "drive a problem along its load path",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runProblem,
	}
	addRunFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	liveCmd := &cobra.Command{
		Use:   "live [problem]",
		Short: "drive a problem with a live view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	compareCmd := &cobra.Command{
		Use:   "compare [problem]",
		Short: "compare trust region and Newton on the same load path",
		Args:  cobra.MaximumNArgs(1),
		RunE:  compareAlgorithms,
	}
	addRunFlags(compareCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the force-displacement curve of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&width, "width", 60, "plot width")
	plotCmd.Flags().IntVar(&height, "height", 15, "plot height")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export the steps of a run as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	problemsCmd := &cobra.Command{
		Use:   "problems",
		Short: "list available problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := problems.NewRegistry()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, name := range reg.List() {
				fmt.Fprintf(w, "%s\t%s\n", name, reg.Describe(name))
			}
			return w.Flush()
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [problem]",
		Short: "list available presets for a problem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for problem: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run every entry of a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")

	sweepCmd := &cobra.Command{
		Use:   "sweep [problem]",
		Short: "repeat a run over a range of one setting",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addRunFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "max_load", "run file key to vary, e.g. solver.tr_size")
	sweepCmd.Flags().Float64Var(&sweepFrom, "from", 0.1, "first value")
	sweepCmd.Flags().Float64Var(&sweepTo, "to", 1, "last value")
	sweepCmd.Flags().IntVar(&sweepN, "n", 5, "number of values")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export the force-displacement curve of a run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().IntVar(&width, "width", 640, "image width")
	exportSVGCmd.Flags().IntVar(&height, "height", 480, "image height")
	exportSVGCmd.Flags().StringVar(&strokeColor, "color", "#00ff88", "curve colour")

	tuneCmd := &cobra.Command{
		Use:   "tune [problem]",
		Short: "grid search run settings for the smallest metric",
		Args:  cobra.MaximumNArgs(1),
		RunE:  tuneSettings,
	}
	addRunFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&tuneParams, "param", []string{"solver.t1=0.25,0.4", "solver.t2=1.5,1.75,2.5"},
		"key=v1,v2,... (repeatable)")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "iterations", "metric to minimise")
	tuneCmd.Flags().IntVar(&tuneWorkers, "workers", 0, "concurrent runs (0 uses every CPU)")

	rootFindCmd := &cobra.Command{
		Use:   "root",
		Short: "solve x^3 = a with the safeguarded Newton root finder",
		RunE:  findRoot,
	}
	rootFindCmd.Flags().Float64Var(&rootTarget, "a", 2, "right-hand side")
	rootFindCmd.Flags().Float64Var(&rootLo, "lo", 0, "bracket lower end")
	rootFindCmd.Flags().Float64Var(&rootHi, "hi", 2, "bracket upper end")
	rootFindCmd.Flags().Float64Var(&rootGuess, "guess", 1, "initial estimate")
	rootFindCmd.Flags().Float64Var(&rootXTol, "xtol", rootfind.DefaultXTol, "absolute step tolerance")
	rootFindCmd.Flags().BoolVar(&rootTrace, "trace", false, "print every iteration")

	rootCmd.AddCommand(runCmd, liveCmd, compareCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd,
		exportSVGCmd, problemsCmd, presetsCmd, scenarioCmd, sweepCmd, tuneCmd, rootFindCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command) {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "run file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "load steps")
	cmd.Flags().Float64Var(&maxLoad, "max-load", config.DefaultMaxLoad, "final load")
	cmd.Flags().BoolVar(&unload, "unload", false, "return to zero load afterwards")
	cmd.Flags().StringVar(&algorithm, "algorithm", config.DefaultAlgorithm, "trust_region or newton")
	cmd.Flags().StringVar(&onFailure, "on-failure", config.DefaultOnFailure, "abort, accept or cutback")
	cmd.Flags().IntVar(&elements, "elements", 0, "elements (0 keeps the problem default)")
	cmd.Flags().BoolVar(&precondition, "precondition", false, "assemble a stiffness preconditioner")
}

// resolveConfig layers the preset, the run file and then explicitly set
// flags over the defaults.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if len(args) > 0 {
		cfg.Problem = args[0]
	}
	if preset != "" {
		p := config.GetPreset(cfg.Problem, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(cfg.Problem))
		}
		cfg = p
	}

	flags := cmd.Flags()
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("max-load") {
		cfg.MaxLoad = maxLoad
	}
	if flags.Changed("unload") {
		cfg.Unload = unload
	}
	if flags.Changed("algorithm") {
		cfg.Algorithm = algorithm
	}
	if flags.Changed("on-failure") {
		cfg.OnFailure = onFailure
	}
	if flags.Changed("elements") {
		cfg.Options.Elements = elements
	}
	if flags.Changed("precondition") {
		cfg.Options.Precondition = precondition
	}
	return cfg, cfg.Validate()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runProblem(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	fmt.Printf("running %s (%s, %d steps to %g)...\n", cfg.Problem, cfg.Algorithm, cfg.Steps, cfg.MaxLoad)
	out, err := automation.Execute(ctx, cfg, problems.NewRegistry())
	if err != nil {
		return err
	}

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(out.Metadata(), out.History)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	fmt.Printf("completed in %v\n", out.Duration.Round(time.Millisecond))
	fmt.Printf("steps: %d\n", len(out.History.Steps))
	fmt.Println("\nmetrics:")
	fmt.Print(viz.MetricTable(out.Metrics))

	return out.Err
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	// log records would tear the alt screen
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1})))

	m, err := viz.Watch(context.Background(), cfg, problems.NewRegistry())
	if err != nil {
		return err
	}
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if done, runErr := final.(viz.Model).Done(); done {
		return runErr
	}
	return nil
}

func compareAlgorithms(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	reg := problems.NewRegistry()

	fmt.Printf("comparing algorithms for %s (%d steps to %g)\n\n", cfg.Problem, cfg.Steps, cfg.MaxLoad)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "algorithm\tsteps\titerations\tcg_iterations\tfinal_u\ttime_ms\t")

	for _, alg := range []string{"trust_region", "newton"} {
		c := *cfg
		c.Algorithm = alg
		out, err := automation.Execute(context.Background(), &c, reg)
		if err != nil {
			return err
		}
		finalU := math.NaN()
		if n := len(out.History.Steps); n > 0 {
			finalU = out.History.Steps[n-1].Displacement
		}
		status := ""
		if out.Err != nil {
			status = "  failed: " + out.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%d\t%.0f\t%.0f\t%.6g\t%.2f\t%s\n", alg, len(out.History.Steps),
			out.Metrics["iterations"], out.Metrics["cg_iterations"], finalU,
			float64(out.Duration.Microseconds())/1000, status)
	}

	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROBLEM\tTIME\tALGORITHM\tSTEPS\tMAX_LOAD\tSTATUS")

	for _, run := range runs {
		status := "ok"
		if !run.Completed {
			status = "failed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%g\t%s\n",
			run.ID,
			run.Problem,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Algorithm,
			run.Steps,
			run.MaxLoad,
			status,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	hist, err := st.LoadHistory(runID)
	if err != nil {
		return err
	}
	if len(hist.Steps) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("problem: %s\n", meta.Problem)
	fmt.Printf("steps: %d\n\n", len(hist.Steps))

	fmt.Println(viz.LoadPath(hist, width, height))
	fmt.Println(viz.Series(hist.Reactions(), "reaction per step", width, height/2))
	fmt.Println()

	iters := make([]float64, len(hist.Steps))
	for i, s := range hist.Steps {
		iters[i] = float64(s.Iterations)
	}
	fmt.Println(viz.Series(iters, "solver iterations per step", width, height/2))

	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	hist, err := st.LoadHistory(args[0])
	if err != nil {
		return err
	}
	if len(hist.Steps) == 0 {
		return fmt.Errorf("no data to export")
	}
	return storage.WriteCSV(os.Stdout, hist)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	hist, err := st.LoadHistory(runID)
	if err != nil {
		return err
	}

	return storage.ExportJSON(os.Stdout, *meta, hist)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	hist, err := st.LoadHistory(args[0])
	if err != nil {
		return err
	}
	return export.WriteLoadPathSVG(os.Stdout, hist, width, height, strokeColor)
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	var st *storage.Store
	if !noSave {
		st = storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
	}

	ctx, stop := signalContext()
	defer stop()

	fmt.Printf("scenario: %s\n", scenario.Name)
	if scenario.Description != "" {
		fmt.Printf("%s\n", scenario.Description)
	}
	fmt.Println()

	outcomes, err := automation.RunScenario(ctx, scenario, problems.NewRegistry(), st)
	printOutcomes(outcomes)
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	sweep := &automation.ParameterSweep{
		Base:   cfg,
		Param:  sweepParam,
		Values: automation.Linspace(sweepFrom, sweepTo, sweepN),
	}
	results, err := automation.RunSweep(ctx, sweep, problems.NewRegistry())
	outcomes := make([]*automation.Outcome, len(results))
	for i, r := range results {
		outcomes[i] = r.Outcome
	}
	printOutcomes(outcomes)
	return err
}

// parseGrid reads "key=v1,v2,..." flags.
func parseGrid(specs []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(specs))
	ranges := make([][]float64, 0, len(specs))
	for _, spec := range specs {
		name, list, ok := strings.Cut(spec, "=")
		if !ok || name == "" || list == "" {
			return nil, nil, fmt.Errorf("bad --param %q, want key=v1,v2,...", spec)
		}
		var values []float64
		for _, field := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("bad --param %q: %w", spec, err)
			}
			values = append(values, v)
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}
	return names, ranges, nil
}

func tuneSettings(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	names, ranges, err := parseGrid(tuneParams)
	if err != nil {
		return err
	}
	if !slices.Contains(metrics.Default().Names(), tuneMetric) {
		return fmt.Errorf("unknown metric %q (available: %v)", tuneMetric, metrics.Default().Names())
	}

	ctx, stop := signalContext()
	defer stop()

	g := optim.NewGridSearch(names, ranges)
	g.SetWorkers(tuneWorkers)
	points, err := g.Evaluate(ctx, cfg, problems.NewRegistry())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t\n", strings.Join(names, "\t"), strings.ToUpper(tuneMetric))
	best, bestIdx := math.Inf(1), -1
	for i, p := range points {
		cells := make([]string, len(names))
		for j, name := range names {
			cells[j] = strconv.FormatFloat(p.Params[name], 'g', -1, 64)
		}
		value := "failed"
		if p.Err == nil {
			v := p.Outcome.Metrics[tuneMetric]
			value = strconv.FormatFloat(v, 'g', 6, 64)
			if v < best {
				best, bestIdx = v, i
			}
		}
		fmt.Fprintf(w, "%s\t%s\t\n", strings.Join(cells, "\t"), value)
	}
	w.Flush()

	if bestIdx < 0 {
		return optim.ErrNoCompletedRun
	}
	fmt.Printf("\nbest %s = %g at %v\n", tuneMetric, best, points[bestIdx].Params)
	return nil
}

func printOutcomes(outcomes []*automation.Outcome) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTEPS\tPEAK_REACTION\tWORK\tITERATIONS\tSTATUS")
	for _, out := range outcomes {
		status := viz.Status(true, "ok")
		if out.Err != nil {
			status = viz.Status(false, out.Err.Error())
		}
		fmt.Fprintf(w, "%s\t%d\t%.6g\t%.6g\t%.0f\t%s\n", out.Label, len(out.History.Steps),
			out.Metrics["peak_reaction"], out.Metrics["work"], out.Metrics["iterations"], status)
	}
	w.Flush()
}

func findRoot(cmd *cobra.Command, args []string) error {
	s := rootfind.GetSettings(rootfind.WithXTol(rootXTol))
	f := rootfind.WithDerivative(
		func(x float64) float64 { return x*x*x - rootTarget },
		func(x float64) float64 { return 3 * x * x },
	)

	var trace []rootfind.Iterate
	x, err := rootfind.RtsafeTrace(f, rootGuess, rootfind.Bracket{Lo: rootLo, Hi: rootHi}, s, func(it rootfind.Iterate) {
		trace = append(trace, it)
	})
	if err != nil {
		return err
	}

	if rootTrace {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ITER\tX\tF\tSTEP\tBISECTED")
		for _, it := range trace {
			fmt.Fprintf(w, "%d\t%.17g\t%.3e\t%.3e\t%v\n", it.Iter, it.X, it.F, it.Step, it.Bisected)
		}
		w.Flush()
		fmt.Println()
	}

	if math.IsNaN(x) {
		return fmt.Errorf("no root of x^3 - %g in [%g, %g]", rootTarget, rootLo, rootHi)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"root":       x,
		"residual":   x*x*x - rootTarget,
		"iterations": len(trace),
		"cbrt":       math.Cbrt(rootTarget),
	})
}
