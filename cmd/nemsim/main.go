package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/san-kum/nemsim/internal/automation"
	"github.com/san-kum/nemsim/internal/cluster"
	"github.com/san-kum/nemsim/internal/config"
	"github.com/san-kum/nemsim/internal/energy"
	"github.com/san-kum/nemsim/internal/metrics"
	"github.com/san-kum/nemsim/internal/storage"
	"github.com/san-kum/nemsim/internal/tui"
	"github.com/san-kum/nemsim/internal/viz"
)

var (
	dataDir     string
	size        int
	procs       int
	temperature float64
	tempEnd     float64
	sweeps      int
	seed        int64
	maxStep     float64
	reportEvery int
	backend     string
	timeout     time.Duration
	snapshot    bool
	configFile  string
	preset      string
	verbose     bool
	withLattice bool
	mapWidth    int
	scanFrom    float64
	scanTo      float64
	scanSteps   int
	rawReport   bool
	reportStyle string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "nemsim",
		Short:        "distributed Lebwohl-Lasher nematic Monte Carlo",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".nemsim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation and store its reports",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a simulation with a live terminal view",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "scan temperatures and report the final order parameter of each",
		Args:  cobra.NoArgs,
		RunE:  runScan,
	}
	scanCmd.Flags().Float64Var(&scanFrom, "from", 0.2, "lowest scan temperature")
	scanCmd.Flags().Float64Var(&scanTo, "to", 1.6, "highest scan temperature")
	scanCmd.Flags().IntVar(&scanSteps, "steps", 8, "number of temperatures")

	for _, c := range []*cobra.Command{runCmd, liveCmd, scanCmd} {
		def := config.DefaultConfig()
		f := c.Flags()
		f.IntVar(&size, "size", def.Size, "lattice side length L")
		f.IntVar(&procs, "procs", def.Procs, "number of ranks")
		f.Float64Var(&temperature, "temp", def.Temperature, "reduced temperature")
		f.Float64Var(&tempEnd, "temp-end", 0, "final temperature for a linear anneal (0 keeps it constant)")
		f.IntVar(&sweeps, "sweeps", def.Sweeps, "number of Monte Carlo sweeps")
		f.Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
		f.Float64Var(&maxStep, "max-step", def.MaxStep, "maximum angular perturbation")
		f.IntVar(&reportEvery, "report-every", def.ReportEvery, "sweeps between global reports")
		f.StringVar(&backend, "backend", def.Backend, "energy backend ("+fmt.Sprint(energy.NewRegistry().Names())+" or auto)")
		f.DurationVar(&timeout, "timeout", def.Timeout, "per-message communication timeout")
		f.BoolVar(&snapshot, "snapshot", false, "gather and store the final lattice")
		f.StringVar(&configFile, "config", "", "config file path (yaml)")
		f.StringVar(&preset, "preset", "", "use preset configuration")
		f.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the observables of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().BoolVar(&withLattice, "lattice", false, "include the final lattice")

	latticeCmd := &cobra.Command{
		Use:   "lattice [run_id]",
		Short: "draw the stored director field of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  drawLattice,
	}
	latticeCmd.Flags().IntVar(&mapWidth, "width", 80, "maximum characters per row")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run every step of a yaml scenario and store each run",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	reportCmd := &cobra.Command{
		Use:   "report [run_id]",
		Short: "show a markdown report of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  showReport,
	}
	reportCmd.Flags().BoolVar(&rawReport, "raw", false, "print the markdown source")
	reportCmd.Flags().StringVar(&reportStyle, "style", "", "glamour style (dark, light, notty); detected when empty")

	watchCmd := &cobra.Command{
		Use:   "watch [config.yaml]",
		Short: "rerun a config file every time it is saved",
		Args:  cobra.ExactArgs(1),
		RunE:  watchConfig,
	}
	watchCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Run: func(cmd *cobra.Command, args []string) {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSIZE\tPROCS\tTEMP\tSWEEPS")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				temp := fmt.Sprintf("%.2f", p.Temperature)
				if p.TemperatureEnd > 0 {
					temp = fmt.Sprintf("%.2f→%.2f", p.Temperature, p.TemperatureEnd)
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%d\n", name, p.Size, p.Procs, temp, p.Sweeps)
			}
			w.Flush()
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, scanCmd, scenarioCmd, watchCmd, listCmd, plotCmd, reportCmd, exportCmd, latticeCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// resolveConfig layers defaults, then the preset, then the config file, then
// any flag set explicitly on the command line. A zero seed means unset.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("size") {
		cfg.Size = size
	}
	if flags.Changed("procs") {
		cfg.Procs = procs
	}
	if flags.Changed("temp") {
		cfg.Temperature = temperature
	}
	if flags.Changed("temp-end") {
		cfg.TemperatureEnd = tempEnd
	}
	if flags.Changed("sweeps") {
		cfg.Sweeps = sweeps
	}
	if flags.Changed("seed") || cfg.Seed == 0 {
		cfg.Seed = seed
	}
	if flags.Changed("max-step") {
		cfg.MaxStep = maxStep
	}
	if flags.Changed("report-every") {
		cfg.ReportEvery = reportEvery
	}
	if flags.Changed("backend") {
		cfg.Backend = backend
	}
	if flags.Changed("timeout") {
		cfg.Timeout = timeout
	}
	if flags.Changed("snapshot") {
		cfg.Snapshot = snapshot
	}
	return cfg, cfg.Validate()
}

func metadataFor(cfg *config.Config, out *cluster.Outcome, elapsed time.Duration, values map[string]float64) *storage.RunMetadata {
	return &storage.RunMetadata{
		Size:           cfg.Size,
		Procs:          cfg.Procs,
		Temperature:    cfg.Temperature,
		TemperatureEnd: cfg.TemperatureEnd,
		Sweeps:         cfg.Sweeps,
		Seed:           cfg.Seed,
		MaxStep:        cfg.MaxStep,
		ReportEvery:    cfg.ReportEvery,
		Backend:        out.Backend,
		Elapsed:        elapsed,
		HasLattice:     out.Lattice != nil,
		Metrics:        values,
	}
}

func save(cfg *config.Config, out *cluster.Outcome, elapsed time.Duration, set *metrics.Set) (string, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return "", err
	}
	return st.Save(metadataFor(cfg, out, elapsed, set.Values()), out.Summary.Reports, out.Lattice)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	set := metrics.NewSet(metrics.Defaults(cfg.Size * cfg.Size)...)
	fmt.Printf("running %d×%d lattice on %d ranks...\n", cfg.Size, cfg.Size, cfg.Procs)
	start := time.Now()

	out, err := cluster.Run(ctx, cfg, cluster.WithLogger(logger), cluster.WithObserver(set))
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID, err := save(cfg, out, elapsed, set)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Println(viz.Summary("backend "+out.Backend, out.Summary.Final, set.Values()))
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	// Logging to the terminal would tear the live view.
	logger := zap.NewNop()
	if verbose {
		if logger, err = newLogger(); err != nil {
			return err
		}
		defer logger.Sync()
	}

	set := metrics.NewSet(metrics.Defaults(cfg.Size * cfg.Size)...)
	start := time.Now()
	out, err := tui.Run(context.Background(), cfg, cluster.WithLogger(logger), cluster.WithObserver(set))
	if err != nil {
		return err
	}

	runID, err := save(cfg, out, time.Since(start), set)
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)
	return nil
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
	fmt.Fprintln(w, "ID\tTIME\tL\tPROCS\tTEMP\tSWEEPS\tBACKEND\tS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.3f\t%d\t%s\t%.4f\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Size,
			run.Procs,
			run.Temperature,
			run.Sweeps,
			run.Backend,
			run.Metrics["mean_order"],
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

	reports, err := st.LoadReports(runID)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		return errors.New("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("lattice: %d×%d on %d ranks\n", meta.Size, meta.Size, meta.Procs)
	fmt.Printf("reports: %d\n\n", len(reports))
	fmt.Println(viz.Plot(reports, viz.DefaultSeries, 80, 10))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	return storage.New(dataDir).ExportJSON(os.Stdout, args[0], withLattice)
}

func drawLattice(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	if !meta.HasLattice {
		return fmt.Errorf("run %s has no stored lattice (rerun with --snapshot)", meta.ID)
	}
	lattice, err := st.LoadLattice(meta.ID)
	if err != nil {
		return err
	}
	fmt.Print(viz.Director(lattice, mapWidth))
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	scan := &automation.TemperatureScan{Base: base, From: scanFrom, To: scanTo, Steps: scanSteps}
	points, err := automation.NewRunner(logger).RunScan(ctx, scan)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TEMP\tS\tENERGY\tACCEPT\tC_V")
	order := make([]float64, len(points))
	for i, p := range points {
		order[i] = p.Final.Order
		fmt.Fprintf(w, "%.4f\t%.4f\t%.4f\t%s\t%.4f\n",
			p.Temperature, p.Final.Order, p.Final.MeanEnergy,
			viz.FormatRatio(p.Final.AcceptanceRatio), p.Metrics["specific_heat"])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(order) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(order,
			asciigraph.Height(10),
			asciigraph.Width(60),
			asciigraph.Caption(fmt.Sprintf("order parameter S, T = %.2f to %.2f", scanFrom, scanTo)),
		))
	}
	if tc, ok := automation.Crossover(points); ok {
		fmt.Printf("\nsteepest drop in S near T = %.3f\n", tc)
	}
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, runErr := automation.NewRunner(logger).RunScenario(ctx, scenario)

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	for _, r := range results {
		meta := metadataFor(r.Config, r.Outcome, r.Elapsed, r.Metrics)
		runID, err := st.Save(meta, r.Outcome.Summary.Reports, r.Outcome.Lattice)
		if err != nil {
			return err
		}
		fmt.Printf("%s: run id %s\n", r.Name, runID)
	}
	return runErr
}

func showReport(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	reports, err := st.LoadReports(meta.ID)
	if err != nil {
		return err
	}

	md := viz.Report(meta, reports)
	if rawReport {
		fmt.Print(md)
		return nil
	}
	out, err := viz.RenderMarkdown(md, reportStyle, 100)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func watchConfig(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("watching %s (ctrl+c to stop)\n", args[0])
	return automation.Watch(ctx, args[0], logger, func(ctx context.Context, cfg *config.Config) error {
		set := metrics.NewSet(metrics.Defaults(cfg.Size * cfg.Size)...)
		out, err := cluster.Run(ctx, cfg, cluster.WithLogger(logger), cluster.WithObserver(set))
		if err != nil {
			return err
		}
		fmt.Println(viz.Summary(fmt.Sprintf("L=%d T=%.3f", cfg.Size, cfg.Temperature), out.Summary.Final, set.Values()))
		return nil
	})
}
