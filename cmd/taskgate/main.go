package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zen-systems/taskgate/pkg/config"
	"github.com/zen-systems/taskgate/pkg/event"
	"github.com/zen-systems/taskgate/pkg/logging"
	"github.com/zen-systems/taskgate/pkg/metrics"
	"github.com/zen-systems/taskgate/pkg/orchestrator"
	"github.com/zen-systems/taskgate/pkg/router"
	"github.com/zen-systems/taskgate/pkg/strategy"
	"github.com/zen-systems/taskgate/pkg/task"
)

var (
	configFile string
	logLevel   string
	logEvents  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "taskgate",
		Short: "Capability-based task routing across LLM adapters",
		Long: `Taskgate routes coding tasks to the adapter whose declared capabilities
	best fit the task, then executes them with the most suitable strategy
	(sub-agents, parallel, streaming, batched or sequential), falling back
	through the chain when a strategy fails.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file (default ~/.taskgate/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logEvents, "events", false, "log every routing and strategy event at debug level")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(routeCmd())
	rootCmd.AddCommand(adaptersCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(statsCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app holds everything a command needs after startup.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	promReg *prometheus.Registry
	svc     *orchestrator.Service
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logCfg := cfg.Logging
	if logLevel != "" {
		logCfg.Level = logLevel
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	bus := event.NewBus(event.WithLogger(logger.Named("events")))
	if logEvents {
		bus.SubscribeAll(func(e event.Event) {
			logger.Debug("event", zap.String("type", e.EventType()), zap.Any("payload", e))
		})
	}

	promReg := prometheus.NewRegistry()
	svc, err := orchestrator.FromConfig(ctx, cfg, orchestrator.Deps{
		Logger:  logger,
		Bus:     bus,
		Metrics: metrics.New(promReg),
	}, nil)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, promReg: promReg, svc: svc}, nil
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadFile(configFile)
	}
	return config.Load()
}

// taskFlags builds ad-hoc tasks from the command line when no task file is
// given.
type taskFlags struct {
	description string
	taskType    string
	files       []string
	complexity  string
	strategy    string
	streaming   bool
}

func (f *taskFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "task description (when no task file is given)")
	cmd.Flags().StringVarP(&f.taskType, "type", "t", "", "task type (generation, refactoring, testing, ...)")
	cmd.Flags().StringSliceVar(&f.files, "file", nil, "context file, repeatable")
	cmd.Flags().StringVar(&f.complexity, "complexity", "", "complexity hint (low, medium, high)")
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "force an execution strategy")
	cmd.Flags().BoolVar(&f.streaming, "stream", false, "request streamed output")
}

// tasks loads tasks from args[0] when present, otherwise from flags. A
// description of "-" reads it from stdin.
func (f *taskFlags) tasks(args []string, stdin io.Reader) ([]*task.Task, error) {
	if len(args) > 0 {
		tasks, err := task.Load(args[0])
		if err != nil {
			return nil, fmt.Errorf("failed to load tasks: %w", err)
		}
		for _, t := range tasks {
			if f.strategy != "" {
				t.ExecutionStrategy = f.strategy
			}
			t.Streaming = t.Streaming || f.streaming
		}
		return tasks, nil
	}

	description := f.description
	if description == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		description = strings.TrimSpace(string(data))
	}
	if description == "" && f.taskType == "" {
		return nil, fmt.Errorf("a task file or --description is required")
	}

	t := &task.Task{
		Type:              f.taskType,
		Description:       description,
		Complexity:        task.Complexity(f.complexity),
		ExecutionStrategy: f.strategy,
		Streaming:         f.streaming,
	}
	if len(f.files) > 0 {
		t.Context = &task.Context{Files: f.files}
	}
	task.EnsureID(t)
	return []*task.Task{t}, nil
}

func runCmd() *cobra.Command {
	var flags taskFlags
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "run [tasks.yaml]",
		Short: "Route and execute tasks",
		Long: `Routes each task to the best adapter and executes it. A file with
	several tasks is routed as a batch and executed concurrently.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.logger.Sync() }()

			tasks, err := flags.tasks(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			var reports []*orchestrator.Report
			var runErr error
			if len(tasks) == 1 {
				var opts orchestrator.RunOptions
				if tasks[0].Streaming && !jsonOut {
					opts.OnChunk = func(c task.Chunk) { fmt.Fprint(cmd.OutOrStdout(), c.Content) }
				}
				report, err := a.svc.Run(ctx, tasks[0], opts)
				reports, runErr = []*orchestrator.Report{report}, err
				if opts.OnChunk != nil && err == nil {
					fmt.Fprintln(cmd.OutOrStdout())
					return nil
				}
			} else {
				reports, runErr = a.svc.RunBatch(ctx, tasks)
			}

			if jsonOut {
				if err := writeJSON(cmd.OutOrStdout(), reports); err != nil {
					return err
				}
			} else {
				printReports(cmd.OutOrStdout(), cmd.ErrOrStderr(), reports)
			}
			return runErr
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print full reports as JSON")
	return cmd
}

func routeCmd() *cobra.Command {
	var flags taskFlags
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "route [tasks.yaml]",
		Short: "Show routing decisions without executing",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.logger.Sync() }()

			tasks, err := flags.tasks(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			assignments, routeErr := a.svc.Router().RouteBatch(ctx, tasks)
			if jsonOut {
				decisions := make([]*router.Decision, 0, len(assignments))
				for _, as := range assignments {
					decisions = append(decisions, as.Decision)
				}
				if err := writeJSON(cmd.OutOrStdout(), decisions); err != nil {
					return err
				}
				return routeErr
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TASK\tADAPTER\tVERSION\tSTRATEGY\tSCORE\tREQUIREMENTS")
			for _, as := range assignments {
				if as.Err != nil {
					fmt.Fprintf(w, "%s\t-\t-\t-\t-\t%s\n", taskID(as.Task), as.Err)
					continue
				}
				d := as.Decision
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%s\n",
					taskID(as.Task), d.AdapterName, d.AdapterVersion, d.Strategy, d.Score, d.Requirements)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			return routeErr
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print decisions as JSON")
	return cmd
}

func adaptersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "adapters",
		Short: "List registered adapters and their capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tVERSION\tDEFAULT\tCONTEXT\tSTREAMING\tSUB-AGENTS\tFEATURES")
			for _, d := range a.svc.Registry().List() {
				def := ""
				if d.IsDefault {
					def = "*"
				}
				p := d.Capabilities
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%t\t%t\t%s\n",
					d.Name, d.Version, def, p.MaxContextTokens, p.Streaming, p.SubAgents.Supported,
					strings.Join(p.FeatureNames(), ", "))
			}
			return w.Flush()
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var missing []string
			for _, ac := range cfg.Adapters {
				if !ac.HasCredentials(cfg.APIKeys) {
					missing = append(missing, fmt.Sprintf("%s (%s)", ac.Name, ac.Provider))
				}
			}
			if len(missing) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "Adapters without credentials will be skipped: %s\n", strings.Join(missing, ", "))
			}
			if len(missing) == len(cfg.Adapters) {
				return fmt.Errorf("no adapter has credentials")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid: %d adapters, strategy order %s.\n",
				len(cfg.Adapters), strings.Join(strategyNames(cfg.Strategy.WithDefaults().Names()), " > "))
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	var promOut bool

	cmd := &cobra.Command{
		Use:   "stats tasks.yaml",
		Short: "Run tasks and report routing and strategy statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.logger.Sync() }()

			tasks, err := task.Load(args[0])
			if err != nil {
				return fmt.Errorf("failed to load tasks: %w", err)
			}
			if _, err := a.svc.RunBatch(ctx, tasks); err != nil {
				a.logger.Warn("some tasks failed", zap.Error(err))
			}

			out := cmd.OutOrStdout()
			if promOut {
				return writeMetrics(out, a.promReg)
			}
			printRouterStats(out, a.svc.Router().Statistics())
			fmt.Fprintln(out)
			return printStrategyStats(out, a.svc.Engine().Order(), a.svc.Engine().Statistics())
		},
	}

	cmd.Flags().BoolVar(&promOut, "prometheus", false, "print Prometheus metrics in text exposition format")
	return cmd
}

func printReports(out, errOut io.Writer, reports []*orchestrator.Report) {
	for _, r := range reports {
		if r.Error != "" {
			fmt.Fprintf(errOut, "%s: %s\n", taskID(r.Task), r.Error)
			continue
		}
		d := r.Decision
		fmt.Fprintf(errOut, "%s: %s@%s via %s (%s)\n",
			taskID(r.Task), d.AdapterName, d.AdapterVersion, r.Execution.Strategy, r.Duration.Round(1e6))
		fmt.Fprintln(out, r.Execution.Result.Output)
	}
}

func printRouterStats(out io.Writer, s router.Statistics) {
	fmt.Fprintf(out, "Routes: %d  cache hits: %d  misses: %d  hit rate: %.0f%%  cached: %d  evictions: %d\n",
		s.TotalRoutes, s.CacheHits, s.CacheMisses, s.HitRate*100, s.CacheSize, s.Evictions)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ADAPTER\tROUTES")
	for _, name := range sortedKeys(s.ByAdapter) {
		fmt.Fprintf(w, "%s\t%d\n", name, s.ByAdapter[name])
	}
	_ = w.Flush()
}

func printStrategyStats(out io.Writer, order []strategy.Name, stats map[strategy.Name]strategy.Stats) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STRATEGY\tATTEMPTS\tSUCCESS\tFAILED\tSKIPPED\tAVG\tTOP FAILURES")
	for _, name := range order {
		s := stats[name]
		var top []string
		for _, f := range s.TopFailures {
			top = append(top, fmt.Sprintf("%s (%d)", f.Reason, f.Count))
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
			name, s.Attempts, s.Successes, s.Failures, s.Skips, s.AvgDuration.Round(1e6), strings.Join(top, "; "))
	}
	return w.Flush()
}

func writeMetrics(out io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(out, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func taskID(t *task.Task) string {
	if t == nil {
		return "<nil>"
	}
	return t.ID
}

func strategyNames(names []strategy.Name) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n.String()
	}
	return out
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
