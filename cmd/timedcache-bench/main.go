package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/agentuity/go-timedcache/cache"
	"github.com/agentuity/go-timedcache/logger"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/cockroachdb/errors"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timedcache-bench",
		Short: "Run a concurrent workload against a timed cache",
		Long: `Run a concurrent workload against a timed cache and report throughput,
hit rate, evictions and host memory.

Durations accept d and w units, for example 1d12h. Value sizes accept
quantities such as 512, 4Ki or 1Mi.`,
		SilenceUsage: true,
		RunE:         runBench,
	}
	flags := cmd.Flags()
	flags.String("config", "", "YAML file with the workload settings")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error)")
	flags.String("timeout", "1s", "entry timeout (0 never expires, negative stores nothing)")
	flags.String("cleanup", "500ms", "background sweep interval (0 disables it)")
	flags.String("duration", "5s", "how long to run the workload")
	flags.Bool("refresh", false, "refresh entries on access")
	flags.Bool("retain", false, "retain expired values until collected (requires --deferred)")
	flags.Bool("deferred", false, "hold values through weak references")
	flags.Bool("disabled", false, "use the non-storing cache")
	flags.Int("keys", 10_000, "number of distinct keys")
	flags.Int("workers", 8, "number of concurrent workers")
	flags.String("value-size", "1Ki", "size of each cached value")
	return cmd
}

// flagOrEnv returns the flag value if set, otherwise the environment value,
// otherwise def.
func flagOrEnv(cmd *cobra.Command, flagName string, envName string, def string) string {
	if v, _ := cmd.Flags().GetString(flagName); v != "" {
		return v
	}
	if v, ok := os.LookupEnv(envName); ok {
		return v
	}
	return def
}

func newLogger(cmd *cobra.Command) logger.Logger {
	log.SetFlags(0)
	level := logger.LevelInfo
	switch strings.ToLower(flagOrEnv(cmd, "log-level", logger.LevelEnv, "info")) {
	case "trace":
		level = logger.LevelTrace
	case "debug":
		level = logger.LevelDebug
	case "warn":
		level = logger.LevelWarn
	case "error":
		level = logger.LevelError
	}
	return logger.NewConsoleLogger(level)
}

func newCache(cfg benchConfig, log logger.Logger, meter metric.Meter) (cache.Cache[string, *payload], error) {
	if cfg.Disabled {
		return cache.NewDisabled[string, *payload](), nil
	}
	opts := []cache.Option{cache.WithLogger(log), cache.WithName("bench")}
	if meter != nil {
		opts = append(opts, cache.WithMeter(meter))
	}
	if cfg.DeferredReclaim {
		return cache.NewDeferred[string, payload](cfg.cacheConfig(), opts...)
	}
	return cache.New[string, *payload](cfg.cacheConfig(), opts...)
}

// newMeterProvider installs a global meter provider whose readings are pulled
// on demand by the returned reader.
func newMeterProvider() (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	return provider, reader
}

// collectMetrics returns one table row per int64 instrument, sorted by name.
func collectMetrics(ctx context.Context, reader sdkmetric.Reader) ([][]string, error) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return nil, errors.Wrap(err, "collecting metrics")
	}
	values := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					values[m.Name] += dp.Value
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					values[m.Name] += dp.Value
				}
			}
		}
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, fmt.Sprint(values[name])})
	}
	return rows, nil
}

func usedMemory() string {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%% (%d MiB)", vm.UsedPercent, vm.Used>>20)
}

func runBench(cmd *cobra.Command, _ []string) error {
	log := newLogger(cmd)
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	w, err := newWorkload(cfg)
	if err != nil {
		return err
	}
	provider, reader := newMeterProvider()
	defer provider.Shutdown(context.Background())
	c, err := newCache(cfg, log, otel.Meter("github.com/agentuity/go-timedcache/cmd/timedcache-bench"))
	if err != nil {
		return err
	}
	defer c.Shutdown()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	memBefore := usedMemory()
	log.Info("running %d workers over %d keys for %v", cfg.Workers, cfg.Keys, w.duration)
	res, err := w.run(ctx, c)
	if err != nil {
		return err
	}
	metricRows, err := collectMetrics(cmd.Context(), reader)
	if err != nil {
		return err
	}

	rows := [][]string{
		{"operations", fmt.Sprint(res.ops)},
		{"ops/sec", fmt.Sprintf("%.0f", res.opsPerSecond())},
		{"loads", fmt.Sprint(res.loads)},
	}
	rows = append(rows, metricRows...)
	if t, ok := c.(*cache.Timed[string, *payload]); ok {
		rows = append(rows, []string{"hit rate", fmt.Sprintf("%.2f%%", t.Stats().HitRate()*100)})
	}
	rows = append(rows,
		[]string{"host memory before", memBefore},
		[]string{"host memory after", usedMemory()},
	)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#999999", Dark: "#AAAAAA"})).
		Headers("metric", "value").
		Rows(rows...)
	fmt.Fprintln(cmd.OutOrStdout(), t.String())
	return nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
