package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/marmos91/asyncload/internal/cli/output"
	"github.com/marmos91/asyncload/internal/logger"
	"github.com/marmos91/asyncload/pkg/config"
	"github.com/marmos91/asyncload/pkg/loader"
	"github.com/spf13/cobra"
)

var (
	loadPriority int32
	loadFlush    bool
	loadOutput   string
)

var loadCmd = &cobra.Command{
	Use:   "load <package>...",
	Short: "Load packages and report the outcome",
	Long: `Load one or more packages from the configured store and exit.

Every named package is queued at --priority. Its imports are loaded first,
then its objects are post-loaded and registered. The loader is ticked
with loader.time_limit per tick until all requests finished. With --flush
each request is flushed in turn instead.

The command fails when any package fails to load.

Examples:
  # Load two packages
  asyncload load /Game/Maps/Arena /Game/Characters/Hero

  # Load on the worker goroutine and print JSON
  ASYNCLOAD_LOADER_MULTITHREADED=true asyncload load /Game/Maps/Arena -o json`,
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: completePackageNames,
	RunE:              runLoad,
}

func init() {
	loadCmd.Flags().Int32VarP(&loadPriority, "priority", "p", 0, "Request priority (higher loads first)")
	loadCmd.Flags().BoolVar(&loadFlush, "flush", false, "Flush each request instead of ticking")
	loadCmd.Flags().StringVarP(&loadOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// loadResult is the outcome of one requested package.
type loadResult struct {
	Package   string  `json:"package" yaml:"package"`
	RequestID int32   `json:"request_id" yaml:"request_id"`
	Result    string  `json:"result" yaml:"result"`
	State     string  `json:"state" yaml:"state"`
	Percent   float64 `json:"percent" yaml:"percent"`
	Error     string  `json:"error,omitempty" yaml:"error,omitempty"`
}

type loadResults []*loadResult

// Headers implements output.TableRenderer.
func (r loadResults) Headers() []string {
	return []string{"PACKAGE", "REQUEST", "RESULT", "STATE", "PROGRESS", "ERROR"}
}

// Rows implements output.TableRenderer.
func (r loadResults) Rows() [][]string {
	rows := make([][]string, 0, len(r))
	for _, res := range r {
		rows = append(rows, []string{
			res.Package,
			strconv.Itoa(int(res.RequestID)),
			res.Result,
			res.State,
			output.Progress(res.Percent),
			res.Error,
		})
	}
	return rows
}

func runLoad(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(loadOutput)
	if err != nil {
		return err
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownObservability, err := InitObservability(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdownObservability()

	rt, err := config.InitializeRuntime(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize runtime: %w", err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Error("Runtime shutdown error", "error", err)
		}
	}()

	ld := rt.Loader
	if err := ld.Start(ctx); err != nil {
		return fmt.Errorf("failed to start loader: %w", err)
	}

	results := make(loadResults, 0, len(args))
	for _, name := range args {
		res := &loadResult{Package: name, Result: "pending"}
		id, err := ld.QueuePackage(name, loadPriority, func(_ string, result loader.Result, err error) {
			res.Result = result.String()
			if err != nil {
				res.Error = err.Error()
			}
		})
		if err != nil {
			return fmt.Errorf("failed to queue %s: %w", name, err)
		}
		res.RequestID = id
		results = append(results, res)
	}

	start := time.Now()
	if loadFlush {
		err = flushAll(ctx, ld, results)
	} else {
		err = tickUntilIdle(ctx, ld, cfg.Loader)
	}
	if err != nil {
		logger.Warn("Loading interrupted, canceling pending requests", "error", err)
		if cerr := ld.CancelAsyncLoading(context.Background()); cerr != nil {
			logger.Error("Cancel failed", "error", cerr)
		}
	}
	logger.Info("Loading finished", "packages", len(results), "elapsed", time.Since(start))

	failed := 0
	for _, res := range results {
		if info, ok := ld.PackageInfo(res.Package); ok {
			res.State = info.State
			res.Percent = info.Percent
		}
		if res.Result != loader.Succeeded.String() {
			failed++
		}
	}

	printer := output.NewPrinter(os.Stdout, format, format == output.FormatTable)
	if err := printer.Print(results); err != nil {
		return err
	}
	if format == output.FormatTable {
		for _, res := range results {
			if res.Error != "" {
				printer.Error(fmt.Sprintf("%s: %s", res.Package, res.Error))
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d package(s) did not load", failed, len(results))
	}
	return nil
}

// tickUntilIdle drives the loader from this goroutine until nothing is left.
func tickUntilIdle(ctx context.Context, ld *loader.Loader, cfg config.LoaderConfig) error {
	for ld.IsAsyncLoading() {
		if err := ctx.Err(); err != nil {
			return err
		}
		ld.TickAsyncLoading(ctx, cfg.TimeLimit > 0, cfg.UseFullTimeLimit, cfg.TimeLimit, nil)

		// The worker goroutine does the loading; only finalization runs here.
		if ld.IsMultithreaded() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.TickInterval):
			}
		}
	}
	return nil
}

// flushAll flushes every request in order.
func flushAll(ctx context.Context, ld *loader.Loader, results loadResults) error {
	for _, res := range results {
		if err := ld.FlushAsyncLoading(ctx, res.RequestID); err != nil {
			return fmt.Errorf("flush of %s failed: %w", res.Package, err)
		}
	}
	return nil
}
