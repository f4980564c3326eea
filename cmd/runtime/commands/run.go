package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fiberkernel/container"
	"fiberkernel/handle"
	"fiberkernel/service"
)

var (
	runClass          string
	runMode           string
	runOpBudget       int
	runTrace          bool
	runTraceGlobs     string
	runTimeout        time.Duration
	runAssertSeverity string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Construct one instance and print the result",
	Long: `Start a single service, submit one Construct message for --class, wait
for its response future to resolve, and print the result (or the
exception that escaped construction).

Examples:
  fiberkernel run --class Widget
  fiberkernel run --class Widget --mode Exclusive --trace --trace-filter 'Widget.*'`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runClass, "class", "", "class id to construct (required)")
	runCmd.Flags().StringVar(&runMode, "mode", "", "re-entrancy mode override (Forbidden, Exclusive, Prioritized, Open)")
	runCmd.Flags().IntVar(&runOpBudget, "op-budget", 0, "per-tick instruction budget override")
	runCmd.Flags().BoolVar(&runTrace, "trace", false, "enable execution tracing")
	runCmd.Flags().StringVar(&runTraceGlobs, "trace-filter", "", "comma-separated trace filter globs, e.g. 'Widget.*,Gadget.*'")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 10*time.Second, "how long to wait for the construct response")
	runCmd.Flags().StringVar(&runAssertSeverity, "assert-severity", "fatal", "how an AssertionFailed result is reported: fatal (nonzero exit) or warn (log and exit 0)")
	_ = runCmd.MarkFlagRequired("class")
}

func runRun(cmd *cobra.Command, args []string) error {
	rc, err := container.LoadRuntimeConfig(GetConfigFile())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if runMode != "" {
		rc.DefaultMode = runMode
	}
	if runOpBudget > 0 {
		rc.OpBudget = runOpBudget
	}
	if runTrace {
		rc.TraceEnabled = true
	}
	if runTraceGlobs != "" {
		var filters []string
		for _, f := range strings.Split(runTraceGlobs, ",") {
			filters = append(filters, strings.TrimSpace(f))
		}
		rc.TraceFilters = filters
	}

	c := container.New(rc.ToConfig(nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	svcID, err := c.CreateService(container.ParseReentrancyMode(rc.DefaultMode))
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	fut, err := c.Submit(svcID, &service.Message{Kind: service.Construct, ClassID: runClass})
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	deadline := time.After(runTimeout)
	for {
		if ready, value, exc := fut.Poll(); ready {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = c.Shutdown(shutdownCtx)
			shutdownCancel()
			if exc != nil {
				if exc.Code == handle.ErrAssertionFailed && runAssertSeverity == "warn" {
					fmt.Fprintf(os.Stderr, "warning: construct %s: %s\n", runClass, exc.Error())
					return nil
				}
				return fmt.Errorf("construct %s: %s", runClass, exc.Error())
			}
			fmt.Printf("%s => %v\n", runClass, value)
			return nil
		}
		select {
		case <-ctx.Done():
			_ = c.Shutdown(context.Background())
			return fmt.Errorf("interrupted")
		case <-deadline:
			_ = c.Shutdown(context.Background())
			return fmt.Errorf("construct %s: timed out after %s", runClass, runTimeout)
		case <-time.After(time.Millisecond):
		}
	}
}
