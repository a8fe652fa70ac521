package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/spf13/cobra"

	"tickrt"
)

var (
	labelColor = color.New(color.FgCyan, color.Bold)
	timeColor  = color.New(color.FgYellow)
	statColor  = color.New(color.FgGreen, color.Bold)
	warnColor  = color.New(color.FgRed, color.Bold)
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a timer scenario against the wall clock",
	Long: `demo loads a scenario (built-in unless --config is given), registers its
timers with the runtime, and dispatches their callbacks until the scenario
duration elapses or the process is interrupted.`,
	RunE: runDemo,
}

func runDemo(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	levelName, _ := cmd.Flags().GetString("log-level")
	noColor, _ := cmd.Flags().GetBool("no-color")
	if noColor {
		color.NoColor = true
	}

	cfg, err := loadScenario(configPath)
	if err != nil {
		return err
	}

	level, err := parseLevel(levelName)
	if err != nil {
		return err
	}
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(os.Stderr)),
		stumpy.L.WithLevel(level),
	).Logger()

	rt, err := tickrt.New(
		tickrt.WithTickPeriod(cfg.Runtime.TickPeriod.Duration),
		tickrt.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer rt.Shutdown()

	start := time.Now()
	stamp := func() string {
		return timeColor.Sprintf("%8s", time.Since(start).Round(time.Millisecond))
	}

	out := cmd.OutOrStdout()
	outMu := new(sync.Mutex) // callbacks print from the drain goroutine

	for _, tc := range cfg.Timers {
		remaining := tc.Repeat
		var fire tickrt.Callback
		fire = func(_ any, id tickrt.ID) {
			outMu.Lock()
			fmt.Fprintf(out, "%s  timer %s fired (id %d)\n", stamp(), labelColor.Sprint(tc.Label), id)
			outMu.Unlock()
			if remaining > 0 {
				remaining--
				if _, err := rt.TimerAdd(tc.Delay.Duration, fire, nil); err != nil {
					logger.Err().
						Err(err).
						Str("timer", tc.Label).
						Log("re-arm failed")
				}
			}
		}
		id, err := rt.TimerAdd(tc.Delay.Duration, fire, nil)
		if err != nil {
			return fmt.Errorf("register timer %q: %w", tc.Label, err)
		}
		outMu.Lock()
		fmt.Fprintf(out, "%s  timer %s armed for %v (id %d)\n", stamp(), labelColor.Sprint(tc.Label), tc.Delay.Duration, id)
		outMu.Unlock()
	}

	for i := 0; i < cfg.Demo.Enqueue; i++ {
		n := i + 1
		if _, err := rt.Enqueue(func(_ any, id tickrt.ID) {
			outMu.Lock()
			fmt.Fprintf(out, "%s  deferred call %d dispatched (id %d)\n", stamp(), n, id)
			outMu.Unlock()
		}, nil); err != nil {
			return fmt.Errorf("enqueue deferred call %d: %w", n, err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Demo.Duration.Duration)
	defer cancel()

	if err := rt.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}

	printReport(out, rt.Stats(), rt.Uptime())
	return nil
}

func printReport(out io.Writer, s tickrt.Stats, uptime time.Duration) {
	fmt.Fprintf(out, "\n%s (uptime %v)\n", statColor.Sprint("runtime report"), uptime.Round(time.Millisecond))
	fmt.Fprintf(out, "  ticks observed   %d\n", s.Ticks)
	fmt.Fprintf(out, "  calls queued     %d\n", s.Enqueued)
	fmt.Fprintf(out, "  calls dispatched %d\n", s.Drained)
	fmt.Fprintf(out, "  timers added     %d\n", s.TimersAdded)
	fmt.Fprintf(out, "  timers fired     %d\n", s.TimersFired)
	fmt.Fprintf(out, "  timers canceled  %d\n", s.TimersCanceled)
	if s.Dropped > 0 || s.TimersRejected > 0 {
		fmt.Fprintf(out, "  %s dropped=%d rejected=%d (episodes: queue=%d slots=%d)\n",
			warnColor.Sprint("overload"), s.Dropped, s.TimersRejected,
			s.QueueFullEpisodes, s.TimerBusyEpisodes)
	}
	if s.PendingCalls > 0 || s.ActiveTimers > 0 {
		fmt.Fprintf(out, "  still pending    calls=%d timers=%d\n", s.PendingCalls, s.ActiveTimers)
	}
}

func parseLevel(name string) (logiface.Level, error) {
	switch name {
	case "debug":
		return logiface.LevelDebug, nil
	case "info":
		return logiface.LevelInformational, nil
	case "warn", "warning":
		return logiface.LevelWarning, nil
	case "err", "error":
		return logiface.LevelError, nil
	default:
		return logiface.LevelDisabled, fmt.Errorf("unknown log level %q", name)
	}
}
