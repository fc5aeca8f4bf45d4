package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/auralab/rig"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// Console command flags
var (
	consoleConfig string
	consoleSeed   int64
)

// ConsoleCmd opens an interactive console that steps a dry-run session one
// trial at a time.
var ConsoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Step a dry-run session interactively",
	Long: `Open an interactive console bound to a gap-laser task running against
in-memory hardware. Commands:

  step [n]    run n trials (default 1)
  conditions  list the compiled laser conditions
  stats       print session counters
  quit        end the session and exit`,
	Example: `  rig console --config task.yaml --seed 42`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(consoleConfig)
		if err != nil {
			return err
		}
		cfg, err := rig.ParseGapLaserConfig(data)
		if err != nil {
			return err
		}
		if consoleSeed != 0 {
			cfg.Seed = consoleSeed
		}

		task, stats, err := buildDryRunTask(cfg)
		if err != nil {
			return err
		}
		defer task.End()

		return consoleLoop(cmd.Context(), cmd.OutOrStdout(), task, stats)
	},
}

func init() {
	ConsoleCmd.Flags().StringVarP(&consoleConfig, "config", "c", "task.yaml", "path to the task YAML config")
	ConsoleCmd.Flags().Int64Var(&consoleSeed, "seed", 0, "override the config's random seed (0 keeps it)")
}

func consoleLoop(ctx context.Context, out io.Writer, task *rig.GapLaserTask, stats *rig.SessionStats) error {
	rl, err := readline.New(colorCyan + "rig> " + colorReset)
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	printRecord := &printTrialHook{out: out}

	for {
		input, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Fprintf(out, "%ssession ended%s\n", colorGreen, colorReset)
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		fields := strings.Fields(strings.TrimSpace(input))
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "step", "s":
			n := 1
			if len(fields) > 1 {
				if _, err := fmt.Sscanf(fields[1], "%d", &n); err != nil || n < 1 {
					fmt.Fprintf(out, "%susage: step [n]%s\n", colorYellow, colorReset)
					continue
				}
			}
			for i := 0; i < n; i++ {
				record, err := task.Step(ctx)
				if err != nil {
					return err
				}
				printRecord.OnAfterTrial(ctx, rig.AfterTrialEvent{TrialNum: record.TrialNum, Record: record})
				if err := task.AwaitAdvance(ctx); err != nil {
					return err
				}
			}

		case "conditions", "c":
			conditions := task.Conditions()
			if len(conditions) == 0 {
				fmt.Fprintf(out, "%sno laser conditions configured%s\n", colorYellow, colorReset)
				continue
			}
			for _, c := range conditions {
				fmt.Fprintf(out, "%s  (duration=%v ms, freq=%v Hz, duty=%v)\n", c.ScriptId, c.DurationMs, c.FreqHz, c.DutyCycle)
			}

		case "stats":
			snapshot := stats.Snapshot()
			keys := make([]string, 0, len(snapshot))
			for k := range snapshot {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "%s = %d\n", k, snapshot[k])
			}

		case "quit", "q", "exit":
			fmt.Fprintf(out, "%ssession ended%s\n", colorGreen, colorReset)
			return nil

		default:
			fmt.Fprintf(out, "%sunknown command %q (step, conditions, stats, quit)%s\n", colorYellow, fields[0], colorReset)
		}
	}
}
