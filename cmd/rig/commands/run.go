// Package commands provides the rig CLI command implementations.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/auralab/rig"
)

// Run command flags
var (
	runConfig string
	runTrials int
	runSeed   int64
)

// RunCmd runs a gap-laser session against in-memory hardware.
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a gap-laser session against in-memory hardware",
	Long: `Run a gap-laser session from a YAML config. Outputs one line per trial
with the trial number, target and laser fields, then a session summary.

The laser and LED are in-memory outputs and every stimulus completes
immediately, so the session exercises the full decision, trigger and
stage-machine path without touching GPIO.`,
	Example: `  # Run 20 trials from a config
  rig run --config task.yaml --trials 20

  # Deterministic rehearsal
  rig run --config task.yaml --trials 20 --seed 42`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(runConfig)
		if err != nil {
			return err
		}
		cfg, err := rig.ParseGapLaserConfig(data)
		if err != nil {
			return err
		}
		if runSeed != 0 {
			cfg.Seed = runSeed
		}

		task, stats, err := buildDryRunTask(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		runner := rig.NewTaskRunner(task, rig.RunnerConfig{MaxTrials: runTrials})
		runner.RegisterHook(&printTrialHook{out: cmd.OutOrStdout()})

		result := runner.Run(ctx)

		fmt.Fprintf(cmd.OutOrStdout(), "session %s: %d trials, %d lasered\n",
			result.Reason,
			stats.Get(rig.StatTrials),
			stats.Get(rig.StatLaserTrials))
		if result.Err != nil && result.Reason != rig.TerminationCanceled {
			return result.Err
		}
		return nil
	},
}

func init() {
	RunCmd.Flags().StringVarP(&runConfig, "config", "c", "task.yaml", "path to the task YAML config")
	RunCmd.Flags().IntVarP(&runTrials, "trials", "n", 10, "number of trials to run")
	RunCmd.Flags().Int64Var(&runSeed, "seed", 0, "override the config's random seed (0 keeps it)")
}

// buildDryRunTask wires a GapLaserTask to in-memory hardware and an
// immediately-completing stimulus source.
func buildDryRunTask(cfg *rig.GapLaserConfig) (*rig.GapLaserTask, *rig.SessionStats, error) {
	stimuli := rig.NewMockStimulusSource().
		Add(&rig.MockStimulus{Freq: 10000, Amp: 0.1, DurMs: 100, AutoFinish: true}, rig.TargetLeft).
		Add(&rig.MockStimulus{Freq: 20000, Amp: 0.1, DurMs: 100, AutoFinish: true}, rig.TargetRight)

	stats := rig.NewSessionStats()
	task, err := rig.NewGapLaserTask(cfg, rig.GapLaserDeps{
		Hardware: rig.GapLaserHardware{
			Laser:  rig.NewMemoryDigitalOut(),
			TopLED: rig.NewMemoryDigitalOut(),
		},
		Stimuli: stimuli,
		Noise:   &rig.MockContinuousStimulus{},
		Stats:   stats,
	})
	if err != nil {
		return nil, nil, err
	}
	return task, stats, nil
}
