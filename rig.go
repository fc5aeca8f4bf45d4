// Package rig provides a behavioral-experiment task controller that drives
// digital-output hardware (optogenetic lasers, LEDs) in lock-step with a
// trial stage machine.
//
// The package is built around five pieces:
//
//   - [CompilePulse] turns (duration, frequency, duty cycle) into an exact
//     on/off square-wave [PulseScript] that can be installed on a hardware
//     driver and fired later by id.
//   - [BuildConditions] enumerates the Cartesian product of duration,
//     frequency and duty-cycle lists, compiles each combination, installs it
//     on a [DigitalOut], and returns the resulting [PulseCondition] set.
//   - [TriggerSchedule] holds per-gate deques of deferred actions. All
//     structural changes and the drain-and-invoke path run under one shared
//     lock, so a trial-setup producer and a stimulus-end consumer never see
//     a partially-built list.
//   - [StageMachine] cycles through named trial stages. Entering a stage
//     clears the stage-advance [StageSignal]; after the stage runs, a
//     cancellable single-shot timer re-sets the signal once the
//     inter-stimulus interval has elapsed.
//   - [LaserSelector] decides, per trial, whether an intervention pulse
//     fires: the trial must qualify under the configured [LaserMode], pass a
//     probability draw, and then one compiled condition is chosen uniformly
//     at random from the set.
//
// Two complete tasks tie these together: [GapLaserTask] (gap detection with
// optogenetic laser control and continuous background noise) and
// [TuningCurveTask] (tone presentation with an LED blink). Both implement
// [Task] and are driven by a [TaskRunner], which fires lifecycle hooks and
// collects a [SessionResult].
//
// # Quick Start
//
//	cfg, err := rig.ParseGapLaserConfig(configYAML)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	task, err := rig.NewGapLaserTask(cfg, rig.GapLaserDeps{
//	    Hardware: rig.GapLaserHardware{Laser: laserOut, TopLED: ledOut},
//	    Stimuli:  stimuli,
//	    Noise:    noise,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	runner := rig.NewTaskRunner(task, rig.RunnerConfig{MaxTrials: 200})
//	result := runner.Run(ctx)
//
// Hardware drivers, sound synthesis and subject-data persistence are
// external collaborators; the package only defines their interface
// boundaries ([DigitalOut], [Stimulus], [StimulusSource],
// [ContinuousStimulus]) and ships in-memory fakes for tests and dry runs.
package rig
