// Package smoother wires InitialRamper, Shortcutter, and Emitter behind one
// entry point (PlanPath): construct once from an input payload, run to
// completion or failure, and serialize the result.
package smoother

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cxd309/parabolic-smoother/internal/constraint"
	"github.com/cxd309/parabolic-smoother/internal/emit"
	"github.com/cxd309/parabolic-smoother/internal/initialramp"
	"github.com/cxd309/parabolic-smoother/internal/shortcut"
	"github.com/cxd309/parabolic-smoother/internal/trajectory"
)

// ProgressAction is returned by a Progress callback at each of the three
// cancellation points spec.md §5 names.
type ProgressAction int

const (
	ProgressContinue ProgressAction = iota
	ProgressInterrupt
)

// ProgressFunc is polled after initial ramp construction, after the
// shortcut loop, and (via Shortcutter) at every shortcut iteration. stage
// identifies which call site fired.
type ProgressFunc func(stage string, iteration int) ProgressAction

// StateSaver restores whatever external world state PlanPath's caller
// snapshotted before planning began (link transforms, active DOF,
// manipulator, velocities — spec.md §5). Restore is deferred immediately
// after the saver is handed to PlanPath, so it runs on every exit path:
// success, failure, or panic recovery.
type StateSaver interface {
	Restore() error
}

// Options carries the collaborators that cannot be JSON-serialized:
// the constraint oracle, the optional manipulator checker and manifold
// projector, the state-canonicalization function pair the Shortcutter uses
// before evaluating a candidate's endpoints, a state saver, a progress
// callback, and a logger.
type Options struct {
	Oracle       constraint.Oracle
	Manip        constraint.ManipChecker
	NeighStateFn constraint.NeighStateFn
	SetStateFn   constraint.SetStateFn
	GetStateFn   constraint.GetStateFn
	StateSaver   StateSaver
	Progress     ProgressFunc
	Logger       *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) poll(stage string, iteration int) bool {
	if o.Progress == nil {
		return true
	}
	return o.Progress(stage, iteration) != ProgressInterrupt
}

// PlanPath runs the full smoothing pipeline: initial ramp construction,
// randomized shortcutting, and output emission. Its error return is always
// nil: every failure, including initial ramp construction, is reported
// through SmoothingResult.Status/FailureReason.
func PlanPath(input SmoothingInput, opt Options) (SmoothingResult, error) {
	runID := uuid.New().String()
	logger := opt.logger()

	if opt.StateSaver != nil {
		defer func() {
			if err := opt.StateSaver.Restore(); err != nil {
				logger.Warn("smoother: state restoration failed", "run_id", runID, "error", err)
			}
		}()
	}

	limits := trajectory.Limits{VMax: input.Params.VMax, AMax: input.Params.AMax, XLo: input.Params.XLo, XHi: input.Params.XHi}
	tol := trajectory.DefaultTolerances()
	if input.Params.PointTolerance > 0 {
		tol.Position = input.Params.PointTolerance
		tol.Velocity = input.Params.PointTolerance
	}

	var checker *constraint.Checker
	if opt.Oracle != nil {
		checker = &constraint.Checker{
			Oracle:          opt.Oracle,
			Manip:           opt.Manip,
			VMax:            input.Params.VMax,
			Tol:             resolveTol(input.Params),
			EpsTime:         tol.Time,
			EpsPosition:     tol.Position,
			EpsVelocity:     tol.Velocity,
			EpsFloat:        1e-9,
			UsePerturbation: input.Params.UsePerturbation,
			Logger:          logger,
		}
	}
	if configurer, ok := opt.Manip.(constraint.ManipConfigurer); ok {
		configurer.ConfigureManip(input.Params.ManipName, input.Params.CosManipAngleThresh,
			input.Params.MaxManipSpeed, input.Params.MaxManipAccel)
	}

	path, failureReason := buildInitialPath(input, limits, tol, checker, opt, logger)
	if failureReason != "" {
		logger.Debug("smoother: initial ramp construction failed", "run_id", runID, "trajectory", input)
		return SmoothingResult{RunID: runID, Status: StatusFailed, FailureReason: failureReason}, nil
	}

	if !opt.poll("after-initial-ramp", 0) {
		return SmoothingResult{RunID: runID, Status: StatusInterrupted, Duration: path.EndTime()}, nil
	}

	accepted, err := runShortcutter(path, input.Params, checker, opt)
	if err != nil {
		if errors.Is(err, shortcut.ErrInterrupted) {
			return SmoothingResult{RunID: runID, Status: StatusInterrupted, Duration: path.EndTime(), ShortcutsAccepted: accepted}, nil
		}
		logger.Debug("smoother: shortcut loop failed", "run_id", runID, "error", err, "trajectory", input)
		return SmoothingResult{RunID: runID, Status: StatusFailed, FailureReason: err.Error()}, nil
	}

	if !opt.poll("after-shortcut-loop", 0) {
		return SmoothingResult{RunID: runID, Status: StatusInterrupted, Duration: path.EndTime(), ShortcutsAccepted: accepted}, nil
	}

	waypoints, err := emit.Emit(path, emit.Options{
		Checker:            checker,
		StepLength:         input.Params.StepLength,
		OutputAccelChanges: input.Params.OutputAccelChanges,
		Logger:             logger,
	})
	if err != nil {
		logger.Debug("smoother: emission failed", "run_id", runID, "error", err, "trajectory", input)
		return SmoothingResult{RunID: runID, Status: StatusFailed, FailureReason: err.Error()}, nil
	}

	return SmoothingResult{
		RunID:             runID,
		Status:            StatusSuccess,
		Waypoints:         waypoints,
		Duration:          path.EndTime(),
		ShortcutsAccepted: accepted,
	}, nil
}

func resolveTol(p Params) []float64 {
	if len(p.ConfigResolution) == 0 {
		tol := make([]float64, len(p.VMax))
		for i := range tol {
			tol[i] = 1e-3
		}
		return tol
	}
	tol := make([]float64, len(p.ConfigResolution))
	for i, r := range p.ConfigResolution {
		tol[i] = r * p.PointTolerance
	}
	return tol
}

func buildInitialPath(input SmoothingInput, limits trajectory.Limits, tol trajectory.Tolerances, checker *constraint.Checker, opt Options, logger *slog.Logger) (*trajectory.DynamicPath, string) {
	if input.Params.HasTimestamps && len(input.TimedWaypoints) > 0 {
		return initialramp.FromTimedWaypoints(input.TimedWaypoints, limits, tol, logger), ""
	}

	ramperOpt := initialramp.Options{
		VMax:              input.Params.VMax,
		AMax:              input.Params.AMax,
		XLo:               input.Params.XLo,
		XHi:               input.Params.XHi,
		NeighStateFn:      opt.NeighStateFn,
		SetStateFn:        opt.SetStateFn,
		Checker:           checker,
		VerifyInitialPath: input.Params.VerifyInitialPath,
		EpsX:              input.Params.PointTolerance,
		Tol:               tol,
	}
	if ramperOpt.EpsX <= 0 {
		ramperOpt.EpsX = 1e-5
	}

	path, err := initialramp.FromWaypoints(input.Waypoints, ramperOpt)
	if err != nil {
		return nil, fmt.Sprintf("initial ramp construction: %v", err)
	}
	return path, ""
}

func runShortcutter(path *trajectory.DynamicPath, p Params, checker *constraint.Checker, opt Options) (int, error) {
	sc := shortcut.New(shortcut.Options{
		Sampler:            shortcut.NewSampler(p.RandomSeed),
		Checker:            checker,
		Manip:              opt.Manip,
		SetStateFn:         opt.SetStateFn,
		GetStateFn:         opt.GetStateFn,
		MaxIterations:      p.MaxIterations,
		MinSpan:            1e-4,
		SearchVelAccelMult: p.SearchVelAccelMult,
		Logger:             opt.logger(),
		Progress: func(iteration, accepted int) shortcut.ProgressAction {
			if opt.Progress == nil {
				return shortcut.ProgressContinue
			}
			if opt.Progress("shortcut-iteration", iteration) == ProgressInterrupt {
				return shortcut.ProgressInterrupt
			}
			return shortcut.ProgressContinue
		},
	})
	return sc.Run(path)
}

// PlanPathJSON is the JSON entry point shared by cmd/cli and cmd/wasm. Since
// the constraint oracle, manipulator checker, and manifold projector are
// Go interfaces with no JSON representation, this entry point always runs
// with a permissive no-op oracle — callers embedding this module with a
// real oracle should call PlanPath directly instead.
func PlanPathJSON(jsonInput string) (string, error) {
	var input SmoothingInput
	if err := json.Unmarshal([]byte(jsonInput), &input); err != nil {
		return "", fmt.Errorf("invalid input JSON: %w", err)
	}

	result, err := PlanPath(input, Options{Oracle: nil})
	if err != nil {
		return "", err
	}

	out, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("marshaling output: %w", err)
	}
	return string(out), nil
}
