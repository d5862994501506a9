// Command smoother-cli reads a SmoothingInput JSON from a file argument (or
// stdin), plans a parabolic-smoothed trajectory, and writes the
// SmoothingResult JSON to stdout (or a file argument).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/cxd309/parabolic-smoother/internal/smoother"
)

const version = "0.1.0"

func main() {
	cmd := &cli.Command{
		Name:  "smoother-cli",
		Usage: "Parabolic shortcut trajectory smoother",
		Commands: []*cli.Command{
			planCommand(),
			{
				Name:  "version",
				Usage: "Print the build version",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Println(version)
					return nil
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func planCommand() *cli.Command {
	return &cli.Command{
		Name:      "plan",
		Usage:     "Smooth a waypoint trajectory and print the result",
		ArgsUsage: "[input-file] [output-file]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "seed",
				Usage: "Random generator seed for the shortcut sampler",
				Value: 0,
			},
			&cli.IntFlag{
				Name:  "max-iterations",
				Usage: "Maximum shortcut iterations",
				Value: 100,
			},
			&cli.Float64Flag{
				Name:  "search-vel-accel-mult",
				Usage: "Velocity/acceleration slow-down recovery gain",
				Value: 0.8,
			},
			&cli.Float64Flag{
				Name:  "step-length",
				Usage: "Jitter-avoidance trim applied before emission re-checks",
				Value: 0,
			},
			&cli.BoolFlag{
				Name:  "verify-initial-path",
				Usage: "Force full feasibility verification of every initial ramp",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug-verbosity logging, including trajectory dumps on failure",
			},
		},
		Action: runPlan,
	}
}

func runPlan(ctx context.Context, cmd *cli.Command) error {
	level := slog.LevelInfo
	if cmd.Bool("debug") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	data, err := readInput(cmd.Args().Get(0))
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	var input smoother.SmoothingInput
	if err := json.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("invalid input JSON: %w", err)
	}
	if seed := cmd.Int("seed"); seed > 0 {
		input.Params.RandomSeed = uint64(seed)
	}
	if input.Params.MaxIterations == 0 {
		input.Params.MaxIterations = int(cmd.Int("max-iterations"))
	}
	input.Params.SearchVelAccelMult = cmd.Float64("search-vel-accel-mult")
	input.Params.StepLength = cmd.Float64("step-length")
	input.Params.VerifyInitialPath = cmd.Bool("verify-initial-path")

	result, err := smoother.PlanPath(input, smoother.Options{Logger: logger})
	if err != nil {
		return fmt.Errorf("planning: %w", err)
	}

	out, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling output: %w", err)
	}

	return writeOutput(cmd.Args().Get(1), out)
}

func readInput(path string) ([]byte, error) {
	if path != "" {
		return os.ReadFile(path)
	}
	return io.ReadAll(os.Stdin)
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		fmt.Println(string(data))
		return nil
	}
	return os.WriteFile(path, data, 0o644)
}
