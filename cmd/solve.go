/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/notargets/srfsimple/InputParameters"
	"github.com/notargets/srfsimple/history"
	"github.com/notargets/srfsimple/model_problems/SRFSimple"
	"github.com/notargets/srfsimple/output"
	"github.com/notargets/srfsimple/utils"
)

type SolveOptions struct {
	CaseFile  string
	Profile   string
	History   string
	OutputDir string
}

// SolveCmd represents the solve command
var SolveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Run a case until the end iteration or until the residual controls are met",
	Long: `
Runs the SRF SIMPLE solver on a case file, optionally recording the residual
history and writing VTK files of p, Urel and Uabs at the write interval,

srfsimple solve -I case.yaml -o VTK --history runs.db`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := &SolveOptions{}
		opts.CaseFile, _ = cmd.Flags().GetString("case")
		opts.Profile, _ = cmd.Flags().GetString("profile")
		opts.OutputDir, _ = cmd.Flags().GetString("output")
		opts.History = viper.GetString("history")
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return RunSolve(ctx, opts, cmd.OutOrStdout(), logger)
	},
}

func init() {
	rootCmd.AddCommand(SolveCmd)
	SolveCmd.Flags().StringP("case", "I", "", "YAML case file with mesh, fields, models and SIMPLE controls")
	SolveCmd.Flags().StringP("output", "o", "", "directory for VTK output, none when empty")
	SolveCmd.Flags().String("profile", "", "profile the run: cpu or mem")
}

const exampleCase = `
########################################
title: "Rotating duct"
mesh:
  max: [1, 1, 2]
  cells: [4, 4, 8]
  patches:
    zMin: {name: inlet}
    zMax: {name: outlet}
    xMin: {name: walls, type: wall}
    ...
SRF: {model: rpm, axis: [0, 0, 1], rpm: 100}
turbulence: {model: laminar, nu: 0.01}
fields:
  p: {internalField: [0], boundaryField: {...}}
  Urel: {internalField: [0, 0, 0], boundaryField: {...}}
solvers:
  p: {solver: PCG, preconditioner: DIC, tolerance: 1.e-6, relTol: 0.01}
  Urel: {solver: smoothSolver, smoother: symGaussSeidel, tolerance: 1.e-6, relTol: 0.1}
control: {endTime: 100, writeInterval: 50}
########################################
`

func readCase(caseFile string) (cp *InputParameters.CaseParameters, err error) {
	if len(caseFile) == 0 {
		return nil, fmt.Errorf("must supply a case file (-I, --case), example:%s", exampleCase)
	}
	var data []byte
	if data, err = os.ReadFile(caseFile); err != nil {
		return
	}
	cp = &InputParameters.CaseParameters{}
	if err = cp.Parse(data); err != nil {
		return nil, fmt.Errorf("case file %s: %w", caseFile, err)
	}
	return
}

func RunSolve(ctx context.Context, opts *SolveOptions, out io.Writer, log *zap.Logger) (err error) {
	cp, err := readCase(opts.CaseFile)
	if err != nil {
		return
	}
	cp.Print(out)
	switch opts.Profile {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	default:
		return fmt.Errorf("unknown profile %q, use cpu or mem", opts.Profile)
	}
	c, err := SRFSimple.NewSRFSimple(cp, log)
	if err != nil {
		return
	}
	var monitors []SRFSimple.Monitor
	if opts.History != "" {
		var store *history.Store
		if store, err = history.Open(ctx, opts.History); err != nil {
			return
		}
		defer store.Close()
		if err = store.BeginRun(ctx, c.RunID, cp.Title); err != nil {
			return
		}
		monitors = append(monitors, recordHistory(ctx, store))
	}
	if opts.OutputDir != "" {
		monitors = append(monitors, writeFields(opts.OutputDir, log))
	}
	if err = c.Run(ctx, out, monitors...); err != nil {
		return
	}
	log.Info("run complete", zap.String("run", c.RunID.String()), zap.Int("iterations", c.Iteration),
		zap.Float64("cumulativeContinuityError", c.ContErr.Cumulative), zap.String("memory", utils.GetMemUsage()))
	return
}

func recordHistory(ctx context.Context, store *history.Store) SRFSimple.Monitor {
	return func(_ *SRFSimple.SRFSimple, rep SRFSimple.Report, _ bool) error {
		rec := history.IterationRecord{
			Iteration:    rep.Iteration,
			Residuals:    make(map[string]float64, len(rep.Residuals)),
			ContSumLocal: rep.ContErr.SumLocal,
			ContGlobal:   rep.ContErr.Global,
			ContCum:      rep.ContErr.Cumulative,
		}
		for name, perf := range rep.Residuals {
			rec.Residuals[name] = perf.InitialResidual
		}
		return store.Record(ctx, rec)
	}
}

func writeFields(dir string, log *zap.Logger) SRFSimple.Monitor {
	return func(c *SRFSimple.SRFSimple, rep SRFSimple.Report, write bool) error {
		if !write {
			return nil
		}
		path, err := output.WriteFile(dir, "srfsimple", rep.Iteration, c.Mesh,
			output.Field{Name: "p", Values: c.State.P.Internal},
			output.Field{Name: "Urel", Values: c.State.Urel.Internal},
			output.Field{Name: "Uabs", Values: c.Uabs()},
		)
		if err != nil {
			return err
		}
		log.Info("wrote fields", zap.String("path", path), zap.Int("iteration", rep.Iteration))
		return nil
	}
}
