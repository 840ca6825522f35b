package SRFSimple

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

// Monitor observes each completed outer iteration, write is set at write times
type Monitor func(c *SRFSimple, rep Report, write bool) error

// Run iterates until EndTime or residual convergence. Cancellation of ctx is checked
// between outer iterations.
func (c *SRFSimple) Run(ctx context.Context, out io.Writer, monitors ...Monitor) (err error) {
	var (
		start = time.Now()
		steps int
	)
	c.PrintInitialization(out)
	for c.Iteration < c.Control.EndTime {
		if err = ctx.Err(); err != nil {
			return
		}
		var rep Report
		if rep, err = c.Iterate(ctx); err != nil {
			c.log.Error("outer iteration failed", zap.Int("iteration", c.Iteration), zap.Error(err))
			return
		}
		steps++
		converged := c.Control.Converged(rep.Residuals)
		write := converged || c.Control.IsWriteTime(c.Iteration)
		c.PrintUpdate(out, rep)
		for _, mon := range monitors {
			if err = mon(c, rep, write); err != nil {
				return
			}
		}
		if converged {
			c.log.Info("residual controls satisfied", zap.Int("iteration", c.Iteration))
			fmt.Fprintf(out, "\nSIMPLE solution converged in %d iterations\n", c.Iteration)
			break
		}
	}
	c.PrintFinal(out, time.Since(start), steps)
	return
}

func (c *SRFSimple) PrintInitialization(out io.Writer) {
	fmt.Fprintf(out, "SRF SIMPLE steady incompressible solver\n")
	if c.Title != "" {
		fmt.Fprintf(out, "Solving %s\n", c.Title)
	}
	fmt.Fprintf(out, "Turbulence model: %s, SRF model: %s, %d sources\n",
		c.Turbulence.Name(), c.SRF.Name(), c.Sources.Len())
	fmt.Fprintf(out, "Cells K = %d, Faces = %d, Non-orthogonal correctors = %d\n\n",
		c.Mesh.NCells, c.Mesh.NFaces, c.Control.NNonOrthCorr)
	fmt.Fprintf(out, "Solving until Max Iterations = %d\n", c.Control.EndTime)
	fmt.Fprintf(out, "    iter")
	fmt.Fprintf(out, "      p_init   Urel_init")
	fmt.Fprintf(out, "   cont_local  cont_global    cont_cum\n")
}

func (c *SRFSimple) PrintUpdate(out io.Writer, rep Report) {
	var (
		format = "%12.4e"
	)
	fmt.Fprintf(out, "%8d", rep.Iteration)
	for _, name := range []string{"p", "Urel"} {
		fmt.Fprintf(out, format, rep.Residuals[name].InitialResidual)
	}
	fmt.Fprintf(out, format, rep.ContErr.SumLocal)
	fmt.Fprintf(out, format, rep.ContErr.Global)
	fmt.Fprintf(out, format, rep.ContErr.Cumulative)
	fmt.Fprintf(out, "\n")
}

func (c *SRFSimple) PrintFinal(out io.Writer, elapsed time.Duration, steps int) {
	if steps == 0 {
		return
	}
	rate := float64(elapsed.Microseconds()) / (float64(c.Mesh.NCells) * float64(steps))
	fmt.Fprintf(out, "\nRate of execution = %8.5f us/(cell*iteration) over %d iterations\n", rate, steps)
}
