// Package main assembles the grasp-planning model for a cube-shaped object
// and reports its structure, as a smoke test of the formulation pipeline.
package main

import (
	"fmt"
	"os"

	"github.com/edaniels/golog"
	"github.com/urfave/cli/v2"

	"go.viam.com/graspplan/grasp"
	"go.viam.com/graspplan/miqcp"
	"go.viam.com/graspplan/region"
)

func main() {
	app := &cli.App{
		Name:  "graspdemo",
		Usage: "assemble a grasp-planning MIQCP for a cube and print its structure",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "contacts", Value: 3, Usage: "number of gripper fingers"},
			&cli.Float64Flag{Name: "mu", Value: 1, Usage: "friction coefficient"},
			&cli.IntFlag{Name: "sides", Value: 8, Usage: "polygon side count for the linear decomposition"},
			&cli.BoolFlag{Name: "quadratic", Usage: "use the exact quadratic cone decomposition"},
			&cli.Float64Flag{Name: "cube-half", Value: 1, Usage: "cube half extent"},
			&cli.Float64Flag{Name: "patch-half", Value: 0.5, Usage: "safe region patch half width"},
		},
		Action: runDemo,
	}
	if err := app.Run(os.Args); err != nil {
		golog.Global().Fatal(err)
	}
}

func runDemo(c *cli.Context) error {
	logger := golog.NewDevelopmentLogger("graspdemo")

	regions, err := region.CubeFaces(c.Float64("cube-half"), c.Float64("patch-half"))
	if err != nil {
		return err
	}
	opts := grasp.DefaultOptions()
	opts.NumContacts = c.Int("contacts")
	opts.Mu = c.Float64("mu")
	opts.PolygonSides = c.Int("sides")

	model := miqcp.NewModel()
	gf, err := grasp.NewFormulator(model, regions, opts, logger)
	if err != nil {
		return err
	}
	kind := grasp.LinearDecomposition
	if c.Bool("quadratic") {
		kind = grasp.QuadraticDecomposition
	}
	if err := gf.BuildAll(kind); err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "regions: %d\ncontacts: %d\nvariables: %d\n", len(regions), opts.NumContacts, model.NumVars())
	fmt.Fprintf(c.App.Writer, "inequality rows: %d\nequality rows: %d\nquadratic constraints: %d\n",
		model.NumIneq(), model.NumEq(), model.NumQuadConstraints())
	if kind == grasp.QuadraticDecomposition {
		fmt.Fprintln(c.App.Writer, "solver requirement: mixed-integer QCQP")
	} else {
		fmt.Fprintln(c.App.Writer, "solver requirement: mixed-integer QP (polyhedral torque relaxation)")
	}
	return nil
}
