package grasp

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// default values for formulation options.
const (
	// number of gripper fingers, one contact each.
	defaultNumContacts = 3

	// friction coefficient of the object surface.
	defaultMu = 1.

	// number of discretized friction cone edge rays.
	defaultNumConeEdges = 4

	// cap on the inward normal component of a contact force.
	defaultTauMax = 1.

	// floor on the shared friction cone robustness margin.
	defaultMarginFloor = 0.1

	// side count of the polygonal disk approximation in the linear decomposition.
	defaultPolygonSides = 8

	// big-M constant gating disjunctive rows. Must dominate the largest
	// feasible violation of any gated row.
	defaultBigM = 10.

	// bound on the pairwise contact offset along each octahedral direction.
	defaultMaxSeparation = 2.

	// half width of the tolerance band around a region's supporting plane.
	defaultPlaneTolerance = 0.01

	// quadratic cost weights.
	defaultQCws = 1.
	defaultQU   = 1.
	defaultQEta = 1.
)

// Options configures a Formulator.
type Options struct {
	NumContacts    int     `mapstructure:"num_contacts"`
	Mu             float64 `mapstructure:"mu_object"`
	NumConeEdges   int     `mapstructure:"num_edges"`
	TauMax         float64 `mapstructure:"tau_max"`
	MarginFloor    float64 `mapstructure:"margin_floor"`
	PolygonSides   int     `mapstructure:"sides"`
	BigM           float64 `mapstructure:"big_m"`
	MaxSeparation  float64 `mapstructure:"d_max"`
	PlaneTolerance float64 `mapstructure:"plane_tolerance"`
	QCws           float64 `mapstructure:"q_cws"`
	QU             float64 `mapstructure:"q_u"`
	QEta           float64 `mapstructure:"q_eta"`

	// MaximizeMargin attaches the -q_cws*epsilon reward to the objective so the
	// solver pushes the worst-case cone margin up. Off by default: the margin
	// is then only floored at MarginFloor.
	MaximizeMargin bool `mapstructure:"maximize_margin"`
}

// DefaultOptions returns the options with all defaults filled in.
func DefaultOptions() Options {
	return Options{
		NumContacts:    defaultNumContacts,
		Mu:             defaultMu,
		NumConeEdges:   defaultNumConeEdges,
		TauMax:         defaultTauMax,
		MarginFloor:    defaultMarginFloor,
		PolygonSides:   defaultPolygonSides,
		BigM:           defaultBigM,
		MaxSeparation:  defaultMaxSeparation,
		PlaneTolerance: defaultPlaneTolerance,
		QCws:           defaultQCws,
		QU:             defaultQU,
		QEta:           defaultQEta,
	}
}

// OptionsFromAttributes overlays an attribute map onto the defaults.
func OptionsFromAttributes(attrs map[string]interface{}) (Options, error) {
	opts := DefaultOptions()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return Options{}, err
	}
	if err := decoder.Decode(attrs); err != nil {
		return Options{}, errors.Wrap(err, "cannot parse formulation attributes")
	}
	return opts, opts.Validate()
}

// Validate checks the options for modeling-precondition violations.
func (o Options) Validate() error {
	var err error
	if o.NumContacts < 1 {
		err = multierr.Append(err, errors.Errorf("need at least one contact, got %d", o.NumContacts))
	}
	if o.Mu <= 0 {
		err = multierr.Append(err, errors.Errorf("friction coefficient must be positive, got %f", o.Mu))
	}
	if o.NumConeEdges < 3 {
		err = multierr.Append(err, errors.Errorf("need at least 3 cone edges, got %d", o.NumConeEdges))
	}
	if o.TauMax <= 0 {
		err = multierr.Append(err, errors.Errorf("max normal force must be positive, got %f", o.TauMax))
	}
	if o.MarginFloor < 0 {
		err = multierr.Append(err, errors.Errorf("margin floor must be non-negative, got %f", o.MarginFloor))
	}
	if o.PolygonSides < 3 {
		err = multierr.Append(err, errors.Errorf("need at least 3 polygon sides, got %d", o.PolygonSides))
	}
	if o.BigM <= 0 {
		err = multierr.Append(err, errors.Errorf("big-M constant must be positive, got %f", o.BigM))
	}
	if o.MaxSeparation <= 0 {
		err = multierr.Append(err, errors.Errorf("max separation must be positive, got %f", o.MaxSeparation))
	}
	if o.PlaneTolerance <= 0 {
		err = multierr.Append(err, errors.Errorf("plane tolerance must be positive, got %f", o.PlaneTolerance))
	}
	return err
}
