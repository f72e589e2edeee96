package material

import (
	"errors"
	"fmt"
	"math"

	"github.com/notargets/LSKernel/field"
	"go.uber.org/zap"
)

// CrossConfig holds the dimensional parameters of the Cross model
type CrossConfig struct {
	MuZero           float64 `yaml:"mu_zero"`
	MuInfinite       float64 `yaml:"mu_infinite"`
	PowerLawExponent float64 `yaml:"power_law_exponent"`
	ShearRateMuHalf  float64 `yaml:"shear_rate_mu_half"`
}

// Validate rejects parameter combinations the model cannot evaluate
func (c CrossConfig) Validate() error {
	var errs []error
	if c.MuZero < 0 {
		errs = append(errs, fmt.Errorf("mu_zero must be non-negative, got %g", c.MuZero))
	}
	if c.MuInfinite < 0 {
		errs = append(errs, fmt.Errorf("mu_infinite must be non-negative, got %g", c.MuInfinite))
	}
	if c.PowerLawExponent < 0 {
		errs = append(errs, fmt.Errorf("power_law_exponent must be non-negative, got %g", c.PowerLawExponent))
	}
	if c.ShearRateMuHalf <= 0 {
		errs = append(errs, fmt.Errorf("shear_rate_mu_half must be positive, got %g", c.ShearRateMuHalf))
	}
	return errors.Join(errs...)
}

// CrossModel is a shear-thinning viscosity closure:
//
//	mu = mu_inf + (mu_0 - mu_inf) / (1 + (gamma_dot / gamma_half)^n)
type CrossModel struct {
	cfg CrossConfig
	// derived once
	muZeroMinusInfinite float64
	oneShearRateMuHalf  float64
}

// NewCrossModel validates cfg and derives the model constants
func NewCrossModel(cfg CrossConfig) (*CrossModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cross viscosity model: %w", err)
	}
	return &CrossModel{
		cfg:                 cfg,
		muZeroMinusInfinite: cfg.MuZero - cfg.MuInfinite,
		oneShearRateMuHalf:  1 / cfg.ShearRateMuHalf,
	}, nil
}

// Viscosity evaluates the model at one shear rate
func (m *CrossModel) Viscosity(shearRate float64) float64 {
	return m.cfg.MuInfinite + m.muZeroMinusInfinite/
		(1+math.Pow(shearRate*m.oneShearRateMuHalf, m.cfg.PowerLawExponent))
}

// Fields describes the model for structured logs
func (m *CrossModel) Fields() []zap.Field {
	return []zap.Field{
		zap.String("model", "cross"),
		zap.Float64("mu_zero", m.cfg.MuZero),
		zap.Float64("mu_infinite", m.cfg.MuInfinite),
		zap.Float64("power_law_exponent", m.cfg.PowerLawExponent),
		zap.Float64("shear_rate_mu_half", m.cfg.ShearRateMuHalf),
	}
}

// UpdateShearViscosity writes the model viscosity into the ShearViscosity
// buffer of params for every cell that has both neighbours along each axis
// with more than one cell. It returns the number of cells written.
func (m *CrossModel) UpdateShearViscosity(velocity Velocity, cellSize float64,
	params *ParameterSet) (int, error) {
	if cellSize <= 0 {
		return 0, fmt.Errorf("cell size must be positive, got %g", cellSize)
	}
	out := params.Get(ShearViscosity)
	ext := out.Extents()
	for a, u := range velocity {
		if u != nil && u.Extents() != ext {
			return 0, fmt.Errorf("velocity %v extents %v do not match parameters %v",
				field.Axis(a), u.Extents(), ext)
		}
	}

	var lo, hi [field.NumAxes]int
	for a := field.Axis(0); a < field.NumAxes; a++ {
		lo[a], hi[a] = 0, ext.Along(a)
		if ext.Along(a) > 1 {
			lo[a], hi[a] = 1, ext.Along(a)-1
		}
	}

	var count int
	for i := lo[field.X]; i < hi[field.X]; i++ {
		for j := lo[field.Y]; j < hi[field.Y]; j++ {
			for k := lo[field.Z]; k < hi[field.Z]; k++ {
				out.Set(i, j, k, m.Viscosity(ShearRate(velocity, ext, i, j, k, cellSize)))
				count++
			}
		}
	}
	return count, nil
}

// ShearRate returns sqrt(2 S:S) at cell (i, j, k) from second-order central
// differences. Axes with a single cell contribute no gradient.
func ShearRate(velocity Velocity, ext field.Extents, i, j, k int, cellSize float64) float64 {
	var grad [field.NumAxes][field.NumAxes]float64 // grad[c][a] = du_c/dx_a
	inv := 0.5 / cellSize
	for c, u := range velocity {
		if u == nil {
			continue
		}
		for a := field.Axis(0); a < field.NumAxes; a++ {
			if ext.Along(a) < 2 {
				continue
			}
			stride := ext.Stride(a)
			n := u.Index(i, j, k)
			grad[c][a] = (u.Data()[n+stride] - u.Data()[n-stride]) * inv
		}
	}
	var ss float64
	for c := 0; c < field.NumAxes; c++ {
		for a := 0; a < field.NumAxes; a++ {
			s := 0.5 * (grad[c][a] + grad[a][c])
			ss += s * s
		}
	}
	return math.Sqrt(2 * ss)
}
