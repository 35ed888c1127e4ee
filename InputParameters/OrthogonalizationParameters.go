package InputParameters

import (
	"fmt"

	"github.com/ghodss/yaml"
)

// Parameters obtained from the YAML input file
type OrthogonalizationParameters struct {
	Title              string  `yaml:"Title"`
	OuterIterations    int     `yaml:"OuterIterations"`
	BoundaryIterations int     `yaml:"BoundaryIterations"`
	InnerIterations    int     `yaml:"InnerIterations"`
	// Blend between orthogonalizer (1.0) and smoother (0.0)
	OrthogonalizationToSmoothingFactor         float64 `yaml:"OrthogonalizationToSmoothingFactor"`
	OrthogonalizationToSmoothingFactorBoundary float64 `yaml:"OrthogonalizationToSmoothingFactorBoundary"`
	Smoothorarea                               float64 `yaml:"Smoothorarea"`
	ProjectToLandBoundaryOption                int     `yaml:"ProjectToLandBoundaryOption"`
}

// DefaultOrthogonalizationParameters returns the settings used when no input
// file is given
func DefaultOrthogonalizationParameters() OrthogonalizationParameters {
	return OrthogonalizationParameters{
		OuterIterations:                    2,
		BoundaryIterations:                 25,
		InnerIterations:                    25,
		OrthogonalizationToSmoothingFactor: 0.975,
		OrthogonalizationToSmoothingFactorBoundary: 1.0,
		Smoothorarea:                1.0,
		ProjectToLandBoundaryOption: 0,
	}
}

// Validate rejects iteration counts and blending factors outside their
// meaningful ranges
func (op *OrthogonalizationParameters) Validate() error {
	if op.OuterIterations < 0 || op.BoundaryIterations < 0 || op.InnerIterations < 0 {
		return fmt.Errorf("iteration counts must be non-negative")
	}
	if op.OrthogonalizationToSmoothingFactor < 0.0 || op.OrthogonalizationToSmoothingFactor > 1.0 {
		return fmt.Errorf("OrthogonalizationToSmoothingFactor must be within [0, 1]")
	}
	if op.OrthogonalizationToSmoothingFactorBoundary < 0.0 || op.OrthogonalizationToSmoothingFactorBoundary > 1.0 {
		return fmt.Errorf("OrthogonalizationToSmoothingFactorBoundary must be within [0, 1]")
	}
	return nil
}

func (op *OrthogonalizationParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, op)
}

func (op *OrthogonalizationParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", op.Title)
	fmt.Printf("[%d]\t\t\t= Outer Iterations\n", op.OuterIterations)
	fmt.Printf("[%d]\t\t\t= Boundary Iterations\n", op.BoundaryIterations)
	fmt.Printf("[%d]\t\t\t= Inner Iterations\n", op.InnerIterations)
	fmt.Printf("%8.5f\t\t= OrthogonalizationToSmoothingFactor\n", op.OrthogonalizationToSmoothingFactor)
	fmt.Printf("%8.5f\t\t= OrthogonalizationToSmoothingFactorBoundary\n", op.OrthogonalizationToSmoothingFactorBoundary)
	fmt.Printf("%8.5f\t\t= Smoothorarea\n", op.Smoothorarea)
	fmt.Printf("[%d]\t\t\t= ProjectToLandBoundaryOption\n", op.ProjectToLandBoundaryOption)
}
