package cmd

import (
	"fmt"
	"os"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/notargets/gomesh/InputParameters"
	"github.com/notargets/gomesh/geometry2D"
	"github.com/notargets/gomesh/mesh"
	"github.com/notargets/gomesh/orthogonalization"
	"github.com/notargets/gomesh/readfiles"
)

type orthogonalizeModel struct {
	NetFile    string
	ParamsFile string
	OutFile    string
	Projection string
	Verbose    bool
	Profile    bool
}

// orthogonalizeCmd runs the orthogonalization engine over a net file
var orthogonalizeCmd = &cobra.Command{
	Use:   "orthogonalize",
	Short: "Orthogonalize and smooth an unstructured net",
	Long: `Orthogonalize and smooth an unstructured net read from a net file,
writing the repositioned nodes back out`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			om  orthogonalizeModel
			err error
		)
		if om.NetFile, err = cmd.Flags().GetString("netFile"); err != nil {
			panic(err)
		}
		if om.ParamsFile, err = cmd.Flags().GetString("paramsFile"); err != nil {
			panic(err)
		}
		if om.OutFile, err = cmd.Flags().GetString("outFile"); err != nil {
			panic(err)
		}
		if om.Projection, err = cmd.Flags().GetString("projection"); err != nil {
			panic(err)
		}
		if om.Verbose, err = cmd.Flags().GetBool("verbose"); err != nil {
			panic(err)
		}
		if om.Profile, err = cmd.Flags().GetBool("profile"); err != nil {
			panic(err)
		}
		if om.Profile {
			defer profile.Start().Stop()
		}
		if err = runOrthogonalize(&om); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func runOrthogonalize(om *orthogonalizeModel) error {
	var projection geometry2D.Projection
	switch om.Projection {
	case "cartesian", "":
		projection = geometry2D.Cartesian
	case "spherical":
		projection = geometry2D.Spherical
	case "sphericalAccurate":
		projection = geometry2D.SphericalAccurate
	default:
		return fmt.Errorf("unknown projection %q", om.Projection)
	}

	nodes, edges, err := readfiles.ReadNet(om.NetFile, om.Verbose)
	if err != nil {
		return err
	}
	m, err := mesh.NewMesh(nodes, edges, projection)
	if err != nil {
		return err
	}

	params := InputParameters.DefaultOrthogonalizationParameters()
	if om.ParamsFile != "" {
		data, err := os.ReadFile(om.ParamsFile)
		if err != nil {
			return err
		}
		if err = params.Parse(data); err != nil {
			return err
		}
	}
	if err = params.Validate(); err != nil {
		return err
	}
	if om.Verbose {
		params.Print()
	}

	var ortho orthogonalization.Orthogonalization
	if err = ortho.Set(m, params, nil, nil); err != nil {
		return err
	}
	if err = ortho.Compute(m); err != nil {
		return err
	}

	if om.Verbose {
		reportOrthogonality(&ortho, m)
	}
	if om.OutFile != "" {
		if err = readfiles.WriteNet(om.OutFile, m.Nodes, m.Edges); err != nil {
			return err
		}
		if om.Verbose {
			fmt.Printf("Wrote %s\n", om.OutFile)
		}
	}
	return nil
}

func reportOrthogonality(ortho *orthogonalization.Orthogonalization, m *mesh.Mesh) {
	out := make([]float64, m.NumEdges())
	ortho.GetOrthogonality(m, out)
	var (
		worst float64
		sum   float64
		count int
	)
	for _, v := range out {
		if v == geometry2D.DoubleMissing {
			continue
		}
		if v > worst {
			worst = v
		}
		sum += v
		count++
	}
	if count > 0 {
		fmt.Printf("orthogonality over %d internal edges: mean %.3e, worst %.3e\n",
			count, sum/float64(count), worst)
	}
	if len(ortho.NodeErrors) > 0 {
		fmt.Printf("%d nodes were skipped on degenerate geometry\n", len(ortho.NodeErrors))
	}
}

func init() {
	rootCmd.AddCommand(orthogonalizeCmd)
	orthogonalizeCmd.Flags().StringP("netFile", "F", "net.txt", "net file containing the mesh")
	orthogonalizeCmd.Flags().StringP("paramsFile", "I", "", "YAML file with orthogonalization parameters")
	orthogonalizeCmd.Flags().StringP("outFile", "O", "", "write the resulting net to this file")
	orthogonalizeCmd.Flags().StringP("projection", "P", "cartesian", "cartesian, spherical or sphericalAccurate")
	orthogonalizeCmd.Flags().BoolP("verbose", "v", false, "print parameters and quality statistics")
	orthogonalizeCmd.Flags().Bool("profile", false, "write a CPU profile")
}
