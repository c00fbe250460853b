package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shaiso/Tenderflow/internal/catalog"
)

var stepHeaders = []string{"STEP", "TITLE", "ROLE", "EST_DAYS", "MAX_DAYS", "ON_REJECT"}

// NewCatalogCmd создаёт группу команд для каталога шагов.
//
// validate и export работают без API.
func NewCatalogCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the step catalog",
	}

	cmd.AddCommand(
		newCatalogListCmd(clientFn, outputFn),
		newCatalogValidateCmd(outputFn),
		newCatalogExportCmd(),
	)

	return cmd
}

func newCatalogListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var phase int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog steps served by the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()

			var phases []PhaseResponse
			if phase > 0 {
				p, err := client.Phase(phase)
				if err != nil {
					return err
				}
				phases = []PhaseResponse{*p}
			} else {
				cat, err := client.Catalog()
				if err != nil {
					return err
				}
				phases = cat.Phases
			}

			var rows [][]string
			for _, p := range phases {
				for i := range p.Steps {
					rows = append(rows, stepRow(&p.Steps[i]))
				}
			}

			outputFn().Print(stepHeaders, rows, phases)
			return nil
		},
	}

	cmd.Flags().IntVar(&phase, "phase", 0, "Show only this phase")

	return cmd
}

func newCatalogValidateCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a catalog YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.LoadFile(args[0])
			if err != nil {
				return err
			}

			outputFn().Success(fmt.Sprintf("Catalog is valid: %d phases, %d steps", cat.PhaseCount(), cat.TotalSteps()))
			return nil
		},
	}
}

func newCatalogExportCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the built-in reference catalog as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Default()
			if err != nil {
				return err
			}
			data, err := catalog.Marshal(name, cat)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&name, "name", "reference", "Catalog name written to the file")

	return cmd
}

func stepRow(s *StepResponse) []string {
	onReject := "-"
	if s.OnRejectTarget != nil {
		onReject = s.OnRejectTarget.String()
	}
	return []string{
		strconv.Itoa(s.Phase) + "." + strconv.Itoa(s.StepNumber),
		s.Title,
		s.ResponsibleRole,
		strconv.Itoa(s.EstimatedDays),
		strconv.Itoa(s.MaxDays),
		onReject,
	}
}
