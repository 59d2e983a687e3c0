package main

import (
	"fmt"

	"github.com/dlops-io/mega-pipeline-aws/internal/stages"
	"github.com/spf13/cobra"
)

func newStagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "stages",
		Short:       "List the pipeline stages",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationSkipConfig: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			definitions := stages.Catalogue()

			rows := make([][]string, 0, len(definitions))
			for _, definition := range definitions {
				rows = append(rows, []string{
					definition.Name,
					definition.Input.Prefix,
					definition.Output.Prefix,
					definition.Description,
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(stagesColumns, rows))

			return nil
		},
	}
}
