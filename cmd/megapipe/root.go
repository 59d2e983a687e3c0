package main

import (
	"github.com/dlops-io/mega-pipeline-aws/internal/stages"
	"github.com/spf13/cobra"
)

const annotationSkipConfig = "skipConfigLoad"

func newRootCommand() *cobra.Command {
	var configFlag string

	var workDirFlag string

	cc := newCommandContext(&configFlag, &workDirFlag)

	rootCmd := &cobra.Command{
		Use:           "megapipe",
		Short:         "Run the media pipeline stages",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}

			_, err := cc.ensureConfig()

			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&workDirFlag, "work-dir", "w", "", "Local working directory")

	for _, definition := range stages.Catalogue() {
		rootCmd.AddCommand(newStageCommand(cc, definition))
	}

	rootCmd.AddCommand(newStagesCommand())

	return rootCmd
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations[annotationSkipConfig] == "true" {
			return true
		}
	}

	return false
}
