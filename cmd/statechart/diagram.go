package main

import (
	"fmt"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stateforward/statechart.go/examples/microwave"
	"github.com/stateforward/statechart.go/pkg/plantuml"
)

func newDiagramCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagram",
		Short: "Render the microwave statechart as PlantUML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := load(v)
			logger := newLogger(cmd.ErrOrStderr(), s.LogLevel)
			machine := microwave.Define()
			if _, err := machine.Compile(); err != nil {
				return fmt.Errorf("compile %s: %w", machine.Name(), err)
			}
			if s.Output == "" {
				return plantuml.Generate(cmd.OutOrStdout(), machine)
			}
			pending, err := renameio.NewPendingFile(s.Output)
			if err != nil {
				return fmt.Errorf("create pending diagram file: %w", err)
			}
			defer func() {
				if err := pending.Cleanup(); err != nil {
					logger.Debug().Err(err).Msg("cleanup pending diagram file")
				}
			}()
			if err := plantuml.Generate(pending, machine); err != nil {
				return fmt.Errorf("write diagram: %w", err)
			}
			if err := pending.CloseAtomicallyReplace(); err != nil {
				return fmt.Errorf("commit diagram: %w", err)
			}
			logger.Info().Str("path", s.Output).Msg("diagram written")
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "write the diagram to this file instead of stdout")
	return cmd
}
