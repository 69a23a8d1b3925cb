package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stateforward/statechart.go"
	"github.com/stateforward/statechart.go/examples/microwave"
	"github.com/stateforward/statechart.go/pkg/snapshot"
)

func newRunCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [message...]",
		Short: "Evaluate messages against a microwave and print its configuration",
		Long: `Evaluates each message in order against one microwave instance.

Messages are event names (door_open, door_close, start, stop, tick, add_30),
time=<seconds> or power=<level>. With --state-dir the instance is loaded from
and saved back to <state-dir>/<id>.<format>, together with the timer and power
level, so successive runs continue where the previous one stopped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := load(v)
			format, err := snapshot.ParseFormat(s.Format)
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), s.LogLevel)
			model, err := microwave.Define().Compile(statechart.Config{Logger: &logger})
			if err != nil {
				return fmt.Errorf("compile microwave: %w", err)
			}
			ctx := cmd.Context()
			oven := microwave.New(s.ID)
			persister := snapshot.FilePersister{Dir: s.StateDir, Format: format}

			restored := false
			if s.StateDir != "" && s.ID != "" {
				snap, err := persister.Load(ctx, s.ID)
				switch {
				case errors.Is(err, os.ErrNotExist):
				case err != nil:
					return err
				default:
					if err := snap.Validate(model); err != nil {
						return fmt.Errorf("restore %s: %w", s.ID, err)
					}
					snap.Apply(oven.Store)
					if err := oven.SetData(snap.Data); err != nil {
						return fmt.Errorf("restore %s: %w", s.ID, err)
					}
					restored = true
					logger.Info().Str("id", s.ID).Strs("active", model.Active(oven)).Msg("restored")
				}
			}
			if !restored {
				if err := model.Initialise(ctx, oven); err != nil {
					return fmt.Errorf("initialise: %w", err)
				}
			}

			for _, text := range args {
				message, err := microwave.Message(text)
				if err != nil {
					return err
				}
				fired, err := model.Evaluate(ctx, message, oven)
				if err != nil {
					return fmt.Errorf("evaluate %s: %w", text, err)
				}
				logger.Info().
					Str("message", text).
					Bool("fired", fired).
					Strs("active", model.Active(oven)).
					Msg("evaluated")
			}

			snap := snapshot.Take(model.Name(), oven.Store)
			snap.Data = oven.Data()
			if s.StateDir != "" {
				if err := persister.Save(ctx, snap); err != nil {
					return err
				}
			}
			status := oven.Status()
			fmt.Fprintf(cmd.OutOrStdout(), "# %s %s power %d%%\n", status.Time, status.Message, status.Power)
			return snapshot.Encode(cmd.OutOrStdout(), snap, format)
		},
	}
	cmd.Flags().String("state-dir", "", "directory holding instance snapshots")
	cmd.Flags().String("id", "", "instance id (defaults to a new MUID)")
	return cmd
}
