package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Conceptual-Machines/magda-sequencer/internal/logger"
	"github.com/Conceptual-Machines/magda-sequencer/internal/session"
)

func newPlayCmd(o *rootOptions) *cobra.Command {
	var (
		f    rangeFlags
		loop bool
	)
	cmd := &cobra.Command{
		Use:   "play [arrangement]",
		Short: "Dispatch the plan in real time",
		Long:  `Dispatches every note on and off at its wall-clock time. Interrupt to stop; sounding notes are released.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, result, err := o.buildPlan(cmd, args, &f)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s := session.New(result.Plan, o.sink, session.Options{Loop: loop})
			logger.Info("Playing", logger.Fields{
				"events": len(result.Plan.Events),
				"length": session.Length(result.Plan).String(),
				"loop":   loop,
			})
			if err := s.Start(ctx); err != nil {
				return err
			}
			select {
			case <-s.Done():
			case <-ctx.Done():
			}
			return s.Close()
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&loop, "loop", false, "repeat the window until interrupted")
	return cmd
}
