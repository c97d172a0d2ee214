// Package cli implements planctl, the offline front end to the playback
// engine: build a plan, export it as MIDI, or play it through a sink.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Conceptual-Machines/magda-sequencer/internal/config"
	"github.com/Conceptual-Machines/magda-sequencer/internal/render"
	"github.com/Conceptual-Machines/magda-sequencer/internal/session"
	"github.com/Conceptual-Machines/magda-sequencer/internal/theory"
)

type rootOptions struct {
	cfg    *config.Config
	sink   session.Sink
	strict bool
	low    string
	high   string
}

// NewRootCmd builds the planctl command tree
func NewRootCmd() *cobra.Command {
	return newRootCmd(&rootOptions{cfg: config.Load(), sink: session.LogSink{}})
}

func newRootCmd(o *rootOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "planctl",
		Short: "Build, export and play arrangement playback plans",
		Long: `planctl reads an arrangement (YAML or JSON, "-" for stdin, the built-in
demo when no file is given) and turns it into a playback plan.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVar(&o.strict, "strict", false, "fail on non-finite ticks instead of substituting 0 (default from STRICT_TICKS)")
	rootCmd.PersistentFlags().StringVar(&o.low, "low", "", "lowest chord pitch as a note name, e.g. C3")
	rootCmd.PersistentFlags().StringVar(&o.high, "high", "", "highest chord pitch as a note name, e.g. C5")

	rootCmd.AddCommand(
		newPlanCmd(o),
		newExportCmd(o),
		newPlayCmd(o),
		newVisualCmd(o),
		newChordCmd(o),
		newDemoCmd(),
	)
	return rootCmd
}

// Execute runs planctl with os.Args
func Execute() {
	cobra.CheckErr(NewRootCmd().Execute())
}

func (o *rootOptions) renderOptions(cmd *cobra.Command) (render.Options, error) {
	opts := o.cfg.RenderOptions()
	if cmd.Flags().Changed("strict") {
		opts.Strict = o.strict
	}
	if o.low != "" {
		low, err := theory.NoteNameToMIDI(o.low)
		if err != nil {
			return opts, fmt.Errorf("invalid --low: %w", err)
		}
		opts.LowMIDI = low
	}
	if o.high != "" {
		high, err := theory.NoteNameToMIDI(o.high)
		if err != nil {
			return opts, fmt.Errorf("invalid --high: %w", err)
		}
		opts.HighMIDI = high
	}
	if opts.LowMIDI > opts.HighMIDI {
		return opts, fmt.Errorf("voicing range is empty: low %d is above high %d", opts.LowMIDI, opts.HighMIDI)
	}
	return opts, nil
}
