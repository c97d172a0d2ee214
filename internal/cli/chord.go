package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Conceptual-Machines/magda-sequencer/internal/models"
	"github.com/Conceptual-Machines/magda-sequencer/internal/render"
	"github.com/Conceptual-Machines/magda-sequencer/internal/theory"
	"github.com/Conceptual-Machines/magda-sequencer/internal/timing"
)

func newChordCmd(o *rootOptions) *cobra.Command {
	var (
		tonic, mode string
		ev          models.ChordEvent
		seed        int
		bpm         float64
	)
	cmd := &cobra.Command{
		Use:   "chord <roman numeral | chord name>",
		Short: "Render one chord and print its notes",
		Example: `  planctl chord V7 --tonic G
  planctl chord Am7 --voicing drop2 --strum 0.25`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := o.renderOptions(cmd)
			if err != nil {
				return err
			}

			ev.ID = args[0]
			ev.IsEnabled = true
			if isRoman(args[0]) {
				ev.RomanNumeral = args[0]
			} else {
				ev.ChordName = args[0]
			}
			if bpm <= 0 {
				bpm = o.cfg.DefaultBPM
			}

			result := render.NewRenderer(opts).Render(ev, render.Context{
				Tonic:     tonic,
				Mode:      mode,
				Seed:      seed,
				BPM:       bpm,
				Signature: timing.FourFour,
			}, render.Placement{})
			if result.Issue != nil {
				return result.Issue
			}

			out := cmd.OutOrStdout()
			for _, n := range result.Notes {
				fmt.Fprintf(out, "%-4s %3d start=%d dur=%d vel=%d\n",
					theory.MIDIToNoteName(n.Pitch), n.Pitch, n.StartTick, n.DurationTick, n.Velocity)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tonic, "tonic", "C", "key tonic for roman numerals")
	cmd.Flags().StringVar(&mode, "mode", "ionian", "mode for roman numerals")
	cmd.Flags().IntVar(&seed, "seed", 0, "arrangement seed")
	cmd.Flags().Float64Var(&bpm, "bpm", 0, "tempo for millisecond timings")
	cmd.Flags().IntVar(&ev.DurationTick, "duration", timing.PPQ*4, "duration in ticks")
	cmd.Flags().Float64Var(&ev.Intensity, "intensity", 1, "velocity scale, 1 = 100")
	cmd.Flags().StringVar(&ev.Voicing, "voicing", "", "close, open or drop2")
	cmd.Flags().IntVar(&ev.Inversion, "inversion", 0, "inversion")
	cmd.Flags().Float64Var(&ev.StrumBeats, "strum", 0, "strum spread in beats")
	cmd.Flags().Float64Var(&ev.HumanizeBeats, "humanize", 0, "timing jitter in beats")
	cmd.Flags().Float64Var(&ev.VelocityJitter, "jitter", 0, "velocity jitter in velocity units")
	return cmd
}

// isRoman reports whether s leads with a roman numeral rather than a note letter
func isRoman(s string) bool {
	return s != "" && strings.ContainsRune("IViv", rune(s[0]))
}
