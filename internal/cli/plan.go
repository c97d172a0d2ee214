package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Conceptual-Machines/magda-sequencer/internal/logger"
	"github.com/Conceptual-Machines/magda-sequencer/internal/midiexport"
	"github.com/Conceptual-Machines/magda-sequencer/internal/models"
	"github.com/Conceptual-Machines/magda-sequencer/internal/playback"
)

type rangeFlags struct {
	startBar int
	endBar   int
	bpm      float64
}

func (f *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.startBar, "start-bar", 0, "first bar of the window")
	cmd.Flags().IntVar(&f.endBar, "end-bar", 0, "bar the window ends before")
	cmd.Flags().Float64Var(&f.bpm, "bpm", 0, "tempo override (default: the arrangement's)")
	cmd.MarkFlagsRequiredTogether("start-bar", "end-bar")
}

func (f *rangeFlags) playbackRange(cmd *cobra.Command) models.PlaybackRange {
	if cmd.Flags().Changed("start-bar") {
		return models.BarRange(f.startBar, f.endBar)
	}
	return models.WholeProject()
}

// buildPlan loads the arrangement named by args and builds its plan.
// Issues are logged, not returned.
func (o *rootOptions) buildPlan(cmd *cobra.Command, args []string, f *rangeFlags) (*models.Arrangement, *playback.Result, error) {
	arr, err := LoadArrangement(argPath(args), cmd.InOrStdin())
	if err != nil {
		return nil, nil, err
	}
	opts, err := o.renderOptions(cmd)
	if err != nil {
		return nil, nil, err
	}

	bpm := f.bpm
	if bpm <= 0 && arr.BPM <= 0 {
		bpm = o.cfg.DefaultBPM
	}
	result, err := playback.NewBuilder(opts).Build(arr, bpm, f.playbackRange(cmd))
	if err != nil {
		return nil, nil, err
	}
	for _, issue := range result.IssueMessages() {
		logger.Warn("Plan issue", logger.Fields{"project_id": arr.ProjectID, "issue": issue})
	}
	return arr, result, nil
}

func argPath(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type planOutput struct {
	Plan   *models.PlaybackPlan `json:"plan"`
	Issues []string             `json:"issues"`
}

func newPlanCmd(o *rootOptions) *cobra.Command {
	var f rangeFlags
	cmd := &cobra.Command{
		Use:   "plan [arrangement]",
		Short: "Print the playback plan as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, result, err := o.buildPlan(cmd, args, &f)
			if err != nil {
				return err
			}
			issues := result.IssueMessages()
			if issues == nil {
				issues = []string{}
			}
			return writeJSON(cmd.OutOrStdout(), planOutput{Plan: result.Plan, Issues: issues})
		},
	}
	f.register(cmd)
	return cmd
}

func newExportCmd(o *rootOptions) *cobra.Command {
	var (
		f      rangeFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "export [arrangement]",
		Short: "Write the playback plan as a Standard MIDI File",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arr, result, err := o.buildPlan(cmd, args, &f)
			if err != nil {
				return err
			}

			if output == "-" {
				return midiexport.Write(cmd.OutOrStdout(), result.Plan, arr)
			}
			if output == "" {
				output = exportName(arr)
			}
			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("could not create %s: %w", output, err)
			}
			if err := midiexport.Write(file, result.Plan, arr); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("could not write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d events)\n", output, len(result.Plan.Events))
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file, "-" for stdout (default: <project name>.mid)`)
	return cmd
}

func exportName(arr *models.Arrangement) string {
	name := strings.TrimSpace(arr.ProjectName)
	if name == "" {
		name = "arrangement"
	}
	return strings.ReplaceAll(name, " ", "_") + ".mid"
}

func newVisualCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "visual [arrangement]",
		Short: "Print editor blocks for every note and enabled chord",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arr, err := LoadArrangement(argPath(args), cmd.InOrStdin())
			if err != nil {
				return err
			}
			events := playback.VisualEventsForArrangement(arr)
			if events == nil {
				events = []models.VisualEvent{}
			}
			return writeJSON(cmd.OutOrStdout(), events)
		},
	}
}
