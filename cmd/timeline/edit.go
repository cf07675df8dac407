package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pkordes/tripline/internal/timeline"
)

var (
	flagOps  []string
	flagSave bool
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Apply edits to a trip's timeline",
	Long: `Apply one or more edits, in order, to a trip's stored timeline and print
the result. Edits that would break the timeline are reported and skipped.
Nothing is written unless --save is given; the save is all-or-nothing.

Example:
  timeline edit --trip 3f7c... --mode locked --op "resize 1 +2" --op "split 0" --save`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tripID, mode, err := tripAndMode()
		if err != nil {
			return err
		}
		edits := make([]timeline.Edit, 0, len(flagOps))
		for _, op := range flagOps {
			e, err := parseOp(op)
			if err != nil {
				return err
			}
			edits = append(edits, e)
		}

		svc, closeDB, err := openTimelines(cmd.Context())
		if err != nil {
			return err
		}
		defer closeDB()

		ed, err := svc.Open(cmd.Context(), tripID)
		if err != nil {
			return err
		}
		if err := applyAll(cmd, ed, edits, mode); err != nil {
			return err
		}

		if flagSave && !ed.ChangeSet().Empty() {
			if err := svc.Save(cmd.Context(), ed); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "saved")
		}
		return render(cmd.OutOrStdout(), ed.View(mode), flagJSON)
	},
}

func init() {
	editCmd.Flags().StringArrayVar(&flagOps, "op", nil, `edit to apply, e.g. "resize 1 +2" (repeatable)`)
	editCmd.Flags().BoolVar(&flagSave, "save", false, "commit the result")
}

// applyAll applies edits in order, reporting each one that was dropped.
func applyAll(cmd *cobra.Command, ed *timeline.Editor, edits []timeline.Edit, mode timeline.Mode) error {
	for i, e := range edits {
		applied, err := ed.Apply(e, mode)
		if err != nil {
			return fmt.Errorf("op %d (%s): %w", i+1, e.Op, err)
		}
		if !applied {
			fmt.Fprintf(cmd.ErrOrStderr(), "op %d (%s) skipped: it would leave the timeline unchanged or invalid\n", i+1, e.Op)
		}
	}
	return nil
}
