package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pkordes/tripline/internal/domain"
	"github.com/pkordes/tripline/internal/timeline"
)

var (
	flagTrip string
	flagMode string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a trip's stored timeline",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tripID, mode, err := tripAndMode()
		if err != nil {
			return err
		}
		svc, closeDB, err := openTimelines(cmd.Context())
		if err != nil {
			return err
		}
		defer closeDB()

		v, err := svc.View(cmd.Context(), tripID, mode)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), v, flagJSON)
	},
}

func init() {
	for _, c := range []*cobra.Command{showCmd, editCmd} {
		c.Flags().StringVar(&flagTrip, "trip", "", "trip id (required)")
		c.Flags().StringVar(&flagMode, "mode", "locked", "resize mode: locked or unlocked")
		_ = c.MarkFlagRequired("trip")
	}
}

func tripAndMode() (uuid.UUID, timeline.Mode, error) {
	tripID, err := uuid.Parse(flagTrip)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("%w: invalid trip id %q", domain.ErrValidation, flagTrip)
	}
	mode, err := timeline.ParseMode(flagMode)
	if err != nil {
		return uuid.Nil, "", err
	}
	return tripID, mode, nil
}

// render writes v as an aligned table, or as indented JSON when asJSON is set.
func render(w io.Writer, v timeline.View, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	fmt.Fprintf(w, "trip %s  %s to %s  %d days  (%s)\n",
		v.TripID, v.Start.Format(dateLayout), v.End.Format(dateLayout), v.TotalDays, v.Mode)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTITLE\tTYPE\tSTART\tEND\tDAYS\tMAX\tREF")
	for _, c := range v.Chapters {
		maxDays := "-"
		if c.MaxDays != nil {
			maxDays = strconv.Itoa(*c.MaxDays)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			c.Order, c.Title, c.Type, c.Start.Format(dateLayout), c.End.Format(dateLayout), c.Days, maxDays, c.Ref)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(v.Deleted) > 0 {
		fmt.Fprintf(w, "deleted: %d chapter(s)\n", len(v.Deleted))
	}
	if v.Dirty {
		fmt.Fprintln(w, "unsaved changes")
	}
	return nil
}
