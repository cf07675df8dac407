package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkordes/tripline/internal/domain"
	"github.com/pkordes/tripline/internal/timeline"
)

const dateLayout = "2006-01-02"

// parseOp parses one --op argument into an Edit. The grammar is:
//
//	resize INDEX DELTA
//	set_start INDEX DATE
//	set_end INDEX DATE
//	shift_trip_start DATE
//	move INDEX up|down
//	split INDEX
//	delete INDEX
//	rename REF TITLE...
//	insert AFTER DAYS TYPE TITLE...
//
// Dates are YYYY-MM-DD; REF is a chapter id or local-N.
func parseOp(s string) (timeline.Edit, error) {
	f := strings.Fields(s)
	if len(f) == 0 {
		return timeline.Edit{}, fmt.Errorf("%w: empty op", domain.ErrValidation)
	}
	e := timeline.Edit{Op: timeline.Op(strings.ReplaceAll(strings.ToLower(f[0]), "-", "_"))}
	args := f[1:]

	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%w: %s needs %d arguments, got %d", domain.ErrValidation, e.Op, n, len(args))
		}
		return nil
	}

	var err error
	switch e.Op {
	case timeline.OpResize:
		if err = need(2); err == nil {
			if e.Index, err = parseInt("index", args[0]); err == nil {
				e.Delta, err = parseInt("delta", args[1])
			}
		}
	case timeline.OpSetStart, timeline.OpSetEnd:
		if err = need(2); err == nil {
			if e.Index, err = parseInt("index", args[0]); err == nil {
				e.Date, err = parseDate(args[1])
			}
		}
	case timeline.OpShiftTripStart:
		if err = need(1); err == nil {
			e.Date, err = parseDate(args[0])
		}
	case timeline.OpMove:
		if err = need(2); err == nil {
			if e.Index, err = parseInt("index", args[0]); err == nil {
				e.Direction, err = timeline.ParseDirection(args[1])
			}
		}
	case timeline.OpSplit, timeline.OpDelete:
		if err = need(1); err == nil {
			e.Index, err = parseInt("index", args[0])
		}
	case timeline.OpRename:
		if err = need(2); err == nil {
			if e.Ref, err = timeline.ParseRef(args[0]); err == nil {
				e.Title = strings.Join(args[1:], " ")
			}
		}
	case timeline.OpInsert:
		if err = need(4); err == nil {
			if e.Index, err = parseInt("after", args[0]); err != nil {
				break
			}
			if e.Delta, err = parseInt("days", args[1]); err != nil {
				break
			}
			if e.Type, err = domain.ParseChapterType(args[2]); err != nil {
				break
			}
			e.Title = strings.Join(args[3:], " ")
		}
	default:
		err = fmt.Errorf("%w: unknown op %q", domain.ErrValidation, f[0])
	}
	if err != nil {
		return timeline.Edit{}, err
	}
	return e, nil
}

func parseInt(name, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(s, "+"))
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", domain.ErrValidation, name, s)
	}
	return n, nil
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", domain.ErrValidation, s)
	}
	return d, nil
}
