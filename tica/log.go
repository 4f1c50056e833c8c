package tica

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// PathLogHeader is the first line of every path log.
const PathLogHeader = "Index Tic Value, Actual Value, TrajName, FrmInd"

// WritePathLog writes steps as the whitespace-separated path log.
func WritePathLog(w io.Writer, steps []Step) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, PathLogHeader)
	for _, s := range steps {
		fmt.Fprintf(bw, "%d %s %s %s %d\n",
			s.Index,
			strconv.FormatFloat(s.Requested, 'g', -1, 64),
			strconv.FormatFloat(s.Achieved, 'g', -1, 64),
			s.Traj,
			s.Frame)
	}
	return bw.Flush()
}

// ReadPathLog parses a log written by WritePathLog.
func ReadPathLog(r io.Reader) ([]Step, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("empty path log")
	}
	if strings.TrimSpace(sc.Text()) != PathLogHeader {
		return nil, fmt.Errorf("unexpected path log header %q", sc.Text())
	}

	var steps []Step
	for line := 2; sc.Scan(); line++ {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 5 {
			return nil, fmt.Errorf("line %d: want 5 fields, got %d", line, len(fields))
		}
		var (
			s   Step
			err error
		)
		if s.Index, err = strconv.Atoi(fields[0]); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if s.Requested, err = strconv.ParseFloat(fields[1], 64); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if s.Achieved, err = strconv.ParseFloat(fields[2], 64); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		s.Traj = fields[3]
		if s.Frame, err = strconv.Atoi(fields[4]); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		steps = append(steps, s)
	}
	return steps, sc.Err()
}
