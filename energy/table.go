package energy

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
)

// RowHeader is the column order of WriteRows.
var RowHeader = []string{"tic_value", "free_energy", "protein_name", "mdl_index"}

// SurfaceHeader is the column order of WriteSurface.
var SurfaceHeader = []string{"x", "y", "free_energy"}

func formatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteRows writes rows as tab-separated values with a header line.
// Unobserved bins are written as inf.
func WriteRows(w io.Writer, rows []Row) error {
	tw := csv.NewWriter(w)
	tw.Comma = '\t'
	if err := tw.Write(RowHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := tw.Write([]string{formatFloat(r.TicValue), formatFloat(r.FreeEnergy), r.Protein, r.Model}); err != nil {
			return err
		}
	}
	tw.Flush()
	return tw.Error()
}

// WriteSurface writes one line per bin of h: the bin center on each axis and
// its free energy, x varying slowest.
func WriteSurface(w io.Writer, h *Histogram2D) error {
	tw := csv.NewWriter(w)
	tw.Comma = '\t'
	if err := tw.Write(SurfaceHeader); err != nil {
		return err
	}
	xc, yc := Centers(h.XEdges), Centers(h.YEdges)
	for i, x := range xc {
		for j, y := range yc {
			if err := tw.Write([]string{formatFloat(x), formatFloat(y), formatFloat(h.FreeEnergy.At(i, j))}); err != nil {
				return err
			}
		}
	}
	tw.Flush()
	return tw.Error()
}
