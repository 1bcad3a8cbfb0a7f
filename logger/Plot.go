package logger

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ReadProgress reads the column key of a progress file written by a
// Tabular logger. Each value is paired with its epoch if the file has
// an epoch column, otherwise with its row index. Empty and NaN values
// are skipped.
func ReadProgress(progressFile, key string) (plotter.XYs, error) {
	file, err := os.Open(progressFile)
	if err != nil {
		return nil, fmt.Errorf("readProgress: %v", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.Comma = '\t'
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("readProgress: could not parse %v: %v",
			progressFile, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("readProgress: %v is empty", progressFile)
	}

	col, epochCol := -1, -1
	for i, h := range records[0] {
		switch h {
		case key:
			col = i
		case "epoch":
			epochCol = i
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("readProgress: no column %q in %v", key,
			progressFile)
	}

	var xys plotter.XYs
	for i, record := range records[1:] {
		if record[col] == "" {
			continue
		}
		y, err := strconv.ParseFloat(record[col], 64)
		if err != nil {
			return nil, fmt.Errorf("readProgress: row %v: %v", i, err)
		}
		if math.IsNaN(y) {
			continue
		}

		x := float64(i)
		if epochCol >= 0 && key != "epoch" {
			if x, err = strconv.ParseFloat(record[epochCol], 64); err != nil {
				return nil, fmt.Errorf("readProgress: row %v: %v", i, err)
			}
		}
		xys = append(xys, plotter.XY{X: x, Y: y})
	}
	return xys, nil
}

// PlotProgress plots column key of a progress file against the epoch
// and saves the plot to out. The image format is determined by the
// extension of out.
func PlotProgress(progressFile, key, out string) error {
	points, err := ReadProgress(progressFile, key)
	if err != nil {
		return fmt.Errorf("plotProgress: %v", err)
	}
	if len(points) == 0 {
		return fmt.Errorf("plotProgress: no values to plot for %q", key)
	}

	p := plot.New()
	p.Title.Text = key
	p.X.Label.Text = "Epoch"
	p.Y.Label.Text = key

	line, err := plotter.NewLine(points)
	if err != nil {
		return fmt.Errorf("plotProgress: %v", err)
	}
	p.Add(line, plotter.NewGrid())

	if err := p.Save(8*vg.Inch, 5*vg.Inch, out); err != nil {
		return fmt.Errorf("plotProgress: could not save plot: %v", err)
	}
	return nil
}
