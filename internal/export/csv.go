// Package export implements the tabular trajectory interchange format:
// a CSV with header Theta (rad), Joint_1_x, Joint_1_y, ... and one row
// per sampled angle. Floats are written in shortest round-trip form so
// re-parsing an export reproduces the exact values.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	curve "honnef.co/go/curve"
)

// Write streams thetas and frames as CSV. Every frame must hold the
// same number of joints.
func Write(w io.Writer, thetas []float64, frames [][]curve.Point) error {
	if len(thetas) != len(frames) {
		return fmt.Errorf("export: %d thetas but %d frames", len(thetas), len(frames))
	}
	cw := csv.NewWriter(w)

	joints := 0
	if len(frames) > 0 {
		joints = len(frames[0])
	}
	header := make([]string, 0, 1+2*joints)
	header = append(header, "Theta (rad)")
	for i := 0; i < joints; i++ {
		header = append(header,
			fmt.Sprintf("Joint_%d_x", i+1),
			fmt.Sprintf("Joint_%d_y", i+1))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}

	row := make([]string, len(header))
	for i, theta := range thetas {
		if len(frames[i]) != joints {
			return fmt.Errorf("export: frame %d has %d joints, want %d", i, len(frames[i]), joints)
		}
		row[0] = formatFloat(theta)
		for j, p := range frames[i] {
			row[1+2*j] = formatFloat(p.X)
			row[2+2*j] = formatFloat(p.Y)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export: write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read parses a CSV produced by Write back into thetas and frames.
func Read(r io.Reader) ([]float64, [][]curve.Point, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("export: read header: %w", err)
	}
	if len(header) < 1 || header[0] != "Theta (rad)" || len(header)%2 != 1 {
		return nil, nil, fmt.Errorf("export: malformed header %v", header)
	}
	joints := (len(header) - 1) / 2

	var thetas []float64
	var frames [][]curve.Point
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("export: read line %d: %w", line, err)
		}
		if len(row) != len(header) {
			return nil, nil, fmt.Errorf("export: line %d has %d fields, want %d", line, len(row), len(header))
		}
		theta, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("export: line %d theta: %w", line, err)
		}
		frame := make([]curve.Point, joints)
		for j := 0; j < joints; j++ {
			x, err := strconv.ParseFloat(row[1+2*j], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("export: line %d joint %d x: %w", line, j+1, err)
			}
			y, err := strconv.ParseFloat(row[2+2*j], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("export: line %d joint %d y: %w", line, j+1, err)
			}
			frame[j] = curve.Pt(x, y)
		}
		thetas = append(thetas, theta)
		frames = append(frames, frame)
	}
	return thetas, frames, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
