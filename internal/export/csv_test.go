package export

import (
	"bytes"
	"math"
	"strings"
	"testing"

	curve "honnef.co/go/curve"
)

func TestWrite_Header(t *testing.T) {
	var buf bytes.Buffer
	thetas := []float64{0}
	frames := [][]curve.Point{{curve.Pt(1, 2), curve.Pt(3, 4)}}
	if err := Write(&buf, thetas, frames); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	want := "Theta (rad),Joint_1_x,Joint_1_y,Joint_2_x,Joint_2_y"
	if lines[0] != want {
		t.Errorf("header = %q, want %q", lines[0], want)
	}
	if lines[1] != "0,1,2,3,4" {
		t.Errorf("row = %q", lines[1])
	}
}

func TestWriteRead_ExactRoundTrip(t *testing.T) {
	thetas := []float64{0, math.Pi / 3, 2 * math.Pi}
	frames := [][]curve.Point{
		{curve.Pt(0.1, -0.2), curve.Pt(1e-17, 38.97)},
		{curve.Pt(2.0000000000000004, -84.03), curve.Pt(0, 0)},
		{curve.Pt(math.Sqrt2, -1.55), curve.Pt(49.73, 7.81)},
	}

	var buf bytes.Buffer
	if err := Write(&buf, thetas, frames); err != nil {
		t.Fatalf("write: %v", err)
	}
	gotThetas, gotFrames, err := Read(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if len(gotThetas) != len(thetas) || len(gotFrames) != len(frames) {
		t.Fatalf("got %d thetas, %d frames", len(gotThetas), len(gotFrames))
	}
	// Shortest round-trip formatting must reproduce bit-identical
	// values, not merely close ones.
	for i := range thetas {
		if gotThetas[i] != thetas[i] {
			t.Errorf("theta[%d] = %v, want %v", i, gotThetas[i], thetas[i])
		}
		for j := range frames[i] {
			if gotFrames[i][j] != frames[i][j] {
				t.Errorf("frame[%d][%d] = %v, want %v", i, j, gotFrames[i][j], frames[i][j])
			}
		}
	}
}

func TestWrite_LengthMismatch(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, []float64{0, 1}, [][]curve.Point{{curve.Pt(0, 0)}}); err == nil {
		t.Fatal("expected error for theta/frame count mismatch")
	}

	frames := [][]curve.Point{
		{curve.Pt(0, 0), curve.Pt(1, 1)},
		{curve.Pt(0, 0)},
	}
	if err := Write(&buf, []float64{0, 1}, frames); err == nil {
		t.Fatal("expected error for ragged frames")
	}
}

func TestRead_MalformedHeader(t *testing.T) {
	cases := []string{
		"Angle,Joint_1_x,Joint_1_y\n0,1,2\n",
		"Theta (rad),Joint_1_x\n0,1\n",
		"",
	}
	for _, in := range cases {
		if _, _, err := Read(strings.NewReader(in)); err == nil {
			t.Errorf("input %q: expected error", in)
		}
	}
}

func TestRead_BadFloat(t *testing.T) {
	in := "Theta (rad),Joint_1_x,Joint_1_y\n0,oops,2\n"
	if _, _, err := Read(strings.NewReader(in)); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestRead_Empty(t *testing.T) {
	in := "Theta (rad),Joint_1_x,Joint_1_y\n"
	thetas, frames, err := Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(thetas) != 0 || len(frames) != 0 {
		t.Errorf("expected empty result, got %d thetas, %d frames", len(thetas), len(frames))
	}
}
