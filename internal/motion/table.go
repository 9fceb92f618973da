package motion

import (
	"fmt"
	"math"
)

// Sense is the direction a positive rotation turns the photo on screen.
type Sense string

const (
	CounterClockwise Sense = "ccw"
	Clockwise        Sense = "cw"
)

// Transform is the placement of the photo for one frame.
// DX and DY are offsets from the canvas center with Y pointing up,
// Rotation is in degrees.
type Transform struct {
	DX       float64 `yaml:"dx"`
	DY       float64 `yaml:"dy"`
	Rotation float64 `yaml:"rotation"`
}

// Table is an ordered list of per-frame transforms.
type Table struct {
	Version    string      `yaml:"version"`
	Name       string      `yaml:"name"`
	Sense      Sense       `yaml:"sense,omitempty"` // empty means ccw
	Transforms []Transform `yaml:"transforms"`
}

// Len returns the number of frames the table describes.
func (t *Table) Len() int {
	return len(t.Transforms)
}

// At returns the transform for frame i.
func (t *Table) At(i int) Transform {
	return t.Transforms[i]
}

// RotationSign is +1 for counter-clockwise tables and -1 for clockwise ones.
func (t *Table) RotationSign() float64 {
	if t.Sense == Clockwise {
		return -1
	}
	return 1
}

// Validate checks that the table can drive a compositor.
func (t *Table) Validate() error {
	if t == nil || len(t.Transforms) == 0 {
		return fmt.Errorf("motion: table has no transforms")
	}
	switch t.Sense {
	case "", CounterClockwise, Clockwise:
	default:
		return fmt.Errorf("motion: unknown rotation sense %q", t.Sense)
	}
	for i, tr := range t.Transforms {
		for _, v := range []float64{tr.DX, tr.DY, tr.Rotation} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("motion: transform %d has non-finite value", i)
			}
		}
	}
	return nil
}

// Clone returns a deep copy so callers can edit a table without touching Keyring.
func (t *Table) Clone() *Table {
	c := *t
	c.Transforms = append([]Transform(nil), t.Transforms...)
	return &c
}

// Keyring is the swing of the keyring animation, 30 frames. Its angles were
// authored for a y-up canvas rotated by the negated angle, which turns
// positive values clockwise on screen: a copy with Sense set to Clockwise
// reproduces that pendulum, this table mirrors it.
var Keyring = &Table{
	Version: "1.0",
	Name:    "keyring",
	Sense:   CounterClockwise,
	Transforms: []Transform{
		{-34.96, -84.84, 12.355}, {-37.08, -85.23, 13.255}, {-39.20, -85.65, 14.155},
		{-41.31, -86.09, 15.055}, {-43.42, -86.57, 15.955}, {-45.52, -87.07, 16.855},
		{-47.61, -87.60, 17.755}, {-49.69, -88.16, 18.655}, {-51.77, -88.74, 19.555},
		{-53.83, -89.36, 20.455}, {-55.89, -90.00, 21.355}, {-45.21, -87.00, 16.755},
		{-34.33, -84.74, 12.155}, {-23.31, -83.24, 7.555}, {-12.22, -82.49, 2.955},
		{-1.10, -82.51, -1.645}, {10.00, -83.29, -6.245}, {21.00, -84.83, -10.845},
		{31.86, -87.12, -15.445}, {42.53, -90.15, -20.045}, {52.94, -93.90, -24.645},
		{44.57, -90.83, -20.945}, {36.03, -88.22, -17.245}, {27.35, -86.08, -13.545},
		{18.56, -84.43, -9.845}, {9.68, -83.26, -6.145}, {0.74, -82.59, -2.445},
		{-8.22, -82.41, 1.255}, {-17.17, -82.73, 4.955}, {-26.10, -83.54, 8.655},
	},
}
