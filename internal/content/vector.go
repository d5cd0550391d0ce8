// Package content holds the reconstruction objects managed by the list
// managers: calorimeter hits, tracks and clusters.
package content

import (
	"fmt"
	"math"
)

// Vector is a Cartesian position or momentum in millimetres or GeV.
type Vector struct {
	X float64 `yaml:"x" mapstructure:"x"`
	Y float64 `yaml:"y" mapstructure:"y"`
	Z float64 `yaml:"z" mapstructure:"z"`
}

func (v Vector) Add(o Vector) Vector { return Vector{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vector) Sub(o Vector) Vector { return Vector{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vector) Scale(f float64) Vector { return Vector{v.X * f, v.Y * f, v.Z * f} }

func (v Vector) Dot(o Vector) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vector) Cross(o Vector) Vector {
	return Vector{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

func (v Vector) Mag() float64 { return math.Sqrt(v.Dot(v)) }

// Unit returns v scaled to length one, or the zero vector.
func (v Vector) Unit() Vector {
	m := v.Mag()
	if m == 0 {
		return Vector{}
	}
	return v.Scale(1 / m)
}

func (v Vector) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", v.X, v.Y, v.Z)
}
