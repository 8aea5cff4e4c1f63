// Package shapes defines the closed set of shape variants a script can
// construct, and lowers each of them to a tree.Tree.
package shapes

import (
	"fmt"
	"math"

	"github.com/leapstack-labs/fidgetstar/pkg/tree"
)

// Vec2 is a point in the plane.
type Vec2 struct{ X, Y float64 }

// Vec3 is a point in space.
type Vec3 struct{ X, Y, Z float64 }

// Variant is one of the shape types declared in this package.
type Variant interface {
	// Kind returns the variant name as shown to scripts.
	Kind() string
	variant() // marker method restricting implementations to this package
}

// TreeShape wraps an arbitrary expression tree.
type TreeShape struct {
	Tree *tree.Tree
}

// Circle is a 2D circle.
type Circle struct {
	Radius float64
	Center Vec2
}

// Sphere is a 3D sphere.
type Sphere struct {
	Radius float64
	Center Vec3
}

// Union is the union of its children.
type Union struct {
	Children []*tree.Tree
}

// Intersection is the intersection of its children.
type Intersection struct {
	Children []*tree.Tree
}

// Difference removes Cutout from Shape.
type Difference struct {
	Shape  *tree.Tree
	Cutout *tree.Tree
}

// Inverse swaps inside and outside.
type Inverse struct {
	Shape *tree.Tree
}

// Move translates Shape by Offset.
type Move struct {
	Shape  *tree.Tree
	Offset Vec3
}

// Scale scales Shape by Factors along each axis.
type Scale struct {
	Shape   *tree.Tree
	Factors Vec3
}

func (TreeShape) Kind() string    { return "Tree" }
func (Circle) Kind() string       { return "Circle" }
func (Sphere) Kind() string       { return "Sphere" }
func (Union) Kind() string        { return "Union" }
func (Intersection) Kind() string { return "Intersection" }
func (Difference) Kind() string   { return "Difference" }
func (Inverse) Kind() string      { return "Inverse" }
func (Move) Kind() string         { return "Move" }
func (Scale) Kind() string        { return "Scale" }

func (TreeShape) variant()    {}
func (Circle) variant()       {}
func (Sphere) variant()       {}
func (Union) variant()        {}
func (Intersection) variant() {}
func (Difference) variant()   {}
func (Inverse) variant()      {}
func (Move) variant()         {}
func (Scale) variant()        {}

// ToTree lowers v to an expression tree. It never modifies v.
func ToTree(v Variant) *tree.Tree {
	x, y, z := tree.Axes()
	switch s := v.(type) {
	case TreeShape:
		return s.Tree
	case Circle:
		dx := x.Sub(tree.Constant(s.Center.X))
		dy := y.Sub(tree.Constant(s.Center.Y))
		return dx.Square().Add(dy.Square()).Sqrt().Sub(tree.Constant(s.Radius))
	case Sphere:
		dx := x.Sub(tree.Constant(s.Center.X))
		dy := y.Sub(tree.Constant(s.Center.Y))
		dz := z.Sub(tree.Constant(s.Center.Z))
		return dx.Square().Add(dy.Square()).Add(dz.Square()).Sqrt().Sub(tree.Constant(s.Radius))
	case Union:
		return fold(s.Children, (*tree.Tree).Min, math.Inf(1))
	case Intersection:
		return fold(s.Children, (*tree.Tree).Max, math.Inf(-1))
	case Difference:
		return s.Shape.Max(s.Cutout.Neg())
	case Inverse:
		return s.Shape.Neg()
	case Move:
		return s.Shape.RemapXYZ(
			x.Sub(tree.Constant(s.Offset.X)),
			y.Sub(tree.Constant(s.Offset.Y)),
			z.Sub(tree.Constant(s.Offset.Z)),
		)
	case Scale:
		return s.Shape.RemapXYZ(
			x.Div(tree.Constant(s.Factors.X)),
			y.Div(tree.Constant(s.Factors.Y)),
			z.Div(tree.Constant(s.Factors.Z)),
		)
	}
	panic(fmt.Sprintf("shapes: unknown variant %T", v))
}

func fold(children []*tree.Tree, op func(a, b *tree.Tree) *tree.Tree, empty float64) *tree.Tree {
	if len(children) == 0 {
		return tree.Constant(empty)
	}
	out := children[0]
	for _, c := range children[1:] {
		out = op(out, c)
	}
	return out
}

// Describe returns a short human-readable rendering of v.
func Describe(v Variant) string {
	switch s := v.(type) {
	case TreeShape:
		return "Tree{}"
	case Circle:
		return fmt.Sprintf("Circle{radius: %g, center: (%g, %g)}", s.Radius, s.Center.X, s.Center.Y)
	case Sphere:
		return fmt.Sprintf("Sphere{radius: %g, center: (%g, %g, %g)}", s.Radius, s.Center.X, s.Center.Y, s.Center.Z)
	case Union:
		return fmt.Sprintf("Union{children: %d}", len(s.Children))
	case Intersection:
		return fmt.Sprintf("Intersection{children: %d}", len(s.Children))
	case Difference:
		return "Difference{}"
	case Inverse:
		return "Inverse{}"
	case Move:
		return fmt.Sprintf("Move{x: %g, y: %g, z: %g}", s.Offset.X, s.Offset.Y, s.Offset.Z)
	case Scale:
		return fmt.Sprintf("Scale{x: %g, y: %g, z: %g}", s.Factors.X, s.Factors.Y, s.Factors.Z)
	}
	return v.Kind()
}
