package starlark

import (
	"fmt"
	"math"
	"sync"

	"github.com/leapstack-labs/fidgetstar/pkg/tree"
	"go.starlark.net/starlark"
)

// RGB is an 8-bit display color.
type RGB struct {
	R, G, B uint8
}

// White is the color of shapes drawn without one.
var White = RGB{R: 255, G: 255, B: 255}

// Hex returns the color as #rrggbb.
func (c RGB) Hex() string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

// DrawShape is one shape a script asked to display.
type DrawShape struct {
	Tree  *tree.Tree
	Color RGB
}

// Capture collects draw calls made during one script execution.
type Capture struct {
	mu     sync.Mutex
	shapes []DrawShape
}

// NewCapture returns an empty capture.
func NewCapture() *Capture { return &Capture{} }

// Append records a drawn shape.
func (c *Capture) Append(s DrawShape) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shapes = append(c.shapes, s)
}

// Len returns the number of shapes recorded so far.
func (c *Capture) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.shapes)
}

// Reset discards everything recorded.
func (c *Capture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shapes = nil
}

// Take returns the recorded shapes in draw order and leaves the capture
// empty.
func (c *Capture) Take() []DrawShape {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.shapes
	c.shapes = nil
	return out
}

const captureKey = "fidgetstar.capture"

// AttachCapture makes draw calls on thread record into c.
func AttachCapture(thread *starlark.Thread, c *Capture) {
	thread.SetLocal(captureKey, c)
}

func captureFrom(thread *starlark.Thread) *Capture {
	c, _ := thread.Local(captureKey).(*Capture)
	return c
}

// ChannelToByte maps a unit-interval channel to a byte, clamping values
// outside [0, 1].
func ChannelToByte(v float64) uint8 {
	switch {
	case v <= 0 || math.IsNaN(v):
		return 0
	case v >= 1:
		return 255
	}
	return uint8(math.Round(v * 255))
}

func draw(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	const sig = "1 argument: Tree|Number, or 4 arguments: Tree|Number, Number, Number, Number"
	if len(kwargs) > 0 || (len(args) != 1 && len(args) != 4) {
		return nil, invalidArgs(b.Name(), sig, args, kwargs)
	}
	t, err := ToTree(args[0])
	if err != nil {
		return nil, invalidArgs(b.Name(), sig, args, kwargs)
	}
	color := White
	if len(args) == 4 {
		f, ok := toFloats(args[1:]...)
		if !ok {
			return nil, invalidArgs(b.Name(), sig, args, kwargs)
		}
		color = RGB{R: ChannelToByte(f[0]), G: ChannelToByte(f[1]), B: ChannelToByte(f[2])}
	}

	c := captureFrom(thread)
	if c == nil {
		return nil, &UnsupportedOperationError{Op: b.Name(), Message: "drawing is only available when running a script"}
	}
	c.Append(DrawShape{Tree: t, Color: color})
	return starlark.None, nil
}

// ShapeView is the serializable form of a DrawShape.
type ShapeView struct {
	Expr  string `json:"expr" yaml:"expr"`
	Color string `json:"color" yaml:"color"`
}

// View renders the shape's tree as an s-expression and its color as hex.
func (d DrawShape) View() ShapeView {
	return ShapeView{Expr: d.Tree.String(), Color: d.Color.Hex()}
}

// Views converts every shape.
func Views(shapes []DrawShape) []ShapeView {
	out := make([]ShapeView, len(shapes))
	for i, s := range shapes {
		out[i] = s.View()
	}
	return out
}
