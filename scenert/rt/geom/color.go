package geom

// LinearColor is a linear space RGBA colour.
type LinearColor struct {
	R, G, B, A float32
}

var (
	Black = LinearColor{0, 0, 0, 1}
	White = LinearColor{1, 1, 1, 1}
)

func (c LinearColor) Add(o LinearColor) LinearColor {
	return LinearColor{c.R + o.R, c.G + o.G, c.B + o.B, c.A + o.A}
}

func (c LinearColor) Sub(o LinearColor) LinearColor {
	return LinearColor{c.R - o.R, c.G - o.G, c.B - o.B, c.A - o.A}
}

func (c LinearColor) Mul(o LinearColor) LinearColor {
	return LinearColor{c.R * o.R, c.G * o.G, c.B * o.B, c.A * o.A}
}

func (c LinearColor) Scale(s float32) LinearColor {
	return LinearColor{c.R * s, c.G * s, c.B * s, c.A * s}
}

func (c LinearColor) MaxComponent() float32 {
	return max(c.R, c.G, c.B)
}

// Luminance uses the 0.3/0.59/0.11 weights.
func (c LinearColor) Luminance() float32 {
	return c.R*0.3 + c.G*0.59 + c.B*0.11
}

// Desaturate blends the colour toward its luminance by desaturation in [0,1].
func (c LinearColor) Desaturate(desaturation float32) LinearColor {
	l := c.Luminance()
	grey := LinearColor{l, l, l, 0}
	return LinearColor{
		R: c.R + (grey.R-c.R)*desaturation,
		G: c.G + (grey.G-c.G)*desaturation,
		B: c.B + (grey.B-c.B)*desaturation,
		A: c.A,
	}
}
