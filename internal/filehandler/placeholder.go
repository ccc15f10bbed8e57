package filehandler

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// PlaceholderWidth is the width of the placeholder used for videos without a frame.
const PlaceholderWidth = 800

var (
	placeholderBase     = color.RGBA{R: 123, G: 44, B: 191, A: 255} // #7b2cbf
	placeholderIcon     = color.NRGBA{R: 255, G: 255, B: 255, A: 230}
	placeholderTriangle = color.RGBA{R: 123, G: 44, B: 191, A: 255}
)

const playIconRadius = 60

// Placeholder renders a 16:9 purple card with a pink gradient fading from the
// top and a centered play button. It stands in for a video frame when none
// can be extracted.
func Placeholder(width int) image.Image {
	if width <= 0 {
		width = PlaceholderWidth
	}
	height := width * 9 / 16
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(placeholderBase), image.Point{}, draw.Src)

	for y := 0; y < height; y++ {
		alpha := uint8(255 * (height - y) / height)
		row := image.Rect(0, y, width, y+1)
		draw.Draw(img, row, image.NewUniform(color.NRGBA{R: 255, G: 0, B: 110, A: alpha}), image.Point{}, draw.Over)
	}

	cx, cy := width/2, height/2
	draw.DrawMask(img, img.Bounds(), image.NewUniform(placeholderIcon), image.Point{},
		&circle{center: image.Pt(cx, cy), radius: playIconRadius}, image.Point{}, draw.Over)

	tri := &triangle{
		a: image.Pt(cx-20, cy-30),
		b: image.Pt(cx-20, cy+30),
		c: image.Pt(cx+30, cy),
	}
	draw.DrawMask(img, img.Bounds(), image.NewUniform(placeholderTriangle), image.Point{}, tri, image.Point{}, draw.Over)

	return img
}

// circle is an alpha mask that is opaque inside the circle.
type circle struct {
	center image.Point
	radius int
}

func (c *circle) ColorModel() color.Model { return color.AlphaModel }

func (c *circle) Bounds() image.Rectangle {
	return image.Rect(c.center.X-c.radius, c.center.Y-c.radius, c.center.X+c.radius+1, c.center.Y+c.radius+1)
}

func (c *circle) At(x, y int) color.Color {
	dx, dy := x-c.center.X, y-c.center.Y
	if dx*dx+dy*dy <= c.radius*c.radius {
		return color.Alpha{A: 255}
	}
	return color.Alpha{}
}

// triangle is an alpha mask that is opaque inside the triangle abc.
type triangle struct {
	a, b, c image.Point
}

func (t *triangle) ColorModel() color.Model { return color.AlphaModel }

func (t *triangle) Bounds() image.Rectangle {
	r := image.Rectangle{Min: t.a, Max: t.a.Add(image.Pt(1, 1))}
	for _, p := range []image.Point{t.b, t.c} {
		r = r.Union(image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))})
	}
	return r
}

func (t *triangle) At(x, y int) color.Color {
	p := image.Pt(x, y)
	d1 := cross(t.a, t.b, p)
	d2 := cross(t.b, t.c, p)
	d3 := cross(t.c, t.a, p)
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	if !(hasNeg && hasPos) {
		return color.Alpha{A: 255}
	}
	return color.Alpha{}
}

func cross(a, b, p image.Point) int {
	return (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
}
