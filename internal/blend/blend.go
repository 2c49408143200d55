// Package blend composites straight-alpha RGBA images
// with the same fixed-point arithmetic as Aseprite.
package blend

import (
	"image"
	"image/color"
)

// MulUn8 computes a*b/255 rounded to the nearest integer.
func MulUn8(a, b uint8) uint8 {
	t := uint32(a)*uint32(b) + 0x80
	return uint8(((t >> 8) + t) >> 8)
}

// Normal composites src over dst after scaling the alpha of src by opacity.
func Normal(dst, src color.NRGBA, opacity uint8) color.NRGBA {
	sa := MulUn8(src.A, opacity)

	ra := int(sa) + int(dst.A) - int(MulUn8(dst.A, sa))
	if ra == 0 {
		return color.NRGBA{}
	}

	// nothing to draw
	if sa == 0 {
		return dst
	}

	channel := func(d, s uint8) uint8 {
		return uint8(int(d) + (int(s)-int(d))*int(sa)/ra)
	}

	return color.NRGBA{
		R: channel(dst.R, src.R),
		G: channel(dst.G, src.G),
		B: channel(dst.B, src.B),
		A: uint8(ra),
	}
}

// Draw composites every pixel of src onto dst with the top-left corner of
// src placed at (x, y). Pixels that fall outside of dst are dropped.
func Draw(dst *image.NRGBA, x, y int, src *image.NRGBA, opacity uint8) {
	sr := src.Bounds()
	dr := sr.Sub(sr.Min).Add(image.Pt(x, y)).Intersect(dst.Bounds())
	if dr.Empty() {
		return
	}

	// offset from destination to source coordinates
	delta := sr.Min.Sub(image.Pt(x, y))

	for py := dr.Min.Y; py < dr.Max.Y; py++ {
		di := dst.PixOffset(dr.Min.X, py)
		si := src.PixOffset(dr.Min.X+delta.X, py+delta.Y)
		for px := dr.Min.X; px < dr.Max.X; px++ {
			d := dst.Pix[di : di+4 : di+4]
			s := src.Pix[si : si+4 : si+4]
			c := Normal(
				color.NRGBA{d[0], d[1], d[2], d[3]},
				color.NRGBA{s[0], s[1], s[2], s[3]},
				opacity,
			)
			d[0], d[1], d[2], d[3] = c.R, c.G, c.B, c.A
			di += 4
			si += 4
		}
	}
}
