package aseprite

import (
	"image"
	"image/color"
)

// Records are read field by field in on-disk order, reserved bytes included.
// Callers check r.Err() once the record is complete.

func readHeader(r *reader) (h Header, magic uint16) {
	h.Size = r.u32()
	magic = r.u16()
	h.Frames = r.u16()
	h.Width = r.u16()
	h.Height = r.u16()
	h.Depth = r.u16()
	h.Flags = r.u32()
	h.Speed = r.u16()
	r.skip(4)
	r.skip(4)
	// a single byte as in the published format, which keeps
	// NumColors at offset 32 and the pixel ratio at 34
	h.TransparentIndex = r.u8()
	r.skip(3)
	h.NumColors = r.u16()
	h.PixelWidth = r.u8()
	h.PixelHeight = r.u8()
	h.GridX = r.i16()
	h.GridY = r.i16()
	h.GridWidth = r.u16()
	h.GridHeight = r.u16()
	return
}

func readLayer(r *reader) (l Layer) {
	l.Flags = LayerFlags(r.u16())
	l.Type = LayerType(r.u16())
	l.ChildLevel = r.u16()
	l.DefaultWidth = r.u16()
	l.DefaultHeight = r.u16()
	l.BlendMode = r.u16()
	l.Opacity = r.u8()
	r.skip(3)
	l.Name = r.string()
	return
}

func readTag(r *reader) (t Tag) {
	t.Lo = r.u16()
	t.Hi = r.u16()
	t.LoopDirection = LoopDirection(r.u8())
	t.Repeat = r.u16()
	r.skip(6)
	t.Color.R = r.u8()
	t.Color.G = r.u8()
	t.Color.B = r.u8()
	t.Color.A = 255
	r.skip(1)
	t.Name = r.string()
	return
}

func readColor(r *reader) color.NRGBA {
	return color.NRGBA{
		R: r.u8(),
		G: r.u8(),
		B: r.u8(),
		A: r.u8(),
	}
}

// Rect and point coordinates are signed; sizes are unsigned.
func readRect(r *reader) image.Rectangle {
	x := int(r.i32())
	y := int(r.i32())
	w := int(r.u32())
	h := int(r.u32())
	return image.Rect(x, y, x+w, y+h)
}

func readPoint(r *reader) image.Point {
	x := int(r.i32())
	y := int(r.i32())
	return image.Pt(x, y)
}

func readSliceKey(r *reader, flags uint32) (k SliceKey) {
	k.Frame = r.u32()
	k.Bounds = readRect(r)

	if flags&sliceHasCenter != 0 {
		center := readRect(r)
		k.Center = &center
	}

	if flags&sliceHasPivot != 0 {
		pivot := readPoint(r)
		k.Pivot = &pivot
	}

	return
}

func readUserData(r *reader) (ud UserData) {
	flags := r.u32()

	if flags&userDataHasText != 0 {
		ud.Text = r.string()
	}

	if flags&userDataHasColor != 0 {
		ud.Color = readColor(r)
	}

	return
}
