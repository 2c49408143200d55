// Package aseprite implements a decoder for Aseprite sprite files.
//
// Every frame is composited into a straight-alpha RGBA image
// and the per-layer canvases of each frame are kept alongside it.
// Frames are also arranged on a single texture atlas so that
// the sprite can be used as an image.Image.
// Indexed and grayscale color modes, tilesets, masks and paths are not supported.
//
// Aseprite file format spec: https://github.com/aseprite/aseprite/blob/main/docs/ase-file-specs.md
package aseprite

import (
	"context"
	"image"
	"image/color"
	"io"
	"time"
)

// Header is the file header of an Aseprite file.
type Header struct {
	// Size is the file size in bytes.
	Size uint32

	// Frames is the number of frames in the file.
	Frames uint16

	// Width and Height are the dimensions of the canvas in pixels.
	Width, Height uint16

	// Depth is the color depth in bits per pixel.
	// Only 32 (RGBA) is decoded.
	Depth uint16

	Flags uint32

	// Speed is the deprecated per-frame duration in milliseconds.
	Speed uint16

	// TransparentIndex is the palette entry of the transparent color
	// in indexed sprites.
	TransparentIndex uint8

	// NumColors is the number of palette entries.
	NumColors uint16

	// PixelWidth and PixelHeight form the pixel aspect ratio.
	PixelWidth, PixelHeight uint8

	GridX, GridY          int16
	GridWidth, GridHeight uint16
}

// LayerType enumerates the kinds of layers.
type LayerType uint16

const (
	LayerImage LayerType = iota
	LayerGroup
	LayerTilemap
)

// LayerFlags is a bit set of layer properties.
type LayerFlags uint16

const (
	LayerVisible LayerFlags = 1 << iota
	LayerEditable
	LayerLockMovement
	LayerBackground
	LayerContinuous
	LayerCollapsed
	LayerReference
)

// Layer is one entry of the flattened layer tree.
// Its index in Aseprite.Layers is the index used by cels.
type Layer struct {
	Flags LayerFlags
	Type  LayerType

	// ChildLevel is the nesting depth in the layer tree.
	ChildLevel uint16

	DefaultWidth, DefaultHeight uint16

	// BlendMode is recorded but not applied: layers are composited
	// with the normal blend mode.
	BlendMode uint16

	Opacity uint8
	Name    string
}

func (l *Layer) Visible() bool      { return l.Flags&LayerVisible != 0 }
func (l *Layer) Editable() bool     { return l.Flags&LayerEditable != 0 }
func (l *Layer) LockMovement() bool { return l.Flags&LayerLockMovement != 0 }
func (l *Layer) Background() bool   { return l.Flags&LayerBackground != 0 }
func (l *Layer) Continuous() bool   { return l.Flags&LayerContinuous != 0 }
func (l *Layer) Collapsed() bool    { return l.Flags&LayerCollapsed != 0 }
func (l *Layer) Reference() bool    { return l.Flags&LayerReference != 0 }

// IsGroup reports whether the layer groups other layers rather than holding pixels.
func (l *Layer) IsGroup() bool { return l.Type == LayerGroup }

// LoopDirection enumerates all loop animation directions.
type LoopDirection uint8

const (
	Forward LoopDirection = iota
	Reverse
	PingPong
	PingPongReverse
)

// Tag is an animation tag.
type Tag struct {
	// Name is the name of the tag. Can be duplicate.
	Name string

	// Lo is the first frame in the animation.
	Lo uint16

	// Hi is the last frame in the animation.
	Hi uint16

	// Repeat specifies how many times to repeat the animation.
	// Zero means infinitely.
	Repeat uint16

	// LoopDirection is the looping direction of the animation.
	LoopDirection LoopDirection

	// Color is the tag color shown in the timeline.
	Color color.NRGBA
}

// Frame is a single decoded frame.
type Frame struct {
	// Duration is the time that the frame should be displayed for.
	Duration time.Duration

	// Image is the final composition of all visible layers.
	Image *image.NRGBA

	// Layers holds one canvas per layer, indexed like Aseprite.Layers,
	// including invisible layers. Layers without a cel are transparent.
	Layers []*image.NRGBA

	// Bounds is the location of the frame in the sprite's atlas.
	Bounds image.Rectangle
}

// UserData is optional text and color attached to an element.
type UserData struct {
	Text  string
	Color color.NRGBA
}

// SliceKey is the state of a slice starting at a frame.
type SliceKey struct {
	// Frame is the frame from which this key applies.
	Frame uint32

	// Bounds is the slice region on the canvas.
	Bounds image.Rectangle

	// Center is the 9-slices center relative to Bounds, if any.
	Center *image.Rectangle

	// Pivot is the pivot point relative to Bounds, if any.
	Pivot *image.Point
}

// Slice is a named, keyframed region of the canvas.
type Slice struct {
	// Name is the name of the slice. Can be duplicate.
	Name string

	// Keys lists the keyframes in file order.
	Keys []SliceKey

	UserData UserData
}

// Aseprite holds the results of a parsed Aseprite image file.
type Aseprite struct {
	// Image contains all frame images in a single image.
	// Frame bounds specify where the frame images are located.
	image.Image

	Header Header

	// Layers lists all layers in declaration order.
	Layers []Layer

	// Frames lists all frames that make up the sprite.
	Frames []Frame

	// Tags lists all animation tags.
	Tags []Tag

	// Slices lists all slices.
	Slices []Slice
}

// ReadFrom decodes an Aseprite file from r into spr.
// It returns the number of bytes consumed.
func (spr *Aseprite) ReadFrom(r io.Reader) (int64, error) {
	return spr.readFrom(context.Background(), r)
}

func (spr *Aseprite) readFrom(ctx context.Context, r io.Reader) (int64, error) {
	f := newFile(r)

	if err := f.decode(ctx); err != nil {
		return f.r.Offset(), err
	}

	var framesr []image.Rectangle
	spr.Image, framesr = f.buildAtlas()
	spr.Header = f.header
	spr.Layers = f.layers
	spr.Frames = f.frames
	spr.Tags = f.tags
	spr.Slices = f.slices

	for i := range spr.Frames {
		spr.Frames[i].Bounds = framesr[i]
	}

	return f.r.Offset(), nil
}
