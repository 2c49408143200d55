package aseprite

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"math"
	"time"

	"github.com/klauspost/compress/zlib"

	"github.com/askeladdk/go-aseprite/internal/blend"
)

const (
	fileMagic  = 0xA5E0
	frameMagic = 0xF1FA

	// frames start after the fixed-size file header
	headerSize = 128
)

const (
	chunkOldPalette    = 0x0004
	chunkFLIColor      = 0x000B
	chunkOldPalette2   = 0x0011
	chunkLayer         = 0x2004
	chunkCel           = 0x2005
	chunkCelExtra      = 0x2006
	chunkColorProfile  = 0x2007
	chunkExternalFiles = 0x2008
	chunkMask          = 0x2016
	chunkPath          = 0x2017
	chunkTags          = 0x2018
	chunkPalette       = 0x2019
	chunkUserData      = 0x2020
	chunkOldSlices     = 0x2021
	chunkSlice         = 0x2022
	chunkTileset       = 0x2023
)

const (
	celRaw        = 0
	celLinked     = 1
	celCompressed = 2
)

const (
	userDataHasText  = 1
	userDataHasColor = 2

	sliceHasCenter = 1
	sliceHasPivot  = 2
)

var (
	errInvalidMagic = FormatError("invalid magic number")
	errBackwardSeek = errors.New("source cannot seek backward")
)

// file is the state of a single decoding pass.
// Layers, frames, tags and slices only ever grow.
type file struct {
	r      *reader
	header Header
	layers []Layer
	frames []Frame
	tags   []Tag
	slices []Slice

	// userDataSlice is the index of the slice that a user data chunk
	// attaches to, or -1 when the previous chunk was not a slice.
	userDataSlice int
}

func newFile(r io.Reader) *file {
	return &file{
		r:             newReader(r),
		userDataSlice: -1,
	}
}

func (f *file) readHeader() error {
	var magic uint16

	f.header, magic = readHeader(f.r)
	if err := f.r.Err(); err != nil {
		return err
	}

	if magic != fileMagic {
		return errInvalidMagic
	}

	f.r.seek(headerSize)
	return f.r.Err()
}

func (f *file) decode(ctx context.Context) error {
	if err := f.readHeader(); err != nil {
		return err
	}

	f.frames = make([]Frame, 0, f.header.Frames)

	for i := 0; i < int(f.header.Frames); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := f.readFrame(); err != nil {
			return err
		}
	}

	return nil
}

func (f *file) readFrame() error {
	_ = f.r.u32() // frame size
	magic := f.r.u16()
	oldChunks := f.r.u16()
	durationMS := f.r.u16()
	f.r.skip(2)
	newChunks := f.r.u32()

	if err := f.r.Err(); err != nil {
		return err
	}

	if magic != frameMagic {
		return errInvalidMagic
	}

	nchunks := int(newChunks)
	if nchunks == 0 {
		nchunks = int(oldChunks)
	}

	fr := Frame{
		Duration: time.Millisecond * time.Duration(durationMS),
	}

	f.userDataSlice = -1

	for i := 0; i < nchunks; i++ {
		if err := f.readChunk(&fr); err != nil {
			return err
		}
	}

	f.finalizeFrame(&fr)
	f.frames = append(f.frames, fr)
	return nil
}

func (f *file) readChunk(fr *Frame) error {
	start := f.r.Offset()
	size := f.r.u32()
	typ := f.r.u16()

	if err := f.r.Err(); err != nil {
		return err
	}

	end := start + int64(size)

	if err := f.applyChunk(fr, typ, end); err != nil {
		return err
	}

	// skip fields that the handler does not know about
	f.r.advanceTo(end)
	return f.r.Err()
}

func (f *file) applyChunk(fr *Frame, typ uint16, end int64) error {
	userDataSlice := -1
	defer func() { f.userDataSlice = userDataSlice }()

	switch typ {
	case chunkOldPalette, chunkFLIColor, chunkOldPalette2, chunkPalette, chunkColorProfile:
		// no effect on RGBA sprites
		return nil
	case chunkLayer:
		return f.parseLayerChunk()
	case chunkCel:
		return f.parseCelChunk(fr, end)
	case chunkTags:
		return f.parseTagsChunk()
	case chunkSlice:
		err := f.parseSliceChunk()
		userDataSlice = len(f.slices) - 1
		return err
	case chunkUserData:
		return f.parseUserDataChunk()
	case chunkCelExtra, chunkExternalFiles, chunkMask, chunkPath, chunkOldSlices, chunkTileset:
		return UnsupportedError{"chunk type", typ}
	default:
		return UnsupportedError{"unknown chunk type", typ}
	}
}

func (f *file) parseLayerChunk() error {
	l := readLayer(f.r)
	if err := f.r.Err(); err != nil {
		return err
	}

	f.layers = append(f.layers, l)
	return nil
}

func (f *file) parseTagsChunk() error {
	ntags := int(f.r.u16())
	f.r.skip(8)

	for i := 0; i < ntags; i++ {
		t := readTag(f.r)
		if err := f.r.Err(); err != nil {
			return err
		}
		f.tags = append(f.tags, t)
	}

	return f.r.Err()
}

func (f *file) parseSliceChunk() error {
	nkeys := f.r.u32()
	flags := f.r.u32()
	f.r.skip(4)
	name := f.r.string()

	if err := f.r.Err(); err != nil {
		return err
	}

	f.slices = append(f.slices, Slice{Name: name})
	s := &f.slices[len(f.slices)-1]

	for i := uint32(0); i < nkeys; i++ {
		k := readSliceKey(f.r, flags)
		if err := f.r.Err(); err != nil {
			return err
		}
		s.Keys = append(s.Keys, k)
	}

	return nil
}

// parseUserDataChunk attaches user data to the slice defined by the
// previous chunk. User data of other elements is skipped.
func (f *file) parseUserDataChunk() error {
	if f.userDataSlice < 0 {
		return nil
	}

	ud := readUserData(f.r)
	if err := f.r.Err(); err != nil {
		return err
	}

	f.slices[f.userDataSlice].UserData = ud
	return nil
}

// canvas returns the canvas of layer in fr, allocating canvases up to it.
func (f *file) canvas(fr *Frame, layer int) *image.NRGBA {
	bounds := image.Rect(0, 0, int(f.header.Width), int(f.header.Height))
	for len(fr.Layers) <= layer {
		fr.Layers = append(fr.Layers, image.NewNRGBA(bounds))
	}
	return fr.Layers[layer]
}

func (f *file) parseCelChunk(fr *Frame, end int64) error {
	layer := int(f.r.u16())
	x := int(f.r.i16())
	y := int(f.r.i16())
	opacity := f.r.u8()
	celtype := f.r.u16()
	f.r.skip(7)

	if err := f.r.Err(); err != nil {
		return err
	}

	if layer >= len(f.layers) {
		return FormatError(fmt.Sprintf("cel references layer %d but only %d are defined", layer, len(f.layers)))
	}

	switch celtype {
	case celLinked:
		srcFrame := int(f.r.u16())
		if err := f.r.Err(); err != nil {
			return err
		}

		// the current frame is not yet in f.frames
		if srcFrame >= len(f.frames) {
			return FormatError(fmt.Sprintf("cel links to frame %d from frame %d", srcFrame, len(f.frames)))
		}

		dst := f.canvas(fr, layer)

		// layers defined after srcFrame have no canvas in it
		if src := f.frames[srcFrame].Layers; layer < len(src) {
			blend.Draw(dst, 0, 0, src[layer], 255)
		}
	case celCompressed:
		if f.header.Depth != 32 {
			return UnsupportedError{"color depth", f.header.Depth}
		}

		width := int(f.r.u16())
		height := int(f.r.u16())
		if err := f.r.Err(); err != nil {
			return err
		}

		pix, err := f.inflate(end, width*height*4)
		if err != nil {
			return err
		}

		patch := &image.NRGBA{
			Pix:    pix,
			Stride: width * 4,
			Rect:   image.Rect(0, 0, width, height),
		}

		blend.Draw(f.canvas(fr, layer), x, y, patch, opacity)
	default:
		return UnsupportedError{"cel type", celtype}
	}

	return nil
}

// inflate decompresses the zlib stream between the cursor and end,
// which must hold exactly size bytes.
func (f *file) inflate(end int64, size int) ([]byte, error) {
	if end < f.r.Offset() {
		return nil, FormatError("cel chunk is smaller than its header")
	}

	zr, err := zlib.NewReader(f.r.payload(end))
	if err != nil {
		if rerr := f.r.Err(); rerr != nil {
			return nil, rerr
		}
		return nil, FormatError("cel data: " + err.Error())
	}
	defer zr.Close()

	// read one byte past size to detect oversized data
	pix, err := io.ReadAll(io.LimitReader(zr, int64(size)+1))
	if rerr := f.r.Err(); rerr != nil {
		return nil, rerr
	}
	if err != nil {
		return nil, FormatError("cel data: " + err.Error())
	}

	if len(pix) != size {
		return nil, FormatError(fmt.Sprintf("cel data has %d bytes, expected %d", len(pix), size))
	}

	return pix, nil
}

// finalizeFrame composites the canvases of all visible layers in layer order.
func (f *file) finalizeFrame(fr *Frame) {
	if n := len(f.layers); n > 0 {
		f.canvas(fr, n-1)
	}

	fr.Image = image.NewNRGBA(image.Rect(0, 0, int(f.header.Width), int(f.header.Height)))

	for i := range f.layers {
		if l := &f.layers[i]; l.Visible() {
			blend.Draw(fr.Image, 0, 0, fr.Layers[i], l.Opacity)
		}
	}
}

func (f *file) buildAtlas() (atlas draw.Image, framesr []image.Rectangle) {
	var atlasr image.Rectangle
	atlasr, framesr = makeAtlasFrames(len(f.frames), int(f.header.Width), int(f.header.Height))
	atlas = image.NewNRGBA(atlasr)

	for i, fr := range f.frames {
		draw.Draw(atlas, framesr[i], fr.Image, image.Point{}, draw.Src)
	}

	return
}

func makeAtlasFrames(nframes, framew, frameh int) (atlasr image.Rectangle, framesr []image.Rectangle) {
	fw, fh := factorPowerOfTwo(nframes)
	if framew > frameh {
		fw, fh = fh, fw
	}

	atlasr = image.Rect(0, 0, fw*framew, fh*frameh)

	for i := 0; i < nframes; i++ {
		x, y := i%fw, i/fw
		framesr = append(framesr, image.Rectangle{
			Min: image.Pt(x*framew, y*frameh),
			Max: image.Pt((x+1)*framew, (y+1)*frameh),
		})
	}

	return
}

// factorPowerOfTwo computes n<=a*b, where a, b are powers of two and a >= b.
func factorPowerOfTwo(n int) (a, b int) {
	if n <= 1 {
		return 1, 1
	}
	x := int(math.Ceil(math.Log2(float64(n))))
	a = 1 << (x - x/2)
	b = 1 << (x / 2)
	return
}
