package aseprite

import (
	"context"
	"image"
	"image/color"
	"io"
)

// Read decodes an Aseprite file from r.
// Either the whole file is decoded or an error is returned.
func Read(r io.Reader) (*Aseprite, error) {
	return ReadContext(context.Background(), r)
}

// ReadContext is like Read but stops between frames when ctx is done.
func ReadContext(ctx context.Context, r io.Reader) (*Aseprite, error) {
	var spr Aseprite
	if _, err := spr.readFrom(ctx, r); err != nil {
		return nil, err
	}

	return &spr, nil
}

// Decode reads a Aseprite image from r and returns it as an image.Image.
func Decode(r io.Reader) (image.Image, error) {
	spr, err := Read(r)
	if err != nil {
		return nil, err
	}

	return spr, nil
}

// DecodeConfig returns the color model and dimensions of an Aseprite image
// without decoding the entire image.
func DecodeConfig(r io.Reader) (image.Config, error) {
	cr := newReader(r)
	hdr, magic := readHeader(cr)
	if err := cr.Err(); err != nil {
		return image.Config{}, err
	} else if magic != fileMagic {
		return image.Config{}, errInvalidMagic
	}

	atlasr, _ := makeAtlasFrames(int(hdr.Frames), int(hdr.Width), int(hdr.Height))

	return image.Config{
		ColorModel: color.NRGBAModel,
		Width:      atlasr.Dx(),
		Height:     atlasr.Dy(),
	}, nil
}

func init() {
	image.RegisterFormat("aseprite", "????\xE0\xA5", Decode, DecodeConfig)
}
