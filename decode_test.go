package aseprite

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func threeFrames(t *testing.T) testFile {
	return testFile{
		width: 2, height: 2,
		frames: [][]byte{
			frame(100,
				layerChunk(LayerVisible, 255, "Layer 1"),
				compressedCel(t, 0, 0, 0, 255, 2, 2, solid(2, 2, red)),
			),
			frame(100,
				compressedCel(t, 0, 0, 0, 255, 2, 2, solid(2, 2, white)),
			),
			frame(100,
				linkedCel(0, 0),
			),
		},
	}
}

func TestDecode(t *testing.T) {
	data := threeFrames(t).bytes()

	img, imgformat, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, "aseprite", imgformat)

	spr, ok := img.(*Aseprite)
	require.True(t, ok)
	require.Len(t, spr.Frames, 3)
	require.Equal(t, image.Rect(0, 0, 4, 4), spr.Bounds())

	for i, want := range []color.NRGBA{red, white, red} {
		fr := spr.Frames[i]
		require.Equal(t, image.Rect((i%2)*2, (i/2)*2, (i%2)*2+2, (i/2)*2+2), fr.Bounds)
		require.Equal(t, want, color.NRGBAModel.Convert(spr.At(fr.Bounds.Min.X, fr.Bounds.Min.Y)))
	}

	// the unused atlas cell stays transparent
	require.Equal(t, color.NRGBA{}, color.NRGBAModel.Convert(spr.At(3, 3)))

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
}

func TestDecodeConfig(t *testing.T) {
	for _, tt := range []struct {
		Name        string
		File        testFile
		ImageConfig image.Config
	}{
		{
			Name: "three_frames",
			File: threeFrames(t),
			ImageConfig: image.Config{
				ColorModel: color.NRGBAModel,
				Width:      4,
				Height:     4,
			},
		},
		{
			Name: "wide",
			File: testFile{width: 8, height: 2, frames: [][]byte{frame(100), frame(100)}},
			ImageConfig: image.Config{
				ColorModel: color.NRGBAModel,
				Width:      8,
				Height:     4,
			},
		},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			conf, imgformat, err := image.DecodeConfig(bytes.NewReader(tt.File.bytes()))
			require.NoError(t, err)
			require.Equal(t, "aseprite", imgformat)
			require.Equal(t, tt.ImageConfig, conf)
		})
	}
}

func TestDecodeConfigInvalid(t *testing.T) {
	_, err := DecodeConfig(bytes.NewReader([]byte{1, 2, 3}))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	data := threeFrames(t).bytes()
	data[5] = 0
	_, err = DecodeConfig(bytes.NewReader(data))
	require.ErrorIs(t, err, errInvalidMagic)
}

func TestReadPlainReader(t *testing.T) {
	data := threeFrames(t).bytes()

	spr, err := Read(plainReader{bytes.NewReader(data)})
	require.NoError(t, err)
	require.Len(t, spr.Frames, 3)
}

func TestReadFrom(t *testing.T) {
	data := threeFrames(t).bytes()

	var spr Aseprite
	n, err := spr.ReadFrom(bytes.NewReader(append(data, 0, 0, 0)))
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), n)
	require.Equal(t, uint16(3), spr.Header.Frames)
	require.Equal(t, uint16(2), spr.Header.Width)
	require.Equal(t, uint16(32), spr.Header.Depth)
	require.Equal(t, uint16(100), spr.Header.Speed)
	require.Equal(t, uint16(16), spr.Header.GridWidth)
}

func TestReadContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	spr, err := ReadContext(ctx, bytes.NewReader(threeFrames(t).bytes()))
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, spr)
}

func TestFactorPowerOfTwo(t *testing.T) {
	for _, tt := range []struct {
		N, A, B int
	}{
		{0, 1, 1},
		{1, 1, 1},
		{2, 2, 1},
		{3, 2, 2},
		{5, 4, 2},
		{10, 4, 4},
		{17, 8, 4},
	} {
		a, b := factorPowerOfTwo(tt.N)
		require.Equal(t, tt.A, a, "n=%d", tt.N)
		require.Equal(t, tt.B, b, "n=%d", tt.N)
	}
}
