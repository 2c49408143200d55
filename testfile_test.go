package aseprite

import (
	"bytes"
	"encoding/binary"
	"image/color"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/require"
)

// le encodes fixed-size values in little-endian order.
// Byte slices are copied verbatim and strings get a 16-bit length prefix.
func le(vals ...any) []byte {
	var buf bytes.Buffer
	for _, v := range vals {
		switch v := v.(type) {
		case []byte:
			buf.Write(v)
		case string:
			le16 := binary.LittleEndian.AppendUint16(nil, uint16(len(v)))
			buf.Write(le16)
			buf.WriteString(v)
		default:
			if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
				panic(err)
			}
		}
	}
	return buf.Bytes()
}

type testFile struct {
	width, height uint16
	depth         uint16

	// nframes overrides the frame count in the header when non-zero.
	nframes uint16
	frames  [][]byte
}

func (tf testFile) bytes() []byte {
	depth := tf.depth
	if depth == 0 {
		depth = 32
	}

	nframes := tf.nframes
	if nframes == 0 {
		nframes = uint16(len(tf.frames))
	}

	body := bytes.Join(tf.frames, nil)

	hdr := le(
		uint32(headerSize+len(body)),
		uint16(fileMagic),
		nframes,
		tf.width, tf.height,
		depth,
		uint32(1),   // flags
		uint16(100), // speed
		uint32(0), uint32(0),
		uint8(0), make([]byte, 3), // transparent index
		uint16(0),                 // colors
		uint8(1), uint8(1),        // pixel ratio
		int16(0), int16(0), uint16(16), uint16(16), // grid
	)
	hdr = append(hdr, make([]byte, headerSize-len(hdr))...)

	return append(hdr, body...)
}

func frame(durationMS uint16, chunks ...[]byte) []byte {
	body := bytes.Join(chunks, nil)
	return le(
		uint32(16+len(body)),
		uint16(frameMagic),
		uint16(len(chunks)),
		durationMS,
		make([]byte, 2),
		uint32(0),
		body,
	)
}

func chunk(typ uint16, body ...any) []byte {
	b := le(body...)
	return le(uint32(6+len(b)), typ, b)
}

func layerChunk(flags LayerFlags, opacity uint8, name string) []byte {
	return chunk(chunkLayer,
		uint16(flags), uint16(LayerImage), uint16(0),
		uint16(0), uint16(0), uint16(0),
		opacity, make([]byte, 3), name)
}

func deflate(t *testing.T, pix []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write(pix)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func compressedCel(t *testing.T, layer uint16, x, y int16, opacity uint8, w, h uint16, pix []byte) []byte {
	return chunk(chunkCel,
		layer, x, y, opacity, uint16(celCompressed), make([]byte, 7),
		w, h, deflate(t, pix))
}

func linkedCel(layer, srcFrame uint16) []byte {
	return chunk(chunkCel,
		layer, int16(0), int16(0), uint8(255), uint16(celLinked), make([]byte, 7),
		srcFrame)
}

func solid(w, h int, c color.NRGBA) []byte {
	pix := make([]byte, 0, w*h*4)
	for i := 0; i < w*h; i++ {
		pix = append(pix, c.R, c.G, c.B, c.A)
	}
	return pix
}
