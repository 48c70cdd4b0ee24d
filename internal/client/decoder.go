package client

import (
	"errors"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// streamDecoder turns a sequence of raw byte chunks into text. A multi-byte
// sequence cut by a chunk boundary is held back until the next chunk
// completes it; invalid bytes become U+FFFD.
type streamDecoder struct {
	t       transform.Transformer
	pending []byte
	buf     []byte
}

func newStreamDecoder() *streamDecoder {
	return &streamDecoder{
		t:   unicode.UTF8.NewDecoder(),
		buf: make([]byte, 4096),
	}
}

// Decode returns the text completed by chunk. With atEOF set, any held back
// bytes are flushed as replacement characters.
func (d *streamDecoder) Decode(chunk []byte, atEOF bool) (string, error) {
	src := make([]byte, 0, len(d.pending)+len(chunk))
	src = append(src, d.pending...)
	src = append(src, chunk...)
	d.pending = d.pending[:0]

	var out []byte
	for len(src) > 0 || atEOF {
		nDst, nSrc, err := d.t.Transform(d.buf, src, atEOF)
		out = append(out, d.buf[:nDst]...)
		src = src[nSrc:]

		switch {
		case err == nil:
			return string(out), nil
		case errors.Is(err, transform.ErrShortDst):
			continue
		case errors.Is(err, transform.ErrShortSrc):
			d.pending = append(d.pending, src...)
			return string(out), nil
		default:
			return string(out), err
		}
	}
	return string(out), nil
}

func (d *streamDecoder) Reset() {
	d.t.Reset()
	d.pending = d.pending[:0]
}
