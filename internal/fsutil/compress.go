package fsutil

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Compressor performs lossless zstd compression of session payloads. The
// encoder and decoder are created once and reused via EncodeAll/DecodeAll.
type Compressor struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewCompressor creates a Compressor at the given zstd compression level.
func NewCompressor(level int) *Compressor {
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	dec, _ := zstd.NewReader(nil)
	return &Compressor{enc: enc, dec: dec}
}

// Compress returns the zstd frame for data. Empty input yields a valid frame
// that decompresses back to empty.
func (c *Compressor) Compress(data []byte) []byte {
	return c.enc.EncodeAll(data, nil)
}

// Decompress reverses Compress exactly, for any input including empty and
// multi-byte text.
func (c *Compressor) Decompress(data []byte) ([]byte, error) {
	out, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing payload: %w", err)
	}
	return out, nil
}
