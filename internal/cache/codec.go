package cache

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Codec turns values into the byte payload stored by both tiers. Values are
// gob encoded and optionally zstd compressed. A Codec is safe for concurrent
// use.
//
// Gob does not keep everything: unexported fields are dropped, empty slices
// and maps decode as nil, and pointers to zero values decode as nil. Cached
// values should be plain exported data for which that makes no difference.
type Codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCodec creates a codec. With compress set, payloads are zstd frames.
func NewCodec(compress bool) (*Codec, error) {
	c := &Codec{}
	if !compress {
		return c, nil
	}

	var err error
	c.encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	c.decoder, err = zstd.NewReader(nil)
	if err != nil {
		_ = c.encoder.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return c, nil
}

// Encode serializes v. Failures wrap ErrSerialization.
func (c *Codec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("%w: encode: %w", ErrSerialization, err)
	}
	if c.encoder == nil {
		return buf.Bytes(), nil
	}
	return c.encoder.EncodeAll(buf.Bytes(), nil), nil
}

// Decode deserializes data into the value pointed to by v. Failures wrap
// ErrSerialization.
func (c *Codec) Decode(data []byte, v any) error {
	if c.decoder != nil {
		raw, err := c.decoder.DecodeAll(data, nil)
		if err != nil {
			return fmt.Errorf("%w: decompress: %w", ErrSerialization, err)
		}
		data = raw
	}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("%w: decode: %w", ErrSerialization, err)
	}
	return nil
}

// Close releases the compression resources.
func (c *Codec) Close() error {
	if c.decoder != nil {
		c.decoder.Close()
	}
	if c.encoder != nil {
		return c.encoder.Close()
	}
	return nil
}
