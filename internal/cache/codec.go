package cache

import (
	"bytes"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
)

// Payloads at or above compressMin bytes are stored zstd-compressed. Full
// VOD catalogues are large and compress well; small values stay plain JSON
// so they remain readable from redis-cli.
const compressMin = 1 << 10

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	decoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
)

func encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(data) < compressMin {
		return data, nil
	}
	return encoder.EncodeAll(data, make([]byte, 0, len(data)/4)), nil
}

func decode(raw []byte, dst any) error {
	if bytes.HasPrefix(raw, zstdMagic) {
		plain, err := decoder.DecodeAll(raw, nil)
		if err != nil {
			return err
		}
		raw = plain
	}
	return json.Unmarshal(raw, dst)
}
