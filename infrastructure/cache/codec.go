package cache

import (
	"bytes"
	"io"

	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// structTag lets entity types keep a single set of json tags for both the
// flat files and the cache.
const structTag = "json"

// Marshal serializes v with msgpack, honoring json struct tags.
func Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag(structTag)
	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(err, "failed to encode cache value")
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes msgpack data into out. Untyped numbers decode as int64
// or float64.
func Unmarshal(data []byte, out interface{}) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag(structTag)
	dec.UseLooseInterfaceDecoding(true)
	return errors.Wrap(dec.Decode(out), "failed to decode cache value")
}

// Compress compresses data with LZ4 frames.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	writer := lz4.NewWriter(&buf)
	if _, err := writer.Write(data); err != nil {
		return nil, errors.Wrap(err, "failed to write LZ4 compressed data")
	}
	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to close LZ4 writer")
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(data []byte) ([]byte, error) {
	decompressed, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read LZ4 decompressed data")
	}
	return decompressed, nil
}
