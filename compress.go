package aokv

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// SnappyCodec returns a snappy compress/decompress pair.
func SnappyCodec() (CompressFunc, DecompressFunc) {
	compress := func(src []byte) ([]byte, error) {
		return snappy.Encode(nil, src), nil
	}
	decompress := func(src []byte) ([]byte, error) {
		return snappy.Decode(nil, src)
	}
	return compress, decompress
}

// ZstdCodec returns a zstd compress/decompress pair. The underlying
// encoder and decoder are shared across calls and safe for concurrent
// use via EncodeAll/DecodeAll.
func ZstdCodec() (CompressFunc, DecompressFunc) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		panic(err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		panic(err)
	}

	compress := func(src []byte) ([]byte, error) {
		return enc.EncodeAll(src, nil), nil
	}
	decompress := func(src []byte) ([]byte, error) {
		return dec.DecodeAll(src, nil)
	}
	return compress, decompress
}

// BrotliCodec returns a brotli compress/decompress pair.
func BrotliCodec() (CompressFunc, DecompressFunc) {
	compress := func(src []byte) ([]byte, error) {
		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		if _, err := bw.Write(src); err != nil {
			return nil, err
		}
		if err := bw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	decompress := func(src []byte) ([]byte, error) {
		return io.ReadAll(brotli.NewReader(bytes.NewReader(src)))
	}
	return compress, decompress
}
