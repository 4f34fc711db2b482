package aokv_test

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/bsm/aokv"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// roundTrip pushes a single value through a full write/read cycle.
func roundTrip(key string, v aokv.Value, wo *aokv.WriterOptions, ro *aokv.ReaderOptions) (aokv.Value, error) {
	w := aokv.NewWriter(wo)
	if err := w.Set(key, v); err != nil {
		return aokv.Value{}, err
	}
	data, err := drain(w)
	if err != nil {
		return aokv.Value{}, err
	}

	r, err := openReader(data, ro)
	if err != nil {
		return aokv.Value{}, err
	}
	return r.Get(key)
}

var _ = Describe("Value", func() {
	It("should round-trip JSON values", func() {
		for _, x := range []interface{}{
			nil,
			true,
			"a string",
			3.25,
			[]interface{}{1.0, "two", false},
			map[string]interface{}{"deep": map[string]interface{}{"er": 1.0}},
		} {
			v, err := roundTrip("k", aokv.JSONValue(x), nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.Kind()).To(Equal(aokv.KindJSON))
			if x == nil {
				Expect(v.Interface()).To(BeNil(), "for %v", x)
			} else {
				Expect(v.Interface()).To(Equal(x), "for %v", x)
			}
		}
	})

	It("should round-trip every typed-array element type", func() {
		f64 := make([]byte, 16)
		binary.LittleEndian.PutUint64(f64, math.Float64bits(3.14))
		binary.LittleEndian.PutUint64(f64[8:], math.Float64bits(-2.71))

		for _, t := range []aokv.ArrayType{
			aokv.Uint8,
			aokv.Uint8Clamped,
			aokv.Int16,
			aokv.Uint16,
			aokv.Int32,
			aokv.Uint32,
			aokv.Float32,
			aokv.Float64,
			aokv.DataView,
		} {
			v, err := roundTrip("k", aokv.ArrayValue(t, f64), nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.Kind()).To(Equal(aokv.KindArray))
			Expect(v.ArrayType()).To(Equal(t), "for %v", t)
			Expect(v.Bytes()).To(Equal(f64))
		}
	})

	It("should round-trip raw byte buffers", func() {
		v, err := roundTrip("k", aokv.BytesValue([]byte{0, 255, 127}), nil, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.Kind()).To(Equal(aokv.KindBytes))
		Expect(v.Bytes()).To(Equal([]byte{0, 255, 127}))
	})

	It("should round-trip empty payloads", func() {
		v, err := roundTrip("k", aokv.BytesValue(nil), nil, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.Bytes()).To(BeEmpty())
	})

	It("should treat JSON null as the tombstone", func() {
		Expect(aokv.JSONValue(nil).IsNull()).To(BeTrue())
		Expect(aokv.JSONValue(false).IsNull()).To(BeFalse())
		Expect(aokv.BytesValue(nil).IsNull()).To(BeFalse())
	})

	It("should reject non-finite numbers", func() {
		w := aokv.NewWriter(nil)
		Expect(w.SetJSON("k", math.NaN())).NotTo(Succeed())
		Expect(w.SetJSON("k", math.Inf(1))).NotTo(Succeed())
	})

	Describe("compression probe", func() {
		It("should discard compressed output that shadows the probe byte", func() {
			// shorter than any body or index content, but both probe
			// bytes (offset 4 for bodies, offset 0 for index content)
			// read as '{'
			compress := func(p []byte) ([]byte, error) {
				return []byte("{xxx{"), nil
			}
			// must never run: the stored body is the plain form
			decompress := func(p []byte) ([]byte, error) {
				Fail("decompressor invoked for a plain body")
				return nil, nil
			}

			v, err := roundTrip("k", aokv.BytesValue(bytes.Repeat([]byte{7}, 64)),
				&aokv.WriterOptions{Compress: compress},
				&aokv.ReaderOptions{Decompress: decompress})
			Expect(err).NotTo(HaveOccurred())
			Expect(v.Bytes()).To(Equal(bytes.Repeat([]byte{7}, 64)))
		})

		It("should discard compressed output that is not shorter", func() {
			compress := func(p []byte) ([]byte, error) {
				return append(append([]byte(nil), p...), p...), nil
			}
			decompress := func(p []byte) ([]byte, error) {
				Fail("decompressor invoked for a plain body")
				return nil, nil
			}

			v, err := roundTrip("k", aokv.BytesValue([]byte{1, 2, 3}),
				&aokv.WriterOptions{Compress: compress},
				&aokv.ReaderOptions{Decompress: decompress})
			Expect(err).NotTo(HaveOccurred())
			Expect(v.Bytes()).To(Equal([]byte{1, 2, 3}))
		})

		It("should adopt compressed output that passes the probe", func() {
			// a fake invertible transform: stash the input, emit a
			// 6-byte ticket whose probe byte is not '{'
			var stash [][]byte
			compress := func(p []byte) ([]byte, error) {
				stash = append(stash, append([]byte(nil), p...))
				return []byte{0, 0, 0, 0, 'Z', byte(len(stash) - 1)}, nil
			}
			decompress := func(p []byte) ([]byte, error) {
				Expect(p).To(HaveLen(6))
				return stash[p[5]], nil
			}

			v, err := roundTrip("k", aokv.BytesValue(bytes.Repeat([]byte{7}, 64)),
				&aokv.WriterOptions{Compress: compress},
				&aokv.ReaderOptions{Decompress: decompress})
			Expect(err).NotTo(HaveOccurred())
			Expect(v.Bytes()).To(Equal(bytes.Repeat([]byte{7}, 64)))
		})
	})
})
