package aokv_test

import (
	"encoding/binary"

	"github.com/bsm/aokv"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// countBlocks walks complete blocks from the start of the file and
// tallies them by block-type magic.
func countBlocks(data []byte, fileID uint32) (kvps, indexes int) {
	for off := 0; off+16 <= len(data); {
		m1 := binary.LittleEndian.Uint32(data[off+4:])
		size := int(binary.LittleEndian.Uint32(data[off+8:]))
		if size < 16 || off+size > len(data) {
			break
		}

		switch m1 {
		case 0x93C1AF97 + fileID:
			kvps++
		case 0x93C1AF98 + fileID:
			indexes++
		}
		off += size
	}
	return
}

var _ = Describe("Writer", func() {
	var subject *aokv.Writer

	BeforeEach(func() {
		subject = aokv.NewWriter(nil)
	})

	It("should write empty stores", func() {
		data, err := drain(subject)
		Expect(err).NotTo(HaveOccurred())

		// a single index block with "{}" content
		Expect(data).To(HaveLen(18))
		kvps, indexes := countBlocks(data, 0)
		Expect(kvps).To(Equal(0))
		Expect(indexes).To(Equal(1))
	})

	It("should open stores with a branded KVP block", func() {
		Expect(subject.Set("k", aokv.BytesValue([]byte{1, 2, 3}))).To(Succeed())

		data, err := drain(subject)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data[:4])).To(Equal("AOKV"))
		Expect(binary.LittleEndian.Uint32(data[4:])).To(Equal(uint32(0x93C1AF97)))
	})

	It("should account emitted bytes", func() {
		Expect(subject.Size()).To(Equal(int64(0)))

		// body = descSize(4) + `{"t":2}`(7) + post(3), block = 16 + 1 + 14 + 4
		Expect(subject.Set("k", aokv.BytesValue([]byte{1, 2, 3}))).To(Succeed())
		Expect(subject.Size()).To(Equal(int64(35)))

		data, err := drain(subject)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(HaveLen(int(subject.Size())))
	})

	It("should offset magics by the file ID", func() {
		subject = aokv.NewWriter(&aokv.WriterOptions{FileID: 7})
		Expect(subject.Set("k", aokv.BytesValue([]byte{1}))).To(Succeed())

		data, err := drain(subject)
		Expect(err).NotTo(HaveOccurred())
		Expect(binary.LittleEndian.Uint32(data[4:])).To(Equal(uint32(0x93C1AF97 + 7)))

		kvps, indexes := countBlocks(data, 7)
		Expect(kvps).To(Equal(1))
		Expect(indexes).To(Equal(1))
	})

	It("should reject writes after End", func() {
		Expect(subject.End()).To(Succeed())
		Expect(subject.Set("k", aokv.BytesValue(nil))).To(MatchError(`aokv: writer is closed`))
		Expect(subject.Remove("k")).To(MatchError(`aokv: writer is closed`))
		Expect(subject.End()).To(MatchError(`aokv: writer is closed`))
	})

	It("should snapshot periodically", func() {
		data, err := seedStore(100, nil)
		Expect(err).NotTo(HaveOccurred())

		// one automatic snapshot past the 64KiB mark plus the final one
		kvps, indexes := countBlocks(data, 0)
		Expect(kvps).To(Equal(100))
		Expect(indexes).To(Equal(2))
	})

	It("should end stores with an index block", func() {
		data, err := seedStore(10, nil)
		Expect(err).NotTo(HaveOccurred())

		back := binary.LittleEndian.Uint32(data[len(data)-4:])
		start := len(data) - 4 - int(back)
		Expect(binary.LittleEndian.Uint32(data[start+4:])).To(Equal(uint32(0x93C1AF98)))
	})

	It("should reject values the JSON encoder cannot represent", func() {
		cyclic := []interface{}{nil}
		cyclic[0] = cyclic
		Expect(subject.SetJSON("bad", cyclic)).NotTo(Succeed())
		Expect(subject.SetJSON("worse", func() {})).NotTo(Succeed())

		// rejected writes must not advance the stream
		Expect(subject.Size()).To(Equal(int64(0)))
	})
})
