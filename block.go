package aokv

import "encoding/binary"

// appendUint32 appends v in the format's byte order.
func appendUint32(dst []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(dst, tmp[:]...)
}

// appendKVPBlock appends a complete KVP block. sinceIndex is the byte
// distance from the latest index block start (or from the file start
// when none exists yet) to this block's start; the footer back-
// distance spans from the footer start across the block's own payload
// plus that gap, so chasing it from the block end lands on the index.
func appendKVPBlock(dst []byte, fileID uint32, key string, body []byte, sinceIndex int64) []byte {
	total := kvpHeaderSize + len(key) + len(body) + footerSize

	dst = appendUint32(dst, magic0)
	dst = appendUint32(dst, kvpMagicBase+fileID)
	dst = appendUint32(dst, uint32(total))
	dst = appendUint32(dst, uint32(len(key)))
	dst = append(dst, key...)
	dst = append(dst, body...)
	return appendUint32(dst, uint32(sinceIndex)+uint32(total-footerSize))
}

// appendIndexBlock appends a complete Index block. Its footer points
// back to the block's own start.
func appendIndexBlock(dst []byte, fileID uint32, content []byte) []byte {
	total := indexHeaderSize + len(content) + footerSize

	dst = appendUint32(dst, magic0)
	dst = appendUint32(dst, indexMagicBase+fileID)
	dst = appendUint32(dst, uint32(total))
	dst = append(dst, content...)
	return appendUint32(dst, uint32(total-footerSize))
}

// blockHeader is the parsed fixed prefix of a block. Only the first
// 12 bytes are common to both block types; keySize is meaningful for
// KVP blocks alone.
type blockHeader struct {
	magic1  uint32
	size    int64
	keySize int64
}

// parseBlockHeader decodes up to kvpHeaderSize bytes. It reports
// false unless the buffer holds at least a magic header branded with
// magic0.
func parseBlockHeader(p []byte) (blockHeader, bool) {
	if len(p) < magicHeaderSize || binary.LittleEndian.Uint32(p) != magic0 {
		return blockHeader{}, false
	}
	h := blockHeader{
		magic1: binary.LittleEndian.Uint32(p[4:]),
		size:   int64(binary.LittleEndian.Uint32(p[8:])),
	}
	if len(p) >= kvpHeaderSize {
		h.keySize = int64(binary.LittleEndian.Uint32(p[12:]))
	}
	return h, true
}

// isKVP reports whether the block is a KVP block for the given file ID.
func (h blockHeader) isKVP(fileID uint32) bool { return h.magic1 == kvpMagicBase+fileID }

// isIndex reports whether the block is an Index block for the given file ID.
func (h blockHeader) isIndex(fileID uint32) bool { return h.magic1 == indexMagicBase+fileID }

// inWindow reports whether the block-type magic falls inside the
// reserved window, i.e. belongs to some AOKV store.
func (h blockHeader) inWindow() bool {
	return h.magic1 >= kvpMagicBase && h.magic1 <= magicWindowMax
}
