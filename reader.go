package aokv

import (
	"encoding/binary"
	"io"
	"sync"
)

// ReaderOptions define reader specific options.
type ReaderOptions struct {
	// FileID must match the writer's file ID.
	// Default: 0.
	FileID uint32

	// Decompress, when set, is applied to bodies and index content
	// whose probe byte marks them as compressed.
	// Default: nil.
	Decompress DecompressFunc
}

func (o *ReaderOptions) norm() *ReaderOptions {
	var oo ReaderOptions
	if o != nil {
		oo = *o
	}

	if oo.FileID > MaxFileID {
		oo.FileID %= MaxFileID + 1
	}
	return &oo
}

// IndexOptions control Reader.Index. The zero value checks the
// leading block header and tolerates unrecognized blocks.
type IndexOptions struct {
	// SkipFirstHeaderCheck disables the leading-block identity check
	// that otherwise fails with ErrNotAOKV.
	SkipFirstHeaderCheck bool

	// StrictHeaders makes the forward scan fail on unrecognized block
	// magics instead of stopping cleanly.
	StrictHeaders bool
}

func (o *IndexOptions) norm() *IndexOptions {
	var oo IndexOptions
	if o != nil {
		oo = *o
	}
	return &oo
}

// Reader reconstructs the live key map of a store from a positioned-
// read byte source and serves point lookups. Values are read lazily
// per lookup and never cached.
type Reader struct {
	src      io.ReaderAt
	fileSize int64
	o        *ReaderOptions

	dir *keydir
}

// NewReader wraps a positioned-read source of the given size. Call
// Index before Keys or Get.
func NewReader(src io.ReaderAt, fileSize int64, o *ReaderOptions) *Reader {
	return &Reader{src: src, fileSize: fileSize, o: o.norm()}
}

// readAt reads len(p) bytes at off. It reports short reads and reads
// past the end of the file as eof, never as an error: a truncated
// tail is a valid store prefix.
func (r *Reader) readAt(p []byte, off int64) (eof bool) {
	if off < 0 || off+int64(len(p)) > r.fileSize {
		return true
	}
	n, _ := r.src.ReadAt(p, off)
	return n < len(p)
}

// Index builds the in-memory key map: it locates the latest index
// snapshot by chasing the back-pointer at the file tail, then scans
// forward across any blocks written after that snapshot. On any tail
// inconsistency it falls back to a full forward scan from the file
// start.
func (r *Reader) Index(o *IndexOptions) error {
	opts := o.norm()
	dir := newKeydir()

	if !opts.SkipFirstHeaderCheck {
		head := make([]byte, magicHeaderSize)
		if r.readAt(head, 0) {
			return ErrNotAOKV
		}
		if h, ok := parseBlockHeader(head); !ok || !h.isKVP(r.o.FileID) {
			return ErrNotAOKV
		}
	}

	off, err := r.loadLatestIndex(dir)
	if err != nil {
		return err
	}
	if err := r.scanForward(dir, off, opts.StrictHeaders); err != nil {
		return err
	}

	r.dir = dir
	return nil
}

// loadLatestIndex chases the back-pointer in the last complete footer
// and, if it lands on an index block, merges that snapshot and
// returns the offset just past it. Any mismatch returns offset 0 so
// indexing degrades to a full scan.
func (r *Reader) loadLatestIndex(dir *keydir) (int64, error) {
	var tmp [footerSize]byte
	if r.readAt(tmp[:], r.fileSize-footerSize) {
		return 0, nil
	}
	back := int64(binary.LittleEndian.Uint32(tmp[:]))

	candidate := r.fileSize - footerSize - back
	if candidate < 0 {
		return 0, nil
	}

	head := make([]byte, magicHeaderSize)
	if r.readAt(head, candidate) {
		return 0, nil
	}
	h, ok := parseBlockHeader(head)
	if !ok || !h.isIndex(r.o.FileID) {
		return 0, nil
	}
	if h.size < indexHeaderSize+footerSize || candidate+h.size > r.fileSize {
		return 0, nil
	}

	content := make([]byte, h.size-indexHeaderSize-footerSize)
	if r.readAt(content, candidate+indexHeaderSize) {
		return 0, nil
	}
	if r.o.Decompress != nil && len(content) > 0 && content[0] != probeByte {
		plain, err := r.o.Decompress(content)
		if err != nil {
			return 0, err
		}
		content = plain
	}
	if err := dir.mergeJSON(content); err != nil {
		return 0, err
	}
	return candidate + h.size, nil
}

// scanForward completes the key map from off to the readable end of
// the file. Unrecognized-but-sized blocks inside the reserved magic
// window are skipped for forward compatibility unless strict is set.
func (r *Reader) scanForward(dir *keydir, off int64, strict bool) error {
	head := make([]byte, kvpHeaderSize)

	for off+magicHeaderSize <= r.fileSize {
		n := kvpHeaderSize
		if rem := r.fileSize - off; rem < int64(n) {
			n = int(rem)
		}
		if r.readAt(head[:n], off) {
			return nil
		}

		h, ok := parseBlockHeader(head[:n])
		switch {
		case !ok:
			if strict {
				return errBadBlock
			}
			return nil
		case h.size < magicHeaderSize+footerSize || off+h.size > r.fileSize:
			// incomplete or nonsensical block: the durable prefix ends here
			return nil
		case h.isKVP(r.o.FileID):
			if n < kvpHeaderSize || h.size < kvpHeaderSize+h.keySize+footerSize {
				return nil
			}
			key := make([]byte, h.keySize)
			if r.readAt(key, off+kvpHeaderSize) {
				return nil
			}
			dir.set(string(key), entry{
				Size:   h.size - kvpHeaderSize - h.keySize - footerSize,
				Offset: off + kvpHeaderSize + h.keySize,
			})
		case h.isIndex(r.o.FileID):
			// superseded by the forward scan itself
		case h.inWindow() && !strict:
			// some other store's block, skip by size
		default:
			if strict {
				return errBadBlock
			}
			return nil
		}

		off += h.size
	}
	return nil
}

// Len returns the number of indexed keys, tombstones included.
func (r *Reader) Len() int {
	if r.dir == nil {
		return 0
	}
	return r.dir.len()
}

// Keys returns the indexed keys in first-occurrence order.
func (r *Reader) Keys() []string {
	if r.dir == nil {
		return nil
	}
	return append([]string(nil), r.dir.keys...)
}

// Get reads and decodes the latest value of a key. It returns
// ErrNotFound when the key is not indexed or its body lies beyond the
// readable prefix. Removed keys decode to the JSON-null value.
func (r *Reader) Get(key string) (Value, error) {
	if r.dir == nil {
		return Value{}, errNotIndexed
	}
	e, ok := r.dir.get(key)
	if !ok {
		return Value{}, ErrNotFound
	}
	if e.Size < 0 || e.Offset < 0 || e.Offset+e.Size > r.fileSize {
		return Value{}, ErrNotFound
	}

	body := fetchBuffer(int(e.Size))
	defer releaseBuffer(body)

	if r.readAt(body, e.Offset) {
		return Value{}, ErrNotFound
	}
	return decodeBody(body, r.o.Decompress)
}

// --------------------------------------------------------------------

var bufPool sync.Pool

func fetchBuffer(sz int) []byte {
	if v := bufPool.Get(); v != nil {
		if p := v.([]byte); sz <= cap(p) {
			return p[:sz]
		}
	}
	return make([]byte, sz)
}

func releaseBuffer(p []byte) {
	if cap(p) != 0 {
		bufPool.Put(p)
	}
}
