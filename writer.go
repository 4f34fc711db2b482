package aokv

// WriterOptions define writer specific options.
type WriterOptions struct {
	// FileID offsets the block-type magics, letting applications tell
	// their stores apart from unrelated AOKV files. Must be within
	// 0..MaxFileID. Default: 0.
	FileID uint32

	// Compress, when set, is applied to every body and index content.
	// The compressed form is only stored when it is strictly shorter
	// and survives the probe-byte rule.
	// Default: nil (no compression).
	Compress CompressFunc
}

func (o *WriterOptions) norm() *WriterOptions {
	var oo WriterOptions
	if o != nil {
		oo = *o
	}

	if oo.FileID > MaxFileID {
		oo.FileID %= MaxFileID + 1
	}
	return &oo
}

// Writer serializes key/value records into a stream of self-
// describing blocks and periodically snapshots its index so that
// readers can bootstrap from the file tail.
//
// A Writer is not safe for concurrent use; the ChunkStream it feeds
// is the goroutine boundary.
type Writer struct {
	o      *WriterOptions
	stream ChunkStream
	dir    *keydir

	totalSize       int64 // bytes emitted so far
	lastIndexStart  int64 // start offset of the latest index block, -1 if none
	kvpBytesSince   int64 // KVP bytes since the latest index block
	totalIndexBytes int64 // index bytes emitted over the stream lifetime

	closed bool
}

// NewWriter returns a Writer for a fresh store.
func NewWriter(o *WriterOptions) *Writer {
	return &Writer{
		o:              o.norm(),
		dir:            newKeydir(),
		lastIndexStart: -1,
	}
}

// Stream returns the pull-based chunk stream fed by this writer. The
// concatenation of the delivered chunks is the store file.
func (w *Writer) Stream() *ChunkStream { return &w.stream }

// Size returns the number of bytes emitted so far.
func (w *Writer) Size() int64 { return w.totalSize }

// Set appends one key/value record and may follow it with an index
// snapshot. The in-memory index always points at the latest record
// for the key.
func (w *Writer) Set(key string, value Value) error {
	if w.closed {
		return errClosed
	}

	body, err := encodeBody(nil, value, w.o.Compress)
	if err != nil {
		return err
	}

	block := appendKVPBlock(nil, w.o.FileID, key, body, w.sinceIndex())
	w.dir.set(key, entry{
		Size:   int64(len(body)),
		Offset: w.totalSize + kvpHeaderSize + int64(len(key)),
	})
	w.totalSize += int64(len(block))
	w.kvpBytesSince += int64(len(block))
	w.stream.push(block)

	return w.maybeSnapshot()
}

// SetJSON is a shortcut for Set(key, JSONValue(v)).
func (w *Writer) SetJSON(key string, v interface{}) error {
	return w.Set(key, JSONValue(v))
}

// Remove writes a JSON-null tombstone for the key. The record itself
// stays in the file; readers observe a null value.
func (w *Writer) Remove(key string) error {
	return w.Set(key, JSONValue(nil))
}

// End writes the final index snapshot and ends the stream. No further
// writes are accepted.
func (w *Writer) End() error {
	if w.closed {
		return errClosed
	}
	if err := w.writeIndex(); err != nil {
		return err
	}
	w.closed = true
	w.stream.end()
	return nil
}

// sinceIndex returns the byte distance from the latest index block
// start (or file start) to the current write position.
func (w *Writer) sinceIndex() int64 {
	if w.lastIndexStart < 0 {
		return w.totalSize
	}
	return w.totalSize - w.lastIndexStart
}

// maybeSnapshot emits an index block once enough KVP bytes have
// accumulated. The ratio bound keeps the amortized index overhead
// below ~1/64 of the payload; the distance bound keeps footers within
// their u32 before they could wrap.
func (w *Writer) maybeSnapshot() error {
	if w.sinceIndex() >= backDistanceLimit ||
		(w.kvpBytesSince >= snapshotFloorBytes && w.kvpBytesSince >= snapshotRatio*w.totalIndexBytes) {
		return w.writeIndex()
	}
	return nil
}

func (w *Writer) writeIndex() error {
	content, err := w.dir.appendJSON(nil)
	if err != nil {
		return err
	}
	if w.o.Compress != nil {
		packed, err := w.o.Compress(content)
		if err != nil {
			return err
		}
		if len(packed) < len(content) && len(packed) >= 1 && packed[0] != probeByte {
			content = packed
		}
	}

	block := appendIndexBlock(nil, w.o.FileID, content)
	w.lastIndexStart = w.totalSize
	w.totalSize += int64(len(block))
	w.totalIndexBytes += int64(len(block))
	w.kvpBytesSince = 0
	w.stream.push(block)
	return nil
}
