package aokv

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// keydir maps keys to body locations while preserving the insertion
// order of first occurrence. The on-disk index JSON is emitted in that
// order so readers reproduce key enumeration deterministically.
type keydir struct {
	keys []string
	m    map[string]entry
}

func newKeydir() *keydir {
	return &keydir{m: make(map[string]entry)}
}

func (d *keydir) len() int { return len(d.keys) }

func (d *keydir) get(key string) (entry, bool) {
	e, ok := d.m[key]
	return e, ok
}

// set records or overwrites an entry. Overwrites keep the key's
// original enumeration position.
func (d *keydir) set(key string, e entry) {
	if _, ok := d.m[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.m[key] = e
}

// appendJSON marshals the keydir as {"key":[size,offset],...} in
// insertion order.
func (d *keydir) appendJSON(dst []byte) ([]byte, error) {
	dst = append(dst, '{')
	for i, key := range d.keys {
		if i != 0 {
			dst = append(dst, ',')
		}
		kj, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		e := d.m[key]
		dst = append(dst, kj...)
		dst = append(dst, ':', '[')
		dst = strconv.AppendInt(dst, e.Size, 10)
		dst = append(dst, ',')
		dst = strconv.AppendInt(dst, e.Offset, 10)
		dst = append(dst, ']')
	}
	return append(dst, '}'), nil
}

// mergeJSON parses index content and merges each entry, preserving
// the document's key order for keys not seen before. json.Unmarshal
// into a map would lose that order, so this walks the token stream.
func (d *keydir) mergeJSON(p []byte) error {
	dec := json.NewDecoder(bytes.NewReader(p))
	if _, err := dec.Token(); err != nil { // opening brace
		return err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)

		var loc [2]int64
		if err := dec.Decode(&loc); err != nil {
			return err
		}
		d.set(key, entry{Size: loc[0], Offset: loc[1]})
	}
	_, err := dec.Token() // closing brace
	return err
}
