package lanecsv

import (
	"bytes"
	"encoding/binary"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// utf16Chunks decodes a byte stream into UTF-16 code units.
type utf16Chunks struct {
	r     io.Reader
	order binary.ByteOrder
	pool  *BufferPool
	raw   []byte

	carry    byte
	hasCarry bool
}

func (c *utf16Chunks) ReadChunk(dst []uint16) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	need := 2 * len(dst)
	if cap(c.raw) < need {
		if c.raw != nil {
			c.pool.returnBytes(c.raw)
		}
		c.raw = c.pool.rentBytes(need)
	}
	raw := c.raw[:need]
	k := 0
	if c.hasCarry {
		raw[0] = c.carry
		k = 1
	}
	n, err := c.r.Read(raw[k:])
	total := k + n
	units := total / 2
	for i := 0; i < units; i++ {
		dst[i] = c.order.Uint16(raw[2*i:])
	}
	c.hasCarry = total%2 == 1
	if c.hasCarry {
		c.carry = raw[total-1]
	}
	if err == io.EOF && c.hasCarry {
		return units, io.ErrUnexpectedEOF
	}
	return units, err
}

func (c *utf16Chunks) Close() error {
	if c.raw != nil {
		c.pool.returnBytes(c.raw)
		c.raw = nil
	}
	return nil
}

// detectUTF16Order reads a byte order mark from r. It consumes the mark when
// present and defaults to little endian otherwise.
func detectUTF16Order(r io.Reader) (binary.ByteOrder, io.Reader, error) {
	var head [2]byte
	n, err := io.ReadFull(r, head[:])
	switch {
	case err == io.EOF || err == io.ErrUnexpectedEOF:
		return binary.LittleEndian, bytes.NewReader(head[:n]), nil
	case err != nil:
		return nil, nil, err
	case head == [2]byte{0xFE, 0xFF}:
		return binary.BigEndian, r, nil
	case head == [2]byte{0xFF, 0xFE}:
		return binary.LittleEndian, r, nil
	}
	return binary.LittleEndian, io.MultiReader(bytes.NewReader(head[:]), r), nil
}

// transcodeUTF8 converts r to UTF-8 by its byte order mark: UTF-16 input
// with a BOM is decoded, a UTF-8 BOM is dropped, and anything else passes
// through the UTF-8 decoder, which replaces invalid sequences with U+FFFD.
func transcodeUTF8(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}
