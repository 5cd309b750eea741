package cart

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
)

// Save-file container format (spec.md section 6): magic "GBAiDSav" (8
// bytes), little-endian version/flags/count, CRC32 of the header, then
// `count` blocks each: kind byte, compressed length, zlib-compressed bytes
// (decompressing to the kind's CanonicalSize), CRC32 over the compressed
// bytes. A CRC mismatch anywhere rejects the whole file.
//
// No example repo in the retrieval pack ships a save-container codec, so
// this uses stdlib compress/zlib and hash/crc32 directly (see DESIGN.md).
var magic = [8]byte{'G', 'B', 'A', 'i', 'D', 'S', 'a', 'v'}

const containerVersion = 1

// ErrBadMagic / ErrChecksum are returned by Load on a malformed container.
var (
	ErrBadMagic  = errors.New("cart: save file has bad magic")
	ErrChecksum  = errors.New("cart: save file checksum mismatch")
)

type blockHeader struct {
	kind    Kind
	zLength uint32
}

// Save serializes the given devices into the container format.
func Save(devices []SaveDevice) ([]byte, error) {
	var buf bytes.Buffer

	header := make([]byte, 0, 8+1+1+2)
	header = append(header, magic[:]...)
	header = append(header, byte(containerVersion))
	header = append(header, 0) // flags, unused
	cnt := make([]byte, 2)
	binary.LittleEndian.PutUint16(cnt, uint16(len(devices)))
	header = append(header, cnt...)
	headerCRC := crc32.ChecksumIEEE(header)

	buf.Write(header)
	writeU32(&buf, headerCRC)

	for _, d := range devices {
		raw := d.Export()
		var compressed bytes.Buffer
		zw := zlib.NewWriter(&compressed)
		if _, err := zw.Write(raw); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}

		buf.WriteByte(byte(d.Kind()))
		writeU32(&buf, uint32(compressed.Len()))
		buf.Write(compressed.Bytes())
		writeU32(&buf, crc32.ChecksumIEEE(compressed.Bytes()))
	}

	return buf.Bytes(), nil
}

// Load parses the container format and returns each block's kind and
// decompressed, canonically-sized bytes, in file order.
func Load(data []byte) ([]struct {
	Kind Kind
	Data []byte
}, error) {
	r := bytes.NewReader(data)

	header := make([]byte, 12)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	if !bytes.Equal(header[:8], magic[:]) {
		return nil, ErrBadMagic
	}
	count := binary.LittleEndian.Uint16(header[10:12])

	var headerCRC uint32
	if err := readU32(r, &headerCRC); err != nil {
		return nil, err
	}
	if crc32.ChecksumIEEE(header) != headerCRC {
		return nil, ErrChecksum
	}

	out := make([]struct {
		Kind Kind
		Data []byte
	}, 0, count)

	for i := uint16(0); i < count; i++ {
		kindByte, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		var zLen uint32
		if err := readU32(r, &zLen); err != nil {
			return nil, err
		}
		compressed := make([]byte, zLen)
		if _, err := io.ReadFull(r, compressed); err != nil {
			return nil, err
		}
		var blockCRC uint32
		if err := readU32(r, &blockCRC); err != nil {
			return nil, err
		}
		if crc32.ChecksumIEEE(compressed) != blockCRC {
			return nil, ErrChecksum
		}

		zr, err := zlib.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, err
		}
		kind := Kind(kindByte)
		raw := make([]byte, kind.CanonicalSize())
		if _, err := io.ReadFull(zr, raw); err != nil {
			return nil, err
		}
		zr.Close()

		out = append(out, struct {
			Kind Kind
			Data []byte
		}{kind, raw})
	}

	return out, nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func readU32(r io.Reader, v *uint32) error {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return err
	}
	*v = binary.LittleEndian.Uint32(b[:])
	return nil
}
