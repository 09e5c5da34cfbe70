package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// Data is the decoded content of an archive: parallel identifier and vector
// arrays. Vectors are stored row-major in a single flat slice.
type Data struct {
	Identifiers []string
	Vectors     []float32 // Count * Dimension values, row-major
	Dimension   int
	Normalized  bool
}

// Count returns the number of records.
func (d *Data) Count() int {
	return len(d.Identifiers)
}

// Vector returns the i-th vector as a view into the flat slice.
// Callers must treat the result as read-only.
func (d *Data) Vector(i int) []float32 {
	return d.Vectors[i*d.Dimension : (i+1)*d.Dimension]
}

// maxSectionSize bounds decompressed section sizes to guard against corrupt
// headers claiming absurd allocations.
const maxSectionSize = 1 << 32

// Decode parses a complete archive from buf, verifying the magic, version,
// section sizes and trailing checksum.
func Decode(buf []byte) (*Data, error) {
	if len(buf) < headerSize+checksumSize {
		return nil, fmt.Errorf("%w: file smaller than header", ErrCorrupt)
	}

	var header Header
	if err := binary.Read(bytes.NewReader(buf[:headerSize]), binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	if header.Magic != MagicNumber {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, header.Magic)
	}
	if header.Version != Version {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidVersion, header.Version)
	}
	if header.Count == 0 {
		return nil, ErrEmptyArchive
	}
	if header.Dimension == 0 {
		return nil, fmt.Errorf("%w: zero dimension", ErrCorrupt)
	}

	body := buf[:len(buf)-checksumSize]
	want := binary.LittleEndian.Uint32(buf[len(buf)-checksumSize:])
	if got := Checksum(body); got != want {
		return nil, &ChecksumMismatchError{Expected: want, Actual: got}
	}

	idEnd := uint64(headerSize) + header.IDSize
	vecEnd := idEnd + header.VectorSize
	if idEnd > uint64(len(body)) || vecEnd > uint64(len(body)) {
		return nil, fmt.Errorf("%w: section sizes exceed file size", ErrCorrupt)
	}

	codec := Compression(header.Codec)

	idPayload, err := decompressSection(body[headerSize:idEnd], codec, maxSectionSize)
	if err != nil {
		return nil, err
	}
	vecPayload, err := decompressSection(body[idEnd:vecEnd], codec, maxSectionSize)
	if err != nil {
		return nil, err
	}

	identifiers, err := decodeIdentifiers(idPayload, header.Count)
	if err != nil {
		return nil, err
	}
	vectors, err := decodeVectors(vecPayload, header.Count, uint64(header.Dimension))
	if err != nil {
		return nil, err
	}

	return &Data{
		Identifiers: identifiers,
		Vectors:     vectors,
		Dimension:   int(header.Dimension),
		Normalized:  header.Normalized(),
	}, nil
}

// ReadHeader parses and validates only the header of an archive.
func ReadHeader(r io.Reader) (*Header, error) {
	var header Header
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	if header.Magic != MagicNumber {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, header.Magic)
	}
	if header.Version != Version {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidVersion, header.Version)
	}
	return &header, nil
}

// ReadFrom decodes an archive from an io.ReaderAt of known size, reading the
// whole file into memory first. Archives are small (hundreds to low
// thousands of records), so a full read keeps the decode path simple.
func ReadFrom(r io.ReaderAt, size int64) (*Data, error) {
	if size < headerSize+checksumSize {
		return nil, fmt.Errorf("%w: file smaller than header", ErrCorrupt)
	}
	buf := make([]byte, size)
	if _, err := r.ReadAt(buf, 0); err != nil && err != io.EOF {
		return nil, err
	}
	return Decode(buf)
}

// Open decodes the archive file at path.
func Open(path string) (*Data, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(buf)
}

func decodeIdentifiers(payload []byte, count uint64) ([]string, error) {
	identifiers := make([]string, 0, count)
	off := 0
	for i := uint64(0); i < count; i++ {
		if off+4 > len(payload) {
			return nil, fmt.Errorf("%w: truncated identifier section", ErrCorrupt)
		}
		n := int(binary.LittleEndian.Uint32(payload[off:]))
		off += 4
		if off+n > len(payload) {
			return nil, fmt.Errorf("%w: truncated identifier section", ErrCorrupt)
		}
		identifiers = append(identifiers, string(payload[off:off+n]))
		off += n
	}
	if off != len(payload) {
		return nil, fmt.Errorf("%w: %d trailing bytes in identifier section", ErrCorrupt, len(payload)-off)
	}
	return identifiers, nil
}

func decodeVectors(payload []byte, count, dimension uint64) ([]float32, error) {
	want := count * dimension * 4
	if uint64(len(payload)) != want {
		return nil, fmt.Errorf("%w: vector section is %d bytes, want %d", ErrCorrupt, len(payload), want)
	}

	vectors := make([]float32, count*dimension)
	for i := range vectors {
		vectors[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
	}
	return vectors, nil
}
