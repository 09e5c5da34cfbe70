// Package archive implements the persisted embedding archive format: a single
// file holding parallel arrays of identifiers and float32 vectors, with a
// fixed header, optional block compression and a trailing CRC32 checksum.
package archive

import (
	"errors"
	"fmt"
)

const (
	// MagicNumber identifies embedding archive files (ASCII: "CLI1").
	MagicNumber = 0x434C4931
	// Version is the current file format version.
	Version = 1

	// headerSize is the fixed size of the file header in bytes.
	headerSize = 64
	// checksumSize is the size of the trailing CRC32 in bytes.
	checksumSize = 4

	// flagNormalized marks archives whose vectors were L2-normalized on write.
	flagNormalized = 1
)

var (
	// ErrInvalidMagic is returned when a file does not start with MagicNumber.
	ErrInvalidMagic = errors.New("invalid magic number")
	// ErrInvalidVersion is returned for unsupported format versions.
	ErrInvalidVersion = errors.New("unsupported format version")
	// ErrCorrupt is returned when the archive structure is internally
	// inconsistent (truncated sections, ragged data, bad sizes).
	ErrCorrupt = errors.New("corrupt archive")
	// ErrEmptyArchive is returned when an archive holds no records.
	ErrEmptyArchive = errors.New("archive contains no records")
)

// Header is the fixed 64-byte little-endian header at the start of every
// archive file.
type Header struct {
	Magic      uint32
	Version    uint32
	Count      uint64 // number of records
	Dimension  uint32 // vector dimensionality
	Codec      uint8  // compression codec for both sections
	Flags      uint8
	Padding    [2]byte
	IDSize     uint64 // on-disk size of the identifier section
	VectorSize uint64 // on-disk size of the vector section
	Reserved   [24]byte
}

// Normalized reports whether vectors were L2-normalized when written.
func (h *Header) Normalized() bool {
	return h.Flags&flagNormalized != 0
}

// ShapeMismatchError indicates that identifier and vector counts disagree.
type ShapeMismatchError struct {
	Identifiers int
	Vectors     int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch: %d identifiers, %d vectors", e.Identifiers, e.Vectors)
}

// RaggedVectorError indicates a vector whose length differs from the rest.
type RaggedVectorError struct {
	Index    int
	Expected int
	Actual   int
}

func (e *RaggedVectorError) Error() string {
	return fmt.Sprintf("vector %d: length %d, want %d", e.Index, e.Actual, e.Expected)
}

func (e *RaggedVectorError) Unwrap() error { return ErrCorrupt }

// ZeroVectorError indicates a vector with zero magnitude, which cannot be
// normalized for cosine similarity.
type ZeroVectorError struct {
	Identifier string
}

func (e *ZeroVectorError) Error() string {
	return fmt.Sprintf("vector %q has zero magnitude", e.Identifier)
}

// DuplicateIdentifierError indicates a repeated identifier in build input.
type DuplicateIdentifierError struct {
	Identifier string
}

func (e *DuplicateIdentifierError) Error() string {
	return fmt.Sprintf("duplicate identifier %q", e.Identifier)
}
