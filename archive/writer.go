package archive

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/cliosearch/clio/distance"
)

// Options configures archive writing.
type Options struct {
	// Codec selects the block compression for the identifier and vector
	// sections.
	Codec Compression

	// Normalize enables L2 normalization of vectors on write so that cosine
	// similarity reduces to a dot product at query time.
	Normalize bool
}

// DefaultOptions are the options used when none are supplied.
var DefaultOptions = Options{
	Codec:     CompressionZstd,
	Normalize: true,
}

// Write encodes identifiers and vectors into the archive format and writes it
// to w. It returns the number of bytes written.
//
// The input is validated up front: identifier and vector counts must match,
// all vectors must share one length, identifiers must be unique and, when
// Normalize is set, no vector may have zero magnitude. Nothing is written on
// a validation failure.
func Write(w io.Writer, identifiers []string, vectors [][]float32, optFns ...func(o *Options)) (int64, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	dim, err := validate(identifiers, vectors, opts.Normalize)
	if err != nil {
		return 0, err
	}

	idPayload := encodeIdentifiers(identifiers)
	vecPayload, err := encodeVectors(vectors, dim, opts.Normalize)
	if err != nil {
		return 0, err
	}

	idSection, err := compressSection(idPayload, opts.Codec)
	if err != nil {
		return 0, err
	}
	vecSection, err := compressSection(vecPayload, opts.Codec)
	if err != nil {
		return 0, err
	}

	header := Header{
		Magic:      MagicNumber,
		Version:    Version,
		Count:      uint64(len(identifiers)),
		Dimension:  uint32(dim),
		Codec:      uint8(opts.Codec),
		IDSize:     uint64(len(idSection)),
		VectorSize: uint64(len(vecSection)),
	}
	if opts.Normalize {
		header.Flags |= flagNormalized
	}

	cw := newChecksumWriter(w)
	if err := binary.Write(cw, binary.LittleEndian, &header); err != nil {
		return cw.n, err
	}
	if _, err := cw.Write(idSection); err != nil {
		return cw.n, err
	}
	if _, err := cw.Write(vecSection); err != nil {
		return cw.n, err
	}

	var trailer [checksumSize]byte
	binary.LittleEndian.PutUint32(trailer[:], cw.Sum())
	if _, err := w.Write(trailer[:]); err != nil {
		return cw.n, err
	}

	return cw.n + checksumSize, nil
}

// Save writes the archive to path, replacing any existing file atomically:
// the data goes to a temp file in the destination directory first, which is
// fsynced and renamed over path so concurrent readers never observe a
// partial file.
func Save(path string, identifiers []string, vectors [][]float32, optFns ...func(o *Options)) error {
	// Validate before touching the filesystem so a shape mismatch leaves no
	// partial output behind.
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if _, err := validate(identifiers, vectors, opts.Normalize); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	_ = tmp.Chmod(0o644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if _, err := Write(buf, identifiers, vectors, optFns...); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	tmpName = "" // keep the final file
	return nil
}

func validate(identifiers []string, vectors [][]float32, normalize bool) (int, error) {
	if len(identifiers) != len(vectors) {
		return 0, &ShapeMismatchError{Identifiers: len(identifiers), Vectors: len(vectors)}
	}
	if len(identifiers) == 0 {
		return 0, ErrEmptyArchive
	}

	dim := len(vectors[0])
	if dim == 0 {
		return 0, &RaggedVectorError{Index: 0, Expected: 1, Actual: 0}
	}

	seen := make(map[string]struct{}, len(identifiers))
	for i, id := range identifiers {
		if _, ok := seen[id]; ok {
			return 0, &DuplicateIdentifierError{Identifier: id}
		}
		seen[id] = struct{}{}

		if len(vectors[i]) != dim {
			return 0, &RaggedVectorError{Index: i, Expected: dim, Actual: len(vectors[i])}
		}
		if normalize && distance.Dot(vectors[i], vectors[i]) == 0 {
			return 0, &ZeroVectorError{Identifier: id}
		}
	}

	return dim, nil
}

func encodeIdentifiers(identifiers []string) []byte {
	size := 0
	for _, id := range identifiers {
		size += 4 + len(id)
	}

	out := make([]byte, 0, size)
	var lenBuf [4]byte
	for _, id := range identifiers {
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(id)))
		out = append(out, lenBuf[:]...)
		out = append(out, id...)
	}
	return out
}

func encodeVectors(vectors [][]float32, dim int, normalize bool) ([]byte, error) {
	out := make([]byte, 0, len(vectors)*dim*4)
	var buf [4]byte

	for i, vec := range vectors {
		v := vec
		if normalize {
			norm, ok := distance.NormalizeL2Copy(vec)
			if !ok {
				return nil, &ZeroVectorError{Identifier: fmt.Sprintf("#%d", i)}
			}
			v = norm
		}
		for _, f := range v {
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
			out = append(out, buf[:]...)
		}
	}
	return out, nil
}
