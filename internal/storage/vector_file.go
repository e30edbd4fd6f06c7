package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/Aikinexis/flint/internal/types"
)

const (
	elemSize = 8 // float64 is 8 bytes

	// File header (v1):
	//   0..7   magic "FLNTVEC1"
	//   8..15  dim (uint64)
	//   16..23 count (uint64)
	HeaderSize = 24
)

var fileMagic = [8]byte{'F', 'L', 'N', 'T', 'V', 'E', 'C', '1'}

var _ VectorStore = (*VectorFile)(nil)

// VectorFile stores fixed-dimension float64 vectors in a memory-mapped flat
// file. It backs snapshot persistence of trained memory vectors; the
// dimension is the vocabulary size at snapshot time.
type VectorFile struct {
	filename   string
	file       *os.File
	mu         sync.RWMutex
	mapped     []byte
	dim        int
	count      uint64
	mapHandle  uintptr // used on Windows only
	viewHandle uintptr // used on Windows only
}

// OpenVectorFile opens or creates a vector file for the given dimension.
// An existing file whose stored dimension differs is rejected; callers
// replacing a snapshot remove the old file first.
func OpenVectorFile(filename string, dim int) (*VectorFile, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dim: %d", dim)
	}

	f, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	vf := &VectorFile{
		filename: filename,
		file:     f,
		dim:      dim,
	}

	if info.Size() == 0 {
		if err := vf.initNew(); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	if err := vf.remap(); err != nil {
		_ = f.Close()
		return nil, err
	}

	onDiskDim, onDiskCount, err := vf.readAndValidateHeader()
	if err != nil {
		_ = vf.Close()
		return nil, err
	}
	if int(onDiskDim) != vf.dim {
		_ = vf.Close()
		return nil, fmt.Errorf("vector dimension mismatch: file dim=%d, requested dim=%d (delete %s to reset)", onDiskDim, vf.dim, filename)
	}
	vf.count = onDiskCount

	return vf, nil
}

func (s *VectorFile) initNew() error {
	// initial capacity: header + space for 256 vectors
	initialSize := int64(HeaderSize + 256*s.dim*elemSize)
	if err := s.resize(initialSize); err != nil {
		return err
	}
	if err := s.remap(); err != nil {
		return err
	}
	s.writeHeader(uint64(s.dim), 0)
	s.count = 0
	return nil
}

func (s *VectorFile) readAndValidateHeader() (dim uint64, count uint64, err error) {
	if len(s.mapped) < HeaderSize {
		return 0, 0, fmt.Errorf("vector file too small for header: %d < %d", len(s.mapped), HeaderSize)
	}

	var mg [8]byte
	copy(mg[:], s.mapped[:8])
	if mg != fileMagic {
		return 0, 0, errors.New("invalid vector file header (magic mismatch)")
	}

	dim = binary.LittleEndian.Uint64(s.mapped[8:16])
	count = binary.LittleEndian.Uint64(s.mapped[16:24])
	if dim == 0 {
		return 0, 0, errors.New("invalid vector file header (dim=0)")
	}
	return dim, count, nil
}

func (s *VectorFile) writeHeader(dim uint64, count uint64) {
	copy(s.mapped[:8], fileMagic[:])
	binary.LittleEndian.PutUint64(s.mapped[8:16], dim)
	binary.LittleEndian.PutUint64(s.mapped[16:24], count)
}

func (s *VectorFile) resize(newSize int64) error {
	if err := s.munmap(); err != nil {
		return err
	}
	return s.file.Truncate(newSize)
}

func (s *VectorFile) remap() error {
	// Always unmap any existing view before mapping a new one; remapping
	// without unmapping leaks handles on Windows.
	if err := s.munmap(); err != nil {
		return err
	}

	fi, err := s.file.Stat()
	if err != nil {
		return err
	}
	size := fi.Size()
	if size == 0 {
		return nil
	}

	return s.mmap(size)
}

// Append writes a vector at the end of the file, growing it when needed, and
// returns the vector's index.
func (s *VectorFile) Append(vector types.Vector) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(vector) != s.dim {
		return 0, fmt.Errorf("vector dimension mismatch: got %d, want %d", len(vector), s.dim)
	}

	required := int64(HeaderSize + (int(s.count)+1)*s.dim*elemSize)
	fi, err := s.file.Stat()
	if err != nil {
		return 0, err
	}
	if required > fi.Size() {
		newSize := fi.Size() * 2
		if newSize < required {
			newSize = required
		}
		if err := s.resize(newSize); err != nil {
			return 0, fmt.Errorf("resize failed: %w", err)
		}
		if err := s.remap(); err != nil {
			return 0, fmt.Errorf("remap failed: %w", err)
		}
		s.writeHeader(uint64(s.dim), s.count)
	}

	offset := HeaderSize + int(s.count)*s.dim*elemSize
	for i, v := range vector {
		binary.LittleEndian.PutUint64(s.mapped[offset+i*elemSize:], math.Float64bits(v))
	}

	s.count++
	s.writeHeader(uint64(s.dim), s.count)

	return s.count - 1, nil
}

// Get reads the vector at the given index.
func (s *VectorFile) Get(index uint64) (types.Vector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index >= s.count {
		return nil, fmt.Errorf("index out of bounds: %d >= %d", index, s.count)
	}

	offset := HeaderSize + int(index)*s.dim*elemSize
	vec := make(types.Vector, s.dim)
	for i := 0; i < s.dim; i++ {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(s.mapped[offset+i*elemSize:]))
	}
	return vec, nil
}

// Count returns the number of stored vectors.
func (s *VectorFile) Count() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Close unmaps and closes the file.
func (s *VectorFile) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.munmap()
	return s.file.Close()
}
