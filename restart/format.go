package restart

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

const (
	// Version is the restart format written by this package
	Version = 1

	magic      = "LSRS"
	digestSize = 32
	headerSize = len(magic) + 1 + 1 + 8 + digestSize

	// maxPayloadSize bounds the allocation a header can request
	maxPayloadSize = 1 << 34
)

var (
	ErrBadMagic           = errors.New("not a restart file")
	ErrUnsupportedVersion = errors.New("unsupported restart version")
	ErrUnknownCompression = errors.New("unknown restart compression")
	ErrDigestMismatch     = errors.New("restart payload digest mismatch")
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
	// payloadKey separates restart digests from any other BLAKE3 use
	payloadKey [32]byte
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("restart: CBOR encoder initialization failed: " + err.Error())
	}
	// Buffers of large blocks exceed the decoder's default element limits
	decMode, err = cbor.DecOptions{
		MaxArrayElements: math.MaxInt32,
		MaxMapPairs:      math.MaxInt32,
	}.DecMode()
	if err != nil {
		panic("restart: CBOR decoder initialization failed: " + err.Error())
	}
	payloadKey = blake3.Sum256([]byte("lskernel restart payload"))
}

func digest(payload []byte) [digestSize]byte {
	hasher, err := blake3.NewKeyed(payloadKey[:])
	if err != nil {
		panic("restart: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(payload)
	var sum [digestSize]byte
	copy(sum[:], hasher.Sum(nil))
	return sum
}

// Write encodes s to w and returns the number of bytes written
func Write(w io.Writer, s *Snapshot, c Compression) (int64, error) {
	payload, err := encMode.Marshal(s)
	if err != nil {
		return 0, fmt.Errorf("failed to encode restart: %w", err)
	}
	body, tag, err := compress(payload, c)
	if err != nil {
		return 0, fmt.Errorf("failed to compress restart: %w", err)
	}

	header := make([]byte, 0, headerSize)
	header = append(header, magic...)
	header = append(header, Version, byte(tag))
	header = binary.BigEndian.AppendUint64(header, uint64(len(payload)))
	sum := digest(payload)
	header = append(header, sum[:]...)

	n, err := w.Write(header)
	total := int64(n)
	if err != nil {
		return total, fmt.Errorf("failed to write restart header: %w", err)
	}
	n, err = w.Write(body)
	total += int64(n)
	if err != nil {
		return total, fmt.Errorf("failed to write restart payload: %w", err)
	}
	return total, nil
}

// Read decodes a restart written by Write, verifying its digest
func Read(r io.Reader) (*Snapshot, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: short header", ErrBadMagic)
		}
		return nil, fmt.Errorf("failed to read restart header: %w", err)
	}
	if !bytes.Equal(header[:len(magic)], []byte(magic)) {
		return nil, ErrBadMagic
	}
	pos := len(magic)
	if v := header[pos]; v != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	tag := Compression(header[pos+1])
	if tag > CompressionZstd {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, header[pos+1])
	}
	size := binary.BigEndian.Uint64(header[pos+2:])
	if size > maxPayloadSize {
		return nil, fmt.Errorf("restart payload size %d exceeds limit %d", size, uint64(maxPayloadSize))
	}
	var want [digestSize]byte
	copy(want[:], header[pos+10:])

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read restart payload: %w", err)
	}
	payload, err := decompress(body, tag, int(size))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress restart: %w", err)
	}
	if digest(payload) != want {
		return nil, ErrDigestMismatch
	}

	var s Snapshot
	if err := decMode.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("failed to decode restart: %w", err)
	}
	return &s, nil
}

// WriteFile writes s to path through a temporary file in the same directory
func WriteFile(path string, s *Snapshot, c Compression) (int64, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create restart file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := Write(tmp, s, c)
	if err != nil {
		tmp.Close()
		return n, err
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("failed to close restart file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return n, fmt.Errorf("failed to move restart file into place: %w", err)
	}
	return n, nil
}

// ReadFile reads the restart at path
func ReadFile(path string) (*Snapshot, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open restart file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to stat restart file: %w", err)
	}
	s, err := Read(f)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	return s, info.Size(), nil
}
