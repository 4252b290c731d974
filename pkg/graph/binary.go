package graph

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"unsafe"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

const (
	magicBytes = "CHROUTER"
	version    = uint32(1)
	maxNodes   = 50_000_000
	maxEdges   = 200_000_000
)

// Codec selects the compression applied to the file body.
type Codec uint8

const (
	CodecNone Codec = iota
	CodecZstd
	CodecLZ4
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecZstd:
		return "zstd"
	case CodecLZ4:
		return "lz4"
	}
	return fmt.Sprintf("codec(%d)", uint8(c))
}

// ParseCodec resolves a configured compression name.
func ParseCodec(name string) (Codec, error) {
	switch name {
	case "", "none":
		return CodecNone, nil
	case "zstd":
		return CodecZstd, nil
	case "lz4":
		return CodecLZ4, nil
	}
	return 0, fmt.Errorf("unknown compression %q", name)
}

// fileHeader is the uncompressed prefix of every graph file.
type fileHeader struct {
	Magic        [8]byte
	Version      uint32
	Codec        uint8
	_            [3]byte
	NumNodes     uint32
	NumEdges     uint32
	NumShortcuts uint32
}

// WriteBinary serializes a contracted graph. The body is written through
// the codec and ends with a CRC32 of the uncompressed body. The file is
// written to a temp path and renamed into place.
func WriteBinary(path string, g *LeveledGraph, codec Codec) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath)
	}()

	hdr := fileHeader{
		Version:      version,
		Codec:        uint8(codec),
		NumNodes:     uint32(g.NumNodes()),
		NumEdges:     uint32(g.NumEdges()),
		NumShortcuts: uint32(g.NumShortcuts()),
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(f, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	cw, err := newCodecWriter(f, codec)
	if err != nil {
		return err
	}
	crcWriter := crc32Writer{w: cw, hash: crc32.NewIEEE()}
	if err := writeBody(&crcWriter, g); err != nil {
		return err
	}
	if err := binary.Write(cw, binary.LittleEndian, crcWriter.hash.Sum32()); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("flush %s stream: %w", codec, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func writeBody(w io.Writer, g *LeveledGraph) error {
	m := len(g.edges)
	from := make([]int32, m)
	to := make([]int32, m)
	dist := make([]float64, m)
	weight := make([]float64, m)
	flags := make([]uint32, m)
	shortcuts := roaring.New()
	var skip, orig []int32
	for i := range g.edges {
		e := &g.edges[i]
		from[i], to[i] = e.From, e.To
		dist[i], weight[i] = e.Distance, e.Weight
		flags[i] = uint32(e.Flags)
		if e.IsShortcut() {
			shortcuts.Add(uint32(i))
			skip = append(skip, e.SkipNode)
			orig = append(orig, e.OriginalEdges)
		}
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"levels", func() error { return writeSlice(w, g.level) }},
		{"lat", func() error { return writeSlice(w, g.lat) }},
		{"lon", func() error { return writeSlice(w, g.lon) }},
		{"from", func() error { return writeSlice(w, from) }},
		{"to", func() error { return writeSlice(w, to) }},
		{"distance", func() error { return writeSlice(w, dist) }},
		{"weight", func() error { return writeSlice(w, weight) }},
		{"flags", func() error { return writeSlice(w, flags) }},
		{"shortcut bitmap", func() error { return writeBitmap(w, shortcuts) }},
		{"skip nodes", func() error { return writeSlice(w, skip) }},
		{"original edges", func() error { return writeSlice(w, orig) }},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return fmt.Errorf("write %s: %w", s.name, err)
		}
	}
	return nil
}

// ReadBinary loads a graph written by WriteBinary, rebuilds adjacency and
// validates the level and shortcut invariants.
func ReadBinary(path string) (*LeveledGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	var hdr fileHeader
	if err := binary.Read(f, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("unsupported version: %d", hdr.Version)
	}
	if hdr.NumNodes > maxNodes {
		return nil, fmt.Errorf("NumNodes %d exceeds limit %d", hdr.NumNodes, maxNodes)
	}
	if hdr.NumEdges > maxEdges || hdr.NumShortcuts > hdr.NumEdges {
		return nil, fmt.Errorf("edge counts %d/%d invalid", hdr.NumEdges, hdr.NumShortcuts)
	}

	cr, err := newCodecReader(f, Codec(hdr.Codec))
	if err != nil {
		return nil, err
	}
	defer cr.Close()
	crcReader := crc32Reader{r: cr, hash: crc32.NewIEEE()}

	g, err := readBody(&crcReader, int(hdr.NumNodes), int(hdr.NumEdges), int(hdr.NumShortcuts))
	if err != nil {
		return nil, err
	}

	expectedCRC := crcReader.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(cr, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x", storedCRC, expectedCRC)
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("loaded graph invalid: %w", err)
	}
	return g, nil
}

func readBody(r io.Reader, n, m, k int) (*LeveledGraph, error) {
	g := NewLeveledGraph(n, m)
	var (
		from, to, skip, orig []int32
		dist, weight         []float64
		flags                []uint32
		err                  error
	)
	steps := []struct {
		name string
		fn   func() error
	}{
		{"levels", func() error { g.level, err = readSlice[int32](r, n); return err }},
		{"lat", func() error { g.lat, err = readSlice[float64](r, n); return err }},
		{"lon", func() error { g.lon, err = readSlice[float64](r, n); return err }},
		{"from", func() error { from, err = readSlice[int32](r, m); return err }},
		{"to", func() error { to, err = readSlice[int32](r, m); return err }},
		{"distance", func() error { dist, err = readSlice[float64](r, m); return err }},
		{"weight", func() error { weight, err = readSlice[float64](r, m); return err }},
		{"flags", func() error { flags, err = readSlice[uint32](r, m); return err }},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return nil, fmt.Errorf("read %s: %w", s.name, err)
		}
	}

	shortcuts, err := readBitmap(r)
	if err != nil {
		return nil, fmt.Errorf("read shortcut bitmap: %w", err)
	}
	if int(shortcuts.GetCardinality()) != k {
		return nil, fmt.Errorf("shortcut bitmap holds %d ids, header says %d", shortcuts.GetCardinality(), k)
	}
	if skip, err = readSlice[int32](r, k); err != nil {
		return nil, fmt.Errorf("read skip nodes: %w", err)
	}
	if orig, err = readSlice[int32](r, k); err != nil {
		return nil, fmt.Errorf("read original edges: %w", err)
	}

	g.adj = make([][]EdgeID, n)
	for _, l := range g.level {
		g.maxLevel = max(g.maxLevel, l)
	}
	var si int
	for i := range m {
		if from[i] < 0 || int(from[i]) >= n || to[i] < 0 || int(to[i]) >= n {
			return nil, &GraphInvariantError{Node: from[i], Level: -1, Reason: fmt.Sprintf("edge %d endpoint out of range", i)}
		}
		e := Edge{
			From:          from[i],
			To:            to[i],
			Distance:      dist[i],
			Weight:        weight[i],
			Flags:         Flags(flags[i]),
			SkipNode:      NoNode,
			OriginalEdges: 1,
		}
		if shortcuts.Contains(uint32(i)) {
			e.SkipNode, e.OriginalEdges = skip[si], orig[si]
			si++
			g.shortcuts++
		}
		g.add(e)
	}
	return g, nil
}

type codecWriter interface {
	io.Writer
	Close() error
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func newCodecWriter(w io.Writer, c Codec) (codecWriter, error) {
	switch c {
	case CodecNone:
		return nopWriteCloser{w}, nil
	case CodecZstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("create zstd writer: %w", err)
		}
		return enc, nil
	case CodecLZ4:
		return lz4.NewWriter(w), nil
	}
	return nil, fmt.Errorf("unknown codec %d", uint8(c))
}

func newCodecReader(r io.Reader, c Codec) (io.ReadCloser, error) {
	switch c {
	case CodecNone:
		return io.NopCloser(r), nil
	case CodecZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("create zstd reader: %w", err)
		}
		return dec.IOReadCloser(), nil
	case CodecLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	}
	return nil, fmt.Errorf("unknown codec %d", c)
}

func writeBitmap(w io.Writer, b *roaring.Bitmap) error {
	buf, err := b.MarshalBinary()
	if err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(buf))); err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

func readBitmap(r io.Reader) (*roaring.Bitmap, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n > maxEdges {
		return nil, fmt.Errorf("bitmap size %d exceeds limit", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	b := roaring.New()
	if err := b.UnmarshalBinary(buf); err != nil {
		return nil, err
	}
	return b, nil
}

// Zero-copy I/O helpers using unsafe.Slice. The file format is little-endian,
// which matches every platform the server is deployed on.

type fixed interface {
	~int32 | ~uint32 | ~float64
}

func writeSlice[T fixed](w io.Writer, s []T) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(s[0])))
	_, err := w.Write(b)
	return err
}

func readSlice[T fixed](r io.Reader, n int) ([]T, error) {
	s := make([]T, n)
	if n == 0 {
		return s, nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*int(unsafe.Sizeof(s[0])))
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

// CRC32 wrapping writers/readers.

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
