package graph

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contractedDiamond returns 0 - 1 - 2 and 0 - 3 - 2 with node 1 and 3
// contracted and one shortcut 0 -> 2 over node 1.
func contractedDiamond(t *testing.T) *LeveledGraph {
	t.Helper()
	g := NewLeveledGraph(4, 5)
	g.AddNode(1.0, 103.0)
	g.AddNode(1.1, 103.1)
	g.AddNode(1.2, 103.2)
	g.AddNode(1.3, 103.3)
	g.AddEdge(0, 1, 100, NewFlags(50, true, true))
	g.AddEdge(1, 2, 200, NewFlags(50, true, false))
	g.AddEdge(0, 3, 300, NewFlags(80, true, true))
	g.AddEdge(3, 2, 300, NewFlags(80, true, true))
	g.PrepareEdges(FastestWeighting{})

	require.NoError(t, g.SetLevel(1, 1))
	w := g.Edge(0).Weight + g.Edge(1).Weight
	_, err := g.AddShortcut(0, 2, w, 300, FlagForward, 1, 2)
	require.NoError(t, err)
	require.NoError(t, g.SetLevel(3, 2))
	return g
}

func assertSameGraph(t *testing.T, want, got *LeveledGraph) {
	t.Helper()
	require.Equal(t, want.NumNodes(), got.NumNodes())
	require.Equal(t, want.NumEdges(), got.NumEdges())
	assert.Equal(t, want.NumShortcuts(), got.NumShortcuts())
	assert.Equal(t, want.MaxLevel(), got.MaxLevel())
	assert.Equal(t, want.lat, got.lat)
	assert.Equal(t, want.lon, got.lon)
	assert.Equal(t, want.level, got.level)
	assert.Equal(t, want.edges, got.edges)
	assert.Equal(t, want.adj, got.adj)
}

func TestBinaryRoundTrip(t *testing.T) {
	for _, codec := range []Codec{CodecNone, CodecZstd, CodecLZ4} {
		t.Run(codec.String(), func(t *testing.T) {
			original := contractedDiamond(t)
			path := filepath.Join(t.TempDir(), "test.ch.bin")

			require.NoError(t, WriteBinary(path, original, codec))
			_, err := os.Stat(path + ".tmp")
			assert.True(t, os.IsNotExist(err), "temp file removed")

			loaded, err := ReadBinary(path)
			require.NoError(t, err)
			assertSameGraph(t, original, loaded)
		})
	}
}

func TestBinaryEmptyGraph(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.ch.bin")
	require.NoError(t, WriteBinary(path, NewLeveledGraph(0, 0), CodecZstd))
	g, err := ReadBinary(path)
	require.NoError(t, err)
	assert.Zero(t, g.NumNodes())
}

func TestBinaryRejectsCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.ch.bin")
	require.NoError(t, WriteBinary(path, contractedDiamond(t), CodecNone))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// Flip a byte inside the latitude array.
	corrupt := append([]byte(nil), data...)
	corrupt[binary.Size(fileHeader{})+4*4+3] ^= 0xFF
	require.NoError(t, os.WriteFile(path, corrupt, 0o644))
	_, err = ReadBinary(path)
	assert.ErrorContains(t, err, "CRC32 mismatch")

	bad := append([]byte(nil), data...)
	copy(bad, "NOTAFILE")
	require.NoError(t, os.WriteFile(path, bad, 0o644))
	_, err = ReadBinary(path)
	assert.ErrorContains(t, err, "invalid magic")

	require.NoError(t, os.WriteFile(path, data[:len(data)-10], 0o644))
	_, err = ReadBinary(path)
	assert.Error(t, err)
}

func TestBinaryRejectsBrokenInvariants(t *testing.T) {
	g := contractedDiamond(t)
	g.level[3] = 1 // duplicate of node 1's level
	path := filepath.Join(t.TempDir(), "test.ch.bin")
	require.NoError(t, WriteBinary(path, g, CodecLZ4))

	_, err := ReadBinary(path)
	assert.ErrorIs(t, err, ErrGraphInvariant)
}

func TestParseCodec(t *testing.T) {
	for name, want := range map[string]Codec{"": CodecNone, "none": CodecNone, "zstd": CodecZstd, "lz4": CodecLZ4} {
		got, err := ParseCodec(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseCodec("gzip")
	assert.Error(t, err)
}
