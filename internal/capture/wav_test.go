package capture

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWAVWriterHeaderPatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")

	w, err := NewWAVWriter(path, 12000)
	require.NoError(t, err)

	frames := []int16{0, 100, -100, 32767, -32768}
	require.NoError(t, w.WriteFrames(frames))
	require.NoError(t, w.WriteFrames(frames))
	assert.Equal(t, int64(10), w.Frames())
	require.NoError(t, w.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, b, wavHeaderSize+20)

	assert.Equal(t, "RIFF", string(b[0:4]))
	assert.Equal(t, "WAVE", string(b[8:12]))
	assert.Equal(t, "fmt ", string(b[12:16]))
	assert.Equal(t, "data", string(b[36:40]))

	assert.Equal(t, uint32(len(b)-8), binary.LittleEndian.Uint32(b[4:8]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(b[20:22]))  // PCM
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(b[22:24]))  // mono
	assert.Equal(t, uint32(12000), binary.LittleEndian.Uint32(b[24:28]))
	assert.Equal(t, uint32(24000), binary.LittleEndian.Uint32(b[28:32])) // byte rate
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(b[34:36]))
	assert.Equal(t, uint32(20), binary.LittleEndian.Uint32(b[40:44]))

	// First frame after the header is the little-endian samples in order.
	assert.Equal(t, uint16(100), binary.LittleEndian.Uint16(b[46:48]))
}

func TestWAVWriterEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")

	w, err := NewWAVWriter(path, 12000)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, b, wavHeaderSize)

	assert.Equal(t, uint32(wavHeaderSize-8), binary.LittleEndian.Uint32(b[4:8]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(b[40:44]))
}

func TestNewWAVWriterBadPath(t *testing.T) {
	_, err := NewWAVWriter(filepath.Join(t.TempDir(), "missing", "out.wav"), 12000)
	assert.Error(t, err)
}
