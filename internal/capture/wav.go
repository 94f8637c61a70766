package capture

import (
	"encoding/binary"
	"io"
	"os"
)

const wavHeaderSize = 44

// wavHeader is the 44-byte RIFF header for signed 16-bit LE mono PCM.
type wavHeader struct {
	RiffID   [4]byte
	RiffSize uint32
	WaveID   [4]byte

	FmtID       [4]byte
	FmtSize     uint32
	AudioFormat uint16
	NumChannels uint16
	SampleRate  uint32
	ByteRate    uint32
	BlockAlign  uint16
	BitsPerSamp uint16

	DataID   [4]byte
	DataSize uint32
}

// WAVWriter appends 16-bit mono frames to a file, patching the RIFF size
// fields on Close so the header reflects the frames actually written, not
// the duration originally requested.
type WAVWriter struct {
	f          *os.File
	sampleRate uint32
	frames     int64
	buf        []byte
}

// NewWAVWriter creates path and writes a placeholder header. Call Close to
// finalize, even after a failed capture, so partial files stay playable.
func NewWAVWriter(path string, sampleRate int) (*WAVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	h := wavHeader{
		RiffID:      [4]byte{'R', 'I', 'F', 'F'},
		RiffSize:    wavHeaderSize - 8,
		WaveID:      [4]byte{'W', 'A', 'V', 'E'},
		FmtID:       [4]byte{'f', 'm', 't', ' '},
		FmtSize:     16,
		AudioFormat: 1, // PCM
		NumChannels: 1,
		SampleRate:  uint32(sampleRate),
		ByteRate:    uint32(sampleRate) * 2,
		BlockAlign:  2,
		BitsPerSamp: 16,
		DataID:      [4]byte{'d', 'a', 't', 'a'},
		DataSize:    0,
	}
	if err := binary.Write(f, binary.LittleEndian, &h); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}

	return &WAVWriter{f: f, sampleRate: uint32(sampleRate)}, nil
}

// WriteFrames appends PCM frames.
func (w *WAVWriter) WriteFrames(pcm []int16) error {
	need := len(pcm) * 2
	if cap(w.buf) < need {
		w.buf = make([]byte, need)
	}
	b := w.buf[:need]
	for i, s := range pcm {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(s))
	}

	n, err := w.f.Write(b)
	w.frames += int64(n / 2)
	return err
}

// Frames returns the number of frames written so far.
func (w *WAVWriter) Frames() int64 { return w.frames }

// Close patches the RIFF chunk size (offset 4) and data sub-chunk size
// (offset 40) from the actual file size, then closes the file.
func (w *WAVWriter) Close() error {
	patchErr := w.patchHeader()
	closeErr := w.f.Close()
	if patchErr != nil {
		return patchErr
	}
	return closeErr
}

func (w *WAVWriter) patchHeader() error {
	info, err := w.f.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size < wavHeaderSize {
		return nil
	}

	if _, err := w.f.Seek(4, io.SeekStart); err != nil {
		return err
	}
	if err := binary.Write(w.f, binary.LittleEndian, uint32(size-8)); err != nil {
		return err
	}

	if _, err := w.f.Seek(40, io.SeekStart); err != nil {
		return err
	}
	return binary.Write(w.f, binary.LittleEndian, uint32(size-wavHeaderSize))
}
