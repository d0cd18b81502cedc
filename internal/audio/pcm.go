package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Speech output format of the remote synthesizers
const (
	SampleRate = 24000
	Channels   = 1
)

// ErrInvalidWAV is returned for data that is not 16-bit PCM WAV
var ErrInvalidWAV = errors.New("not a 16-bit PCM WAV file")

// Buffer holds decoded audio. Samples are interleaved by channel and
// normalized to [-1, 1).
type Buffer struct {
	SampleRate int
	Channels   int
	Samples    []float32
}

// Frames returns the number of sample frames
func (b *Buffer) Frames() int {
	if b.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the playing time of the buffer
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate == 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// DecodePCM decodes 16-bit little-endian signed PCM. A trailing odd byte and
// an incomplete final frame are dropped.
func DecodePCM(data []byte, sampleRate, channels int) (*Buffer, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("invalid PCM format: %d Hz, %d channels", sampleRate, channels)
	}

	count := len(data) / 2
	count -= count % channels
	samples := make([]float32, count)
	for i := 0; i < count; i++ {
		v := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = float32(v) / 32768.0
	}

	return &Buffer{SampleRate: sampleRate, Channels: channels, Samples: samples}, nil
}

// IntBuffer converts the samples to 16-bit integers
func (b *Buffer) IntBuffer() *goaudio.IntBuffer {
	data := make([]int, len(b.Samples))
	for i, s := range b.Samples {
		v := s * 32768.0
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		data[i] = int(v)
	}
	return &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: b.Channels, SampleRate: b.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
}

// WriteWAV writes the buffer as 16-bit PCM WAV. The encoder seeks back to
// fill in the chunk sizes on close.
func (b *Buffer) WriteWAV(w io.WriteSeeker) error {
	enc := wav.NewEncoder(w, b.SampleRate, 16, b.Channels, 1)
	if err := enc.Write(b.IntBuffer()); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finish wav: %w", err)
	}
	return nil
}

// EncodeWAV returns the buffer as an in-memory WAV file
func (b *Buffer) EncodeWAV() ([]byte, error) {
	var f memFile
	if err := b.WriteWAV(&f); err != nil {
		return nil, err
	}
	return f.data, nil
}

// DecodeWAV reads a 16-bit PCM WAV file. A data chunk with an unset size
// (streamed output) runs to the end of input.
func DecodeWAV(data []byte) (*Buffer, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	if dec.WavAudioFormat != 1 || dec.BitDepth != 16 {
		return nil, fmt.Errorf("%w: format %d, %d bits", ErrInvalidWAV, dec.WavAudioFormat, dec.BitDepth)
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}
	channels := int(dec.NumChans)
	if channels < 1 {
		return nil, ErrInvalidWAV
	}
	count := len(pcm.Data) - len(pcm.Data)%channels
	samples := make([]float32, count)
	for i := 0; i < count; i++ {
		samples[i] = float32(pcm.Data[i]) / 32768.0
	}
	return &Buffer{SampleRate: int(dec.SampleRate), Channels: channels, Samples: samples}, nil
}

// memFile is an in-memory io.WriteSeeker for the WAV encoder
type memFile struct {
	data []byte
	pos  int
}

func (f *memFile) Write(p []byte) (int, error) {
	if end := f.pos + len(p); end > len(f.data) {
		f.data = append(f.data, make([]byte, end-len(f.data))...)
	}
	n := copy(f.data[f.pos:], p)
	f.pos += n
	return n, nil
}

func (f *memFile) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(f.pos)
	case io.SeekEnd:
		base = int64(len(f.data))
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	pos := base + offset
	if pos < 0 {
		return 0, errors.New("seek: negative position")
	}
	f.pos = int(pos)
	return pos, nil
}
