package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// MinWAVSize is the size of a canonical PCM WAV header.
const MinWAVSize = 44

// WAVHeader represents the header structure of a canonical PCM WAV file
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16  // Number of channels
	SampleRate    uint32  // Sample rate
	ByteRate      uint32  // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16  // NumChannels * BitsPerSample / 8
	BitsPerSample uint16  // Bits per sample
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

// ValidationError reports an upload that is not a usable WAV container.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid audio format: " + e.Reason
}

// ValidateWAV checks the container markers of an uploaded file without decoding it.
func ValidateWAV(data []byte) error {
	if len(data) == 0 {
		return &ValidationError{Reason: "empty file provided"}
	}

	if len(data) < MinWAVSize {
		return &ValidationError{Reason: fmt.Sprintf("file too small (%d bytes), need at least %d", len(data), MinWAVSize)}
	}

	if string(data[0:4]) != "RIFF" {
		return &ValidationError{Reason: fmt.Sprintf("expected RIFF header, got %q", data[0:4])}
	}

	if string(data[8:12]) != "WAVE" {
		return &ValidationError{Reason: fmt.Sprintf("expected WAVE header, got %q", data[8:12])}
	}

	return nil
}

// Decode validates and decodes a WAV upload into a mono Signal.
// Multi-channel input is down-mixed by averaging channels.
func Decode(data []byte) (*Signal, error) {
	if err := ValidateWAV(data); err != nil {
		return nil, err
	}

	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, &ValidationError{Reason: "unreadable WAV header"}
	}

	if dec.WavAudioFormat != 1 {
		return nil, &ValidationError{Reason: fmt.Sprintf("unsupported audio format %d (only PCM is supported)", dec.WavAudioFormat)}
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("failed to read PCM data: %v", err)}
	}

	return fromIntBuffer(buf, int(dec.SampleRate), int(dec.NumChans), int(dec.BitDepth))
}

func fromIntBuffer(buf *goaudio.IntBuffer, sampleRate, channels, bitDepth int) (*Signal, error) {
	if sampleRate <= 0 {
		return nil, &ValidationError{Reason: fmt.Sprintf("invalid sample rate %d", sampleRate)}
	}

	if buf.Format != nil {
		if buf.Format.NumChannels > 0 {
			channels = buf.Format.NumChannels
		}
	}
	if channels < 1 {
		channels = 1
	}

	if buf.SourceBitDepth > 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth < 8 || bitDepth > 32 {
		return nil, &ValidationError{Reason: fmt.Sprintf("unsupported bit depth %d", bitDepth)}
	}

	// 8-bit WAV is unsigned, go-audio leaves it offset by 128
	offset := 0.0
	if bitDepth == 8 {
		offset = 128
	}
	scale := float64(int64(1) << (bitDepth - 1))

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for c := 0; c < channels; c++ {
			sum += (float64(buf.Data[i*channels+c]) - offset) / scale
		}
		samples[i] = sum / float64(channels)
	}

	return NewSignal(samples, sampleRate), nil
}

// EncodeWAV encodes PCM-16 samples into a canonical mono WAV file
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	numChannels := uint16(1)
	bitsPerSample := uint16(16)
	dataSize := uint32(len(samples) * 2)

	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   numChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(numChannels) * uint32(bitsPerSample) / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, MinWAVSize+len(samples)*2))

	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}

	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	return buf.Bytes(), nil
}

// EncodeSignal renders a Signal as 16-bit PCM WAV, clipping to [-1, 1].
func EncodeSignal(sig *Signal) ([]byte, error) {
	pcm := make([]int16, len(sig.Samples))
	for i, s := range sig.Samples {
		switch {
		case s >= 1:
			pcm[i] = 32767
		case s <= -1:
			pcm[i] = -32768
		default:
			pcm[i] = int16(s * 32767)
		}
	}
	return EncodeWAV(pcm, sig.SampleRate)
}
