package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/meetingmind/platform/internal/errdefs"
)

// Working audio format: linear PCM, 16 kHz, mono, 16-bit, RIFF/WAVE container.
const (
	DefaultSampleRate = 16000
	NumChannels       = 1
	BitsPerSample     = 16
	BytesPerSample    = BitsPerSample / 8
	HeaderSize        = 44

	BytesPerSecond = DefaultSampleRate * NumChannels * BytesPerSample
)

// EncodeHeader builds a canonical 44-byte WAV header for dataLen bytes of PCM.
func EncodeHeader(sampleRate, dataLen int) []byte {
	byteRate := sampleRate * NumChannels * BytesPerSample
	blockAlign := NumChannels * BytesPerSample

	h := make([]byte, HeaderSize)
	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], uint32(36+dataLen))
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(h[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(h[22:24], NumChannels)
	binary.LittleEndian.PutUint32(h[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(h[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(h[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(h[34:36], BitsPerSample)
	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], uint32(dataLen))
	return h
}

// EncodePCM converts int16 samples to little-endian PCM bytes.
func EncodePCM(samples []int16) []byte {
	buf := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*BytesPerSample:], uint16(s))
	}
	return buf
}

// DataLength returns the PCM byte count of a working WAV file, derived from
// file size. The writer appends frames without rewriting the header, so size
// is the single source of truth for readers polling by offset.
func DataLength(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	n := fi.Size() - HeaderSize
	if n < 0 {
		n = 0
	}
	return n, nil
}

// PCMDuration converts a PCM byte count to audio duration.
func PCMDuration(n int64) time.Duration {
	return time.Duration(n) * time.Second / BytesPerSecond
}

// ExtractChunk copies the PCM byte range [start, end) of src into a
// standalone playable WAV at dst. Offsets are relative to the data section.
func ExtractChunk(src string, start, end int64, dst string) error {
	if start < 0 || end < start {
		return errdefs.Newf(errdefs.CodeUnknown, "invalid chunk range [%d, %d)", start, end)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create chunk: %w", err)
	}
	defer out.Close()

	n := end - start
	if _, err := out.Write(EncodeHeader(DefaultSampleRate, int(n))); err != nil {
		return fmt.Errorf("write chunk header: %w", err)
	}

	sec := io.NewSectionReader(in, HeaderSize+start, n)
	if _, err := io.Copy(out, sec); err != nil {
		return fmt.Errorf("copy chunk data: %w", err)
	}
	return out.Sync()
}
