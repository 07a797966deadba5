package clients

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format is an audio container the endpoint accepts.
type Format string

const (
	FormatUnknown Format = ""
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatOGG     Format = "ogg"
	FormatM4A     Format = "m4a"
)

var SupportedFormats = []Format{FormatWAV, FormatMP3, FormatOGG, FormatM4A}

func (f Format) ContentType() string {
	switch f {
	case FormatWAV:
		return "audio/wav"
	case FormatMP3:
		return "audio/mpeg"
	case FormatOGG:
		return "audio/ogg"
	case FormatM4A:
		return "audio/mp4"
	default:
		return "application/octet-stream"
	}
}

// DetectFormat sniffs the container from magic bytes.
func DetectFormat(b []byte) Format {
	switch {
	case len(b) >= 12 && bytes.Equal(b[:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WAVE")):
		return FormatWAV
	case len(b) >= 4 && bytes.Equal(b[:4], []byte("OggS")):
		return FormatOGG
	case len(b) >= 12 && bytes.Equal(b[4:8], []byte("ftyp")):
		return FormatM4A
	case len(b) >= 3 && bytes.Equal(b[:3], []byte("ID3")):
		return FormatMP3
	case len(b) >= 2 && b[0] == 0xFF && b[1]&0xE0 == 0xE0:
		return FormatMP3
	}
	return FormatUnknown
}

// FormatFromName maps a file extension to a Format.
func FormatFromName(name string) Format {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	for _, f := range SupportedFormats {
		if string(f) == ext {
			return f
		}
	}
	if ext == "mp4" || ext == "aac" {
		return FormatM4A
	}
	return FormatUnknown
}

// MaxAudioBytes converts a duration bound into a byte bound at an assumed bitrate.
func MaxAudioBytes(maxSeconds, bytesPerSecond int) int64 {
	return int64(maxSeconds) * int64(bytesPerSecond)
}

// ValidateAudio checks the byte bound before anything is sent. A zero max disables the check.
func ValidateAudio(b []byte, max int64) (Format, error) {
	if len(b) == 0 {
		return FormatUnknown, ErrEmptyAudio
	}
	if max > 0 && int64(len(b)) > max {
		return FormatUnknown, fmt.Errorf("%w: %d bytes exceeds %d", ErrAudioTooLarge, len(b), max)
	}
	return DetectFormat(b), nil
}

// ReadAudio reads at most max bytes from r and validates the clip. name is
// only used to recognise the container when sniffing fails.
func ReadAudio(r io.Reader, name string, max int64) ([]byte, Format, error) {
	lr := r
	if max > 0 {
		lr = io.LimitReader(r, max+1)
	}
	b, err := io.ReadAll(lr)
	if err != nil {
		return nil, FormatUnknown, err
	}
	format, err := ValidateAudio(b, max)
	if err != nil {
		return nil, FormatUnknown, fmt.Errorf("%s: %w", name, err)
	}
	if format == FormatUnknown {
		format = FormatFromName(name)
	}
	if format == FormatUnknown {
		return nil, FormatUnknown, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	return b, format, nil
}

// ReadAudioFile opens path and hands it to ReadAudio, refusing oversized
// files before reading them.
func ReadAudioFile(path string, max int64) ([]byte, Format, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, FormatUnknown, err
	}
	defer fd.Close()

	if st, err := fd.Stat(); err == nil && max > 0 && st.Size() > max {
		return nil, FormatUnknown, fmt.Errorf("%s: %w: %d bytes exceeds %d", filepath.Base(path), ErrAudioTooLarge, st.Size(), max)
	}
	return ReadAudio(fd, filepath.Base(path), max)
}
