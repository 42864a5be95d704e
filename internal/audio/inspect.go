package audio

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"
)

// RemoteUploadLimit is the largest file the hosted transcription API accepts.
const RemoteUploadLimit = 25 * 1024 * 1024

// Info summarizes a WAV file header.
type Info struct {
	Path       string
	Size       int64
	Format     string
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
}

// ExceedsUploadLimit reports whether the file is too large for remote upload.
func (i Info) ExceedsUploadLimit() bool {
	return i.Size > RemoteUploadLimit
}

// Inspect reads the RIFF header of the WAV file at path.
func Inspect(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return Info{}, fmt.Errorf("stat %q: %w", path, err)
	}

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return Info{}, fmt.Errorf("read wav header %q: %w", path, err)
	}
	if dec.SampleRate == 0 || dec.NumChans == 0 || dec.BitDepth == 0 {
		return Info{}, fmt.Errorf("%q is not a wav file", path)
	}
	if err := dec.FwdToPCM(); err != nil {
		return Info{}, fmt.Errorf("locate pcm data in %q: %w", path, err)
	}

	frameBytes := int64(dec.NumChans) * int64(dec.BitDepth/8)
	var duration time.Duration
	if frameBytes > 0 {
		frames := dec.PCMLen() / frameBytes
		duration = time.Duration(frames) * time.Second / time.Duration(dec.SampleRate)
	}

	return Info{
		Path:       path,
		Size:       stat.Size(),
		Format:     formatName(dec.WavAudioFormat),
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		Duration:   duration,
	}, nil
}

func formatName(tag uint16) string {
	switch tag {
	case 1:
		return "pcm"
	case wavFormatIEEEFloat:
		return "ieee-float"
	case 0xFFFE:
		return "extensible"
	default:
		return fmt.Sprintf("format(%d)", tag)
	}
}
