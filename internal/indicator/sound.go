package indicator

import (
	"fmt"
	"math"
	"time"

	"github.com/jfreymuth/pulse"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cueStop
	cueComplete
	cueCancel
)

const (
	cueSampleRate = 16000
	cueGap        = 22 * time.Millisecond
	cueVolume     = 0.18
)

type tone struct {
	hz       float64
	duration time.Duration
}

// cueTones: rising pairs open and finish a dictation, falling pairs abort it.
var cueTones = map[cueKind][]tone{
	cueStart:    {{880, 70 * time.Millisecond}, {1175, 70 * time.Millisecond}},
	cueStop:     {{620, 120 * time.Millisecond}},
	cueComplete: {{740, 65 * time.Millisecond}, {988, 90 * time.Millisecond}},
	cueCancel:   {{480, 75 * time.Millisecond}, {360, 90 * time.Millisecond}},
}

var cuePCM = func() map[cueKind][]float32 {
	out := make(map[cueKind][]float32, len(cueTones))
	for kind, tones := range cueTones {
		out[kind] = synthesize(tones)
	}
	return out
}()

// playCue plays the synthesized cue through the pulse server.
func playCue(kind cueKind) error {
	samples := cuePCM[kind]
	if len(samples) == 0 {
		return nil
	}

	client, err := pulse.NewClient(
		pulse.ClientApplicationName("voce"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	cursor := 0
	reader := pulse.Float32Reader(func(buf []float32) (int, error) {
		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("voce cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue stream: %w", err)
	}
	return nil
}

func synthesize(tones []tone) []float32 {
	gap := samplesFor(cueGap)
	var pcm []float32
	for i, t := range tones {
		if i > 0 {
			pcm = append(pcm, make([]float32, gap)...)
		}
		pcm = append(pcm, sine(t)...)
	}
	return pcm
}

// sine renders one tone with a short linear attack and release so the
// cue starts and ends without a click.
func sine(t tone) []float32 {
	n := samplesFor(t.duration)
	if n == 0 || t.hz <= 0 {
		return nil
	}

	ramp := min(max(n/10, 1), cueSampleRate/200)
	pcm := make([]float32, n)
	for i := range pcm {
		env := min(1, float64(i)/float64(ramp), float64(n-1-i)/float64(ramp))
		phase := 2 * math.Pi * t.hz * float64(i) / cueSampleRate
		pcm[i] = float32(math.Sin(phase) * cueVolume * env)
	}
	return pcm
}

func samplesFor(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}
