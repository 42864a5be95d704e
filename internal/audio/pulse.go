// Package audio owns microphone capture: Pulse source discovery, the
// recording lifecycle, and the WAV artifact written when a recording stops.
package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// fragmentBytes is 20ms of 16kHz mono s16.
const fragmentBytes = 640

func newPulseClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("voce"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// ListDevices returns the Pulse input sources with default and availability flags.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return listDevices(client)
}

func listDevices(client *pulse.Client) ([]Device, error) {
	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}

	var infos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &infos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		if info == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          info.SourceName,
			Description: info.Device,
			State:       sourceStateString(info.State),
			Available:   sourceAvailable(info),
			Muted:       info.Mute,
			Default:     info.SourceName == defaultSource.ID(),
		})
	}
	return devices, nil
}

// PulseSource opens 16kHz mono record streams on one resolved Pulse source.
// It keeps a single client connection for the life of the process.
type PulseSource struct {
	client    *pulse.Client
	source    *pulse.Source
	selection Selection
}

// OpenPulseSource connects to Pulse and resolves input. Failures wrap
// ErrDeviceUnavailable.
func OpenPulseSource(_ context.Context, input string) (*PulseSource, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	devices, err := listDevices(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	selection, err := chooseDevice(devices, input)
	if err != nil {
		client.Close()
		return nil, err
	}

	source, err := client.SourceByID(selection.Device.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: resolve source %q: %w", ErrDeviceUnavailable, selection.Device.ID, err)
	}

	return &PulseSource{client: client, source: source, selection: selection}, nil
}

// Selection reports which device was resolved and why.
func (p *PulseSource) Selection() Selection {
	return p.selection
}

// Open starts a record stream delivering float samples to onSamples from
// the Pulse client goroutine.
func (p *PulseSource) Open(onSamples func([]float32)) (Stream, error) {
	writer := pulse.NewWriter(writerFunc(func(b []byte) (int, error) {
		if samples := decodeS16LE(b); len(samples) > 0 {
			onSamples(samples)
		}
		return len(b), nil
	}), pulseproto.FormatInt16LE)

	stream, err := p.client.NewRecord(
		writer,
		pulse.RecordSource(p.source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordBufferFragmentSize(fragmentBytes),
		pulse.RecordMediaName("voce dictation"),
	)
	if err != nil {
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}
	stream.Start()
	return pulseStream{stream: stream}, nil
}

// Close releases the Pulse connection.
func (p *PulseSource) Close() {
	if p.client != nil {
		p.client.Close()
	}
}

type pulseStream struct {
	stream *pulse.RecordStream
}

func (s pulseStream) Close() {
	s.stream.Stop()
	s.stream.Close()
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}

// decodeS16LE converts little-endian signed 16-bit frames to [-1, 1) floats.
// A trailing odd byte is ignored.
func decodeS16LE(b []byte) []float32 {
	n := len(b) / 2
	if n == 0 {
		return nil
	}
	out := make([]float32, n)
	for i := range n {
		v := int16(binary.LittleEndian.Uint16(b[2*i:]))
		out[i] = float32(v) / (math.MaxInt16 + 1)
	}
	return out
}

func sourceStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// sourceAvailable maps the active port availability to a boolean.
// PulseAudio values: unknown=0, no=1, yes=2.
func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	for _, port := range source.Ports {
		if port.Name == source.ActivePortName {
			return port.Available != 1
		}
	}
	return true
}
