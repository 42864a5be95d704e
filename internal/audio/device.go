package audio

import (
	"context"
	"fmt"
	"strings"
)

// Device describes one Pulse input source.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Usable reports whether the device can deliver samples right now.
func (d Device) Usable() bool {
	return d.Available && !d.Muted
}

// Selection is the resolved capture device plus a warning when the
// configured input had to be replaced.
type Selection struct {
	Device  Device
	Warning string
}

// SelectDevice resolves the audio.input preference against live sources.
func SelectDevice(ctx context.Context, input string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return chooseDevice(devices, input)
}

// chooseDevice picks input (matched on id or description) or the server
// default. An unusable named device falls back to a usable default.
func chooseDevice(devices []Device, input string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, fmt.Errorf("%w: no input sources found", ErrDeviceUnavailable)
	}

	term := strings.ToLower(strings.TrimSpace(input))
	wantDefault := term == "" || term == "default"

	var fallback *Device
	for i := range devices {
		if devices[i].Default {
			fallback = &devices[i]
			break
		}
	}

	if wantDefault {
		if fallback == nil {
			return Selection{}, fmt.Errorf("%w: server reports no default source", ErrDeviceUnavailable)
		}
		if !fallback.Usable() {
			return Selection{}, fmt.Errorf("%w: default source %q is %s", ErrDeviceUnavailable, fallback.ID, unusableReason(*fallback))
		}
		return Selection{Device: *fallback}, nil
	}

	var chosen *Device
	for i := range devices {
		if deviceMatches(devices[i], term) {
			chosen = &devices[i]
			break
		}
	}
	if chosen == nil {
		return Selection{}, fmt.Errorf("%w: audio.input %q did not match any source", ErrDeviceUnavailable, input)
	}
	if chosen.Usable() {
		return Selection{Device: *chosen}, nil
	}

	reason := unusableReason(*chosen)
	if fallback == nil || fallback.ID == chosen.ID || !fallback.Usable() {
		return Selection{}, fmt.Errorf("%w: source %q is %s and no usable default exists", ErrDeviceUnavailable, chosen.ID, reason)
	}
	return Selection{
		Device:  *fallback,
		Warning: fmt.Sprintf("audio.input %q is %s; using default %q", chosen.ID, reason, fallback.ID),
	}, nil
}

func unusableReason(d Device) string {
	if d.Muted {
		return "muted"
	}
	return "unavailable"
}

func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(device.ID), term) ||
		strings.Contains(strings.ToLower(device.Description), term)
}
