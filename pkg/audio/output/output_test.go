// ABOUTME: Audio output interface tests
// ABOUTME: Verifies backend selection and configuration checks
package output

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func TestBackendsImplementDevice(t *testing.T) {
	var _ Device = (*Malgo)(nil)
	var _ Device = (*Oto)(nil)
	var _ Device = (*PortAudio)(nil)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"", false},
		{"malgo", false},
		{"oto", false},
		{"portaudio", false},
		{"alsa", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, err := New(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.name)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if dev == nil {
				t.Fatal("New returned nil device")
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	fill := func(out []float32) bool { return true }

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{SampleRate: 48000, Channels: 2, Callback: fill}, false},
		{"zero rate", Config{SampleRate: 0, Channels: 2, Callback: fill}, true},
		{"zero channels", Config{SampleRate: 48000, Channels: 0, Callback: fill}, true},
		{"no callback", Config{SampleRate: 48000, Channels: 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestUninitializedDevice(t *testing.T) {
	m := NewMalgo()
	if err := m.Start(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized from Start, got %v", err)
	}
	if err := m.SetSampleRate(44100); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized from SetSampleRate, got %v", err)
	}
	if m.State() != Stopped {
		t.Errorf("expected stopped state, got %v", m.State())
	}

	o := NewOto()
	if err := o.Stop(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized from oto Stop, got %v", err)
	}
}

func TestStateString(t *testing.T) {
	if Started.String() != "started" || Stopped.String() != "stopped" {
		t.Errorf("unexpected state names %q %q", Started, Stopped)
	}
}

// halfThenUnderrun writes 0.5 on its first call and nothing afterwards
func halfThenUnderrun() Callback {
	calls := 0
	return func(out []float32) bool {
		calls++
		if calls > 1 {
			return false
		}
		for i := range out {
			out[i] = 0.5
		}
		return true
	}
}

func decodeFloats(b []byte) []float32 {
	samples := make([]float32, len(b)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return samples
}

func TestMalgoCallbackUnderrunLeavesBuffer(t *testing.T) {
	m := NewMalgo()
	m.cfg = Config{SampleRate: 48000, Channels: 2, Callback: halfThenUnderrun()}

	first := make([]byte, 4*2*4)
	m.dataCallback(first, 4)
	for i, v := range decodeFloats(first) {
		if v != 0.5 {
			t.Fatalf("sample %d: expected 0.5, got %v", i, v)
		}
	}

	second := make([]byte, 4*2*4)
	m.dataCallback(second, 4)
	for i, v := range decodeFloats(second) {
		if v != 0 {
			t.Errorf("sample %d: expected untouched buffer after underrun, got %v", i, v)
		}
	}
}

func TestOtoReaderUnderrunLeavesBuffer(t *testing.T) {
	o := NewOto()
	o.cfg = Config{SampleRate: 48000, Channels: 2, Callback: halfThenUnderrun()}
	r := &callbackReader{o: o}

	first := make([]byte, 4*2*4)
	if n, err := r.Read(first); n != len(first) || err != nil {
		t.Fatalf("expected %d bytes, got %d (%v)", len(first), n, err)
	}
	if v := decodeFloats(first)[0]; v != 0.5 {
		t.Fatalf("expected 0.5, got %v", v)
	}

	second := make([]byte, 4*2*4)
	if n, err := r.Read(second); n != len(second) || err != nil {
		t.Fatalf("expected %d bytes, got %d (%v)", len(second), n, err)
	}
	for i, v := range decodeFloats(second) {
		if v != 0 {
			t.Errorf("sample %d: expected untouched buffer after underrun, got %v", i, v)
		}
	}
}
