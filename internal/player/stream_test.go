// ABOUTME: Tests for the audio sample buffer
// ABOUTME: Tests growth, compaction, playhead positioning and reads
package player

import (
	"math"
	"testing"
)

const sampleTolerance = 1.0 / 127.0

func ramp(n int) []float32 {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(i%200)/100.0 - 1.0
	}
	return samples
}

func TestAppendBeforeInit(t *testing.T) {
	s := NewAudioStream()
	if s.Append([]float32{0.5}) {
		t.Error("expected append to fail before Init")
	}
}

func TestGrowthKeepsSamples(t *testing.T) {
	s := NewAudioStream()
	s.Init(1024, 2, 8, 1024)

	var all []float32
	for i := 0; i < 10; i++ {
		chunk := ramp(14)
		all = append(all, chunk...)
		if !s.Append(chunk) {
			t.Fatalf("append %d failed", i)
		}
	}

	if s.Len() != len(all) {
		t.Fatalf("expected %d samples, got %d", len(all), s.Len())
	}
	if s.Cap() < s.Len() {
		t.Fatalf("capacity %d below length %d", s.Cap(), s.Len())
	}
	if s.Cap()&(s.Cap()-1) != 0 {
		t.Errorf("expected capacity to double from 16, got %d", s.Cap())
	}

	out := make([]float32, len(all)-1)
	if !s.Read(out, 1) {
		t.Fatal("expected read to succeed")
	}
	for i, v := range out {
		if math.Abs(float64(v-all[i])) > sampleTolerance {
			t.Fatalf("sample %d: expected %v, got %v", i, all[i], v)
		}
	}
}

func TestCompactionAtMaximum(t *testing.T) {
	s := NewAudioStream()
	s.Init(100, 1, 100, 200)
	s.SetStartTime(10)

	if !s.Append(ramp(200)) {
		t.Fatal("expected first append to fit")
	}

	out := make([]float32, 150)
	if !s.Read(out, 1) {
		t.Fatal("expected read to succeed")
	}

	if !s.Append(ramp(100)) {
		t.Fatal("expected append to fit after compaction")
	}
	if s.Playhead() != 0 {
		t.Errorf("expected playhead 0 after compaction, got %d", s.Playhead())
	}
	if s.Len() != 150 {
		t.Errorf("expected 150 samples, got %d", s.Len())
	}
	if math.Abs(s.StartTime()-11.5) > 1e-9 {
		t.Errorf("expected start time 11.5, got %v", s.StartTime())
	}
	if math.Abs(s.Time()-11.5) > 1e-9 {
		t.Errorf("expected playhead time unchanged at 11.5, got %v", s.Time())
	}
}

func TestDropWhenFull(t *testing.T) {
	s := NewAudioStream()
	s.Init(100, 1, 100, 200)

	if !s.Append(ramp(150)) {
		t.Fatal("expected first append to fit")
	}
	if s.Append(ramp(100)) {
		t.Error("expected append beyond maximum to be dropped")
	}
	if s.Len() != 150 {
		t.Errorf("expected length unchanged at 150, got %d", s.Len())
	}
}

func TestSetTimeAlignsToFrames(t *testing.T) {
	s := NewAudioStream()
	s.Init(100, 2, 1000, 1000)
	s.SetStartTime(5)
	s.Append(ramp(400)) // 2 seconds

	tests := []struct {
		name     string
		time     float64
		playhead int
	}{
		{"start", 5, 0},
		{"middle", 6, 200},
		{"unaligned", 5.005, 0},
		{"before", 4, 0},
		{"after", 9, 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.SetTime(tt.time)
			if s.Playhead() != tt.playhead {
				t.Errorf("expected playhead %d, got %d", tt.playhead, s.Playhead())
			}
			if s.Playhead()%2 != 0 {
				t.Errorf("playhead %d not frame aligned", s.Playhead())
			}
		})
	}
}

func TestTimes(t *testing.T) {
	s := NewAudioStream()
	s.Init(100, 2, 100, 100)
	s.SetStartTime(1)
	s.Append(ramp(100))

	if s.EndTime() != 1.5 {
		t.Errorf("expected end time 1.5, got %v", s.EndTime())
	}

	out := make([]float32, 20)
	s.Read(out, 1)
	if math.Abs(s.Time()-1.1) > 1e-9 {
		t.Errorf("expected time 1.1, got %v", s.Time())
	}
}

func TestReadUnderrunLeavesOutput(t *testing.T) {
	s := NewAudioStream()
	s.Init(100, 1, 16, 16)
	s.Append(ramp(8))

	out := []float32{9, 9, 9, 9, 9, 9, 9, 9}
	if s.Read(out, 1) {
		t.Fatal("expected read of the whole buffer to underrun")
	}
	for i, v := range out {
		if v != 9 {
			t.Errorf("sample %d overwritten with %v", i, v)
		}
	}
	if s.Playhead() != 0 {
		t.Errorf("expected playhead unchanged, got %d", s.Playhead())
	}
}

func TestReadAppliesGain(t *testing.T) {
	s := NewAudioStream()
	s.Init(100, 1, 16, 16)
	s.Append([]float32{0.5, 0.5, 0.5, 0.5})

	out := make([]float32, 2)
	s.Read(out, 0.5)
	for _, v := range out {
		if math.Abs(float64(v)-0.25) > sampleTolerance {
			t.Errorf("expected 0.25, got %v", v)
		}
	}
}

func TestClearKeepsCapacity(t *testing.T) {
	s := NewAudioStream()
	s.Init(100, 1, 8, 1024)
	s.Append(ramp(100))
	grown := s.Cap()

	s.Clear(8)
	if s.Len() != 0 || s.Playhead() != 0 {
		t.Errorf("expected empty buffer, got len=%d playhead=%d", s.Len(), s.Playhead())
	}
	if s.Cap() != grown {
		t.Errorf("expected capacity kept at %d, got %d", grown, s.Cap())
	}
}
