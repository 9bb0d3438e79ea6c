package meter

import (
	"math"
	"testing"
)

func sine(n int, amp float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amp * math.Sin(2*math.Pi*float64(i)/64))
	}
	return out
}

func TestFullScaleSine(t *testing.T) {
	m := NewMeter(44100, 512)
	block := sine(512, 1)
	m.Process(block, block)

	l, r := m.Read()
	if math.Abs(l.PeakDB-0) > 0.1 {
		t.Fatalf("peak = %f dB, want ~0", l.PeakDB)
	}
	// sine RMS is 1/sqrt(2), about -3.01 dB
	if math.Abs(l.RMSDB+3.01) > 0.1 {
		t.Fatalf("rms = %f dB, want ~-3.01", l.RMSDB)
	}
	if r != l {
		t.Fatalf("identical channels read differently: %+v vs %+v", l, r)
	}
}

func TestSilenceReportsFloor(t *testing.T) {
	m := NewMeter(44100, 512)
	m.Process(make([]float32, 512), make([]float32, 512))

	l, _ := m.Read()
	if l.PeakDB != Floor || l.RMSDB != Floor {
		t.Fatalf("silence = %+v, want floor %f", l, Floor)
	}
}

func TestPeakHoldDecays(t *testing.T) {
	m := NewMeter(44100, 512)
	m.Process(sine(512, 1), sine(512, 1))
	silent := make([]float32, 512)

	first, _ := m.Read()
	m.Process(silent, silent)
	second, _ := m.Read()

	if second.PeakDB >= first.PeakDB {
		t.Fatalf("hold did not fall: %f then %f", first.PeakDB, second.PeakDB)
	}
	if second.PeakDB < first.PeakDB-1 {
		t.Fatalf("hold fell too fast for one block: %f then %f", first.PeakDB, second.PeakDB)
	}
	if second.RMSDB != Floor {
		t.Fatalf("rms must follow the signal immediately, got %f", second.RMSDB)
	}
}

func TestResetClearsHold(t *testing.T) {
	m := NewMeter(44100, 512)
	m.Process(sine(512, 1), sine(512, 1))
	m.Reset()

	l, _ := m.Read()
	if l.PeakDB != Floor {
		t.Fatalf("after reset peak = %f, want floor", l.PeakDB)
	}
	silent := make([]float32, 512)
	m.Process(silent, silent)
	l, _ = m.Read()
	if l.PeakDB != Floor {
		t.Fatalf("hold survived reset: %f", l.PeakDB)
	}
}
