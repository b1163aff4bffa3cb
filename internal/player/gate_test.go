package player

import "testing"

func TestGate_Observe(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		ratios    []float64
		wantOpen  bool
	}{
		{"below threshold", 0.5, []float64{0.1, 0.49}, false},
		{"reaches threshold", 0.5, []float64{0.1, 0.5}, true},
		{"zero threshold needs some visibility", 0, []float64{0}, false},
		{"zero threshold opens on any visibility", 0, []float64{0, 0.01}, true},
		{"full threshold", 1, []float64{0.99, 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opened := 0
			g := NewGate(testLogger(), &GateConfig{Threshold: tt.threshold}, func() { opened++ })

			for _, r := range tt.ratios {
				g.Observe(r)
			}

			if g.Opened() != tt.wantOpen {
				t.Errorf("Opened() = %v, want %v", g.Opened(), tt.wantOpen)
			}
			if tt.wantOpen && opened != 1 {
				t.Errorf("onOpen called %d times, want 1", opened)
			}
		})
	}
}

func TestGate_OpensOnce(t *testing.T) {
	opened := 0
	g := NewGate(testLogger(), nil, func() { opened++ })

	if !g.Observe(1) {
		t.Fatal("first visible observation did not open the gate")
	}
	if g.Observe(1) {
		t.Error("second observation reported opening again")
	}
	if opened != 1 {
		t.Errorf("onOpen called %d times, want 1", opened)
	}
}

func TestGate_Disable(t *testing.T) {
	g := NewGate(testLogger(), DefaultGateConfig(), func() { t.Error("disabled gate opened") })
	g.Disable()
	if g.Observe(1) || g.Opened() {
		t.Error("disabled gate opened")
	}
}
