package stats

import "testing"

func TestReduceEmptyCollector(t *testing.T) {
	var c Collector
	got := c.Reduce()
	if got != (Extended{}) {
		t.Errorf("Reduce() on empty collector = %+v, want zero value", got)
	}
}

func TestReduceComputesMeanAndStdDev(t *testing.T) {
	var c Collector
	c.Observe(1, 10)
	c.Observe(2, 20)
	c.Observe(3, 30)

	got := c.Reduce()
	if got.N != 3 {
		t.Errorf("N = %d, want 3", got.N)
	}
	if got.MeanTransferTime != 2 {
		t.Errorf("MeanTransferTime = %v, want 2", got.MeanTransferTime)
	}
	if got.MeanSize != 20 {
		t.Errorf("MeanSize = %v, want 20", got.MeanSize)
	}
	if got.StdDevTransferTime <= 0 {
		t.Errorf("StdDevTransferTime = %v, want > 0", got.StdDevTransferTime)
	}
}

func TestResetClearsSamples(t *testing.T) {
	var c Collector
	c.Observe(1, 1)
	c.Reset()
	got := c.Reduce()
	if got.N != 0 {
		t.Errorf("N after Reset = %d, want 0", got.N)
	}
}
