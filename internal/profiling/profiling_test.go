package profiling

import (
	"strings"
	"testing"
	"time"
)

func TestTrackAccumulates(t *testing.T) {
	ResetFrame()
	Add("b", 2*time.Millisecond)
	Add("a", 5*time.Millisecond)
	Add("b", 4*time.Millisecond)

	samples := Snapshot()
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if samples[0].Name != "b" || samples[0].Total != 6*time.Millisecond || samples[0].Calls != 2 {
		t.Errorf("unexpected first sample %+v", samples[0])
	}

	top := TopN(1)
	if top != "b:6.0ms(x2)" {
		t.Errorf("unexpected TopN output %q", top)
	}
	if all := TopN(10); !strings.Contains(all, "a:5.0ms") {
		t.Errorf("TopN(10) should list every sample, got %q", all)
	}

	stop := Track("c")
	stop()
	if len(Snapshot()) != 3 {
		t.Errorf("Track did not record a sample")
	}

	ResetFrame()
	if len(Snapshot()) != 0 {
		t.Errorf("ResetFrame left samples behind")
	}
}
