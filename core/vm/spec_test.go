package vm

import "testing"

func TestSpecEnabled(t *testing.T) {
	cases := []struct {
		spec, gate SpecID
		want       bool
	}{
		{SpecFrontier, SpecHomestead, false},
		{SpecCancun, SpecShanghai, true},
		{SpecCancun, SpecPrague, false},
		{SpecBedrock, SpecMerge, true},
		{SpecBedrock, SpecShanghai, false},
		{SpecCanyon, SpecShanghai, true},
		{SpecEcotone, SpecCancun, true},
		{SpecIsthmus, SpecPrague, true},
		{SpecFjord, SpecRegolith, true},
		{SpecCancun, SpecBedrock, false}, // base spec never enables rollup forks
		{SpecRegolith, SpecCanyon, false},
	}
	for _, c := range cases {
		if got := c.spec.Enabled(c.gate); got != c.want {
			t.Fatalf("%s.Enabled(%s): got %v want %v", c.spec, c.gate, got, c.want)
		}
	}
}

func TestSpecIsOptimism(t *testing.T) {
	if SpecCancun.IsOptimism() {
		t.Fatalf("cancun flagged as rollup spec")
	}
	if !SpecBedrock.IsOptimism() || !SpecIsthmus.IsOptimism() {
		t.Fatalf("rollup specs not flagged")
	}
}

func TestRollupScheduleSpecAt(t *testing.T) {
	u := func(v uint64) *uint64 { return &v }
	sched := &RollupSchedule{
		RegolithTime: u(100),
		CanyonTime:   u(200),
		EcotoneTime:  u(300),
		FjordTime:    u(400),
	}
	cases := []struct {
		ts   uint64
		want SpecID
	}{
		{0, SpecBedrock},
		{99, SpecBedrock},
		{100, SpecRegolith},
		{250, SpecCanyon},
		{399, SpecEcotone},
		{400, SpecFjord},
		{10000, SpecFjord},
	}
	for _, c := range cases {
		if got := sched.SpecAt(c.ts); got != c.want {
			t.Fatalf("SpecAt(%d): got %s want %s", c.ts, got, c.want)
		}
	}
}
