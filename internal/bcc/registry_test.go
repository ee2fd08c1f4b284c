package bcc

import "testing"

func TestFormatSecondsFloorsAtOne(t *testing.T) {
	if got := formatSeconds(0); got != "1" {
		t.Errorf("expected zero duration to floor to 1s, got %q", got)
	}
}

func TestRegistryEntriesHaveBuildArgs(t *testing.T) {
	for name, spec := range Registry {
		if spec.BuildArgs == nil {
			t.Errorf("tool %q missing BuildArgs", name)
		}
		if spec.Category == "" {
			t.Errorf("tool %q missing category", name)
		}
	}
}

func TestProfilerClassToolsAreMarked(t *testing.T) {
	for _, name := range []string{"profile", "offcputime", "memleak"} {
		spec, ok := Registry[name]
		if !ok {
			t.Fatalf("expected %q in registry", name)
		}
		if !spec.ProfilerClass {
			t.Errorf("expected %q to be profiler-class", name)
		}
	}
}
