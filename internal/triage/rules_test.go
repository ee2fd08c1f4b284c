package triage

import (
	"testing"

	"github.com/perfmcp/perf-mcp/internal/findings"
)

func mkFinding(id string, sev findings.Severity) findings.Finding {
	return findings.MakeFinding(id, sev, id, id, findings.CategorySystem)
}

func TestEvaluateRulesFiresOnConjunction(t *testing.T) {
	fs := []findings.Finding{
		mkFinding("dominant_syscall", findings.SeverityWarning),
		mkFinding("cpu_use_pressure", findings.SeverityCritical),
	}
	hyps := evaluateRules(fs)
	if len(hyps) != 1 {
		t.Fatalf("expected exactly one hypothesis, got %d: %+v", len(hyps), hyps)
	}
	h := hyps[0]
	if h.Category != findings.CategoryCPU {
		t.Errorf("expected category cpu, got %s", h.Category)
	}
	if len(h.SupportingFindings) != 2 {
		t.Errorf("expected 2 supporting findings, got %+v", h.SupportingFindings)
	}
	// a critical supporting finding should boost confidence above the base.
	if h.Confidence <= 0.65 {
		t.Errorf("expected confidence boosted by critical finding, got %v", h.Confidence)
	}
}

func TestEvaluateRulesRequiresAllConjuncts(t *testing.T) {
	fs := []findings.Finding{mkFinding("dominant_syscall", findings.SeverityWarning)}
	if hyps := evaluateRules(fs); len(hyps) != 0 {
		t.Fatalf("expected no hypotheses with only one conjunct present, got %+v", hyps)
	}
}

func TestEvaluateRulesPrefixMatchesDynamicIDs(t *testing.T) {
	fs := []findings.Finding{
		mkFinding("disk_use_pressure", findings.SeverityWarning),
		mkFinding("io_latency_high_biolatency", findings.SeverityWarning),
	}
	hyps := evaluateRules(fs)
	if len(hyps) != 1 || hyps[0].Category != findings.CategoryIO {
		t.Fatalf("expected the disk/io rule to fire via prefix match, got %+v", hyps)
	}
}

func TestEvaluateRulesSortedByConfidenceDescending(t *testing.T) {
	fs := []findings.Finding{
		mkFinding("high_syscall_rate", findings.SeverityWarning),
		mkFinding("dominant_syscall", findings.SeverityWarning),
		mkFinding("cpu_use_pressure", findings.SeverityWarning),
		mkFinding("fd_leak_suspected", findings.SeverityWarning),
	}
	hyps := evaluateRules(fs)
	if len(hyps) < 2 {
		t.Fatalf("expected multiple hypotheses to fire, got %+v", hyps)
	}
	for i := 1; i < len(hyps); i++ {
		if hyps[i].Confidence > hyps[i-1].Confidence {
			t.Fatalf("hypotheses not sorted descending by confidence: %+v", hyps)
		}
	}
}

func TestDedupeFindingsKeepsHighestSeverity(t *testing.T) {
	fs := []findings.Finding{
		mkFinding("cpu_use_pressure", findings.SeverityWarning),
		mkFinding("cpu_use_pressure", findings.SeverityCritical),
		mkFinding("memory_use_pressure", findings.SeverityInfo),
	}
	out := dedupeFindings(fs)
	if len(out) != 2 {
		t.Fatalf("expected 2 deduped findings, got %d: %+v", len(out), out)
	}
	for _, f := range out {
		if f.ID == "cpu_use_pressure" && f.Severity != findings.SeverityCritical {
			t.Errorf("expected deduped cpu_use_pressure to keep critical severity, got %s", f.Severity)
		}
	}
}

func TestDedupeFindingsPreservesFirstSeenOrder(t *testing.T) {
	fs := []findings.Finding{
		mkFinding("b_finding", findings.SeverityInfo),
		mkFinding("a_finding", findings.SeverityInfo),
	}
	out := dedupeFindings(fs)
	if out[0].ID != "b_finding" || out[1].ID != "a_finding" {
		t.Fatalf("expected stable first-seen order, got %+v", out)
	}
}

func TestTopActionsDedupesAcrossHypotheses(t *testing.T) {
	hyps := []Hypothesis{
		{Title: "a", Confidence: 0.9, SuggestedActions: []string{"do X", "do Y", "do Z"}},
		{Title: "b", Confidence: 0.8, SuggestedActions: []string{"do Y", "do W"}},
		{Title: "c", Confidence: 0.7, SuggestedActions: []string{"do Q"}},
		{Title: "d", Confidence: 0.6, SuggestedActions: []string{"do R"}},
	}
	actions := topActions(hyps)
	// top 3 hypotheses (a,b,c) contribute up to 2 actions each: X,Y (a), Y dup skipped,W (b), Q (c).
	want := []string{"do X", "do Y", "do W", "do Q"}
	if len(actions) != len(want) {
		t.Fatalf("expected %v, got %v", want, actions)
	}
	for i, a := range want {
		if actions[i] != a {
			t.Errorf("action[%d] = %q, want %q (full: %v)", i, actions[i], a, actions)
		}
	}
}

func TestTopActionsEmptyHypotheses(t *testing.T) {
	if actions := topActions(nil); actions != nil {
		t.Fatalf("expected nil actions for no hypotheses, got %+v", actions)
	}
}
