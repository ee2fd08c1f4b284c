package parsers

import "testing"

func TestParseFoldedStacks(t *testing.T) {
	raw := `main;foo;bar 5
main;foo;baz 20
main;qux 1`

	stacks := ParseFoldedStacks(raw, "on-cpu")
	if len(stacks) != 3 {
		t.Fatalf("expected 3 stacks, got %d", len(stacks))
	}
	if stacks[0].Count != 20 || stacks[0].Stack != "main;foo;baz" {
		t.Fatalf("expected highest-count stack first, got %+v", stacks[0])
	}
	for _, s := range stacks {
		if s.Type != "on-cpu" {
			t.Fatalf("expected type on-cpu, got %q", s.Type)
		}
	}
}

func TestParseFoldedStacksSkipsMalformed(t *testing.T) {
	raw := `# comment
main;foo
main;bar 3`
	stacks := ParseFoldedStacks(raw, "off-cpu")
	if len(stacks) != 1 {
		t.Fatalf("expected 1 stack, got %d", len(stacks))
	}
	if stacks[0].Stack != "main;bar" || stacks[0].Count != 3 {
		t.Fatalf("unexpected stack: %+v", stacks[0])
	}
}
