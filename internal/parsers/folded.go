package parsers

import (
	"sort"
	"strconv"
	"strings"

	"github.com/perfmcp/perf-mcp/internal/findings"
)

// ParseFoldedStacks parses folded stack output ("func1;func2;func3 count"),
// the shape produced by `profile -f` and `offcputime -f`, sorted by count
// descending.
func ParseFoldedStacks(raw, stackType string) []findings.StackTrace {
	var stacks []findings.StackTrace
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lastSpace := strings.LastIndex(line, " ")
		if lastSpace < 0 {
			continue
		}
		stack := line[:lastSpace]
		count, err := strconv.Atoi(line[lastSpace+1:])
		if err != nil {
			continue
		}
		stacks = append(stacks, findings.StackTrace{Stack: stack, Count: count, Type: stackType})
	}
	sort.Slice(stacks, func(i, j int) bool { return stacks[i].Count > stacks[j].Count })
	return stacks
}
