package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/perfmcp/perf-mcp/internal/allowlist"
)

// selftestCheck is one fixture: a named predicate call plus the outcome it
// must produce. Failures are collected and reported together so a single
// run surfaces every policy regression, not just the first.
type selftestCheck struct {
	name string
	run  func() (ok bool, detail string)
}

// selftestCmd exercises the allow-list and path-policy predicates against
// fixed positive and negative fixtures, and exits nonzero if any of them
// disagree with what the policy is supposed to do. melisai had no
// equivalent; this exists because perf-mcp's entire security boundary is
// these two pure functions, and a silent regression in either one is a
// sandbox escape, not a test failure.
func selftestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "selftest",
		Short: "Verify the allow-list and path-policy predicates against built-in fixtures",
		RunE: func(cmd *cobra.Command, args []string) error {
			checks := selftestChecks()
			failed := 0
			for _, c := range checks {
				ok, detail := c.run()
				status := "ok"
				if !ok {
					status = "FAIL"
					failed++
				}
				fmt.Printf("[%s] %s: %s\n", status, c.name, detail)
			}
			if failed > 0 {
				fmt.Fprintf(os.Stderr, "%d/%d checks failed\n", failed, len(checks))
				os.Exit(1)
			}
			fmt.Printf("%d checks passed\n", len(checks))
			return nil
		},
	}
}

func selftestChecks() []selftestCheck {
	return []selftestCheck{
		{"allow known procfs path", func() (bool, string) {
			ok := allowlist.PathReadable("/proc/stat")
			return ok, "/proc/stat"
		}},
		{"allow known per-pid procfs path", func() (bool, string) {
			ok := allowlist.PathReadable("/proc/1/status")
			return ok, "/proc/1/status"
		}},
		{"reject path traversal", func() (bool, string) {
			ok := !allowlist.PathReadable("/proc/../etc/shadow")
			return ok, "/proc/../etc/shadow must be refused"
		}},
		{"reject arbitrary absolute path", func() (bool, string) {
			ok := !allowlist.PathReadable("/etc/shadow")
			return ok, "/etc/shadow must be refused"
		}},
		{"reject unlisted sys path", func() (bool, string) {
			ok := !allowlist.PathReadable("/sys/firmware/acpi/tables/DSDT")
			return ok, "/sys/firmware/acpi/tables/DSDT must be refused"
		}},
		{"allow known bcc tool with numeric args", func() (bool, string) {
			ok, reason := allowlist.ArgvPermitted("biolatency", []string{"-m", "5"})
			return ok, reason
		}},
		{"reject unknown allow-list key", func() (bool, string) {
			ok, reason := allowlist.ArgvPermitted("rm", []string{"-rf", "/"})
			return !ok, reason
		}},
		{"reject path traversal in argv", func() (bool, string) {
			ok, reason := allowlist.ArgvPermitted("perf", []string{"record", "-o", "../../etc/passwd"})
			return !ok, reason
		}},
		{"reject unpermitted flag", func() (bool, string) {
			ok, reason := allowlist.ArgvPermitted("ss", []string{"--evil"})
			return !ok, reason
		}},
	}
}
