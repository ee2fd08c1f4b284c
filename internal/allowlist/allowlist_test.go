package allowlist

import "testing"

func TestArgvPermittedRejectsPathTraversal(t *testing.T) {
	ok, reason := ArgvPermitted("perf", []string{"record", "../../etc/passwd"})
	if ok {
		t.Fatal("expected path traversal segment to be rejected")
	}
	if reason == "" {
		t.Error("expected a non-empty rejection reason")
	}
}

func TestArgvPermittedRejectsUnknownKey(t *testing.T) {
	ok, _ := ArgvPermitted("rm", []string{"-rf", "/"})
	if ok {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestArgvPermittedAcceptsKnownFlags(t *testing.T) {
	ok, reason := ArgvPermitted("iostat", []string{"-x", "-z", "1", "1"})
	if !ok {
		t.Fatalf("expected permitted flags/numeric args to pass, got reason %q", reason)
	}
}

func TestArgvPermittedAcceptsBpftraceScriptArg(t *testing.T) {
	script := `kprobe:blk_account_io_start { @start[arg0] = nsecs; }`
	ok, reason := ArgvPermitted("bpftrace", []string{"-e", script})
	if !ok {
		t.Fatalf("expected bpftrace script arg to be permitted, got reason %q", reason)
	}
}

func TestArgvPermittedRejectsScriptArgWithTraversal(t *testing.T) {
	ok, _ := ArgvPermitted("bpftrace", []string{"-e", "../../etc/passwd"})
	if ok {
		t.Fatal("expected traversal segment in script arg to still be rejected")
	}
}

func TestArgvPermittedRejectsUnknownFlag(t *testing.T) {
	ok, _ := ArgvPermitted("iostat", []string{"--evil"})
	if ok {
		t.Fatal("expected unpermitted flag to be rejected")
	}
}

func TestResolveNonexistentTool(t *testing.T) {
	if _, err := Resolve("nonexistent-tool-xyz"); err == nil {
		t.Error("expected error for a key absent from the allow-list")
	}
}

func TestPathReadableRejectsTraversal(t *testing.T) {
	if PathReadable("/proc/../etc/shadow") {
		t.Error("expected traversal path to be rejected")
	}
}

func TestPathReadableAllowsKnownProcFiles(t *testing.T) {
	allowed := []string{
		"/proc/stat",
		"/proc/loadavg",
		"/proc/meminfo",
		"/proc/pressure/cpu",
		"/proc/123/status",
		"/proc/123/fd/5",
	}
	for _, p := range allowed {
		if !PathReadable(p) {
			t.Errorf("expected %q to be readable", p)
		}
	}
}

func TestPathReadableRejectsArbitraryPath(t *testing.T) {
	denied := []string{
		"/etc/shadow",
		"/root/.ssh/id_rsa",
		"/proc/self/environ",
	}
	for _, p := range denied {
		if PathReadable(p) {
			t.Errorf("expected %q to be denied", p)
		}
	}
}

func TestPathReadableAllowsKnownSysFiles(t *testing.T) {
	if !PathReadable("/sys/kernel/btf/vmlinux") {
		t.Error("expected vmlinux BTF path to be readable")
	}
	if !PathReadable("/sys/block/sda/stat") {
		t.Error("expected block device stat path to be readable")
	}
}
