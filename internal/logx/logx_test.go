package logx

import (
	"strings"
	"testing"
	"time"
)

func TestWriterAllowFilter(t *testing.T) {
	var buf strings.Builder
	w := New(&buf, 0, `^\[(boot|session)\]`, "")

	_, _ = w.Write([]byte("[session] added torrent aaa\n"))
	_, _ = w.Write([]byte("[noise] something chatty\n"))
	_, _ = w.Write([]byte("[boot] up\n"))

	got := buf.String()
	if !strings.Contains(got, "[session]") || !strings.Contains(got, "[boot]") {
		t.Fatalf("allowed lines missing: %q", got)
	}
	if strings.Contains(got, "[noise]") {
		t.Fatalf("denied line leaked: %q", got)
	}
}

func TestWriterDenyWinsOverAllow(t *testing.T) {
	var buf strings.Builder
	w := New(&buf, 0, `^\[`, `torrent bbb`)

	_, _ = w.Write([]byte("[session] added torrent bbb\n"))
	if buf.Len() != 0 {
		t.Fatalf("deny pattern ignored: %q", buf.String())
	}
}

func TestWriterDedupWindow(t *testing.T) {
	var buf strings.Builder
	w := New(&buf, time.Minute, "", "")

	line := []byte("[watch] torrent aaa completed\n")
	_, _ = w.Write(line)
	_, _ = w.Write(line)
	_, _ = w.Write([]byte("[watch] torrent ccc completed\n"))

	if n := strings.Count(buf.String(), "aaa"); n != 1 {
		t.Fatalf("duplicate written %d times", n)
	}
	if !strings.Contains(buf.String(), "ccc") {
		t.Fatal("distinct line suppressed")
	}
}

func TestWriterInvalidPatternDisablesFilter(t *testing.T) {
	var buf strings.Builder
	w := New(&buf, 0, `([`, "")
	_, _ = w.Write([]byte("anything\n"))
	if buf.Len() == 0 {
		t.Fatal("invalid allow pattern must pass everything through")
	}
}
