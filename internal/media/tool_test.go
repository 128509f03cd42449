package media

import (
	"strings"
	"testing"
)

func TestTailBuffer_KeepsOnlyTheTail(t *testing.T) {
	var buf tailBuffer
	buf.limit = 16

	buf.Write([]byte(strings.Repeat("a", 10)))
	buf.Write([]byte(strings.Repeat("b", 10)))

	got := buf.String()
	if len(got) != 16 {
		t.Fatalf("len = %d, want 16", len(got))
	}
	if got != "aaaaaa"+strings.Repeat("b", 10) {
		t.Fatalf("tail = %q", got)
	}
}

func TestTailBuffer_ShortWritesUntouched(t *testing.T) {
	var buf tailBuffer
	buf.limit = 1024

	n, err := buf.Write([]byte("stderr line"))
	if err != nil || n != 11 {
		t.Fatalf("Write() = (%d, %v)", n, err)
	}
	if buf.String() != "stderr line" {
		t.Fatalf("buffer = %q", buf.String())
	}
}

func TestTruncateTail(t *testing.T) {
	if got := truncateTail("short", 10); got != "short" {
		t.Fatalf("truncateTail(short) = %q", got)
	}
	got := truncateTail(strings.Repeat("x", 20)+"END", 5)
	if got != "...xxEND" {
		t.Fatalf("truncateTail(long) = %q", got)
	}
}

func TestRunResult_IsSuccess(t *testing.T) {
	if !(RunResult{ExitCode: 0}).IsSuccess() {
		t.Error("exit 0 should be success")
	}
	if (RunResult{ExitCode: 1}).IsSuccess() {
		t.Error("exit 1 should not be success")
	}
}
