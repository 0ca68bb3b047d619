package stream

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/rotblauer/catmotion/common"
)

func divideByTwo(n int) int {
	return n / 2
}

func isNonZero(n int) bool {
	return n != 0
}

func TestStream(t *testing.T) {
	data := []int{0, 2, 4, 6, 8}
	ctx := context.Background()
	result := Collect(ctx,
		Transform(ctx, divideByTwo,
			Filter(ctx, isNonZero,
				Slice(ctx, data))))

	if !slices.Equal([]int{1, 2, 3, 4}, result) {
		t.Errorf("have %v want %v", result, []int{1, 2, 3, 4})
	}
}

func TestCollect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	never := make(chan int)
	if got := Collect(ctx, never); len(got) != 0 {
		t.Errorf("have %v want []", got)
	}
}

func TestScanLines(t *testing.T) {
	in := "{\"a\":1}\n\n{\"b\":2}\n{\"c\":3}"
	lines, errs := ScanLines(context.Background(), strings.NewReader(in))
	got := []string{}
	for line := range lines {
		got = append(got, string(line))
	}
	if err := <-errs; err != nil {
		t.Fatal(err)
	}
	want := []string{`{"a":1}`, `{"b":2}`, `{"c":3}`}
	if !slices.Equal(got, want) {
		t.Errorf("have %v want %v", got, want)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("boom")
}

func TestScanLines_Error(t *testing.T) {
	lines, errs := ScanLines(context.Background(), failingReader{})
	for range lines {
		t.Error("unexpected line")
	}
	if err := <-errs; err == nil || err.Error() != "boom" {
		t.Errorf("have %v want boom", err)
	}
}

func TestTickMeter(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelError + 1)()
	tm := NewTickMeter("Read lines", time.Hour)
	now := time.Now()
	tm.Mark(now, []byte("abc"))
	tm.Mark(now.Add(-time.Minute), []byte("de"))
	if tm.Count() != 2 {
		t.Errorf("have %d want 2", tm.Count())
	}
	if !tm.label.Equal(now) {
		t.Errorf("have label %v want %v", tm.label, now)
	}
	tm.Stop()
	tm.Stop()
}
