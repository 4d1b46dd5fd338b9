package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, 5, ProgressPercent(5_000_000, 100))
	assert.Equal(t, 50, ProgressPercent(50_000_000, 100))
	assert.Equal(t, MaxEncodeProgress, ProgressPercent(99_000_000, 100))
	assert.Equal(t, MaxEncodeProgress, ProgressPercent(500_000_000, 100))
	assert.Equal(t, 0, ProgressPercent(5_000_000, 0))
	assert.Equal(t, 0, ProgressPercent(-1, 100))
}

func TestProgressParser_ReportsIncreasingValues(t *testing.T) {
	var got []int
	p := NewProgressParser(intPtr(100), func(pct int) { got = append(got, pct) })

	_, _ = p.Write([]byte("frame=10\nout_time_ms=5000000\nprogress=continue\n"))
	_, _ = p.Write([]byte("out_time_us=5000000\n"))
	_, _ = p.Write([]byte("out_time_ms=2000000\n"))
	_, _ = p.Write([]byte("out_time_us=20000000\nout_time_ms=N/A\n"))
	_, _ = p.Write([]byte("out_time_us=120000000\nprogress=end\n"))

	assert.Equal(t, []int{5, 20, 95}, got)
	assert.Equal(t, 95, p.Last())
}

func TestProgressParser_PartialLines(t *testing.T) {
	var got []int
	p := NewProgressParser(intPtr(10), func(pct int) { got = append(got, pct) })

	n, err := p.Write([]byte("out_time"))
	assert.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Empty(t, got)

	_, _ = p.Write([]byte("_us=5000"))
	assert.Empty(t, got)
	_, _ = p.Write([]byte("000\r\nout_"))
	assert.Equal(t, []int{50}, got)
}

func TestProgressParser_NoDuration(t *testing.T) {
	called := false
	p := NewProgressParser(nil, func(int) { called = true })
	_, _ = p.Write([]byte("out_time_ms=5000000\n"))
	assert.False(t, called)

	p = NewProgressParser(intPtr(0), func(int) { called = true })
	_, _ = p.Write([]byte("out_time_ms=5000000\n"))
	assert.False(t, called)
}

func TestProgressParser_NilCallback(t *testing.T) {
	p := NewProgressParser(intPtr(100), nil)
	n, err := p.Write([]byte("out_time_ms=5000000\n"))
	assert.NoError(t, err)
	assert.Equal(t, 20, n)
}
