package media

import (
	"bytes"
	"math"
	"strconv"
	"strings"
)

// MaxEncodeProgress caps reported encode progress; the remainder is reserved
// for upload and finalization.
const MaxEncodeProgress = 95

var progressTimeKeys = []string{"out_time_ms=", "out_time_us="}

// ProgressPercent converts encoder elapsed microseconds into a percentage of
// durationSeconds, clamped to [0, MaxEncodeProgress].
func ProgressPercent(elapsedMicros int64, durationSeconds int) int {
	if durationSeconds <= 0 || elapsedMicros <= 0 {
		return 0
	}
	pct := int(math.Round(float64(elapsedMicros) / (float64(durationSeconds) * 1e6) * 100))
	if pct > MaxEncodeProgress {
		return MaxEncodeProgress
	}
	return pct
}

// ProgressParser consumes ffmpeg `-progress` key=value output as an io.Writer.
// It keeps the trailing partial line between writes and reports each strictly
// higher percentage to the callback.
type ProgressParser struct {
	durationSeconds int
	onProgress      func(int)
	partial         []byte
	last            int
}

// NewProgressParser creates a parser. With no known duration or no callback
// the parser only drains its input.
func NewProgressParser(durationSeconds *int, onProgress func(int)) *ProgressParser {
	p := &ProgressParser{onProgress: onProgress, last: -1}
	if durationSeconds != nil {
		p.durationSeconds = *durationSeconds
	}
	return p
}

// Write never fails, so it cannot stall the child process's stdout pipe.
func (p *ProgressParser) Write(b []byte) (int, error) {
	p.partial = append(p.partial, b...)
	for {
		i := bytes.IndexByte(p.partial, '\n')
		if i < 0 {
			break
		}
		p.handleLine(string(p.partial[:i]))
		p.partial = append(p.partial[:0], p.partial[i+1:]...)
	}
	return len(b), nil
}

// Last returns the highest percentage reported so far, or -1.
func (p *ProgressParser) Last() int { return p.last }

func (p *ProgressParser) handleLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" || p.onProgress == nil || p.durationSeconds <= 0 {
		return
	}
	for _, key := range progressTimeKeys {
		if !strings.HasPrefix(line, key) {
			continue
		}
		v, err := strconv.ParseInt(strings.TrimPrefix(line, key), 10, 64)
		if err != nil || v < 0 {
			return
		}
		pct := ProgressPercent(v, p.durationSeconds)
		if pct > p.last {
			p.last = pct
			p.onProgress(pct)
		}
		return
	}
}
