package media

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbe_ParsesMetadata(t *testing.T) {
	runner := &fakeRunner{stdout: `{"streams":[{"width":1920,"height":1080}],"format":{"duration":"125.731"}}`}
	p := NewProber("ffprobe", runner)

	meta, err := p.Probe(context.Background(), "/tmp/in.mov")
	require.NoError(t, err)
	require.NotNil(t, meta.Width)
	require.NotNil(t, meta.Height)
	require.NotNil(t, meta.DurationSeconds)
	assert.Equal(t, 1920, *meta.Width)
	assert.Equal(t, 1080, *meta.Height)
	assert.Equal(t, 125, *meta.DurationSeconds)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "ffprobe", runner.calls[0].name)
	assert.Equal(t, []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-show_entries", "format=duration",
		"-of", "json",
		"/tmp/in.mov",
	}, runner.calls[0].args)
}

func TestParseProbeOutput_MissingFields(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"no streams":   `{"format":{"duration":"3.2"}}`,
		"zero size":    `{"streams":[{"width":0,"height":0}]}`,
		"bad duration": `{"streams":[],"format":{"duration":"N/A"}}`,
	}
	for name, out := range cases {
		t.Run(name, func(t *testing.T) {
			meta, err := ParseProbeOutput(out)
			require.NoError(t, err)
			assert.Nil(t, meta.Width)
			assert.Nil(t, meta.Height)
			assert.Equal(t, 0, meta.HeightOrZero())
		})
	}

	meta, err := ParseProbeOutput(`{"format":{"duration":"3.9"}}`)
	require.NoError(t, err)
	require.NotNil(t, meta.DurationSeconds)
	assert.Equal(t, 3, *meta.DurationSeconds)

	meta, err = ParseProbeOutput(`{"format":{"duration":"-1"}}`)
	require.NoError(t, err)
	assert.Nil(t, meta.DurationSeconds)
}

func TestParseProbeOutput_InvalidJSON(t *testing.T) {
	_, err := ParseProbeOutput("not json")
	assert.ErrorIs(t, err, ErrProbeFailed)
}

func TestProbe_Failures(t *testing.T) {
	p := NewProber("ffprobe", &fakeRunner{err: &ProcessError{Command: "ffprobe", ExitCode: 1, Stderr: "moov atom not found"}})
	_, err := p.Probe(context.Background(), "in")
	assert.ErrorIs(t, err, ErrProbeFailed)
	assert.Contains(t, err.Error(), "moov atom not found")

	p = NewProber("ffprobe", &fakeRunner{err: &SpawnError{Command: "ffprobe", Err: errors.New("not found")}})
	_, err = p.Probe(context.Background(), "in")
	assert.ErrorIs(t, err, ErrProbeUnavailable)
}

func TestProber_Available(t *testing.T) {
	assert.ErrorIs(t, NewProber("/nonexistent/ffprobe", nil).Available(), ErrProbeUnavailable)
	assert.ErrorIs(t, NewProber("", nil).Available(), ErrProbeUnavailable)
}
