package media

import (
	"context"
	"io"
)

type runCall struct {
	name string
	args []string
}

// fakeRunner replays canned output and records invocations.
type fakeRunner struct {
	stdout string
	stderr string
	chunks []string
	err    error
	calls  []runCall
}

func (f *fakeRunner) Run(_ context.Context, name string, args []string, stream io.Writer) (Result, error) {
	f.calls = append(f.calls, runCall{name: name, args: args})
	if stream != nil {
		for _, c := range f.chunks {
			_, _ = stream.Write([]byte(c))
		}
	}
	return Result{Stdout: f.stdout, Stderr: f.stderr}, f.err
}
