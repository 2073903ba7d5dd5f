package pkg

import (
	"io"

	"go.uber.org/multierr"
)

// TeeWriter writes every message to all of its outputs. A failing output does not stop
// the others; its error is reported combined with the rest.
type TeeWriter struct {
	outputs []io.Writer
}

// NewTeeWriter skips nil outputs.
func NewTeeWriter(outputs ...io.Writer) *TeeWriter {
	tw := &TeeWriter{}
	for _, o := range outputs {
		if o != nil {
			tw.outputs = append(tw.outputs, o)
		}
	}
	return tw
}

func (tw *TeeWriter) Outputs() int {
	return len(tw.outputs)
}

// Write reports len(p) when at least one output took the whole message.
func (tw *TeeWriter) Write(p []byte) (int, error) {
	var errs error
	delivered := false
	for _, o := range tw.outputs {
		n, err := o.Write(p)
		if err == nil && n < len(p) {
			err = io.ErrShortWrite
		}
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		delivered = true
	}

	if !delivered {
		return 0, errs
	}
	return len(p), errs
}
