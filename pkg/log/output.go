package log

import (
	"io"
	"os"
	"sync"
)

// ConsoleOutput writes entries to stderr. ErrorLevel and above always go to
// stderr; everything else too unless Stdout is set.
type ConsoleOutput struct {
	mu     sync.Mutex
	Stdout bool
}

// NewConsoleOutput returns a stderr console output.
func NewConsoleOutput() *ConsoleOutput { return &ConsoleOutput{} }

func (o *ConsoleOutput) Write(entry *Entry, formatted []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	var w io.Writer = os.Stderr
	if o.Stdout && entry.Level < ErrorLevel {
		w = os.Stdout
	}
	_, err := w.Write(formatted)
	return err
}

func (o *ConsoleOutput) Close() error { return nil }

// WriterOutput writes formatted entries to an arbitrary writer.
type WriterOutput struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterOutput wraps w. Writes are serialized.
func NewWriterOutput(w io.Writer) *WriterOutput { return &WriterOutput{w: w} }

func (o *WriterOutput) Write(_ *Entry, formatted []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := o.w.Write(formatted)
	return err
}

func (o *WriterOutput) Close() error {
	if c, ok := o.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// FileOutput appends entries to a file.
type FileOutput struct {
	*WriterOutput
}

// NewFileOutput opens (or creates) path for appending.
func NewFileOutput(path string) (*FileOutput, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileOutput{WriterOutput: NewWriterOutput(f)}, nil
}

// NullOutput discards everything.
type NullOutput struct{}

func (NullOutput) Write(*Entry, []byte) error { return nil }
func (NullOutput) Close() error               { return nil }
