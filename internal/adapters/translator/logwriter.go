package translator

import "bytes"

// logWriter forwards complete lines to emit and remembers the last few.
// os/exec writes each stream from a single goroutine.
type logWriter struct {
	emit    func(string)
	pending []byte
	tail    []string
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.pending = append(w.pending, p...)
	for {
		i := bytes.IndexByte(w.pending, '\n')
		if i < 0 {
			break
		}
		w.line(string(bytes.TrimSuffix(w.pending[:i], []byte("\r"))))
		w.pending = w.pending[i+1:]
	}
	return len(p), nil
}

// Flush emits a trailing partial line.
func (w *logWriter) Flush() {
	if len(w.pending) > 0 {
		w.line(string(w.pending))
		w.pending = nil
	}
}

// Tail returns the last lines written, newline separated.
func (w *logWriter) Tail() string {
	var buf bytes.Buffer
	for i, l := range w.tail {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(l)
	}
	return buf.String()
}

func (w *logWriter) line(s string) {
	if s == "" {
		return
	}
	w.emit(s)
	w.tail = append(w.tail, s)
	if len(w.tail) > tailLines {
		w.tail = w.tail[1:]
	}
}
