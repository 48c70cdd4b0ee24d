package utils

import (
	"io"
	"net/http"
)

// TextStreamWriter writes a chunked text/plain UTF-8 body, flushing after
// every write. Headers and the 200 status go out with the first write, so a
// caller can still answer with an error status until then.
type TextStreamWriter struct {
	w       http.ResponseWriter
	started bool
}

func NewTextStreamWriter(w http.ResponseWriter) *TextStreamWriter {
	return &TextStreamWriter{w: w}
}

func (s *TextStreamWriter) Start() {
	if s.started {
		return
	}
	s.started = true

	h := s.w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	h.Set("X-Content-Type-Options", "nosniff")
	s.w.WriteHeader(http.StatusOK)
}

func (s *TextStreamWriter) Write(text string) error {
	s.Start()

	if _, err := io.WriteString(s.w, text); err != nil {
		return err
	}
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

func (s *TextStreamWriter) Started() bool {
	return s.started
}
