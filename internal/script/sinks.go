package script

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"

	"scriptterm/internal/bridge"
)

// outputSink is the interpreter's stdout. Each write becomes one Print on the
// intercepted console, or a log entry when no run holds the runtime.
type outputSink struct {
	rt *Runtime
}

func (s *outputSink) Write(p []byte) (int, error) {
	s.emit(string(p))
	return len(p), nil
}

func (s *outputSink) emit(text string) {
	if text == "" {
		return
	}
	if c := s.rt.activeConsole(); c != nil {
		c.Print(text)
		return
	}
	s.rt.logger.Info("script output outside a run", zap.String("text", text))
}

// inputSource is the interpreter's stdin. Every line is requested from the
// intercepted console; end of input reads as io.EOF.
type inputSource struct {
	rt *Runtime

	mu  sync.Mutex
	buf []byte
}

func (s *inputSource) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.buf) == 0 {
		c := s.rt.activeConsole()
		if c == nil {
			return 0, io.EOF
		}
		line, err := c.Input("")
		if errors.Is(err, bridge.ErrEndOfInput) {
			return 0, io.EOF
		}
		if err != nil {
			return 0, err
		}
		s.buf = append(append(s.buf[:0], line...), '\n')
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

// reset drops input left over from a previous run.
func (s *inputSource) reset() {
	s.mu.Lock()
	s.buf = nil
	s.mu.Unlock()
}

// logSink is the interpreter's stderr.
type logSink struct {
	logger *zap.Logger
}

func (s *logSink) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(bytes.TrimRight(p, "\n"), []byte("\n")) {
		if len(line) > 0 {
			s.logger.Warn("script stderr", zap.ByteString("line", line))
		}
	}
	return len(p), nil
}
