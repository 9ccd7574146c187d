package sinks

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"harvest-and-haul/server/logging"
)

// ZstdJSONL writes newline-delimited JSON events through a zstd encoder, one
// file per sink lifetime. Suited for long sessions where raw JSONL gets
// bulky.
type ZstdJSONL struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

func NewZstdJSONL(path string) (*ZstdJSONL, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &ZstdJSONL{f: f, enc: enc, w: bufio.NewWriter(enc)}, nil
}

func (s *ZstdJSONL) Write(event logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return nil
	}
	data, err := json.Marshal(wireEvent(event))
	if err != nil {
		return err
	}
	if _, err := s.w.Write(data); err != nil {
		return err
	}
	return s.w.WriteByte('\n')
}

func (s *ZstdJSONL) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return nil
	}
	var firstErr error
	if err := s.w.Flush(); err != nil {
		firstErr = err
	}
	if err := s.enc.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.f.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	s.w = nil
	s.enc = nil
	s.f = nil
	return firstErr
}
