package testutil

import (
	"encoding/json"
	"errors"
	"sync"

	"go_ingest_backend/models"
)

// Frame is one decoded stream event as a client sees it.
type Frame struct {
	Type models.EventType `json:"type"`
	Data json.RawMessage  `json:"data"`
}

func (f Frame) FileID() string {
	var p struct {
		FileID string `json:"fileId"`
	}
	_ = json.Unmarshal(f.Data, &p)
	return p.FileID
}

// FrameSink is a stream sink that records frames. With FailAfter > 0 every send
// after that many frames fails.
type FrameSink struct {
	FailAfter int

	mu     sync.Mutex
	frames []Frame
}

func (s *FrameSink) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAfter > 0 && len(s.frames) >= s.FailAfter {
		return errors.New("broken pipe")
	}
	var f Frame
	if err := json.Unmarshal(frame, &f); err != nil {
		return err
	}
	s.frames = append(s.frames, f)
	return nil
}

func (s *FrameSink) Ping() error { return nil }

func (s *FrameSink) Frames() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Frame(nil), s.frames...)
}

func (s *FrameSink) Types() []models.EventType {
	frames := s.Frames()
	out := make([]models.EventType, 0, len(frames))
	for _, f := range frames {
		out = append(out, f.Type)
	}
	return out
}
