// Package gui is the host "gui" record: a canvas shared by applications.
package gui

import (
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"furigo/furi"
	"furigo/kernel"
)

// ErrInUse is returned by Stop while applications hold the record open.
var ErrInUse = errors.New("gui: record still open")

// Service owns the canvas. Drawing calls serialize on a kernel mutex.
type Service struct {
	canvas *furi.Mutex[*Canvas]
	raw    *Canvas
	frames atomic.Uint32
}

// New returns a service with a cleared Width×Height canvas.
func New() *Service {
	c := NewCanvas(Width, Height)
	c.Fill(White)
	return &Service{canvas: furi.NewMutex(c), raw: c}
}

// Start creates a service and publishes it as the gui record.
func Start() *Service {
	s := New()
	kernel.RecordCreate(furi.RecordGUI, s)
	furi.Logger().Debug("gui started", zap.Int("width", Width), zap.Int("height", Height))
	return s
}

// Stop removes the gui record and frees the service.
func (s *Service) Stop() error {
	if !kernel.RecordDestroy(furi.RecordGUI) {
		return ErrInUse
	}
	s.canvas.Close()
	return nil
}

// Canvas returns the framebuffer. Read it only between Commit calls.
func (s *Service) Canvas() *Canvas { return s.raw }

// Draw runs fn with exclusive access to the canvas.
func (s *Service) Draw(fn func(c *Canvas)) error {
	return s.canvas.WithLock(func(c **Canvas) { fn(*c) })
}

// DrawText draws s in black with its top-left corner at (x, y).
func (s *Service) DrawText(x, y int16, text string) error {
	return s.Draw(func(c *Canvas) { DrawText(c, Font, x, y, text, Black) })
}

// Clear paints the canvas white.
func (s *Service) Clear() error {
	return s.Draw(func(c *Canvas) { c.Fill(White) })
}

// Commit flushes the canvas and counts a frame.
func (s *Service) Commit() error {
	var err error
	if lockErr := s.Draw(func(c *Canvas) { err = c.Display() }); lockErr != nil {
		return lockErr
	}
	if err != nil {
		return err
	}
	s.frames.Add(1)
	return nil
}

// Frames returns the number of committed frames.
func (s *Service) Frames() uint32 { return s.frames.Load() }
