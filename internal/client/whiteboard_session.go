package client

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iparthanth/classroom-live/internal/domain"
)

// Tool selects how pointer strokes mutate the canvas.
type Tool string

const (
	ToolPen    Tool = "pen"
	ToolEraser Tool = "eraser"
)

// Default whiteboard cadence and canvas geometry.
const (
	DefaultAutosaveInterval = 30 * time.Second
	DefaultRefreshInterval  = 10 * time.Second
	DefaultCanvasWidth      = 960
	DefaultCanvasHeight     = 540
	DefaultStrokeWidth      = 3
)

// Whiteboard session errors.
var (
	// ErrReadOnlyBoard is returned when a non-teacher attempts to draw,
	// clear or save. Student and admin clients render a read-only canvas.
	ErrReadOnlyBoard = errors.New("client: whiteboard is read-only for this role")
	// ErrNoActiveStroke is returned by ExtendStroke outside a stroke.
	ErrNoActiveStroke = errors.New("client: no active stroke")
)

// WhiteboardView receives session events.
type WhiteboardView interface {
	// BoardUpdated fires after a viewer refresh has redrawn the canvas.
	BoardUpdated()
	// ShowSaveError surfaces a failed snapshot push as a transient error.
	ShowSaveError(err error)
}

// WhiteboardSessionConfig tunes the session; zero values take defaults.
type WhiteboardSessionConfig struct {
	AutosaveInterval time.Duration
	RefreshInterval  time.Duration
	CanvasWidth      int
	CanvasHeight     int
	Title            string
}

// WhiteboardSession is the client-side drawing state machine. Strokes
// mutate only the local canvas; they are never transmitted individually.
// Teacher sessions push full raster snapshots on an autosave timer and on
// explicit save/clear; viewer sessions pull the latest snapshot on a
// refresh timer. The session is Viewing by default and, for the teacher
// role only, enters Drawing between StartStroke and EndStroke.
type WhiteboardSession struct {
	api    *API
	roomID uint
	role   domain.Role
	view   WhiteboardView
	cfg    WhiteboardSessionConfig
	log    *logrus.Entry

	mu          sync.Mutex
	canvas      *Canvas
	tool        Tool
	color       color.NRGBA
	strokeWidth int
	drawing     bool
	lastPoint   image.Point
	dirty       bool
	strokeGen   uint64
	started     bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewWhiteboardSession creates a WhiteboardSession instance.
func NewWhiteboardSession(api *API, roomID uint, role domain.Role, view WhiteboardView, cfg WhiteboardSessionConfig) *WhiteboardSession {
	if api == nil {
		panic("API cannot be nil for WhiteboardSession")
	}
	if view == nil {
		panic("WhiteboardView cannot be nil for WhiteboardSession")
	}
	if cfg.AutosaveInterval <= 0 {
		cfg.AutosaveInterval = DefaultAutosaveInterval
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.CanvasWidth <= 0 {
		cfg.CanvasWidth = DefaultCanvasWidth
	}
	if cfg.CanvasHeight <= 0 {
		cfg.CanvasHeight = DefaultCanvasHeight
	}
	return &WhiteboardSession{
		api:         api,
		roomID:      roomID,
		role:        role,
		view:        view,
		cfg:         cfg,
		log:         logrus.WithFields(logrus.Fields{"component": "whiteboard_session", "room_id": roomID, "role": role}),
		canvas:      NewCanvas(cfg.CanvasWidth, cfg.CanvasHeight),
		tool:        ToolPen,
		color:       color.NRGBA{A: 255}, // black
		strokeWidth: DefaultStrokeWidth,
	}
}

// Start loads the current board and launches the role-appropriate timer:
// autosave for the teacher, passive refresh for everyone else. A failed
// initial load falls back to a blank canvas.
func (s *WhiteboardSession) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrSessionAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	if err := s.refresh(ctx); err != nil {
		s.log.WithError(err).Warn("Initial whiteboard load failed, starting from a blank canvas")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	if s.role == domain.RoleTeacher {
		go s.autosaveLoop(runCtx)
	} else {
		go s.refreshLoop(runCtx)
	}
	return nil
}

// Stop cancels the timers and waits for them to exit.
func (s *WhiteboardSession) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.started = false
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// SetTool selects pen or eraser.
func (s *WhiteboardSession) SetTool(tool Tool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tool == ToolPen || tool == ToolEraser {
		s.tool = tool
	}
}

// SetColor selects the pen color.
func (s *WhiteboardSession) SetColor(c color.NRGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.color = c
}

// SetStrokeWidth selects the stroke width in pixels.
func (s *WhiteboardSession) SetStrokeWidth(width int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if width > 0 {
		s.strokeWidth = width
	}
}

// StartStroke enters the Drawing state at p. Teacher only; other roles
// never get pointer-draw handlers attached.
func (s *WhiteboardSession) StartStroke(p image.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role != domain.RoleTeacher {
		return ErrReadOnlyBoard
	}
	s.drawing = true
	s.lastPoint = p
	s.canvas.Stamp(p, s.brushRadius(), s.color, s.tool == ToolEraser)
	s.dirty = true
	s.strokeGen++
	return nil
}

// ExtendStroke continues the active stroke to p.
func (s *WhiteboardSession) ExtendStroke(p image.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.drawing {
		return ErrNoActiveStroke
	}
	s.canvas.Line(s.lastPoint, p, s.brushRadius(), s.color, s.tool == ToolEraser)
	s.lastPoint = p
	s.dirty = true
	s.strokeGen++
	return nil
}

// EndStroke leaves the Drawing state. Purely local: nothing is
// transmitted per stroke.
func (s *WhiteboardSession) EndStroke() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drawing = false
}

// Save pushes the full current snapshot immediately.
func (s *WhiteboardSession) Save(ctx context.Context) error {
	if s.role != domain.RoleTeacher {
		return ErrReadOnlyBoard
	}
	s.mu.Lock()
	data, err := s.canvas.EncodeDataURL()
	gen := s.strokeGen
	s.mu.Unlock()
	if err != nil {
		s.view.ShowSaveError(err)
		return err
	}
	if err := s.api.SaveWhiteboard(ctx, s.roomID, s.cfg.Title, data); err != nil {
		s.view.ShowSaveError(err)
		return err
	}
	s.mu.Lock()
	// A stroke drawn while the upload was in flight is not in the blob
	// just pushed; the board stays dirty so the next autosave picks it
	// up.
	if s.strokeGen == gen {
		s.dirty = false
	}
	s.mu.Unlock()
	return nil
}

// ClearBoard blanks the canvas and immediately persists the blank
// snapshot: clearing is a drawing action every viewer must observe, not a
// local view reset. Confirmation is the UI's concern.
func (s *WhiteboardSession) ClearBoard(ctx context.Context) error {
	if s.role != domain.RoleTeacher {
		return ErrReadOnlyBoard
	}
	s.mu.Lock()
	s.canvas.Clear()
	s.dirty = true
	s.strokeGen++
	s.mu.Unlock()
	return s.Save(ctx)
}

// Snapshot exports the current canvas as the wire snapshot blob.
func (s *WhiteboardSession) Snapshot() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canvas.EncodeDataURL()
}

// Canvas exposes the raster for rendering and tests.
func (s *WhiteboardSession) Canvas() *Canvas {
	return s.canvas
}

// brushRadius derives the stamp radius; the eraser works at double the
// selected stroke width. Callers hold s.mu.
func (s *WhiteboardSession) brushRadius() int {
	w := s.strokeWidth
	if s.tool == ToolEraser {
		w *= 2
	}
	r := w / 2
	if r < 1 {
		r = 1
	}
	return r
}

func (s *WhiteboardSession) autosaveLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.AutosaveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			dirty := s.dirty
			s.mu.Unlock()
			if !dirty {
				continue
			}
			if err := s.Save(ctx); err != nil {
				s.log.WithError(err).Warn("Whiteboard autosave failed, retrying next tick")
			}
		}
	}
}

func (s *WhiteboardSession) refreshLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.refresh(ctx); err != nil {
				// Keep showing the last good board until the next tick.
				s.log.WithError(err).Debug("Whiteboard refresh failed, retrying next tick")
			}
		}
	}
}

// refresh pulls the latest snapshot and redraws the canvas. An empty blob
// means the room has never been drawn on and renders blank.
func (s *WhiteboardSession) refresh(ctx context.Context) error {
	data, err := s.api.LoadWhiteboard(ctx, s.roomID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if data == "" {
		s.canvas.Clear()
	} else if err := s.canvas.DecodeDataURL(data); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	s.view.BoardUpdated()
	return nil
}
