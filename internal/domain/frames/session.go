package frames

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/framehost/internal/channel"
	"github.com/GriffinCanCode/framehost/internal/domain/program"
	"github.com/GriffinCanCode/framehost/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/framehost/internal/shared/id"
)

var (
	ErrNotFound         = errors.New("frame not found")
	ErrNotReady         = errors.New("frame is not ready")
	ErrReadOnly         = errors.New("frame is not writable")
	ErrUnsupportedEvent = errors.New("only keydown and keyup events are forwarded")
	ErrAttached         = errors.New("a frame is already attached")
	ErrDetached         = errors.New("no frame attached")
	ErrClosed           = errors.New("frame session is closed")
)

// Notification types sent to host subscribers.
const (
	NotifyReady        = "ready"
	NotifyError        = "error"
	NotifyScreenshot   = "screenshot"
	NotifyEvent        = "event"
	NotifyUnclassified = "message"
	NotifyClosed       = "closed"
)

// Report is an error report as shown to the host UI.
type Report struct {
	Error     string `json:"error"`
	Traceback string `json:"traceback,omitempty"`
	Line      int    `json:"line,omitempty"`
}

// EventInfo is an event relayed by the frame.
type EventInfo struct {
	Type   string         `json:"type"`
	Which  int            `json:"which,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Notification is pushed to host subscribers for every accepted payload.
type Notification struct {
	Type       string            `json:"type"`
	FrameID    id.FrameID        `json:"frame_id"`
	Report     *Report           `json:"report,omitempty"`
	Screenshot *ScreenshotRecord `json:"screenshot,omitempty"`
	Event      *EventInfo        `json:"event,omitempty"`
	Value      any               `json:"value,omitempty"`
	Timestamp  int64             `json:"timestamp"`
}

// Info is a point-in-time view of a session.
type Info struct {
	ID             id.FrameID `json:"id"`
	Origin         string     `json:"origin"`
	Language       string     `json:"language"`
	IndentWidth    int        `json:"indent_width"`
	Writable       bool       `json:"writable"`
	Ready          bool       `json:"ready"`
	Pending        int        `json:"pending"`
	Attached       bool       `json:"attached"`
	HaveScreenshot bool       `json:"have_screenshot"`
	LastReport     *Report    `json:"last_report,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Session is the host side of one embedded frame.
type Session struct {
	ID        id.FrameID
	Writable  bool
	CreatedAt time.Time

	origin  string
	prog    *program.Program
	channel *channel.Channel
	store   ScreenshotStore
	metrics *monitoring.Metrics
	logger  *zap.Logger

	// tmu guards the attached transport and frame. It is taken inside the
	// channel lock, so it must never be held while calling into the channel.
	tmu       sync.RWMutex
	transport channel.Transport
	frame     Stopper
	ended     bool

	mu             sync.Mutex
	haveScreenshot bool
	lastReport     *Report
	subscribers    map[int]chan Notification
	nextSub        int
	closed         bool
}

// Stopper is a running in-process frame bound to a session.
type Stopper interface {
	Stop()
}

func newSession(frameID id.FrameID, prog *program.Program, origin string, writable bool, store ScreenshotStore, metrics *monitoring.Metrics, logger *zap.Logger) *Session {
	s := &Session{
		ID:          frameID,
		prog:        prog,
		Writable:    writable,
		CreatedAt:   time.Now(),
		origin:      origin,
		store:       store,
		metrics:     metrics,
		logger:      logger,
		subscribers: make(map[int]chan Notification),
	}

	reporter := program.NewReporter(prog, func(lang program.Language, mapped bool) {
		metrics.RecordErrorReport(string(lang), mapped)
	})
	s.channel = channel.New(
		channel.TransportFunc(s.post),
		origin,
		channel.WithHandler(s.handle),
		channel.WithErrorNormalizer(reporter.Normalize),
		channel.WithObserver(metrics.ChannelObserver()),
		channel.WithLogger(logger),
	)
	return s
}

// Origin returns the only origin the frame may speak from.
func (s *Session) Origin() string {
	return s.origin
}

// Program returns the program loaded into the frame.
func (s *Session) Program() *program.Program {
	return s.prog
}

// Ready reports whether the frame completed its handshake.
func (s *Session) Ready() bool {
	return s.channel.Ready()
}

// Attach binds the frame's transport. Only one transport may be attached
// at a time; the returned func detaches it.
func (s *Session) Attach(t channel.Transport) (func(), error) {
	s.tmu.Lock()
	defer s.tmu.Unlock()

	if s.ended {
		return nil, ErrClosed
	}
	if s.transport != nil {
		return nil, ErrAttached
	}
	s.transport = t
	s.logger.Debug("Frame attached")

	var once sync.Once
	return func() {
		once.Do(func() {
			s.tmu.Lock()
			if s.transport == t {
				s.transport = nil
			}
			s.tmu.Unlock()
			s.logger.Debug("Frame detached")
		})
	}, nil
}

// Attached reports whether a frame transport is bound.
func (s *Session) Attached() bool {
	s.tmu.RLock()
	defer s.tmu.RUnlock()
	return s.transport != nil
}

func (s *Session) post(data []byte, targetOrigin string) error {
	s.tmu.RLock()
	t := s.transport
	s.tmu.RUnlock()

	if t == nil {
		return ErrDetached
	}
	return t.PostMessage(data, targetOrigin)
}

// Receive hands a message from the frame to the channel.
func (s *Session) Receive(ev channel.RawEvent) {
	s.channel.Receive(ev)
}

// SetFrame records the in-process frame running for this session, stopping
// the previous one. On a closed session f is stopped at once.
func (s *Session) SetFrame(f Stopper) {
	s.tmu.Lock()
	if s.ended {
		s.tmu.Unlock()
		if f != nil {
			f.Stop()
		}
		return
	}
	prev := s.frame
	s.frame = f
	s.tmu.Unlock()

	if prev != nil {
		prev.Stop()
	}
}

// RequestScreenshot asks the frame for a screenshot.
func (s *Session) RequestScreenshot() error {
	if !s.Writable {
		return ErrReadOnly
	}
	if !s.channel.Ready() {
		return ErrNotReady
	}
	return s.channel.Send(channel.ScreenshotRequest{Screenshot: true})
}

// ForwardKey relays a keyboard event to the frame. Only keydown and keyup
// are forwarded, and only once the frame is ready.
func (s *Session) ForwardKey(eventType string, which int) error {
	if eventType != "keydown" && eventType != "keyup" {
		return ErrUnsupportedEvent
	}
	if !s.channel.Ready() {
		return ErrNotReady
	}
	return s.channel.Send(channel.EventMessage{
		Event: channel.EventData{Type: eventType, Which: which},
	})
}

// Screenshot returns the persisted screenshot.
func (s *Session) Screenshot(ctx context.Context) (ScreenshotRecord, error) {
	return s.store.Latest(ctx, s.ID)
}

// LastReport returns the most recent error report, if any.
func (s *Session) LastReport() *Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastReport == nil {
		return nil
	}
	r := *s.lastReport
	return &r
}

// Info returns a snapshot of the session.
func (s *Session) Info() Info {
	info := Info{
		ID:          s.ID,
		Origin:      s.origin,
		Language:    string(s.prog.Language),
		IndentWidth: s.prog.IndentWidth,
		Writable:    s.Writable,
		Ready:       s.channel.Ready(),
		Pending:     s.channel.Pending(),
		Attached:    s.Attached(),
		LastReport:  s.LastReport(),
		CreatedAt:   s.CreatedAt,
	}
	s.mu.Lock()
	info.HaveScreenshot = s.haveScreenshot
	s.mu.Unlock()
	return info
}

// Subscribe registers a host listener. Notifications are dropped for a
// subscriber whose buffer is full. The returned func unsubscribes.
func (s *Session) Subscribe(buffer int) (<-chan Notification, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Notification, buffer)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	key := s.nextSub
	s.nextSub++
	s.subscribers[key] = ch
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subscribers[key]; ok {
			delete(s.subscribers, key)
			close(sub)
		}
	}
}

func (s *Session) handle(p channel.Payload) {
	s.metrics.RecordPayload(p.Kind())

	switch p := p.(type) {
	case channel.Handshake:
		s.logger.Info("Frame ready")
		s.notify(Notification{Type: NotifyReady})

	case channel.Screenshot:
		s.persistScreenshot(p)

	case channel.ErrorReport:
		clean := program.Sanitize(p)
		report := &Report{Error: clean.Error, Traceback: clean.Traceback, Line: clean.Line}
		s.mu.Lock()
		s.lastReport = report
		s.mu.Unlock()
		s.logger.Info("Frame reported error", zap.String("error", p.Error), zap.Int("line", p.Line))
		r := *report
		s.notify(Notification{Type: NotifyError, Report: &r})

	case channel.Event:
		s.notify(Notification{Type: NotifyEvent, Event: &EventInfo{Type: p.Type, Which: p.Which, Fields: p.Fields}})

	case channel.Unclassified:
		s.notify(Notification{Type: NotifyUnclassified, Value: p.Value})
	}
}

func (s *Session) persistScreenshot(p channel.Screenshot) {
	s.mu.Lock()
	allowed := s.Writable && (!p.Auto || !s.haveScreenshot)
	s.mu.Unlock()

	if !allowed {
		s.metrics.RecordScreenshot("skipped")
		return
	}

	data, err := DecodeScreenshot(p.Data)
	if err != nil {
		s.metrics.RecordScreenshot("invalid")
		s.logger.Warn("Discarding screenshot", zap.Error(err))
		return
	}
	rec, err := s.store.Put(context.Background(), s.ID, data, p.Auto)
	if err != nil {
		s.metrics.RecordScreenshot("failed")
		s.logger.Error("Failed to store screenshot", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.haveScreenshot = true
	s.mu.Unlock()

	s.metrics.RecordScreenshot("stored")
	s.logger.Debug("Screenshot stored",
		zap.String("record", rec.ID),
		zap.String("mime", rec.MIME),
		zap.Bool("auto", rec.Auto),
	)
	s.notify(Notification{Type: NotifyScreenshot, Screenshot: &rec})
}

func (s *Session) notify(n Notification) {
	n.FrameID = s.ID
	n.Timestamp = time.Now().Unix()

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, sub := range s.subscribers {
		select {
		case sub <- n:
		default:
			s.logger.Warn("Subscriber buffer full, dropping notification",
				zap.Int("subscriber", key),
				zap.String("type", n.Type),
			)
		}
	}
}

// Close stops any in-process frame, closes the channel and ends every
// subscription.
func (s *Session) Close() error {
	s.tmu.Lock()
	s.ended = true
	prev := s.frame
	s.frame = nil
	s.tmu.Unlock()
	if prev != nil {
		prev.Stop()
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.notify(Notification{Type: NotifyClosed})

	s.mu.Lock()
	for key, sub := range s.subscribers {
		delete(s.subscribers, key)
		close(sub)
	}
	s.mu.Unlock()

	_ = s.store.Delete(context.Background(), s.ID)
	return s.channel.Close()
}
