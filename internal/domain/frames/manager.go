package frames

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/framehost/internal/domain/program"
	"github.com/GriffinCanCode/framehost/internal/infrastructure/config"
	"github.com/GriffinCanCode/framehost/internal/infrastructure/logging"
	"github.com/GriffinCanCode/framehost/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/framehost/internal/shared/id"
	"github.com/GriffinCanCode/framehost/internal/shared/utils"
)

// Defaults apply to sessions created without an explicit setting.
type Defaults struct {
	Origin      string
	Language    string
	IndentWidth int
	Writable    bool
}

// CreateRequest describes a new session. Nil and empty fields fall back to
// the named profile and then to the manager defaults.
type CreateRequest struct {
	Source      string
	Language    string
	Origin      string
	IndentWidth *int
	Writable    *bool
	Profile     string
}

// Stats summarizes the managed sessions.
type Stats struct {
	Total    int `json:"total"`
	Ready    int `json:"ready"`
	Attached int `json:"attached"`
}

// Manager owns all frame sessions.
type Manager struct {
	sessions sync.Map
	count    atomic.Int64

	defaults Defaults
	profiles map[string]config.Profile
	store    ScreenshotStore
	metrics  *monitoring.Metrics
	logger   *logging.Logger
}

// NewManager creates a session manager.
func NewManager(defaults Defaults, profiles map[string]config.Profile, store ScreenshotStore, metrics *monitoring.Metrics, logger *logging.Logger) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if profiles == nil {
		profiles = map[string]config.Profile{}
	}
	return &Manager{
		defaults: defaults,
		profiles: profiles,
		store:    store,
		metrics:  metrics,
		logger:   logger,
	}
}

// Create starts a new session.
func (m *Manager) Create(req CreateRequest) (*Session, error) {
	settings := m.defaults

	if req.Profile != "" {
		p, ok := m.profiles[req.Profile]
		if !ok {
			return nil, fmt.Errorf("unknown profile %q", req.Profile)
		}
		settings.Origin = p.Origin
		if p.Language != "" {
			settings.Language = p.Language
		}
		if p.IndentWidth != nil {
			settings.IndentWidth = *p.IndentWidth
		}
		settings.Writable = p.Writable
	}

	if req.Origin != "" {
		settings.Origin = req.Origin
	}
	if req.Language != "" {
		settings.Language = req.Language
	}
	if req.IndentWidth != nil {
		settings.IndentWidth = *req.IndentWidth
	}
	if req.Writable != nil {
		settings.Writable = *req.Writable
	}
	if err := utils.ValidateOrigin(settings.Origin); err != nil {
		return nil, fmt.Errorf("invalid frame origin: %w", err)
	}
	if err := utils.ValidateSource(req.Source); err != nil {
		return nil, fmt.Errorf("invalid program: %w", err)
	}

	prog, err := program.New(req.Source, settings.Language, settings.IndentWidth)
	if err != nil {
		return nil, fmt.Errorf("invalid program: %w", err)
	}

	frameID := id.NewFrameID()
	logger := m.logger.ForFrame(frameID.String())
	s := newSession(frameID, prog, settings.Origin, settings.Writable, m.store, m.metrics, logger)

	m.sessions.Store(frameID, s)
	m.metrics.IncFramesTotal()
	m.metrics.SetFramesActive(int(m.count.Add(1)))

	logger.Info("Frame session created",
		zap.String("origin", settings.Origin),
		zap.String("language", string(prog.Language)),
		zap.Bool("writable", settings.Writable),
	)
	return s, nil
}

// Get looks up a session.
func (m *Manager) Get(frameID id.FrameID) (*Session, error) {
	val, ok := m.sessions.Load(frameID)
	if !ok {
		return nil, ErrNotFound
	}
	return val.(*Session), nil
}

// List returns info for every session, oldest first.
func (m *Manager) List() []Info {
	infos := make([]Info, 0)
	m.sessions.Range(func(_, value any) bool {
		infos = append(infos, value.(*Session).Info())
		return true
	})
	// ULIDs sort by creation time
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Close tears a session down and forgets it.
func (m *Manager) Close(frameID id.FrameID) error {
	val, ok := m.sessions.LoadAndDelete(frameID)
	if !ok {
		return ErrNotFound
	}
	m.metrics.SetFramesActive(int(m.count.Add(-1)))

	s := val.(*Session)
	if err := s.Close(); err != nil {
		return fmt.Errorf("failed to close frame %s: %w", frameID, err)
	}
	m.logger.Info("Frame session closed", zap.String("frame_id", frameID.String()))
	return nil
}

// Shutdown closes every session.
func (m *Manager) Shutdown() {
	m.sessions.Range(func(key, _ any) bool {
		_ = m.Close(key.(id.FrameID))
		return true
	})
}

// Stats returns session counts.
func (m *Manager) Stats() Stats {
	var st Stats
	m.sessions.Range(func(_, value any) bool {
		s := value.(*Session)
		st.Total++
		if s.Ready() {
			st.Ready++
		}
		if s.Attached() {
			st.Attached++
		}
		return true
	})
	return st
}

// Profiles lists the configured profile names.
func (m *Manager) Profiles() []string {
	names := make([]string, 0, len(m.profiles))
	for name := range m.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
