package frames

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/GriffinCanCode/framehost/internal/shared/id"
	"github.com/GriffinCanCode/framehost/internal/shared/utils"
)

// ErrNoScreenshot is returned when a frame has no persisted screenshot.
var ErrNoScreenshot = errors.New("no screenshot stored")

// ScreenshotRecord is a persisted screenshot.
type ScreenshotRecord struct {
	ID        string     `json:"id"`
	FrameID   id.FrameID `json:"frame_id"`
	MIME      string     `json:"mime"`
	Size      int        `json:"size"`
	ETag      string     `json:"etag"`
	Auto      bool       `json:"auto"`
	CreatedAt time.Time  `json:"created_at"`
	Data      []byte     `json:"-"`
}

// ScreenshotStore persists the latest screenshot of each frame.
type ScreenshotStore interface {
	Put(ctx context.Context, frameID id.FrameID, data []byte, auto bool) (ScreenshotRecord, error)
	Latest(ctx context.Context, frameID id.FrameID) (ScreenshotRecord, error)
	Delete(ctx context.Context, frameID id.FrameID) error
}

// MemoryStore is an in-memory ScreenshotStore keeping one record per frame.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[id.FrameID]ScreenshotRecord
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[id.FrameID]ScreenshotRecord)}
}

// Put replaces the frame's screenshot.
func (s *MemoryStore) Put(_ context.Context, frameID id.FrameID, data []byte, auto bool) (ScreenshotRecord, error) {
	if len(data) == 0 {
		return ScreenshotRecord{}, fmt.Errorf("empty screenshot for %s", frameID)
	}
	rec := ScreenshotRecord{
		ID:        uuid.New().String(),
		FrameID:   frameID,
		MIME:      mimetype.Detect(data).String(),
		Size:      len(data),
		ETag:      utils.DefaultHasher().ETag(data),
		Auto:      auto,
		CreatedAt: time.Now(),
		Data:      append([]byte(nil), data...),
	}

	s.mu.Lock()
	s.records[frameID] = rec
	s.mu.Unlock()
	return rec, nil
}

// Latest returns the frame's screenshot or ErrNoScreenshot.
func (s *MemoryStore) Latest(_ context.Context, frameID id.FrameID) (ScreenshotRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[frameID]
	if !ok {
		return ScreenshotRecord{}, ErrNoScreenshot
	}
	return rec, nil
}

// Delete forgets the frame's screenshot.
func (s *MemoryStore) Delete(_ context.Context, frameID id.FrameID) error {
	s.mu.Lock()
	delete(s.records, frameID)
	s.mu.Unlock()
	return nil
}

// DecodeScreenshot turns screenshot data sent by a frame into bytes. Data
// URLs are decoded; anything else is tried as standard base64 and otherwise
// kept as is.
func DecodeScreenshot(data string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(data, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, fmt.Errorf("malformed data URL")
		}
		if strings.HasSuffix(meta, ";base64") {
			b, err := base64.StdEncoding.DecodeString(payload)
			if err != nil {
				return nil, fmt.Errorf("failed to decode data URL: %w", err)
			}
			return b, nil
		}
		return []byte(payload), nil
	}
	if b, err := base64.StdEncoding.DecodeString(data); err == nil {
		return b, nil
	}
	return []byte(data), nil
}
