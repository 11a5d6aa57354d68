package frames

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/framehost/internal/infrastructure/config"
	"github.com/GriffinCanCode/framehost/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/framehost/internal/shared/id"
	"github.com/GriffinCanCode/framehost/internal/shared/utils"
)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func TestManagerCreateSettings(t *testing.T) {
	profiles := map[string]config.Profile{
		"glow": {Origin: "https://glow.test", Language: "glowscript", IndentWidth: intPtr(8), Writable: true},
		"bare": {Origin: "https://bare.test"},
	}
	mgr := NewManager(Defaults{Origin: testOrigin, Language: "javascript", IndentWidth: 4}, profiles, nil, nil, nil)

	tests := []struct {
		name         string
		req          CreateRequest
		wantOrigin   string
		wantLanguage string
		wantIndent   int
		wantWritable bool
		wantErr      bool
	}{
		{
			name:         "defaults",
			req:          CreateRequest{Source: "x = 1"},
			wantOrigin:   testOrigin,
			wantLanguage: "javascript",
			wantIndent:   4,
		},
		{
			name:         "profile",
			req:          CreateRequest{Source: "x = 1", Profile: "glow"},
			wantOrigin:   "https://glow.test",
			wantLanguage: "glowscript",
			wantIndent:   8,
			wantWritable: true,
		},
		{
			name:         "profile keeps defaults it does not set",
			req:          CreateRequest{Source: "x = 1", Profile: "bare"},
			wantOrigin:   "https://bare.test",
			wantLanguage: "javascript",
			wantIndent:   4,
		},
		{
			name: "explicit settings win over profile",
			req: CreateRequest{
				Source:      "x = 1",
				Profile:     "glow",
				Origin:      "https://other.test",
				Language:    "vpython",
				IndentWidth: intPtr(0),
				Writable:    boolPtr(false),
			},
			wantOrigin:   "https://other.test",
			wantLanguage: "vpython",
			wantIndent:   0,
		},
		{
			name:    "unknown profile",
			req:     CreateRequest{Source: "x", Profile: "nope"},
			wantErr: true,
		},
		{
			name:    "unsupported language",
			req:     CreateRequest{Source: "x", Language: "perl"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := mgr.Create(tt.req)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			info := s.Info()
			assert.Equal(t, tt.wantOrigin, info.Origin)
			assert.Equal(t, tt.wantLanguage, info.Language)
			assert.Equal(t, tt.wantIndent, info.IndentWidth)
			assert.Equal(t, tt.wantWritable, info.Writable)
			assert.False(t, info.Ready)
		})
	}

	assert.Equal(t, []string{"bare", "glow"}, mgr.Profiles())
}

func TestManagerValidatesRequest(t *testing.T) {
	mgr := NewManager(Defaults{Language: "javascript"}, nil, nil, nil, nil)

	tests := []struct {
		name    string
		req     CreateRequest
		wantErr string
	}{
		{"missing origin", CreateRequest{Source: "x"}, "invalid frame origin"},
		{"wildcard origin", CreateRequest{Source: "x", Origin: "*"}, "invalid frame origin"},
		{"origin with path", CreateRequest{Source: "x", Origin: "https://a.test/frame.html"}, "invalid frame origin"},
		{"nul in source", CreateRequest{Source: "a\x00", Origin: testOrigin}, "invalid program"},
		{"bad language", CreateRequest{Source: "x", Origin: testOrigin, Language: "cobol"}, "invalid program"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mgr.Create(tt.req)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
	assert.Equal(t, 0, mgr.Stats().Total)
}

func TestManagerLifecycle(t *testing.T) {
	metrics := monitoring.NewMetrics()
	mgr := NewManager(Defaults{Origin: testOrigin, Language: "javascript"}, nil, nil, metrics, nil)

	a, err := mgr.Create(CreateRequest{Source: "a"})
	require.NoError(t, err)
	b, err := mgr.Create(CreateRequest{Source: "b"})
	require.NoError(t, err)

	got, err := mgr.Get(a.ID)
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = mgr.Get(id.NewFrameID())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = b.Attach(&recordingTransport{})
	require.NoError(t, err)
	b.Receive(rawReady())

	list := mgr.List()
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)

	assert.Equal(t, Stats{Total: 2, Ready: 1, Attached: 1}, mgr.Stats())
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.FramesActive))

	require.NoError(t, mgr.Close(a.ID))
	assert.ErrorIs(t, mgr.Close(a.ID), ErrNotFound)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FramesActive))

	mgr.Shutdown()
	assert.Empty(t, mgr.List())
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.FramesActive))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.FramesTotal))
}

func TestManagerCloseDropsScreenshot(t *testing.T) {
	store := NewMemoryStore()
	mgr := NewManager(Defaults{Origin: testOrigin, Language: "javascript", Writable: true}, nil, store, nil, nil)
	s, err := mgr.Create(CreateRequest{Source: "x"})
	require.NoError(t, err)

	_, err = store.Put(context.Background(), s.ID, pngHeader, false)
	require.NoError(t, err)
	require.NoError(t, mgr.Close(s.ID))

	_, err = store.Latest(context.Background(), s.ID)
	assert.ErrorIs(t, err, ErrNoScreenshot)
}

func TestDecodeScreenshot(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(pngHeader)

	tests := []struct {
		name    string
		input   string
		want    []byte
		wantErr bool
	}{
		{name: "base64 data URL", input: "data:image/png;base64," + encoded, want: pngHeader},
		{name: "plain data URL", input: "data:text/plain,hello", want: []byte("hello")},
		{name: "bare base64", input: encoded, want: pngHeader},
		{name: "raw text", input: "not base64!", want: []byte("not base64!")},
		{name: "data URL without comma", input: "data:image/png", wantErr: true},
		{name: "corrupt base64 data URL", input: "data:image/png;base64,@@@", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeScreenshot(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	frameID := id.NewFrameID()

	_, err := store.Put(ctx, frameID, nil, false)
	assert.Error(t, err)

	first, err := store.Put(ctx, frameID, pngHeader, true)
	require.NoError(t, err)
	assert.Equal(t, "image/png", first.MIME)
	assert.Equal(t, len(pngHeader), first.Size)
	assert.Equal(t, utils.DefaultHasher().ETag(pngHeader), first.ETag)

	second, err := store.Put(ctx, frameID, []byte("plain text capture"), false)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	latest, err := store.Latest(ctx, frameID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Contains(t, latest.MIME, "text/plain")
}
