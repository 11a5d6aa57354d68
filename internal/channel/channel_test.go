package channel

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrigin = "https://sandbox.example.com"

type recordingTransport struct {
	mu      sync.Mutex
	sent    []string
	origins []string
	err     error
}

func (r *recordingTransport) PostMessage(data []byte, targetOrigin string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, string(data))
	r.origins = append(r.origins, targetOrigin)
	return nil
}

func (r *recordingTransport) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent...)
}

type countingObserver struct {
	queued, delivered, failed, handshakes int
	dropped                               map[DropReason]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{dropped: make(map[DropReason]int)}
}

func (o *countingObserver) MessageQueued()              { o.queued++ }
func (o *countingObserver) MessageDelivered()           { o.delivered++ }
func (o *countingObserver) DeliveryFailed()             { o.failed++ }
func (o *countingObserver) MessageDropped(r DropReason) { o.dropped[r]++ }
func (o *countingObserver) HandshakeCompleted()         { o.handshakes++ }

func handshake() RawEvent {
	return RawEvent{Origin: testOrigin, Data: []byte(`{"ready":true}`)}
}

func newTestChannel(opts ...Option) (*Channel, *recordingTransport, *[]Payload) {
	transport := &recordingTransport{}
	var got []Payload
	opts = append([]Option{WithHandler(func(p Payload) { got = append(got, p) })}, opts...)
	return New(transport, testOrigin, opts...), transport, &got
}

func TestSendQueuesUntilReady(t *testing.T) {
	ch, transport, _ := newTestChannel()

	require.NoError(t, ch.SendRaw([]byte("A")))
	require.NoError(t, ch.SendRaw([]byte("B")))

	assert.Empty(t, transport.messages())
	assert.Equal(t, 2, ch.Pending())
	assert.False(t, ch.Ready())

	ch.Receive(handshake())

	assert.True(t, ch.Ready())
	assert.Equal(t, 0, ch.Pending())
	assert.Equal(t, []string{"A", "B"}, transport.messages())
	assert.Equal(t, []string{testOrigin, testOrigin}, transport.origins)
}

func TestOrderingAcrossHandshake(t *testing.T) {
	ch, transport, _ := newTestChannel()

	for _, m := range []string{"1", "2", "3"} {
		require.NoError(t, ch.SendRaw([]byte(m)))
	}
	ch.Receive(handshake())
	require.NoError(t, ch.SendRaw([]byte("4")))

	assert.Equal(t, []string{"1", "2", "3", "4"}, transport.messages())
}

func TestConcurrentSendPreservesPerSenderOrder(t *testing.T) {
	ch, transport, _ := newTestChannel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_ = ch.SendRaw([]byte{byte(i)})
		}
	}()
	ch.Receive(handshake())
	wg.Wait()

	got := transport.messages()
	require.Len(t, got, 100)
	for i, m := range got {
		assert.Equal(t, string([]byte{byte(i)}), m)
	}
}

func TestHandshakeAcceptedOnce(t *testing.T) {
	obs := newCountingObserver()
	ch, transport, got := newTestChannel(WithObserver(obs))

	require.NoError(t, ch.SendRaw([]byte("A")))
	ch.Receive(handshake())
	ch.Receive(handshake())

	assert.Equal(t, []string{"A"}, transport.messages())
	assert.Equal(t, 1, obs.handshakes)
	require.Len(t, *got, 2)
	assert.Equal(t, KindHandshake, (*got)[0].Kind())
	assert.Equal(t, KindUnclassified, (*got)[1].Kind())
}

func TestOriginIsolation(t *testing.T) {
	obs := newCountingObserver()
	ch, transport, got := newTestChannel(WithObserver(obs))
	require.NoError(t, ch.SendRaw([]byte("A")))

	ch.Receive(RawEvent{Origin: "https://evil.example.com", Data: []byte(`{"ready":true}`)})
	assert.False(t, ch.Ready())
	assert.Empty(t, transport.messages())

	ch.Receive(handshake())
	ch.Receive(RawEvent{Origin: "https://evil.example.com", Data: []byte(`{"error":"spoofed"}`)})

	require.Len(t, *got, 1)
	assert.Equal(t, KindHandshake, (*got)[0].Kind())
	assert.Equal(t, 2, obs.dropped[DropOrigin])
}

func TestHandshakeShape(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantReady bool
		reason    DropReason
	}{
		{name: "exact", data: `{"ready":true}`, wantReady: true},
		{name: "extra key", data: `{"ready":true,"x":1}`, reason: DropUnready},
		{name: "false", data: `{"ready":false}`, reason: DropUnready},
		{name: "truthy but not true", data: `{"ready":1}`, reason: DropUnready},
		{name: "string", data: `{"ready":"true"}`, reason: DropUnready},
		{name: "array", data: `[{"ready":true}]`, reason: DropUnready},
		{name: "empty object", data: `{}`, reason: DropUnready},
		{name: "error before ready", data: `{"error":"boom"}`, reason: DropUnready},
		{name: "malformed", data: `{"ready":`, reason: DropMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := newCountingObserver()
			ch, _, got := newTestChannel(WithObserver(obs))

			ch.Receive(RawEvent{Origin: testOrigin, Data: []byte(tt.data)})

			assert.Equal(t, tt.wantReady, ch.Ready())
			if tt.wantReady {
				assert.Len(t, *got, 1)
			} else {
				assert.Empty(t, *got)
				assert.Equal(t, 1, obs.dropped[tt.reason])
			}
		})
	}
}

func TestMalformedAfterReadyKeepsChannelAlive(t *testing.T) {
	ch, _, got := newTestChannel()
	ch.Receive(handshake())

	ch.Receive(RawEvent{Origin: testOrigin, Data: []byte(`not json`)})
	ch.Receive(RawEvent{Origin: testOrigin, Data: []byte(`{"error":"boom"}`)})

	require.Len(t, *got, 2)
	assert.Equal(t, ErrorReport{Error: "boom"}, (*got)[1])
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []Payload
	}{
		{
			name: "screenshot",
			data: `{"screenshot":"data:image/png;base64,AAAA"}`,
			want: []Payload{Screenshot{Data: "data:image/png;base64,AAAA"}},
		},
		{
			name: "auto screenshot",
			data: `{"screenshot":"img","autoscreenshot":true}`,
			want: []Payload{Screenshot{Data: "img", Auto: true}},
		},
		{
			name: "error with traceback",
			data: `{"error":"boom","traceback":"at x"}`,
			want: []Payload{ErrorReport{Error: "boom", Traceback: "at x"}},
		},
		{
			name: "empty error is falsy",
			data: `{"error":""}`,
			want: []Payload{Unclassified{Value: map[string]any{"error": ""}}},
		},
		{
			name: "event",
			data: `{"event":{"type":"keydown","which":65}}`,
			want: []Payload{Event{Type: "keydown", Which: 65, Fields: map[string]any{"type": "keydown", "which": float64(65)}}},
		},
		{
			name: "screenshot and error both emitted",
			data: `{"screenshot":"img","error":"boom","traceback":"at x"}`,
			want: []Payload{Screenshot{Data: "img"}, ErrorReport{Error: "boom", Traceback: "at x"}},
		},
		{
			name: "scalar",
			data: `42`,
			want: []Payload{Unclassified{Value: float64(42)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, _, got := newTestChannel()
			ch.Receive(handshake())
			ch.Receive(RawEvent{Origin: testOrigin, Data: []byte(tt.data)})

			require.Len(t, *got, 1+len(tt.want))
			assert.Equal(t, tt.want, (*got)[1:])
		})
	}
}

func TestErrorNormalizerApplied(t *testing.T) {
	ch, _, got := newTestChannel(WithErrorNormalizer(func(r ErrorReport) ErrorReport {
		r.Error = "normalized: " + r.Error
		r.Line = 3
		return r
	}))
	ch.Receive(handshake())
	ch.Receive(RawEvent{Origin: testOrigin, Data: []byte(`{"error":"boom"}`)})

	require.Len(t, *got, 2)
	assert.Equal(t, ErrorReport{Error: "normalized: boom", Line: 3}, (*got)[1])

	ch.Receive(RawEvent{Origin: testOrigin, Data: []byte(`{"error":"again","event":{"type":"keyup"}}`)})
	require.Len(t, *got, 4)
	assert.Equal(t, ErrorReport{Error: "normalized: again", Line: 3}, (*got)[2])
	assert.Equal(t, KindEvent, (*got)[3].Kind())
}

func TestSendMarshalsMessages(t *testing.T) {
	ch, transport, _ := newTestChannel()
	ch.Receive(handshake())

	require.NoError(t, ch.Send(ScreenshotRequest{Screenshot: true}))
	require.NoError(t, ch.Send(EventMessage{Event: EventData{Type: "keydown", Which: 32}}))

	assert.Equal(t, []string{
		`{"screenshot":true}`,
		`{"event":{"type":"keydown","which":32}}`,
	}, transport.messages())
}

func TestDeliveryFailureIsNotFatal(t *testing.T) {
	obs := newCountingObserver()
	ch, transport, _ := newTestChannel(WithObserver(obs))
	ch.Receive(handshake())

	transport.err = errors.New("connection reset")
	assert.NoError(t, ch.SendRaw([]byte("lost")))
	transport.err = nil
	assert.NoError(t, ch.SendRaw([]byte("kept")))

	assert.Equal(t, []string{"kept"}, transport.messages())
	assert.Equal(t, 1, obs.failed)
}

func TestHandlerMaySendOnReady(t *testing.T) {
	transport := &recordingTransport{}
	var ch *Channel
	ch = New(transport, testOrigin, WithHandler(func(p Payload) {
		if p.Kind() == KindHandshake {
			_ = ch.SendRaw([]byte("after"))
		}
	}))
	require.NoError(t, ch.SendRaw([]byte("before")))

	ch.Receive(handshake())

	assert.Equal(t, []string{"before", "after"}, transport.messages())
}

func TestClose(t *testing.T) {
	obs := newCountingObserver()
	ch, transport, got := newTestChannel(WithObserver(obs))
	require.NoError(t, ch.SendRaw([]byte("A")))

	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())

	assert.ErrorIs(t, ch.SendRaw([]byte("B")), ErrClosed)
	ch.Receive(handshake())

	assert.False(t, ch.Ready())
	assert.Empty(t, transport.messages())
	assert.Empty(t, *got)
	assert.Equal(t, 1, obs.dropped[DropClosed])
}
