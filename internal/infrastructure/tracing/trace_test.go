package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestStartSpanContinuesTrace(t *testing.T) {
	tracer := New("test", nil)
	defer tracer.Close()

	parent, ctx := tracer.StartSpan(context.Background(), "parent")
	child, childCtx := tracer.StartSpan(ctx, "child")

	assert.Equal(t, parent.TraceID, child.TraceID)
	assert.Equal(t, parent.SpanID, child.ParentID)
	assert.Equal(t, parent.TraceID, GetTraceID(childCtx))

	headers := map[string]string{}
	InjectTraceContext(childCtx, headers)
	traceID, spanID := ExtractTraceContext(headers)
	assert.Equal(t, child.TraceID, traceID)
	assert.Equal(t, child.SpanID, spanID)
}

func TestHTTPMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.DebugLevel)
	tracer := New("test", zap.New(core))

	router := gin.New()
	router.Use(HTTPMiddleware(tracer))
	router.GET("/frames/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	req := httptest.NewRequest(http.MethodGet, "/frames/frm_1", nil)
	req.Header.Set(HeaderTraceID, "req_incoming")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "req_incoming", w.Header().Get(HeaderTraceID))
	assert.NotEmpty(t, w.Header().Get(HeaderSpanID))

	tracer.Close()

	entries := logs.FilterMessage("span completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/frames/:id", fields["operation"])
	assert.Equal(t, "frm_1", fields["frame.id"])
	assert.Equal(t, "404", fields["http.status"])
}

func TestSubmitAfterClose(t *testing.T) {
	tracer := New("test", nil)
	tracer.Close()
	tracer.Close()

	span, _ := tracer.StartSpan(context.Background(), "late")
	span.Finish()
	assert.NotPanics(t, func() { tracer.Submit(span) })
}
