package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/retailpos/backoffice/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTracingTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return db
}

func TestRegisterDBTracing_Disabled(t *testing.T) {
	db := newTracingTestDB(t)

	err := RegisterDBTracing(db, config.TelemetryConfig{Enabled: true, DBTraceEnabled: false}, zaptest.NewLogger(t))

	require.NoError(t, err)
	assert.Nil(t, db.Callback().Query().Get("telemetry:after_query"))
}

func TestRegisterDBTracing_Enabled(t *testing.T) {
	db := newTracingTestDB(t)

	err := RegisterDBTracing(db, config.TelemetryConfig{
		Enabled:           true,
		DBTraceEnabled:    true,
		DBSlowQueryThresh: time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.NotNil(t, db.Callback().Query().Get("telemetry:after_query"))
	var one int
	require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestMarkSlowQuery(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	db := newTracingTestDB(t)

	run := func(threshold time.Duration) []attribute.KeyValue {
		ctx, span := tp.Tracer("test").Start(context.Background(), "query")
		ctx = context.WithValue(ctx, queryStartKey{}, time.Now().Add(-50*time.Millisecond))

		tx := db.Session(&gorm.Session{NewDB: true})
		tx.Statement.Context = ctx
		tx.Statement.Table = "sales_returns"
		markSlowQuery(tx, threshold)
		span.End()

		ended := recorder.Ended()
		return ended[len(ended)-1].Attributes()
	}

	attrs := run(10 * time.Millisecond)
	slow, ok := attrValue(attrs, "db.slow_query")
	require.True(t, ok)
	assert.True(t, slow.AsBool())
	table, _ := attrValue(attrs, "db.sql.table")
	assert.Equal(t, "sales_returns", table.AsString())

	attrs = run(time.Hour)
	_, ok = attrValue(attrs, "db.slow_query")
	assert.False(t, ok)
}

func TestEndSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	EndSpan(span, errors.New("boom"))

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "boom", ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1)
}
