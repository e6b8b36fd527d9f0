package tracing

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(Config{})
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.NotNil(t, p.Tracer())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_UnknownExporter(t *testing.T) {
	_, err := NewProvider(Config{Enabled: true, Exporter: "jaeger"})
	assert.Error(t, err)
}

func TestNewProvider_StdoutWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewProvider(Config{Enabled: true, Exporter: ExporterStdout, Writer: &buf})
	require.NoError(t, err)
	assert.True(t, p.Enabled())

	_, span := Start(context.Background(), "catalog.build")
	End(span, errors.New("boom"))
	require.NoError(t, p.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "catalog.build")
	assert.Contains(t, buf.String(), "boom")
}
