package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	assert.NoError(t, os.Setenv("APP_ENV", "dev"))
	defer func() { assert.NoError(t, os.Unsetenv("APP_ENV")) }()
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithOptions("test", Options{Level: "warning", Format: "json", Out: &buf})
	require.NoError(t, err)
	l.Infof("hidden")
	l.Warnf("shown")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, `"component":"test"`)
}

func TestWithReplacesComponent(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithOptions("root", Options{Level: "DEBUG", Format: "json", Out: &buf})
	require.NoError(t, err)
	l.With("child").Debugf("hello")
	line := strings.TrimSpace(buf.String())
	assert.Contains(t, line, `"component":"child"`)
	assert.NotContains(t, line, `"component":"root"`)
	assert.Equal(t, 1, strings.Count(line, `"component"`))

	buf.Reset()
	l.With("child").With("grandchild").Infof("nested")
	line = strings.TrimSpace(buf.String())
	assert.Equal(t, 1, strings.Count(line, `"component"`))
	assert.Contains(t, line, `"component":"grandchild"`)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"DEBUG":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
		"Warning": zerolog.WarnLevel,
		"ERROR":   zerolog.ErrorLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("TRACE")
	assert.Error(t, err)
}
