// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// Configure is once-only process-wide, so the whole package shares one buffer.
var logBuf bytes.Buffer

func TestMain(m *testing.M) {
	Configure(Config{Level: "debug", Output: &logBuf, Service: "auraxd-test"})
	m.Run()
}

func TestWithComponentEmitsComponentField(t *testing.T) {
	logBuf.Reset()

	logger := WithComponent("stream")
	logger.Info().Str(FieldEvent, "test.emit").Msg("hello")

	line := strings.TrimSpace(logBuf.String())
	if line == "" {
		t.Fatal("expected a log line to be written")
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		t.Fatalf("log line is not valid JSON: %v", err)
	}
	if fields["component"] != "stream" {
		t.Errorf("expected component=stream, got %v", fields["component"])
	}
	if fields["event"] != "test.emit" {
		t.Errorf("expected event=test.emit, got %v", fields["event"])
	}
	if fields["service"] != "auraxd-test" {
		t.Errorf("expected service=auraxd-test, got %v", fields["service"])
	}
}

func TestDeriveAttachesFields(t *testing.T) {
	logBuf.Reset()

	logger := Derive(func(ctx *zerolog.Context) {
		*ctx = ctx.Str(FieldPlatform, "pc")
	})
	logger.Info().Msg("derived")

	if !strings.Contains(logBuf.String(), `"platform":"pc"`) {
		t.Errorf("expected derived logger to carry platform field, got %q", logBuf.String())
	}
}
