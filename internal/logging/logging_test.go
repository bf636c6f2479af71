package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_jsonFields(t *testing.T) {
	var buf bytes.Buffer
	log := Component(New("debug", "json", &buf), "cache")
	log.Info().Int("removed", 3).Msg("evicted")
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("not JSON: %v (%q)", err, buf.String())
	}
	if line["component"] != "cache" || line["app"] != "mediadl" || line["message"] != "evicted" {
		t.Errorf("unexpected fields: %v", line)
	}
}

func TestNew_levelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := New("warn", "json", &buf)
	log.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn: %q", buf.String())
	}
	log.Warn().Msg("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn should pass")
	}
}

func TestNew_badLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New("loud", "json", &buf)
	log.Debug().Msg("hidden")
	log.Info().Msg("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestNew_console(t *testing.T) {
	var buf bytes.Buffer
	log := New("info", "console", &buf)
	log.Info().Msg("hello")
	if !strings.Contains(buf.String(), "hello") || strings.HasPrefix(buf.String(), "{") {
		t.Errorf("console output: %q", buf.String())
	}
}
