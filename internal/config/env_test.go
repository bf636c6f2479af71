package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeEnv(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadEnvFile_missing(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "nonexistent")); err != nil {
		t.Fatalf("missing file should return nil: %v", err)
	}
}

func TestLoadEnvFile_setsEnv(t *testing.T) {
	t.Setenv("MEDIADL_TEST_A", "")
	os.Unsetenv("MEDIADL_TEST_A")
	t.Setenv("MEDIADL_TEST_B", "")
	os.Unsetenv("MEDIADL_TEST_B")
	path := writeEnv(t, "MEDIADL_TEST_A=one\n# comment\n\nexport MEDIADL_TEST_B=two # trailing\n")
	if err := LoadEnvFile(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("MEDIADL_TEST_A"); got != "one" {
		t.Errorf("A = %q", got)
	}
	if got := os.Getenv("MEDIADL_TEST_B"); got != "two" {
		t.Errorf("B = %q", got)
	}
}

func TestLoadEnvFile_environmentWins(t *testing.T) {
	t.Setenv("MEDIADL_TEST_ADDR", ":9000")
	if err := LoadEnvFile(writeEnv(t, "MEDIADL_TEST_ADDR=:8080\n")); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("MEDIADL_TEST_ADDR"); got != ":9000" {
		t.Errorf("file overrode environment: %q", got)
	}
}

func TestParseEnvLine(t *testing.T) {
	for _, tc := range []struct {
		line, key, value string
		ok               bool
	}{
		{`X="hello world"`, "X", "hello world", true},
		{`X='a # b'`, "X", "a # b", true},
		{`X=a#b`, "X", "a#b", true},
		{`X=`, "X", "", true},
		{`  Y = z  `, "Y", "z", true},
		{`=novalue`, "", "", false},
		{`justtext`, "", "", false},
		{`BAD KEY=1`, "", "", false},
		{`# X=1`, "", "", false},
	} {
		key, value, ok := parseEnvLine(tc.line)
		if ok != tc.ok || key != tc.key || value != tc.value {
			t.Errorf("parseEnvLine(%q) = %q, %q, %v; want %q, %q, %v", tc.line, key, value, ok, tc.key, tc.value, tc.ok)
		}
	}
}
