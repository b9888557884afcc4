// SPDX-License-Identifier: MIT

package validate

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestValidator_URL(t *testing.T) {
	tests := []struct {
		name           string
		value          string
		allowedSchemes []string
		wantErr        bool
	}{
		{"valid http", "http://example.com", []string{"http", "https"}, false},
		{"valid https", "https://example.com", []string{"http", "https"}, false},
		{"empty url", "", []string{"http"}, true},
		{"no host", "http://", []string{"http"}, true},
		{"invalid scheme", "ftp://example.com", []string{"http", "https"}, true},
		{"no scheme", "example.com", []string{"http"}, true},
		{"with port", "http://example.com:8080", []string{"http"}, false},
		{"with path", "http://example.com/path", []string{"http"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.URL("testURL", tt.value, tt.allowedSchemes)

			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestValidator_Range(t *testing.T) {
	tests := []struct {
		name    string
		value   int
		min     int
		max     int
		wantErr bool
	}{
		{"in range", 5, 1, 10, false},
		{"at min", 1, 1, 10, false},
		{"at max", 10, 1, 10, false},
		{"below min", 0, 1, 10, true},
		{"above max", 11, 1, 10, true},
		{"negative range", -5, -10, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Range("testValue", tt.value, tt.min, tt.max)

			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestValidator_Directory(t *testing.T) {
	tmpDir := t.TempDir()
	nonExistentDir := filepath.Join(tmpDir, "nonexistent")

	tests := []struct {
		name      string
		path      string
		mustExist bool
		wantErr   bool
	}{
		{"existing dir", tmpDir, true, false},
		{"existing dir no mustExist", tmpDir, false, false},
		{"nonexistent mustExist", nonExistentDir, true, true},
		{"nonexistent create", filepath.Join(tmpDir, "autocreate"), false, false},
		{"empty path", "", false, true},
		{"path traversal", "../etc", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Directory("testDir", tt.path, tt.mustExist)

			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestValidator_NotEmpty(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"non-empty", "hello", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"tab only", "\t", true},
		{"newline only", "\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.NotEmpty("testField", tt.value)

			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestValidator_OneOf(t *testing.T) {
	allowed := []string{"red", "green", "blue"}

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"valid red", "red", false},
		{"valid green", "green", false},
		{"valid blue", "blue", false},
		{"invalid yellow", "yellow", true},
		{"invalid empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.OneOf("testField", tt.value, allowed)

			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestValidator_Positive(t *testing.T) {
	tests := []struct {
		name    string
		value   int
		wantErr bool
	}{
		{"positive 1", 1, false},
		{"positive 100", 100, false},
		{"zero", 0, true},
		{"negative", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Positive("testField", tt.value)

			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestValidator_MultipleErrors(t *testing.T) {
	v := New()

	v.ListenAddr("port", "nohost")     // Invalid
	v.URL("url", "", []string{"http"}) // Invalid
	v.NotEmpty("name", "")             // Invalid

	if v.IsValid() {
		t.Fatal("expected errors, got none")
	}

	errors := v.Errors()
	if len(errors) != 3 {
		t.Errorf("expected 3 errors, got %d", len(errors))
	}

	err := v.Err()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	errorMsg := err.Error()
	if !strings.Contains(errorMsg, "port") {
		t.Error("error message should mention 'port'")
	}
	if !strings.Contains(errorMsg, "url") {
		t.Error("error message should mention 'url'")
	}
	if !strings.Contains(errorMsg, "name") {
		t.Error("error message should mention 'name'")
	}
}

func TestValidator_Chaining(t *testing.T) {
	v := New()

	// Chain multiple validations
	v.URL("baseURL", "http://example.com", []string{"http", "https"})
	v.ListenAddr("listenAddr", "127.0.0.1:9090")
	v.Range("days", 7, 1, 14)
	v.Identifier("peer.appId", "org.example.webwidget")

	if !v.IsValid() {
		t.Errorf("unexpected errors: %v", v.Err())
	}
}

func TestValidator_DirectoryCreation(t *testing.T) {
	tmpDir := t.TempDir()
	newDir := filepath.Join(tmpDir, "auto", "create", "nested")

	v := New()
	v.Directory("testDir", newDir, false)

	if !v.IsValid() {
		t.Errorf("unexpected error: %v", v.Err())
	}

	// Check that directory was actually created
	if _, err := os.Stat(newDir); os.IsNotExist(err) {
		t.Error("directory was not created")
	}
}

func TestValidator_LogLevel(t *testing.T) {
	for _, level := range LogLevels {
		v := New()
		v.LogLevel("logLevel", level)
		if !v.IsValid() {
			t.Errorf("LogLevel(%q) rejected: %v", level, v.Err())
		}
	}

	for _, level := range []string{"", "invalid", "INFO", "fatal"} {
		v := New()
		v.LogLevel("logLevel", level)
		if v.IsValid() {
			t.Errorf("LogLevel(%q) accepted", level)
		}
		if errs := v.Errors(); len(errs) != 1 || errs[0].Field != "logLevel" {
			t.Errorf("LogLevel(%q) errors = %v", level, errs)
		}
	}
}

// Security regression tests for path traversal protection

func TestValidator_ListenAddr(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{"host and port", "127.0.0.1:9090", false},
		{"any host", ":9090", false},
		{"ephemeral port", "localhost:0", false},
		{"missing port", "localhost", true},
		{"port out of range", ":70000", true},
		{"non-numeric port", ":http", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.ListenAddr("metrics.listenAddr", tt.addr)
			if tt.wantErr == v.IsValid() {
				t.Errorf("ListenAddr(%q) valid=%v, wantErr=%v", tt.addr, v.IsValid(), tt.wantErr)
			}
		})
	}
}

func TestValidator_Identifier(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"app id", "org.example.webwidget", false},
		{"port name", "web_widget_port", false},
		{"empty", "", true},
		{"blank", "  ", true},
		{"slash", "a/b", true},
		{"backslash", `a\b`, true},
		{"nul", "a\x00b", true},
		{"leading dot", ".hidden", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Identifier("peer.port", tt.value)
			if tt.wantErr == v.IsValid() {
				t.Errorf("Identifier(%q) valid=%v, wantErr=%v", tt.value, v.IsValid(), tt.wantErr)
			}
		})
	}
}

func TestValidator_DurationAndFloatRange(t *testing.T) {
	v := New()
	v.Duration("peer.launchTimeout", 5*time.Second, 100*time.Millisecond, time.Minute)
	v.FloatRange("telemetry.samplingRate", 0.5, 0, 1)
	if !v.IsValid() {
		t.Fatalf("unexpected errors: %v", v.Err())
	}

	v.Duration("peer.notifyTimeout", 0, 100*time.Millisecond, time.Minute)
	v.FloatRange("telemetry.samplingRate", 1.5, 0, 1)
	if got := len(v.Errors()); got != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", got, v.Err())
	}
	if !strings.Contains(v.Err().Error(), "peer.notifyTimeout") {
		t.Errorf("error should name the field: %v", v.Err())
	}
}

func TestValidator_AbsolutePath(t *testing.T) {
	tmpDir := t.TempDir()

	v := New()
	v.AbsolutePath("bridge.socket", filepath.Join(tmpDir, "bridge.sock"))
	if !v.IsValid() {
		t.Fatalf("unexpected error: %v", v.Err())
	}

	v = New()
	v.AbsolutePath("bridge.socket", "relative.sock")
	if v.IsValid() {
		t.Error("expected error for relative path")
	}

	v = New()
	v.AbsolutePath("bridge.socket", filepath.Join(tmpDir, "missing", "bridge.sock"))
	if v.IsValid() {
		t.Error("expected error for missing parent")
	}
}

func TestValidationError_Single(t *testing.T) {
	v := New()
	v.NotEmpty("bridge.appId", "")
	var verr ValidationError
	if !errors.As(v.Err(), &verr) {
		t.Fatalf("expected ValidationError, got %T", v.Err())
	}
	if got, want := verr.Error(), "validation failed for bridge.appId: value cannot be empty"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
