package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zhubert/quill/paths"
)

// setupTestLogger initializes the logger against a temp file and returns its path.
func setupTestLogger(t *testing.T) string {
	t.Helper()
	Reset()
	t.Cleanup(Reset)

	logPath := filepath.Join(t.TempDir(), "test.log")
	if err := Init(logPath); err != nil {
		t.Fatalf("Failed to init logger: %v", err)
	}
	return logPath
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	return string(content)
}

func TestGet_StructuredLogging(t *testing.T) {
	logPath := setupTestLogger(t)

	Get().Info("user action", "action", "login", "email", "a@b.com")

	content := readLog(t, logPath)
	for _, want := range []string{"user action", "action=login", "email=a@b.com"} {
		if !strings.Contains(content, want) {
			t.Errorf("log should contain %q, got:\n%s", want, content)
		}
	}
}

func TestLogLevel_Filtering(t *testing.T) {
	logPath := setupTestLogger(t)
	SetDebug(false)

	Get().Debug("debug-filtered")
	Get().Info("info-visible")

	content := readLog(t, logPath)
	if strings.Contains(content, "debug-filtered") {
		t.Error("Debug message should be filtered at Info level")
	}
	if !strings.Contains(content, "info-visible") {
		t.Error("Info message should be visible at Info level")
	}
}

func TestSetDebug(t *testing.T) {
	logPath := setupTestLogger(t)
	SetDebug(true)

	Get().Debug("debug-visible")

	if !strings.Contains(readLog(t, logPath), "debug-visible") {
		t.Error("Debug message should be visible after SetDebug(true)")
	}
}

func TestWithComponent(t *testing.T) {
	logPath := setupTestLogger(t)

	WithComponent("api").Info("request sent", "path", "/api/v1/posts")

	content := readLog(t, logPath)
	if !strings.Contains(content, "component=api") {
		t.Error("Should contain 'component=api' attribute")
	}
	if !strings.Contains(content, "path=/api/v1/posts") {
		t.Error("Should contain path attribute")
	}
}

func TestWithRequest(t *testing.T) {
	logPath := setupTestLogger(t)

	WithRequest("req-123").With("component", "api").Info("response received", "status", 200)

	content := readLog(t, logPath)
	for _, want := range []string{"requestID=req-123", "component=api", "status=200"} {
		if !strings.Contains(content, want) {
			t.Errorf("log should contain %q", want)
		}
	}
}

func TestJSONFormat(t *testing.T) {
	t.Setenv("QUILL_LOG_FORMAT", "json")
	logPath := setupTestLogger(t)

	Get().Info("json line", "key", "value")

	content := readLog(t, logPath)
	if !strings.Contains(content, `"msg":"json line"`) {
		t.Errorf("expected JSON record, got:\n%s", content)
	}
}

func TestInit_Idempotent(t *testing.T) {
	first := setupTestLogger(t)
	second := filepath.Join(t.TempDir(), "second.log")

	if err := Init(second); err != nil {
		t.Fatalf("second Init returned error: %v", err)
	}
	Get().Info("goes to first")

	if !strings.Contains(readLog(t, first), "goes to first") {
		t.Error("second Init should not switch files")
	}
	if _, err := os.Stat(second); !os.IsNotExist(err) {
		t.Error("second Init should not create a file")
	}
}

func TestEnsureInit_DefaultPath(t *testing.T) {
	t.Setenv("QUILL_HOME", t.TempDir())
	paths.Reset()
	t.Cleanup(paths.Reset)
	Reset()
	t.Cleanup(Reset)

	Get().Info("default path test")

	p, err := DefaultLogPath()
	if err != nil {
		t.Fatalf("DefaultLogPath: %v", err)
	}
	if !strings.Contains(readLog(t, p), "default path test") {
		t.Error("expected record in default log file")
	}
}

func TestClearLogs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("QUILL_HOME", home)
	paths.Reset()
	t.Cleanup(paths.Reset)
	Reset()
	t.Cleanup(Reset)

	logsDir := filepath.Join(home, "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"quill.log", "quill.log.1", "unrelated.txt"} {
		if err := os.WriteFile(filepath.Join(logsDir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	count, err := ClearLogs()
	if err != nil {
		t.Fatalf("ClearLogs: %v", err)
	}
	if count != 2 {
		t.Errorf("ClearLogs removed %d files, want 2", count)
	}
	if _, err := os.Stat(filepath.Join(logsDir, "unrelated.txt")); err != nil {
		t.Error("ClearLogs should leave unrelated files alone")
	}
}

func TestConcurrent_InitAndGet(t *testing.T) {
	t.Setenv("QUILL_HOME", t.TempDir())
	paths.Reset()
	t.Cleanup(paths.Reset)

	for range 10 {
		Reset()
		logPath := filepath.Join(t.TempDir(), "concurrent.log")

		done := make(chan bool, 15)
		for range 5 {
			go func() {
				_ = Init(logPath)
				done <- true
			}()
			go func() {
				Get().Info("concurrent get")
				done <- true
			}()
			go func() {
				WithComponent("comp").Info("concurrent component")
				done <- true
			}()
		}
		for range 15 {
			<-done
		}
	}
	Reset()
}
