package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `{
		"app_name": "TestApp",
		"listen_ip": "127.0.0.1",
		"listen_port": 9090,
		"session_key": "test-session-key",
		"database_path": "/tmp/habits.db",
		"chat_timeout_seconds": 5
	}`)

	if err := LoadConfig(path); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if AppConfig.AppName != "TestApp" {
		t.Errorf("Expected AppName 'TestApp', got '%s'", AppConfig.AppName)
	}
	if AppConfig.ListenPort != 9090 {
		t.Errorf("Expected ListenPort 9090, got %d", AppConfig.ListenPort)
	}
	if AppConfig.SessionKey != "test-session-key" {
		t.Errorf("Expected SessionKey 'test-session-key', got '%s'", AppConfig.SessionKey)
	}
	if AppConfig.DatabasePath != "/tmp/habits.db" {
		t.Errorf("Expected DatabasePath '/tmp/habits.db', got '%s'", AppConfig.DatabasePath)
	}
	if AppConfig.ChatTimeoutSeconds != 5 {
		t.Errorf("Expected ChatTimeoutSeconds 5, got %d", AppConfig.ChatTimeoutSeconds)
	}
	// untouched keys keep their defaults
	if AppConfig.OpenAIModel != defaultOpenAIModel {
		t.Errorf("Expected default model, got '%s'", AppConfig.OpenAIModel)
	}
	if AppConfig.BusyTimeoutMS != 5000 {
		t.Errorf("Expected default busy timeout 5000, got %d", AppConfig.BusyTimeoutMS)
	}
	if AppConfig.Addr() != "127.0.0.1:9090" {
		t.Errorf("Unexpected Addr %s", AppConfig.Addr())
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeConfig(t, `{"session_key": "from-file", "listen_port": 9090}`)
	t.Setenv("GOODHABITS_SESSION_KEY", "from-env")
	t.Setenv("GOODHABITS_LISTEN_PORT", "7070")

	if err := LoadConfig(path); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if AppConfig.SessionKey != "from-env" {
		t.Errorf("Expected env session key, got '%s'", AppConfig.SessionKey)
	}
	if AppConfig.ListenPort != 7070 {
		t.Errorf("Expected env port 7070, got %d", AppConfig.ListenPort)
	}
}

func TestLoadConfigGeneratesSessionKey(t *testing.T) {
	path := writeConfig(t, `{"session_key": "CHANGE_ME_IN_PRODUCTION"}`)

	if err := LoadConfig(path); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if AppConfig.SessionKey == placeholderKey || len(AppConfig.SessionKey) != 64 {
		t.Errorf("Expected a generated 64-char hex key, got '%s'", AppConfig.SessionKey)
	}
}

func TestLoadConfigWithoutFile(t *testing.T) {
	if err := LoadConfig(""); err != nil {
		t.Fatalf("LoadConfig without file failed: %v", err)
	}
	if AppConfig.ListenPort != 8080 {
		t.Errorf("Expected default port 8080, got %d", AppConfig.ListenPort)
	}
}

func TestLoadConfigInvalidPath(t *testing.T) {
	err := LoadConfig("non-existent-path.json")
	if err == nil {
		t.Error("LoadConfig with non-existent path should have failed")
	}
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	path := writeConfig(t, `{ "invalid": json }`)

	err := LoadConfig(path)
	if err == nil {
		t.Error("LoadConfig with invalid JSON should have failed")
	}
}
