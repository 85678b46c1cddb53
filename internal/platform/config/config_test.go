package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Test environment variable keys.
const (
	testEnvPostgresDSN  = "POSTGRES_DSN"
	testEnvBotToken     = "BOT_TOKEN"
	testEnvAcceptGroups = "REPEATER_ACCEPT_GROUPS"
	testEnvGroupsFile   = "REPEATER_GROUPS_FILE"
	testEnvBehaviorQ    = "REPEATER_BEHAVIOR_Q"
)

// Test values.
const (
	testPostgresDSN = "postgres://localhost/test"
	testBotToken    = "123456:ABC-DEF"
	testErrLoad     = "Load() error = %v"
	testDefaultEnv  = "local"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()

	t.Setenv(testEnvPostgresDSN, testPostgresDSN)
	t.Setenv(testEnvBotToken, testBotToken)
}

func TestLoad_MissingRequired(t *testing.T) {
	// Clear all required vars
	os.Unsetenv(testEnvPostgresDSN)
	os.Unsetenv(testEnvBotToken)

	_, err := Load()
	if err == nil {
		t.Error("expected error for missing required env vars")
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if cfg.PostgresDSN != testPostgresDSN {
		t.Errorf("PostgresDSN = %q, want %q", cfg.PostgresDSN, testPostgresDSN)
	}

	if cfg.BotToken != testBotToken {
		t.Errorf("BotToken = %q, want %q", cfg.BotToken, testBotToken)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnvVars(t)

	// Explicitly unset variables that might be in .env to test actual defaults
	for _, key := range []string{
		"APP_ENV", "HEALTH_PORT", "REPEATER_TIME_WINDOW", "REPEATER_REPEAT_FREQ",
		"REPEATER_REPEAT_COUNT", testEnvBehaviorQ, "REPEATER_AVG_DELAY",
		"REPEATER_FROZEN_TIME", "IMAGE_MAX_BYTES", "RECORDER_ENABLED", testEnvGroupsFile,
	} {
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if cfg.AppEnv != testDefaultEnv {
		t.Errorf("AppEnv default = %q, want %q", cfg.AppEnv, testDefaultEnv)
	}

	if cfg.HealthPort != 8080 {
		t.Errorf("HealthPort default = %d, want %d", cfg.HealthPort, 8080)
	}

	rc := cfg.RepeaterCfg()

	if rc.TimeWindow != 140*time.Second {
		t.Errorf("TimeWindow default = %v, want %v", rc.TimeWindow, 140*time.Second)
	}

	if rc.RepeatFreq != 3 || rc.RepeatCount != 3 {
		t.Errorf("thresholds default = %d/%d, want 3/3", rc.RepeatFreq, rc.RepeatCount)
	}

	if rc.BehaviorQ != 0.8624 {
		t.Errorf("BehaviorQ default = %v, want %v", rc.BehaviorQ, 0.8624)
	}

	if rc.AvgDelay != 5*time.Second {
		t.Errorf("AvgDelay default = %v, want %v", rc.AvgDelay, 5*time.Second)
	}

	if rc.FrozenTime != 5*time.Minute {
		t.Errorf("FrozenTime default = %v, want %v", rc.FrozenTime, 5*time.Minute)
	}

	if cfg.PhotographerCfg().MaxBytes != 15000000 {
		t.Errorf("ImageMaxBytes default = %d, want %d", cfg.PhotographerCfg().MaxBytes, 15000000)
	}

	if !cfg.RecorderEnabled {
		t.Error("RecorderEnabled should default to true")
	}
}

func TestLoad_AcceptGroups(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv(testEnvAcceptGroups, "-1001,-1002")
	os.Unsetenv(testEnvGroupsFile)

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	expected := []int64{-1001, -1002}
	if len(cfg.AcceptGroups) != len(expected) {
		t.Fatalf("AcceptGroups length = %d, want %d", len(cfg.AcceptGroups), len(expected))
	}

	for i, want := range expected {
		if cfg.AcceptGroups[i] != want {
			t.Errorf("AcceptGroups[%d] = %d, want %d", i, cfg.AcceptGroups[i], want)
		}
	}

	groups := cfg.RepeaterCfg().Groups
	if len(groups) != 2 {
		t.Fatalf("RepeaterCfg groups = %d, want 2", len(groups))
	}

	if len(groups[-1001].ExceptSenders) != 0 {
		t.Error("group without rules should have empty exclusions")
	}
}

func TestLoad_GroupsFile(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv(testEnvAcceptGroups, "-1001")

	path := filepath.Join(t.TempDir(), "groups.yaml")
	content := `groups:
  -1001:
    except_senders: [42, 43]
    except_types: [Sticker]
    except_words: ["#noecho"]
  -1009:
    except_words: [ignored]
`

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write groups file: %v", err)
	}

	t.Setenv(testEnvGroupsFile, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	groups := cfg.RepeaterCfg().Groups

	rules, ok := groups[-1001]
	if !ok {
		t.Fatal("expected rules for -1001")
	}

	if len(rules.ExceptSenders) != 2 || rules.ExceptSenders[0] != 42 {
		t.Errorf("ExceptSenders = %v, want [42 43]", rules.ExceptSenders)
	}

	if len(rules.ExceptTypes) != 1 || rules.ExceptTypes[0] != "Sticker" {
		t.Errorf("ExceptTypes = %v, want [Sticker]", rules.ExceptTypes)
	}

	if len(rules.ExceptWords) != 1 || rules.ExceptWords[0] != "#noecho" {
		t.Errorf("ExceptWords = %v, want [#noecho]", rules.ExceptWords)
	}

	if _, ok := groups[-1009]; ok {
		t.Error("groups outside the accept list must not be exposed")
	}
}

func TestLoad_MissingGroupsFile(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv(testEnvGroupsFile, filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Error("expected error for missing groups file")
	}
}

func TestParseGroups_Invalid(t *testing.T) {
	if _, err := ParseGroups([]byte("groups: [not, a, map]")); err == nil {
		t.Error("expected error for malformed groups document")
	}

	groups, err := ParseGroups([]byte(""))
	if err != nil {
		t.Fatalf("ParseGroups(empty) error = %v", err)
	}

	if len(groups) != 0 {
		t.Errorf("ParseGroups(empty) = %v, want empty", groups)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "q too large", key: testEnvBehaviorQ, value: "1"},
		{name: "q zero", key: testEnvBehaviorQ, value: "0"},
		{name: "zero frequency", key: "REPEATER_REPEAT_FREQ", value: "0"},
		{name: "zero window", key: "REPEATER_TIME_WINDOW", value: "0s"},
		{name: "bad group id", key: testEnvAcceptGroups, value: "abc"},
		{name: "zero send rate", key: "SEND_RPS", value: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnvVars(t)
			os.Unsetenv(testEnvGroupsFile)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}
