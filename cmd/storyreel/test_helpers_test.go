package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storyreel/internal/config"
	"storyreel/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Voice.APIKey = "el-secret-key"
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--log-level", "error"}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
work_dir = %q
output_dir = %q
quarantine_dir = %q
background_dir = %q
voice_cache_dir = %q
assets_dir = %q
stories_dir = %q
video_configs_dir = %q
log_dir = %q
api_bind = %q

[voice]
api_key = %q

[render]
ffmpeg_binary = "ffmpeg"
ffprobe_binary = "ffprobe"
`,
		cfg.Paths.WorkDir,
		cfg.Paths.OutputDir,
		cfg.Paths.QuarantineDir,
		cfg.Paths.BackgroundDir,
		cfg.Paths.VoiceCacheDir,
		cfg.Paths.AssetsDir,
		cfg.Paths.StoriesDir,
		cfg.Paths.VideoConfigsDir,
		cfg.Paths.LogDir,
		cfg.Paths.APIBind,
		cfg.Voice.APIKey,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
