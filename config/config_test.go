package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/kbukum/repokit/errors"
	"github.com/kbukum/repokit/logger"
)

type githubSection struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
	Owner   string `mapstructure:"owner"`
}

type testConfig struct {
	ServiceConfig `mapstructure:",squash"`
	GitHub        githubSection `mapstructure:"github"`
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestServiceConfigApplyDefaults(t *testing.T) {
	cfg := ServiceConfig{Name: "repokit"}
	cfg.ApplyDefaults()
	if cfg.Environment != "development" {
		t.Errorf("expected development, got %q", cfg.Environment)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected info level, got %q", cfg.Logging.Level)
	}

	dbg := ServiceConfig{Name: "repokit", Debug: true}
	dbg.ApplyDefaults()
	if dbg.Logging.Level != "debug" {
		t.Errorf("expected debug level when Debug is set, got %q", dbg.Logging.Level)
	}
}

func TestServiceConfigValidate(t *testing.T) {
	valid := func() ServiceConfig {
		c := ServiceConfig{Name: "repokit", Environment: "production"}
		c.Logging.ApplyDefaults()
		return c
	}
	tests := []struct {
		name   string
		mutate func(*ServiceConfig)
		code   errors.ErrorCode
	}{
		{"valid", func(*ServiceConfig) {}, ""},
		{"missing name", func(c *ServiceConfig) { c.Name = "" }, errors.ErrCodeInvalidInput},
		{"bad environment", func(c *ServiceConfig) { c.Environment = "qa" }, errors.ErrCodeInvalidInput},
		{"bad logging", func(c *ServiceConfig) { c.Logging = logger.Config{Level: "loud"} }, errors.ErrCodeMisconfigured},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(&c)
			err := c.Validate()
			if tc.code == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.HasCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

func TestLoadConfigWithYAML(t *testing.T) {
	path := writeFile(t, "repokit.yml", `
name: repokit
environment: staging
github:
  base_url: https://ghe.example.com/api/v3
  owner: octo
`)
	var cfg testConfig
	if err := LoadConfig("repokit", &cfg, WithConfigFile(path), WithFileSystem(&mockFS{real: true})); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "repokit" || cfg.Environment != "staging" {
		t.Errorf("unexpected base config %+v", cfg.ServiceConfig)
	}
	if cfg.GitHub.BaseURL != "https://ghe.example.com/api/v3" || cfg.GitHub.Owner != "octo" {
		t.Errorf("unexpected github config %+v", cfg.GitHub)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeFile(t, "repokit.yml", "github:\n  base_url: https://file.example.com\n")
	t.Setenv("GITHUB_BASE_URL", "https://env.example.com")
	t.Setenv("GITHUB_TOKEN", "ghp_secret")
	t.Setenv("REPOKIT_ENVIRONMENT", "production")
	t.Setenv("GITHUB_OWNER", ` "octo" `)
	t.Setenv("UNRELATED_NAME", "ignored")

	var cfg testConfig
	err := LoadConfig("repokit", &cfg,
		WithConfigFile(path),
		WithFileSystem(&mockFS{real: true}),
		WithEnvSections("github"),
	)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.GitHub.BaseURL != "https://env.example.com" {
		t.Errorf("expected env to override file, got %q", cfg.GitHub.BaseURL)
	}
	if cfg.GitHub.Token != "ghp_secret" {
		t.Errorf("expected token from env, got %q", cfg.GitHub.Token)
	}
	if cfg.GitHub.Owner != "octo" {
		t.Errorf("expected quotes to be stripped, got %q", cfg.GitHub.Owner)
	}
	if cfg.Environment != "production" {
		t.Errorf("expected prefixed env to set environment, got %q", cfg.Environment)
	}
	if cfg.Name != "" {
		t.Errorf("unprefixed variables outside sections must be ignored, got name %q", cfg.Name)
	}
}

func TestLoadConfigSectionsNeedOptIn(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_secret")
	var cfg testConfig
	if err := LoadConfig("repokit", &cfg, WithFileSystem(&mockFS{})); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.GitHub.Token != "" {
		t.Errorf("expected GITHUB_TOKEN to be ignored without WithEnvSections, got %q", cfg.GitHub.Token)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("repokit", &cfg, WithConfigFile("/nonexistent/path.yml"), WithFileSystem(&mockFS{real: true}))
	if err != nil {
		t.Fatalf("expected missing file to be skipped, got %v", err)
	}
}

func TestLoadConfigMalformedFile(t *testing.T) {
	path := writeFile(t, "bad.yml", "github: [unterminated\n")
	var cfg testConfig
	err := LoadConfig("repokit", &cfg, WithConfigFile(path), WithFileSystem(&mockFS{real: true}))
	if err == nil || !strings.Contains(err.Error(), "bad.yml") {
		t.Fatalf("expected read error naming the file, got %v", err)
	}
}

func TestLoadConfigEnvFile(t *testing.T) {
	fs := &mockFS{files: map[string]bool{".env": true}}
	var cfg testConfig
	if err := LoadConfig("repokit", &cfg, WithFileSystem(fs)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if len(fs.loaded) != 1 || fs.loaded[0] != ".env" {
		t.Errorf("expected .env to be loaded, got %v", fs.loaded)
	}
}

func TestResolverSearchOrder(t *testing.T) {
	fs := &mockFS{
		files: map[string]bool{
			"./config.yml":                       true,
			"/home/u/.config/repokit/config.yml": true,
			".env":                               true,
			".env.repokit":                       true,
		},
		configDir: "/home/u/.config",
	}
	r := &Resolver{FileSystem: fs}
	files := r.ResolveFiles("repokit", LoaderConfig{})
	if files.ConfigFile != "./config.yml" {
		t.Errorf("expected ./config.yml, got %q", files.ConfigFile)
	}
	if files.EnvFile != ".env.repokit" {
		t.Errorf("expected .env.repokit first, got %q", files.EnvFile)
	}

	delete(fs.files, "./config.yml")
	files = r.ResolveFiles("repokit", LoaderConfig{})
	if files.ConfigFile != filepath.Join("/home/u/.config", "repokit", "config.yml") {
		t.Errorf("expected user config dir fallback, got %q", files.ConfigFile)
	}

	files = r.ResolveFiles("repokit", LoaderConfig{ConfigFile: "explicit.yml", EnvFile: "explicit.env"})
	if files.ConfigFile != "explicit.yml" || files.EnvFile != "explicit.env" {
		t.Errorf("explicit paths must win, got %+v", files)
	}
}

func TestGenerateEnvKeyVariants(t *testing.T) {
	tests := map[string][]string{
		"TOKEN":           {"token"},
		"LOGGING_LEVEL":   {"logging_level", "logging.level"},
		"GITHUB_BASE_URL": {"github_base_url", "github.base.url", "github.base_url"},
	}
	for in, want := range tests {
		if got := generateEnvKeyVariants(in); !reflect.DeepEqual(got, want) {
			t.Errorf("generateEnvKeyVariants(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestEnvKey(t *testing.T) {
	lc := LoaderConfig{EnvPrefix: "REPOKIT_", Sections: []string{"github"}}
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"REPOKIT_LOGGING_LEVEL", "LOGGING_LEVEL", true},
		{"REPOKIT_", "", false},
		{"GITHUB_TOKEN", "GITHUB_TOKEN", true},
		{"GITHUBTOKEN", "", false},
		{"HOME", "", false},
	}
	for _, tt := range tests {
		got, ok := envKey(tt.in, lc)
		if got != tt.want || ok != tt.ok {
			t.Errorf("envKey(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestOptions(t *testing.T) {
	var lc LoaderConfig
	fs := &mockFS{}
	WithFileSystem(fs)(&lc)
	WithConfigFile("/c.yml")(&lc)
	WithEnvFile("/.env")(&lc)
	WithEnvPrefix("RK_")(&lc)
	WithEnvSections("github", "tracing")(&lc)
	if lc.FileSystem != fs || lc.ConfigFile != "/c.yml" || lc.EnvFile != "/.env" || lc.EnvPrefix != "RK_" {
		t.Errorf("unexpected loader config %+v", lc)
	}
	if !reflect.DeepEqual(lc.Sections, []string{"github", "tracing"}) {
		t.Errorf("unexpected sections %v", lc.Sections)
	}
}

// mockFS answers from a map, or from the real filesystem when real is set.
type mockFS struct {
	files     map[string]bool
	real      bool
	configDir string
	loaded    []string
}

func (m *mockFS) Exists(path string) bool {
	if m.real {
		return RealFileSystem{}.Exists(path)
	}
	return m.files[path]
}

func (m *mockFS) LoadEnv(path string) error {
	m.loaded = append(m.loaded, path)
	return nil
}

func (m *mockFS) UserConfigDir() (string, error) {
	return m.configDir, nil
}
