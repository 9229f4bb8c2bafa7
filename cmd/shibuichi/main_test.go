package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hanaasagi/shibuichi/pkg/expand"
)

type fakeInfo struct {
	branch string
	ahead  int
	domain expand.Domain
}

func (f fakeInfo) CurrentPath() string            { return "/home/user/src" }
func (f fakeInfo) GitExists() bool                { return f.branch != "" }
func (f fakeInfo) GitDirty() bool                 { return true }
func (f fakeInfo) GitModified() bool              { return false }
func (f fakeInfo) GitStaged() bool                { return false }
func (f fakeInfo) GitRemoteDomain() expand.Domain { return f.domain }
func (f fakeInfo) GitRemoteAhead() int            { return f.ahead }
func (f fakeInfo) GitRemoteBehind() int           { return 0 }
func (f fakeInfo) GitBranch() string              { return f.branch }
func (f fakeInfo) GitStashes() int                { return 0 }

// execute runs the root command with a fake provider and returns stdout
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var gotConfig *Config
	factory := func(_ context.Context, config *Config, _ string) (expand.Info, error) {
		gotConfig = config
		return fakeInfo{branch: "main", ahead: 2, domain: expand.DomainGitHub}, nil
	}

	rootCmd := newRootCmd(&AppConfig{}, factory, nil)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	if err == nil && gotConfig == nil && !strings.Contains(out.String(), "version") {
		t.Fatalf("provider was never built")
	}
	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSeparators(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"default newline", []string{"%r", "%p"}, "main\n2"},
		{"custom separator", []string{"-s", "|", "%r", "%p"}, "main|2"},
		{"unicode separator", []string{"--sep", "│", "%r", "%p"}, "main│2"},
		{"null separator", []string{"-0", "%r", "%p"}, "main\x002"},
		{"null wins over sep", []string{"-0", "-s", "|", "%r", "%p"}, "main\x002"},
		{"single prompt", []string{"%(G.%r.)%(o.git.gh)"}, "maingh"},
		{"no prompts", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append([]string{"--config", noConfig}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestInvalidSeparator(t *testing.T) {
	_, err := execute(t, "--config", noConfig, "-s", "ab", "%r")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "single character")

	_, err = execute(t, "--config", noConfig, "-s", "", "%r")
	require.Error(t, err)
}

func TestConfigSeparator(t *testing.T) {
	path := writeConfig(t, `
[core]
separator = ":"
`)
	out, err := execute(t, "--config", path, "%r", "%p")
	require.NoError(t, err)
	assert.Equal(t, "main:2", out)

	out, err = execute(t, "--config", path, "-s", ";", "%r", "%p")
	require.NoError(t, err)
	assert.Equal(t, "main;2", out)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "--config", noConfig, "-v")
	require.NoError(t, err)
	assert.Equal(t, "shibuichi version: "+FullVersion+"\n", out)

	broken := writeConfig(t, "[core\n")
	out, err = execute(t, "--config", broken, "--version")
	require.NoError(t, err)
	assert.Equal(t, "shibuichi version: "+FullVersion+"\n", out)
}

func TestConfigMaxDepth(t *testing.T) {
	const prompt = "%(G.%(y.a.b).c)"

	out, err := execute(t, "--config", noConfig, prompt)
	require.NoError(t, err)
	assert.Equal(t, "a", out)

	path := writeConfig(t, "[core]\nmax_depth = 1\n")
	out, err = execute(t, "--config", path, prompt)
	require.NoError(t, err)
	assert.Equal(t, "%(y.c)", out)

	out, err = execute(t, "--config", path, "--explain", prompt)
	require.NoError(t, err)
	assert.Contains(t, out, "conditional nested deeper than 1")
}

func TestExplain(t *testing.T) {
	out, err := execute(t, "--config", noConfig, "--explain", "%(G.%r.) %/{:~:/home/user} %{\x1b[31m%}%z")
	require.NoError(t, err)

	assert.Contains(t, out, `prompt: "%(G.%r.) %/{:~:/home/user} %{\x1b[31m%}%z"`)
	assert.Contains(t, out, "Conditional")
	assert.Contains(t, out, "inside a repository")
	assert.Contains(t, out, "git branch")
	assert.Contains(t, out, `resolves to "~/src"`)
	assert.Contains(t, out, "LiteralBlock")
	assert.Contains(t, out, "diagnostics:")
	assert.Contains(t, out, `unknown escape "%z"`)
	assert.Contains(t, out, `expansion: "main ~/src %{\x1b[31m%}%z"`)
	assert.NotContains(t, out, "\x1b", "output to a buffer must not be colored")
}

func TestLoadConfigFromFile(t *testing.T) {
	config, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, NewDefaultConfig(), config)

	path := writeConfig(t, `
[core]
log_level = "debug"

[git]
binary = "/usr/local/bin/git"
timeout = "750ms"

[domains]
"Git.Corp.Example" = "gitlab"
`)
	config, err = LoadConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\n", config.Core.Separator)
	assert.Equal(t, "debug", config.Core.LogLevel)
	assert.Equal(t, "/usr/local/bin/git", config.Git.Binary)
	assert.Equal(t, 750*time.Millisecond, config.Git.Timeout)

	domains, err := config.DomainMap()
	require.NoError(t, err)
	assert.Equal(t, map[string]expand.Domain{"git.corp.example": expand.DomainGitLab}, domains)
}

func TestInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		message string
	}{
		{"bad separator", "[core]\nseparator = \"--\"\n", "core.separator"},
		{"bad timeout", "[git]\ntimeout = \"soon\"\n", "invalid duration"},
		{"negative timeout", "[git]\ntimeout = \"-1s\"\n", "git.timeout"},
		{"negative depth", "[core]\nmax_depth = -1\n", "core.max_depth"},
		{"unknown domain", "[domains]\n\"example.com\" = \"sourcehut\"\n", "unknown domain"},
		{"not toml", "[core\n", "failed to decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigFromFile(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestLiteralNote(t *testing.T) {
	assert.Equal(t, "", literalNote("$fg[red]"))
	assert.Equal(t, "", literalNote("%F{red}[x]"))
	assert.Equal(t, `escape codes, text "red"`, literalNote("\x1b[31mred\x1b[0m"))
}
