package gitinfo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hanaasagi/shibuichi/pkg/expand"
)

type fakeCall struct {
	Dir  string
	Args string
}

// fakeRunner records calls and answers from a table keyed by the joined args.
// Missing keys fail like a git error.
type fakeRunner struct {
	outputs map[string]string
	calls   []fakeCall
}

var errNotARepo = errors.New("fatal: not a git repository")

func (f *fakeRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	key := strings.Join(args, " ")
	f.calls = append(f.calls, fakeCall{Dir: dir, Args: key})

	if err := ctx.Err(); err != nil {
		return "", err
	}
	out, ok := f.outputs[key]
	if !ok {
		return "", errNotARepo
	}
	return out, nil
}

func (f *fakeRunner) count(args string) int {
	n := 0
	for _, c := range f.calls {
		if c.Args == args {
			n++
		}
	}
	return n
}

func repoOutputs() map[string]string {
	return map[string]string{
		"rev-parse --git-dir": ".git\n",
		"rev-parse --abbrev-ref HEAD": "main\n",
		"status --porcelain=v1 -z --untracked-files=normal": " M a.go\x00A  b.go\x00?? c.go\x00",
		"rev-parse --abbrev-ref --symbolic-full-name @{upstream}": "origin/main\n",
		"rev-list --left-right --count HEAD...@{upstream}": "2\t1\n",
		"config --get remote.origin.url": "git@github.com:Hanaasagi/shibuichi.git\n",
		"rev-list --walk-reflogs --count refs/stash": "2\n",
	}
}

func TestCacheInRepository(t *testing.T) {
	runner := &fakeRunner{outputs: repoOutputs()}
	c := New(context.Background(), WithRunner(runner), WithDir("/work/repo"))

	assert.Equal(t, "/work/repo", c.CurrentPath())
	assert.True(t, c.GitExists())
	assert.True(t, c.GitDirty())
	assert.True(t, c.GitModified())
	assert.True(t, c.GitStaged())
	assert.Equal(t, "main", c.GitBranch())
	assert.Equal(t, expand.DomainGitHub, c.GitRemoteDomain())
	assert.Equal(t, 2, c.GitRemoteAhead())
	assert.Equal(t, 1, c.GitRemoteBehind())
	assert.Equal(t, 2, c.GitStashes())

	for _, call := range runner.calls {
		assert.Equal(t, "/work/repo", call.Dir)
	}
}

func TestCacheComputesOnce(t *testing.T) {
	runner := &fakeRunner{outputs: repoOutputs()}
	c := New(context.Background(), WithRunner(runner))

	for range 3 {
		c.GitExists()
		c.GitDirty()
		c.GitStaged()
		c.GitRemoteAhead()
		c.GitRemoteDomain()
		c.GitStashes()
	}

	assert.Equal(t, 1, runner.count("rev-parse --git-dir"))
	assert.Equal(t, 1, runner.count("status --porcelain=v1 -z --untracked-files=normal"))
	assert.Equal(t, 1, runner.count("rev-list --left-right --count HEAD...@{upstream}"))
	assert.Equal(t, 1, runner.count("rev-list --walk-reflogs --count refs/stash"))
}

func TestCacheStashes(t *testing.T) {
	tests := []struct {
		name     string
		output   *string
		expected int
	}{
		{"counted by git", ptr("5\n"), 5},
		{"no stash ref", nil, 0},
		{"unexpected output", ptr("stash@{0}: WIP\n"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outputs := repoOutputs()
			delete(outputs, "rev-list --walk-reflogs --count refs/stash")
			if tt.output != nil {
				outputs["rev-list --walk-reflogs --count refs/stash"] = *tt.output
			}
			c := New(context.Background(), WithRunner(&fakeRunner{outputs: outputs}))
			assert.Equal(t, tt.expected, c.GitStashes())
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestCacheOutsideRepository(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{}}
	c := New(context.Background(), WithRunner(runner))

	assert.False(t, c.GitExists())
	assert.False(t, c.GitDirty())
	assert.False(t, c.GitModified())
	assert.False(t, c.GitStaged())
	assert.Equal(t, "", c.GitBranch())
	assert.Equal(t, expand.DomainGit, c.GitRemoteDomain())
	assert.Equal(t, 0, c.GitRemoteAhead())
	assert.Equal(t, 0, c.GitRemoteBehind())
	assert.Equal(t, 0, c.GitStashes())

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "rev-parse --git-dir", runner.calls[0].Args)
}

func TestCacheWithoutUpstream(t *testing.T) {
	outputs := repoOutputs()
	delete(outputs, "rev-parse --abbrev-ref --symbolic-full-name @{upstream}")
	runner := &fakeRunner{outputs: outputs}
	c := New(context.Background(), WithRunner(runner))

	assert.Equal(t, expand.DomainGit, c.GitRemoteDomain())
	assert.Equal(t, 0, c.GitRemoteAhead())
	assert.Equal(t, 0, c.GitRemoteBehind())
	assert.Zero(t, runner.count("rev-list --left-right --count HEAD...@{upstream}"))
}

func TestCacheCustomDomains(t *testing.T) {
	outputs := repoOutputs()
	outputs["rev-parse --abbrev-ref --symbolic-full-name @{upstream}"] = "corp/feature/x\n"
	outputs["config --get remote.corp.url"] = "https://git.corp.example/team/repo.git\n"
	runner := &fakeRunner{outputs: outputs}

	c := New(context.Background(),
		WithRunner(runner),
		WithDomains(map[string]expand.Domain{"git.corp.example": expand.DomainBitBucket}),
	)

	assert.Equal(t, expand.DomainBitBucket, c.GitRemoteDomain())
	assert.Equal(t, 1, runner.count("config --get remote.corp.url"))
}

func TestCacheCurrentPath(t *testing.T) {
	env := func(pwd string) func(string) string {
		return func(key string) string {
			if key == "PWD" {
				return pwd
			}
			return ""
		}
	}
	getwd := func() (string, error) { return "/from/getwd", nil }
	failing := func() (string, error) { return "", errors.New("gone") }

	c := New(context.Background(), WithRunner(&fakeRunner{}), WithGetenv(env("/from/pwd")), WithGetwd(getwd))
	assert.Equal(t, "/from/pwd", c.CurrentPath())

	c = New(context.Background(), WithRunner(&fakeRunner{}), WithGetenv(env("")), WithGetwd(getwd))
	assert.Equal(t, "/from/getwd", c.CurrentPath())

	c = New(context.Background(), WithRunner(&fakeRunner{}), WithGetenv(env("")), WithGetwd(failing))
	assert.Equal(t, "", c.CurrentPath())
}

func TestCacheTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &fakeRunner{outputs: repoOutputs()}
	c := New(ctx, WithRunner(runner), WithTimeout(time.Second))

	assert.False(t, c.GitExists())
}

func TestCacheExpand(t *testing.T) {
	runner := &fakeRunner{outputs: repoOutputs()}
	c := New(context.Background(), WithRunner(runner))

	got := expand.ExpandString("%(G.%r%(y.*.) %(o.git.gh.gl.bb.az)%1(p. +%p.)%1(q. -%q.)%1(x. s%x.).)", c)
	assert.Equal(t, "main* gh +2 -1 s2", got)
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name     string
		out      string
		expected Status
	}{
		{"clean", "", Status{}},
		{"untracked", "?? new.txt\x00", Status{Dirty: true, Modified: true}},
		{"worktree modified", " M a.go\x00", Status{Dirty: true, Modified: true}},
		{"worktree deleted", " D a.go\x00", Status{Dirty: true}},
		{"staged added", "A  a.go\x00", Status{Dirty: true, Staged: true}},
		{"staged deleted", "D  a.go\x00", Status{Dirty: true, Staged: true}},
		{"both", "MM a.go\x00", Status{Dirty: true, Modified: true, Staged: true}},
		{"type change", " T link\x00", Status{Dirty: true, Modified: true}},
		{"rename skips source", "R  new.go\x00?? old.go\x00", Status{Dirty: true, Staged: true}},
		{"unmerged", "UU a.go\x00", Status{Dirty: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseStatus(tt.out))
		})
	}
}

func TestParseAheadBehind(t *testing.T) {
	ahead, behind := parseAheadBehind("3\t7\n")
	assert.Equal(t, 3, ahead)
	assert.Equal(t, 7, behind)

	ahead, behind = parseAheadBehind("garbage")
	assert.Zero(t, ahead)
	assert.Zero(t, behind)
}
