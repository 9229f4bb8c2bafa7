// Package gitinfo answers the repository questions of git-aware prompts by
// running git. Every fact is computed at most once and only when a prompt
// asks for it, so prompts outside a repository never spawn more than one
// process.
package gitinfo

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Hanaasagi/shibuichi/pkg/expand"
)

// DefaultTimeout bounds each git invocation.
const DefaultTimeout = 2 * time.Second

// Option configures a Cache
type Option func(*Cache)

// Cache is a lazily populated expand.Info backed by git. Failed lookups are
// logged and answered with zero values.
type Cache struct {
	ctx     context.Context
	runner  Runner
	dir     string
	timeout time.Duration
	domains map[string]expand.Domain
	getenv  func(string) string
	getwd   func() (string, error)

	path    func() string
	exists  func() bool
	status  func() Status
	branch  func() string
	remote  func() remoteInfo
	stashes func() int
}

type remoteInfo struct {
	domain expand.Domain
	ahead  int
	behind int
}

var _ expand.Info = (*Cache)(nil)

// New creates a Cache. ctx bounds every git invocation made through it.
func New(ctx context.Context, opts ...Option) *Cache {
	c := &Cache{
		ctx:     ctx,
		runner:  ExecRunner{},
		timeout: DefaultTimeout,
		getenv:  os.Getenv,
		getwd:   os.Getwd,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.path = sync.OnceValue(c.currentPath)
	c.exists = sync.OnceValue(c.gitExists)
	c.status = sync.OnceValue(c.gitStatus)
	c.branch = sync.OnceValue(c.gitBranch)
	c.remote = sync.OnceValue(c.gitRemote)
	c.stashes = sync.OnceValue(c.gitStashes)

	return c
}

// WithRunner replaces the git executor
func WithRunner(r Runner) Option {
	return func(c *Cache) {
		c.runner = r
	}
}

// WithDir runs git in dir and reports dir as the current path
func WithDir(dir string) Option {
	return func(c *Cache) {
		c.dir = dir
	}
}

// WithTimeout bounds each git invocation. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Cache) {
		c.timeout = d
	}
}

// WithDomains adds host to domain mappings on top of DefaultDomains
func WithDomains(domains map[string]expand.Domain) Option {
	return func(c *Cache) {
		c.domains = domains
	}
}

// WithGetenv replaces the environment lookup
func WithGetenv(getenv func(string) string) Option {
	return func(c *Cache) {
		c.getenv = getenv
	}
}

// WithGetwd replaces the working directory lookup
func WithGetwd(getwd func() (string, error)) Option {
	return func(c *Cache) {
		c.getwd = getwd
	}
}

// CurrentPath implements expand.Info.
func (c *Cache) CurrentPath() string { return c.path() }

// GitExists implements expand.Info.
func (c *Cache) GitExists() bool { return c.exists() }

// GitDirty implements expand.Info.
func (c *Cache) GitDirty() bool { return c.status().Dirty }

// GitModified implements expand.Info.
func (c *Cache) GitModified() bool { return c.status().Modified }

// GitStaged implements expand.Info.
func (c *Cache) GitStaged() bool { return c.status().Staged }

// GitRemoteDomain implements expand.Info.
func (c *Cache) GitRemoteDomain() expand.Domain { return c.remote().domain }

// GitRemoteAhead implements expand.Info.
func (c *Cache) GitRemoteAhead() int { return c.remote().ahead }

// GitRemoteBehind implements expand.Info.
func (c *Cache) GitRemoteBehind() int { return c.remote().behind }

// GitBranch implements expand.Info.
func (c *Cache) GitBranch() string { return c.branch() }

// GitStashes implements expand.Info.
func (c *Cache) GitStashes() int { return c.stashes() }

func (c *Cache) git(args ...string) (string, error) {
	ctx := c.ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	out, err := c.runner.Run(ctx, c.dir, args...)
	if err != nil {
		slog.Debug("git command failed", "args", args, "dir", c.dir, "error", err)
		return "", err
	}
	return out, nil
}

func (c *Cache) currentPath() string {
	if c.dir != "" {
		if abs, err := filepath.Abs(c.dir); err == nil {
			return abs
		}
		return c.dir
	}
	if pwd := c.getenv("PWD"); pwd != "" {
		return pwd
	}
	if wd, err := c.getwd(); err == nil {
		return wd
	}
	return ""
}

func (c *Cache) gitExists() bool {
	_, err := c.git("rev-parse", "--git-dir")
	return err == nil
}

func (c *Cache) gitStatus() Status {
	if !c.exists() {
		return Status{}
	}
	out, err := c.git("status", "--porcelain=v1", "-z", "--untracked-files=normal")
	if err != nil {
		return Status{}
	}
	return ParseStatus(out)
}

func (c *Cache) gitBranch() string {
	if !c.exists() {
		return ""
	}
	out, err := c.git("rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

func (c *Cache) gitRemote() remoteInfo {
	info := remoteInfo{domain: expand.DomainGit}
	if !c.exists() {
		return info
	}

	out, err := c.git("rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{upstream}")
	if err != nil {
		return info
	}
	upstream := strings.TrimSpace(out)

	if out, err := c.git("rev-list", "--left-right", "--count", "HEAD...@{upstream}"); err == nil {
		info.ahead, info.behind = parseAheadBehind(out)
	}

	remote, _, _ := strings.Cut(upstream, "/")
	if out, err := c.git("config", "--get", "remote."+remote+".url"); err == nil {
		info.domain = ClassifyRemote(strings.TrimSpace(out), c.domains)
	}

	return info
}

// parseAheadBehind reads the "<ahead>\t<behind>" output of rev-list --count.
func parseAheadBehind(out string) (int, int) {
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return 0, 0
	}
	ahead, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0
	}
	behind, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0
	}
	return ahead, behind
}

func (c *Cache) gitStashes() int {
	if !c.exists() {
		return 0
	}
	// Fails when refs/stash does not exist, which means no stashes.
	out, err := c.git("rev-list", "--walk-reflogs", "--count", "refs/stash")
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0
	}
	return n
}
