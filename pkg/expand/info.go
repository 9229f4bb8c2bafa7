package expand

import (
	"fmt"
	"strings"
)

// Domain is the forge hosting the upstream remote. The numeric values are
// what %N(o...) compares against and what %(o...) uses as branch index.
type Domain int

// Known remote domains
const (
	DomainGit       Domain = iota // Any other host
	DomainGitHub                  // github.com
	DomainGitLab                  // gitlab.com
	DomainBitBucket               // bitbucket.org
	DomainAzure                   // dev.azure.com
)

var domainNames = []string{"git", "github", "gitlab", "bitbucket", "azure"}

// String returns the configuration name of a domain
func (d Domain) String() string {
	if d < 0 || int(d) >= len(domainNames) {
		return fmt.Sprintf("Domain(%d)", int(d))
	}
	return domainNames[d]
}

// ParseDomain resolves a configuration name like "gitlab" to its Domain.
func ParseDomain(name string) (Domain, error) {
	for i, n := range domainNames {
		if strings.EqualFold(n, name) {
			return Domain(i), nil
		}
	}
	return DomainGit, fmt.Errorf("unknown domain %q", name)
}

// Info supplies the repository and environment facts that git-aware escapes
// need. Implementations may compute facts lazily; the renderer only asks for
// what the selected branches of a prompt use.
type Info interface {
	// CurrentPath returns the working directory to display.
	CurrentPath() string
	// GitExists reports whether the working directory is inside a repository.
	GitExists() bool
	// GitDirty reports whether the repository has any changes.
	GitDirty() bool
	// GitModified reports whether there are unstaged changes or untracked files.
	GitModified() bool
	// GitStaged reports whether there are staged changes.
	GitStaged() bool
	// GitRemoteDomain returns the domain of the upstream's remote.
	GitRemoteDomain() Domain
	// GitRemoteAhead returns how many commits HEAD is ahead of its upstream.
	GitRemoteAhead() int
	// GitRemoteBehind returns how many commits HEAD is behind its upstream.
	GitRemoteBehind() int
	// GitBranch returns the short name of the current branch.
	GitBranch() string
	// GitStashes returns the number of stash entries.
	GitStashes() int
}
