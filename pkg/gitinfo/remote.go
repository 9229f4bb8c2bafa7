package gitinfo

import (
	"net/url"
	"strings"

	"github.com/Hanaasagi/shibuichi/pkg/expand"
)

// DefaultDomains maps well known forge hosts to their domain.
var DefaultDomains = map[string]expand.Domain{
	"github.com":        expand.DomainGitHub,
	"gitlab.com":        expand.DomainGitLab,
	"bitbucket.org":     expand.DomainBitBucket,
	"dev.azure.com":     expand.DomainAzure,
	"ssh.dev.azure.com": expand.DomainAzure,
}

// ScpURL is an scp-like address of the form user@host:path.
type ScpURL struct {
	Username string
	Host     string
	Path     string
}

// ParseScpURL splits raw at the first '@' and the following ':'. It rejects
// a username containing ':' and a host or path containing '@', as well as a
// path containing ':'.
func ParseScpURL(raw string) (ScpURL, bool) {
	username, rest, ok := strings.Cut(raw, "@")
	if !ok {
		return ScpURL{}, false
	}
	host, path, ok := strings.Cut(rest, ":")
	if !ok {
		return ScpURL{}, false
	}
	if strings.Contains(username, ":") || strings.Contains(host, "@") || strings.ContainsAny(path, ":@") {
		return ScpURL{}, false
	}
	return ScpURL{Username: username, Host: host, Path: path}, true
}

// RemoteHost extracts the host of a remote url, trying a standard url first
// and an scp-like address second.
func RemoteHost(raw string) (string, bool) {
	if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
		return u.Hostname(), true
	}
	if scp, ok := ParseScpURL(raw); ok {
		return scp.Host, true
	}
	return "", false
}

// ClassifyRemote returns the domain of a remote url. Hosts in extra take
// precedence over DefaultDomains; unknown hosts are plain git.
func ClassifyRemote(raw string, extra map[string]expand.Domain) expand.Domain {
	host, ok := RemoteHost(raw)
	if !ok {
		return expand.DomainGit
	}
	host = strings.ToLower(host)

	if d, ok := extra[host]; ok {
		return d
	}
	if d, ok := DefaultDomains[host]; ok {
		return d
	}
	return expand.DomainGit
}
