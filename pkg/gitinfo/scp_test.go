package gitinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Hanaasagi/shibuichi/pkg/expand"
)

func TestParseScpURL(t *testing.T) {
	parsed, ok := ParseScpURL("git@github.com:username/repo.git")
	assert.True(t, ok)
	assert.Equal(t, ScpURL{Username: "git", Host: "github.com", Path: "username/repo.git"}, parsed)

	parsed, ok = ParseScpURL("@:")
	assert.True(t, ok)
	assert.Equal(t, ScpURL{}, parsed)

	for _, raw := range []string{
		"",
		":",
		"@",
		"g:t@github.com:path",
		"git@github@com:path",
		"git@github.com:pa:th",
		"git@github.com:pa@th",
	} {
		_, ok := ParseScpURL(raw)
		assert.False(t, ok, "ParseScpURL(%q)", raw)
	}
}

func TestClassifyRemote(t *testing.T) {
	extra := map[string]expand.Domain{"git.example.com": expand.DomainGitLab}

	tests := []struct {
		raw      string
		expected expand.Domain
	}{
		{"git@github.com:path/file.git", expand.DomainGitHub},
		{"https://github.com/user/repo.git", expand.DomainGitHub},
		{"ssh://git@gitlab.com:2222/group/repo.git", expand.DomainGitLab},
		{"https://user@bitbucket.org/team/repo.git", expand.DomainBitBucket},
		{"https://org@dev.azure.com/org/project/_git/repo", expand.DomainAzure},
		{"git@ssh.dev.azure.com:v3/org/project/repo", expand.DomainAzure},
		{"https://GitHub.com/user/repo", expand.DomainGitHub},
		{"git@git.example.com:team/repo.git", expand.DomainGitLab},
		{"https://codeberg.org/user/repo.git", expand.DomainGit},
		{"/srv/git/repo.git", expand.DomainGit},
		{"github.com:user/repo", expand.DomainGit},
		{"", expand.DomainGit},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyRemote(tt.raw, extra))
		})
	}
}
