package framework

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Step prepares the work directory of a test case
type Step func(f *Framework, dir string) error

// Git runs a git command in the work directory
func Git(args ...string) Step {
	return func(f *Framework, dir string) error {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = f.env(dir)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, out)
		}
		return nil
	}
}

// WriteFile creates or overwrites a file in the work directory
func WriteFile(name, content string) Step {
	return func(_ *Framework, dir string) error {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		return os.WriteFile(path, []byte(content), 0644)
	}
}

// Commit writes name and commits it
func Commit(name, content string) []Step {
	return []Step{
		WriteFile(name, content),
		Git("add", name),
		Git("commit", "-q", "-m", "update "+name),
	}
}

// InitRepo creates a repository on branch main with one commit
func InitRepo() []Step {
	return append([]Step{Git("init", "-q", "-b", "main")}, Commit("README", "hello\n")...)
}

// Steps flattens step groups
func Steps(groups ...[]Step) []Step {
	var steps []Step
	for _, g := range groups {
		steps = append(steps, g...)
	}
	return steps
}
