package framework

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/creack/pty"
)

// findProjectRoot searches for the project root directory containing go.mod
func findProjectRoot(startDir string) string {
	dir := startDir
	for {
		goModPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(goModPath); err == nil {
			// Check if this go.mod declares the main module (not just requires it)
			content, err := os.ReadFile(goModPath)
			if err == nil && strings.HasPrefix(strings.TrimSpace(string(content)), "module github.com/Hanaasagi/shibuichi\n") {
				return dir
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached root directory
		}
		dir = parent
	}
	return ""
}

// Framework provides utilities for running e2e tests
type Framework struct {
	BinaryPath string
	Timeout    time.Duration
	// Home isolates git and XDG state from the user running the tests
	Home string
}

// TestCase represents a single e2e test case
type TestCase struct {
	Name           string
	Setup          []Step
	Args           []string
	ExpectedOutput string
	// Contains matches ExpectedOutput as a substring instead of exactly
	Contains bool
	Timeout  time.Duration
}

// TestResult represents the result of a test case
type TestResult struct {
	Name    string
	Passed  bool
	Error   string
	Output  string
	Elapsed time.Duration
}

// NewFramework creates a new e2e test framework
func NewFramework(home string) *Framework {
	return &Framework{
		BinaryPath: "",
		Timeout:    5 * time.Second,
		Home:       home,
	}
}

// GitAvailable reports whether git can be found in PATH
func GitAvailable() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// BuildBinary builds the shibuichi binary for testing
func (f *Framework) BuildBinary() error {
	if f.BinaryPath != "" {
		return nil // Already set
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	projectRoot := findProjectRoot(wd)
	if projectRoot == "" {
		return fmt.Errorf("could not find project root directory from %s", wd)
	}

	buildDir := filepath.Join(projectRoot, "build")
	binaryPath := filepath.Join(buildDir, "shibuichi")

	if err := os.MkdirAll(buildDir, 0755); err != nil {
		return fmt.Errorf("failed to create build directory: %w", err)
	}

	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/shibuichi")
	cmd.Dir = projectRoot

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to build binary: %w, output: %s", err, string(output))
	}

	f.BinaryPath = binaryPath
	return nil
}

// env returns an environment that ignores the user's git and XDG configuration
func (f *Framework) env(dir string) []string {
	return append(os.Environ(),
		"HOME="+f.Home,
		"XDG_CONFIG_HOME="+filepath.Join(f.Home, "config"),
		"XDG_STATE_HOME="+filepath.Join(f.Home, "state"),
		"GIT_CONFIG_NOSYSTEM=1",
		"GIT_CEILING_DIRECTORIES="+f.Home,
		"GIT_CONFIG_GLOBAL="+os.DevNull,
		"GIT_AUTHOR_NAME=e2e",
		"GIT_AUTHOR_EMAIL=e2e@example.com",
		"GIT_COMMITTER_NAME=e2e",
		"GIT_COMMITTER_EMAIL=e2e@example.com",
		"PWD="+dir,
	)
}

// RunTest prepares a fresh directory and runs the binary inside it
func (f *Framework) RunTest(testCase TestCase) TestResult {
	start := time.Now()
	result := TestResult{
		Name:   testCase.Name,
		Passed: false,
	}
	fail := func(format string, args ...any) TestResult {
		result.Error = fmt.Sprintf(format, args...)
		result.Elapsed = time.Since(start)
		return result
	}

	if err := f.BuildBinary(); err != nil {
		return fail("failed to build binary: %v", err)
	}

	dir, err := os.MkdirTemp(f.Home, "repo-*")
	if err != nil {
		return fail("failed to create work directory: %v", err)
	}
	defer os.RemoveAll(dir)

	for _, step := range testCase.Setup {
		if err := step(f, dir); err != nil {
			return fail("setup failed: %v", err)
		}
	}

	args := append([]string{"--config", "NONE"}, testCase.Args...)
	cmd := exec.Command(f.BinaryPath, args...)
	cmd.Dir = dir
	cmd.Env = f.env(dir)

	// Use pty so stdout is a terminal like in a real shell
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fail("failed to start command: %v", err)
	}
	defer ptmx.Close()

	timeout := testCase.Timeout
	if timeout == 0 {
		timeout = f.Timeout
	}

	outputCh := make(chan string, 1)
	go func() {
		var output bytes.Buffer
		_, err := io.Copy(&output, ptmx)
		// Linux reports the closed pty slave as EIO
		if err != nil && !errors.Is(err, syscall.EIO) {
			output.WriteString(fmt.Sprintf("\n[read error: %v]", err))
		}
		outputCh <- output.String()
	}()

	select {
	case out := <-outputCh:
		result.Output = strings.ReplaceAll(out, "\r\n", "\n")
	case <-time.After(timeout):
		_ = cmd.Process.Kill()
		return fail("test timed out")
	}

	if err := cmd.Wait(); err != nil {
		return fail("command failed: %v, output: %q", err, result.Output)
	}

	if testCase.Contains {
		result.Passed = strings.Contains(result.Output, testCase.ExpectedOutput)
	} else {
		result.Passed = result.Output == testCase.ExpectedOutput
	}
	if !result.Passed {
		result.Error = fmt.Sprintf("expected %q, got %q", testCase.ExpectedOutput, result.Output)
	}

	result.Elapsed = time.Since(start)
	return result
}

// RunTests executes multiple test cases
func (f *Framework) RunTests(testCases []TestCase) []TestResult {
	results := make([]TestResult, len(testCases))
	for i, testCase := range testCases {
		fmt.Printf("Running test: %s\n", testCase.Name)
		results[i] = f.RunTest(testCase)
		if results[i].Passed {
			fmt.Printf("PASS %s (%.2fs)\n", testCase.Name, results[i].Elapsed.Seconds())
		} else {
			fmt.Printf("FAIL %s (%.2fs): %s\n", testCase.Name, results[i].Elapsed.Seconds(), results[i].Error)
		}
	}
	return results
}

// PrintSummary prints a summary of test results
func (f *Framework) PrintSummary(results []TestResult) {
	passed := 0
	total := len(results)

	fmt.Println("\n=== Test Summary ===")
	for _, result := range results {
		if result.Passed {
			passed++
			fmt.Printf("PASS %s\n", result.Name)
		} else {
			fmt.Printf("FAIL %s: %s\n", result.Name, result.Error)
		}
	}

	fmt.Printf("\nTotal: %d, Passed: %d, Failed: %d\n", total, passed, total-passed)
}
