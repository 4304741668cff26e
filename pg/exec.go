package pg

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// CommandRunner abstracts spawning the PostgreSQL client binaries so the
// backup and restore paths are testable without pg_dump installed.
type CommandRunner interface {
	// LookPath resolves a binary name to an absolute path, failing when the
	// binary is not installed.
	LookPath(binary string) (string, error)
	// Run executes argv with extra environment entries appended to the
	// current process environment. It returns captured stdout and stderr;
	// a non-zero exit yields an ExternalProcessError.
	Run(ctx context.Context, argv []string, env []string) (stdout, stderr string, err error)
}

type execRunner struct{}

func newExecRunner() CommandRunner { return execRunner{} }

func (execRunner) LookPath(binary string) (string, error) {
	return exec.LookPath(binary)
}

func (execRunner) Run(ctx context.Context, argv []string, env []string) (string, string, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return stdout.String(), stderr.String(), &ExternalProcessError{
			Binary:   argv[0],
			ExitCode: exitCode,
			Stderr:   strings.TrimSpace(stderr.String()),
		}
	}
	return stdout.String(), stderr.String(), nil
}

var versionRegex = regexp.MustCompile(`(\d+)(?:\.(\d+))?`)

// majorVersion extracts the major version number from strings like
// "pg_dump (PostgreSQL) 16.4" or "15.8 (Debian 15.8-1)".
func majorVersion(s string) (int, bool) {
	m := versionRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	major, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return major, true
}

// binaryMajorVersion runs `<binary> --version` and parses the major version.
func (c *Client) binaryMajorVersion(ctx context.Context, binary string) (int, error) {
	stdout, _, err := c.runner.Run(ctx, []string{binary, "--version"}, nil)
	if err != nil {
		return 0, err
	}
	major, ok := majorVersion(stdout)
	if !ok {
		return 0, &ExternalProcessError{Binary: binary, Stderr: "unparseable version output"}
	}
	return major, nil
}
