// Package shared contains testing utilities shared between integration tests.
// This file provides common functions for setting up test environments,
// capturing output, and running the real CLI against a temporary data directory.
package shared

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PolarWolf314/coffer/cmd"
	"github.com/PolarWolf314/coffer/internal/configs"
	logger "github.com/PolarWolf314/coffer/internal/logging"
	"github.com/PolarWolf314/coffer/internal/secrets"
	"github.com/spf13/cobra"
)

// TestEnv points the CLI at a temporary installation.
type TestEnv struct {
	ConfigFile string
	DataDir    string
}

// SetupTestEnvironment creates a config and data directory under a temp dir
// and points COFFER_CONFIG and COFFER_DATA_DIR at them. The config uses the
// minimum key derivation iterations so tests stay fast.
func SetupTestEnvironment(t *testing.T) TestEnv {
	t.Helper()

	tempDir := t.TempDir()
	env := TestEnv{
		ConfigFile: filepath.Join(tempDir, "config", configs.ConfigFileName),
		DataDir:    filepath.Join(tempDir, "data"),
	}

	config := configs.Default()
	config.Security.Iterations = secrets.MinIterations
	config.Installation.ID = configs.GenerateInstallationID()
	if err := configs.Save(env.ConfigFile, config); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	t.Setenv(configs.EnvConfig, env.ConfigFile)
	t.Setenv(configs.EnvDataDir, env.DataDir)
	t.Setenv("NO_COLOR", "1")

	t.Cleanup(cmd.ResetGlobalState)
	return env
}

// CaptureOutput captures both stdout and stderr during function execution.
func CaptureOutput(fn func() error) (string, error) {
	// Save original stdout and stderr
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	// Create pipes to capture output
	stdoutReader, stdoutWriter, _ := os.Pipe()
	stderrReader, stderrWriter, _ := os.Pipe()

	// Replace stdout and stderr
	os.Stdout = stdoutWriter
	os.Stderr = stderrWriter

	// Channel to collect output
	outputChan := make(chan string, 2)

	go func() {
		var buf bytes.Buffer
		_, err := io.Copy(&buf, stdoutReader)
		if err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		outputChan <- buf.String()
	}()

	go func() {
		var buf bytes.Buffer
		_, err := io.Copy(&buf, stderrReader)
		if err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		outputChan <- buf.String()
	}()

	// Execute the function
	err := fn()

	// Close writers to signal EOF
	stdoutWriter.Close()
	stderrWriter.Close()

	// Restore original stdout and stderr
	os.Stdout = originalStdout
	os.Stderr = originalStderr

	stdout := <-outputChan
	stderr := <-outputChan

	return stdout + stderr, err
}

// CreateTestCLI creates a complete CLI instance for testing with the given
// arguments. input feeds password prompts and confirmations, one line each.
func CreateTestCLI(args []string, input string, verboseFlag, debugFlag bool) *cobra.Command {
	cmd.ResetGlobalState()

	// Set global flags for the actual command (needed for the real command implementations)
	cmd.SetVerbose(verboseFlag)
	cmd.SetDebug(debugFlag)

	// Initialize the logger with the test flags
	cmd.SetLogger(logger.Logger{
		Verbose: verboseFlag,
		Debug:   debugFlag,
	})
	cmd.SetPromptInput(strings.NewReader(input))

	// Create a fresh root command for this test
	rootCmd := &cobra.Command{
		Use:          "coffer",
		Short:        "Coffer - a private, local personal finance tracker.",
		SilenceUsage: true,
	}
	cmd.Register(rootCmd)

	rootCmd.SetArgs(args)
	return rootCmd
}

// Run executes the CLI with args and input and returns everything it printed.
func Run(t *testing.T, input string, args ...string) string {
	t.Helper()

	output, err := CaptureOutput(func() error {
		return CreateTestCLI(args, input, false, false).Execute()
	})
	if err != nil {
		t.Fatalf("coffer %s failed: %v\nOutput: %s", strings.Join(args, " "), err, output)
	}
	return output
}
