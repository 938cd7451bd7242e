package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func resetMocks() {
	osWriteFile = os.WriteFile
	osExit = os.Exit
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
	assert.Equal(t, 130, exitCode(fmt.Errorf("playlist %q: %w", "smoke", context.Canceled)))
}

func TestHandlePanic(t *testing.T) {
	defer resetMocks()

	t.Run("writes the panic log", func(t *testing.T) {
		var written string
		var code int
		osWriteFile = func(name string, data []byte, perm os.FileMode) error {
			assert.Equal(t, panicLogFile, name)
			written = string(data)
			return nil
		}
		osExit = func(c int) { code = c }

		func() {
			defer handlePanic()
			panic("terminal went away")
		}()

		assert.Contains(t, written, "panic: terminal went away")
		assert.Contains(t, written, "goroutine")
		assert.Equal(t, 2, code)
	})

	t.Run("falls back to stderr", func(t *testing.T) {
		var code int
		osWriteFile = func(string, []byte, os.FileMode) error { return errors.New("read-only") }
		osExit = func(c int) { code = c }

		func() {
			defer handlePanic()
			panic("boom")
		}()
		assert.Equal(t, 2, code)
	})

	t.Run("no panic is a no-op", func(t *testing.T) {
		osExit = func(int) { t.Fatal("exit should not be called") }
		func() {
			defer handlePanic()
		}()
	})
}
