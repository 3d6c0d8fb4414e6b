package common

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCrashReport(t *testing.T) {
	var b strings.Builder
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	WriteCrashReport(&b, "boom", "main.go:10", now)

	report := b.String()
	assert.Contains(t, report, "=== INVOICER CRASH REPORT ===")
	assert.Contains(t, report, "Time: 2025-03-01T12:00:00Z")
	assert.Contains(t, report, "boom")
	assert.Contains(t, report, "main.go:10")
	assert.True(t, strings.HasSuffix(report, "=== END ===\n"))
}

func TestWriteCrashFile(t *testing.T) {
	orig := CrashLogDir
	t.Cleanup(func() { CrashLogDir = orig })
	CrashLogDir = filepath.Join(t.TempDir(), "crash")

	path := WriteCrashFile("boom", "stack")
	require.NotEmpty(t, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "boom")
}

func TestInstallCrashHandler(t *testing.T) {
	orig := CrashLogDir
	t.Cleanup(func() { CrashLogDir = orig })

	cfg := NewDefaultConfig()
	InstallCrashHandler(cfg)
	assert.Equal(t, "logs", CrashLogDir)

	abs := filepath.Join(t.TempDir(), "invoicer.log")
	cfg.Logging.FileName = abs
	InstallCrashHandler(cfg)
	assert.Equal(t, filepath.Dir(abs), CrashLogDir)
}
