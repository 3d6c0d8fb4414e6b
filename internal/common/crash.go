// -----------------------------------------------------------------------
// Crash reports for panics that escape the command being run
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// CrashLogDir is where crash reports are written. Set by InstallCrashHandler.
var CrashLogDir = "./logs"

// InstallCrashHandler points crash reports at the directory holding the log
// file, so both end up side by side.
func InstallCrashHandler(config *Config) {
	dir := "logs"
	if config != nil && filepath.IsAbs(config.Logging.FileName) {
		dir = filepath.Dir(config.Logging.FileName)
	}
	CrashLogDir = dir
}

// WriteCrashReport renders a crash report for panicVal to w.
func WriteCrashReport(w io.Writer, panicVal interface{}, stackTrace string, now time.Time) {
	var b strings.Builder

	b.WriteString("=== INVOICER CRASH REPORT ===\n")
	fmt.Fprintf(&b, "Time: %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(&b, "Version: %s\n", GetFullVersion())
	fmt.Fprintf(&b, "Args: %s\n\n", strings.Join(os.Args, " "))

	fmt.Fprintf(&b, "=== PANIC ===\n%v\n\n", panicVal)
	fmt.Fprintf(&b, "=== STACK ===\n%s\n\n", stackTrace)

	// Tracker sessions run on their own goroutines
	fmt.Fprintf(&b, "=== GOROUTINES (%d running, %d spawned via SafeGo) ===\n", runtime.NumGoroutine(), GetGoroutineCount())
	b.WriteString(allGoroutineStacks())
	b.WriteString("\n=== END ===\n")

	_, _ = io.WriteString(w, b.String())
}

// WriteCrashFile writes a crash report into CrashLogDir and returns its path.
// When the file cannot be written the report goes to stderr and "" is returned.
func WriteCrashFile(panicVal interface{}, stackTrace string) string {
	now := time.Now()
	path := filepath.Join(CrashLogDir, fmt.Sprintf("crash-%s.log", now.Format("2006-01-02T15-04-05")))

	if err := os.MkdirAll(CrashLogDir, 0755); err == nil {
		if file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644); err == nil {
			WriteCrashReport(file, panicVal, stackTrace, now)
			_ = file.Sync()
			_ = file.Close()
			fmt.Fprintf(os.Stderr, "\nFATAL: %v (report saved to %s)\n", panicVal, path)
			return path
		}
	}

	WriteCrashReport(os.Stderr, panicVal, stackTrace, now)
	return ""
}

func allGoroutineStacks() string {
	buf := make([]byte, 64*1024)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) || len(buf) >= 16*1024*1024 {
			return string(buf[:n])
		}
		buf = make([]byte, len(buf)*2)
	}
}

// RecoverWithCrashFile recovers a panic on the calling goroutine, writes a
// crash report and exits. Usage: defer common.RecoverWithCrashFile()
func RecoverWithCrashFile() {
	if r := recover(); r != nil {
		buf := make([]byte, 8192)
		n := runtime.Stack(buf, false)
		WriteCrashFile(r, string(buf[:n]))
		os.Exit(2)
	}
}
