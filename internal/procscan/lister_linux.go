//go:build linux

package procscan

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// procLister reads the process table from /proc.
type procLister struct{}

// NewPlatformLister returns the /proc-backed Lister.
func NewPlatformLister() Lister {
	return procLister{}
}

func (procLister) Processes(ctx context.Context) ([]Process, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, err
	}

	var procs []Process
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}

		// Processes exit mid-walk all the time; any per-pid read error just
		// drops that entry from the snapshot.
		cmdlineRaw, err := os.ReadFile(filepath.Join("/proc", entry.Name(), "cmdline"))
		if err != nil || len(cmdlineRaw) == 0 {
			continue
		}
		cmdline := strings.TrimRight(strings.ReplaceAll(string(cmdlineRaw), "\x00", " "), " ")

		comm := ""
		if raw, err := os.ReadFile(filepath.Join("/proc", entry.Name(), "comm")); err == nil {
			comm = string(raw)
		}
		name := processName(comm, cmdline)
		if name == "" {
			continue
		}

		procs = append(procs, Process{PID: pid, Name: name, Cmdline: cmdline})
	}
	return procs, nil
}

// processName derives a process name from comm, falling back to the first
// cmdline token. An all-NUL cmdline trims to nothing, so a process that exits
// between the cmdline and comm reads can leave both empty; returns "" then
// and the entry is dropped from the snapshot.
func processName(comm, cmdline string) string {
	if name := strings.TrimSpace(comm); name != "" {
		return name
	}
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return ""
	}
	return filepath.Base(fields[0])
}

func (procLister) OpenFiles(ctx context.Context, pid int) ([]string, error) {
	fdDir := filepath.Join("/proc", strconv.Itoa(pid), "fd")
	entries, err := os.ReadDir(fdDir)
	if err != nil {
		// Access to another user's fd table is routinely denied.
		return nil, nil
	}

	var files []string
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		target, err := os.Readlink(filepath.Join(fdDir, entry.Name()))
		if err != nil {
			continue
		}
		// Sockets, pipes, and anonymous inodes come back bracketed or with a
		// pseudo-scheme prefix; only plain absolute paths are files.
		if !strings.HasPrefix(target, "/") || strings.Contains(target, "(deleted)") {
			continue
		}
		if info, err := os.Stat(target); err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, target)
	}
	return files, nil
}
