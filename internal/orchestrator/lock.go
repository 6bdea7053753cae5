// Package orchestrator implements the scheduled-job plumbing spec.md
// §4.9 describes: a host-scoped file lock with stale-holder eviction,
// a per-job wall-clock timeout wrapper, the health-report writer, the
// daily lifecycle job, and an optional in-process cron table for
// daemon mode. The one-shot CLI subcommands in cmd/ remain the primary
// contract; the cron table is additive.
package orchestrator

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/macedonia-transparency/procurement-pipeline/internal/apperr"
	"github.com/macedonia-transparency/procurement-pipeline/internal/logging"
)

var log = logging.For("orchestrator")

// Lock is a file-based mutex scoped to the host, content `<pid>\n<unix
// timestamp>\n<browser pid, optional>`. It is advisory: correctness
// depends on every crawler/processor process going through Acquire.
type Lock struct {
	path string
	held bool
}

// NewLock returns a Lock backed by the given path (typically
// cfg.LockDir/<dataset>.lock).
func NewLock(path string) *Lock {
	return &Lock{path: path}
}

// Acquire blocks up to timeout trying to create the lock file
// exclusively. If an existing lock is older than staleAge, its holder
// (and any recorded child browser process) is killed and the lock is
// reclaimed. Returns apperr.LockContested if acquisition times out
// against a live holder.
func (l *Lock) Acquire(timeout, staleAge time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if err := l.tryCreate(); err == nil {
			l.held = true
			return nil
		}

		holder, err := l.readHolder()
		if err != nil {
			// Unreadable or racing removal; retry shortly.
			time.Sleep(200 * time.Millisecond)
			continue
		}

		if time.Since(holder.acquiredAt) > staleAge {
			log.WithFields(logging.Fields{"pid": holder.pid, "path": l.path}).
				Warn("evicting stale lock holder")
			l.killHolder(holder)
			os.Remove(l.path)
			continue
		}

		if time.Now().After(deadline) {
			return apperr.New(apperr.CategoryLockContested, "orchestrator",
				fmt.Errorf("lock %s held by pid %d since %s", l.path, holder.pid, holder.acquiredAt))
		}
		time.Sleep(500 * time.Millisecond)
	}
}

// Release removes the lock file. Safe to call even if Acquire never
// succeeded.
func (l *Lock) Release() error {
	if !l.held {
		return nil
	}
	l.held = false
	return os.Remove(l.path)
}

// RecordBrowserPID appends a child browser process id to an already
// held lock file, so a future stale-eviction can kill it too.
func (l *Lock) RecordBrowserPID(pid int) error {
	if !l.held {
		return fmt.Errorf("orchestrator: cannot record browser pid on an unheld lock")
	}
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "%d\n", pid)
	return err
}

type holder struct {
	pid        int
	acquiredAt time.Time
	browserPID int
}

func (l *Lock) tryCreate() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "%d\n%d\n", os.Getpid(), time.Now().Unix())
	return err
}

func (l *Lock) readHolder() (holder, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return holder{}, err
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) < 2 {
		return holder{}, fmt.Errorf("orchestrator: malformed lock file %s", l.path)
	}
	pid, err := strconv.Atoi(lines[0])
	if err != nil {
		return holder{}, err
	}
	ts, err := strconv.ParseInt(lines[1], 10, 64)
	if err != nil {
		return holder{}, err
	}
	h := holder{pid: pid, acquiredAt: time.Unix(ts, 0)}
	if len(lines) >= 3 {
		if bp, err := strconv.Atoi(lines[2]); err == nil {
			h.browserPID = bp
		}
	}
	return h, nil
}

// killHolder sends SIGTERM, waits 5s, then SIGKILL -- to the stale
// process and, if recorded, its orphaned chromedp browser child. A lock
// file written by this same process is reclaimed without signalling.
func (l *Lock) killHolder(h holder) {
	if h.pid == os.Getpid() {
		return
	}
	terminate(h.pid)
	if h.browserPID != 0 {
		terminate(h.browserPID)
	}
	time.Sleep(5 * time.Second)
	kill(h.pid)
	if h.browserPID != 0 {
		kill(h.browserPID)
	}
}

func terminate(pid int) {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return
	}
	_ = proc.Signal(syscall.SIGTERM)
}

func kill(pid int) {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return
	}
	_ = proc.Signal(syscall.SIGKILL)
}
