//go:build unix

package process

import (
	"errors"
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// Group is the handle of a process group created at launch.
// Signaling a Group reaches the leader and every descendant that did not
// move to another group.
type Group struct {
	pgid int
}

// ID returns the process group id, or -1 for an unstarted process.
func (g Group) ID() int {
	return g.pgid
}

// Terminate sends a single SIGINT to every process in the group.
// It does not wait for the group to exit and never escalates. A group that
// no longer exists is not an error.
func Terminate(g Group) error {
	if g.pgid <= 0 {
		return ErrProcessNotStarted
	}
	if err := unix.Kill(-g.pgid, unix.SIGINT); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return nil
		}
		return fmt.Errorf("interrupt process group %d: %w", g.pgid, err)
	}
	return nil
}

func groupAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}
