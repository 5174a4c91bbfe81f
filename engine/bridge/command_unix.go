//go:build unix

package bridge

import (
	"errors"
	"os/exec"
	"syscall"
)

// configureCommand runs the engine in its own process group so cancellation
// also stops anything the engine spawned.
func configureCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		pid := cmd.Process.Pid
		if pgid, err := syscall.Getpgid(pid); err == nil && pgid > 0 {
			// Negative PGID targets the whole group.
			err = syscall.Kill(-pgid, syscall.SIGKILL)
			if errors.Is(err, syscall.ESRCH) {
				return nil
			}
			return err
		}
		return cmd.Process.Kill()
	}
}
