//go:build unix

package plugin

import (
	"os/exec"
	"syscall"
)

// killGroup runs the plugin in its own process group and kills the whole
// group on cancellation, so children holding stdout do not outlive it.
func killGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
