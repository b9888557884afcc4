// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup starts launched peer applications in their own process
// group and tears the whole group down again.
package procgroup

import (
	"os/exec"
	"syscall"
)

// Set makes cmd the leader of a new process group. Signal and Terminate
// reach helper processes only for commands prepared this way.
func Set(cmd *exec.Cmd) {
	set(cmd)
}

// Signal delivers sig to every process in the group led by cmd.
// A nil or unstarted command and an already reaped group are not errors.
func Signal(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return signalGroup(cmd.Process.Pid, sig)
}

// Alive reports whether pid still names a process.
func Alive(pid int) bool {
	return pid > 0 && alive(pid)
}
