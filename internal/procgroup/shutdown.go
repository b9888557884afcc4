// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package procgroup

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/ManuGH/playerbridge/internal/metrics"
)

// Terminate stops the process group of cmd with SIGTERM and escalates to
// SIGKILL once grace passes without an exit status on waitCh. waitCh is
// always drained; its value is returned. Nil commands are a no-op.
func Terminate(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	metrics.IncProcTerminate("SIGTERM", outcome(Signal(cmd, syscall.SIGTERM)))

	timer := time.NewTimer(grace)
	defer timer.Stop()

	forced := false
	var err error
	select {
	case err = <-waitCh:
	case <-timer.C:
		forced = true
		metrics.IncProcTerminate("SIGKILL", outcome(Signal(cmd, syscall.SIGKILL)))
		err = <-waitCh
	}
	metrics.IncProcWait(waitResult(forced, err))
	return err
}

func waitResult(forced bool, err error) string {
	switch {
	case forced && err == nil:
		return "forced_exit0"
	case forced:
		return "forced_error"
	case err == nil:
		return "exit0"
	default:
		return "exit_nonzero"
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "sent"
	case errors.Is(err, os.ErrProcessDone), errors.Is(err, syscall.ESRCH):
		return "esrch"
	default:
		return "error"
	}
}
