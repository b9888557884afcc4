// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package applaunch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/playerbridge/internal/log"
	"github.com/ManuGH/playerbridge/internal/procgroup"
)

// Environment passed to launched applications.
const (
	EnvAppID       = "PLAYERBRIDGE_APP_ID"
	EnvRuntimeDir  = "PLAYERBRIDGE_RUNTIME_DIR"
	EnvLaunchMode  = "PLAYERBRIDGE_LAUNCH_MODE"
	EnvLaunchExtra = "PLAYERBRIDGE_LAUNCH_EXTRA"
)

const (
	pidFileName  = "pid"
	defaultGrace = 3 * time.Second
)

// App is a launchable application.
type App struct {
	Command string
	Args    []string
	Env     map[string]string
}

// ExecOptions configures an ExecPlatform.
type ExecOptions struct {
	RuntimeDir string
	Apps       map[string]App
	Grace      time.Duration // SIGTERM to SIGKILL delay on Close
	Logger     zerolog.Logger
}

// ExecPlatform launches registered applications as child processes, each in
// its own process group. Launching an application that is still running
// activates it and succeeds without starting a second instance.
type ExecPlatform struct {
	runtimeDir string
	apps       map[string]App
	grace      time.Duration
	logger     zerolog.Logger

	mu      sync.Mutex
	running map[string]*process
	closed  bool
	wg      sync.WaitGroup
}

type process struct {
	appID   string
	cmd     *exec.Cmd
	pidPath string
	done    chan struct{}
	err     error // valid after done is closed
}

var _ Platform = (*ExecPlatform)(nil)

// NewExecPlatform creates a platform for opts.Apps.
func NewExecPlatform(opts ExecOptions) *ExecPlatform {
	apps := make(map[string]App, len(opts.Apps))
	for id, app := range opts.Apps {
		apps[id] = app
	}
	grace := opts.Grace
	if grace <= 0 {
		grace = defaultGrace
	}
	return &ExecPlatform{
		runtimeDir: opts.RuntimeDir,
		apps:       apps,
		grace:      grace,
		logger:     opts.Logger,
		running:    make(map[string]*process),
	}
}

func (p *ExecPlatform) NewControl() (Control, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPlatformClosed
	}
	return &execControl{platform: p, mode: LaunchModeSingle, extra: make(map[string]string)}, nil
}

// Running reports whether appID has a live launched instance.
func (p *ExecPlatform) Running(appID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	proc, ok := p.running[appID]
	return ok && !proc.exited()
}

// PID returns the process id of the running instance of appID.
func (p *ExecPlatform) PID(appID string) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	proc, ok := p.running[appID]
	if !ok || proc.exited() {
		return 0, false
	}
	return proc.cmd.Process.Pid, true
}

// Close terminates every launched instance and waits for them to exit or
// for ctx to end.
func (p *ExecPlatform) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	procs := make([]*process, 0, len(p.running))
	for _, proc := range p.running {
		procs = append(procs, proc)
	}
	p.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	for _, proc := range procs {
		g.Go(func() error {
			if proc.exited() {
				return nil
			}
			err := procgroup.Terminate(proc.cmd, proc.waitCh(), p.grace)
			p.logger.Info().Err(err).
				Str(log.FieldEvent, "launch.terminated").
				Str(log.FieldRemoteApp, proc.appID).
				Msg("launched application stopped")
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *ExecPlatform) launch(ctx context.Context, appID string, mode LaunchMode, extra map[string]string) ResultCode {
	if err := ctx.Err(); err != nil {
		return contextResult(err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ResultLaunchRejected
	}
	app, ok := p.apps[appID]
	if !ok {
		return ResultAppNotFound
	}
	if proc, ok := p.running[appID]; ok && !proc.exited() {
		p.logger.Debug().
			Str(log.FieldRemoteApp, appID).
			Int("pid", proc.cmd.Process.Pid).
			Msg("application already running, activating")
		return ResultNone
	}

	path, err := exec.LookPath(app.Command)
	if err != nil {
		return startResult(err)
	}

	extraJSON, err := json.Marshal(extra)
	if err != nil {
		return ResultInvalidParameter
	}

	cmd := exec.Command(path, app.Args...)
	cmd.Env = append(os.Environ(), appEnv(app.Env)...)
	cmd.Env = append(cmd.Env,
		EnvAppID+"="+appID,
		EnvRuntimeDir+"="+p.runtimeDir,
		EnvLaunchMode+"="+mode.String(),
		EnvLaunchExtra+"="+string(extraJSON),
	)
	procgroup.Set(cmd)

	if err := cmd.Start(); err != nil {
		p.logger.Warn().Err(err).Str(log.FieldRemoteApp, appID).Msg("starting application")
		return startResult(err)
	}

	proc := &process{appID: appID, cmd: cmd, done: make(chan struct{})}
	if p.runtimeDir != "" {
		proc.pidPath = filepath.Join(p.runtimeDir, appID, pidFileName)
		if err := writePIDFile(proc.pidPath, cmd.Process.Pid); err != nil {
			p.logger.Warn().Err(err).Str(log.FieldPath, proc.pidPath).Msg("writing pid file")
			proc.pidPath = ""
		}
	}
	p.running[appID] = proc

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		proc.err = cmd.Wait()
		close(proc.done)
		if proc.pidPath != "" {
			_ = os.Remove(proc.pidPath)
		}
		p.mu.Lock()
		if p.running[appID] == proc {
			delete(p.running, appID)
		}
		p.mu.Unlock()
		p.logger.Info().Err(proc.err).
			Str(log.FieldEvent, "launch.exited").
			Str(log.FieldRemoteApp, appID).
			Msg("launched application exited")
	}()

	p.logger.Info().
		Str(log.FieldEvent, "launch.started").
		Str(log.FieldRemoteApp, appID).
		Int("pid", cmd.Process.Pid).
		Msg("application started")
	return ResultNone
}

func (proc *process) exited() bool {
	select {
	case <-proc.done:
		return true
	default:
		return false
	}
}

// waitCh yields the exit status once the process has been reaped.
func (proc *process) waitCh() <-chan error {
	ch := make(chan error, 1)
	go func() {
		<-proc.done
		ch <- proc.err
	}()
	return ch
}

func appEnv(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

func contextResult(err error) ResultCode {
	if errors.Is(err, context.DeadlineExceeded) {
		return ResultTimedOut
	}
	return ResultLaunchRejected
}

func startResult(err error) ResultCode {
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return ResultAppNotFound
	case errors.Is(err, fs.ErrPermission), errors.Is(err, syscall.EPERM):
		return ResultPermissionDenied
	case errors.Is(err, syscall.ENOMEM):
		return ResultOutOfMemory
	default:
		return ResultLaunchFailed
	}
}

type execControl struct {
	platform  *ExecPlatform
	appID     string
	mode      LaunchMode
	extra     map[string]string
	destroyed bool
}

func (c *execControl) SetAppID(appID string) error {
	if appID == "" {
		return errors.New("app id is empty")
	}
	c.appID = appID
	return nil
}

func (c *execControl) SetLaunchMode(mode LaunchMode) error {
	if !mode.Valid() {
		return fmt.Errorf("invalid launch mode %s", mode)
	}
	c.mode = mode
	return nil
}

func (c *execControl) AddExtraData(key, value string) error {
	if key == "" {
		return errors.New("extra data key is empty")
	}
	c.extra[key] = value
	return nil
}

func (c *execControl) SendLaunchRequest(ctx context.Context) ResultCode {
	if c.destroyed || c.appID == "" {
		return ResultInvalidParameter
	}
	return c.platform.launch(ctx, c.appID, c.mode, c.extra)
}

func (c *execControl) Destroy() {
	c.destroyed = true
	c.extra = nil
}
