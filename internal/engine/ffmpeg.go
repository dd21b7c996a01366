package engine

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// logTailLines is how much stderr context an ExecError carries.
const logTailLines = 20

// FFmpeg runs the system ffmpeg binary against a private scratch
// directory that acts as the engine's flat filesystem namespace.
type FFmpeg struct {
	binary  string
	workDir string

	loader loader

	// runMu serializes Exec: one in-flight command per instance.
	runMu sync.Mutex

	stateMu    sync.Mutex
	terminated bool
	cancelExec context.CancelFunc

	subMu   sync.Mutex
	subs    map[int]Handler
	nextSub int
}

// NewFFmpeg creates an engine over workDir. An empty binary falls back to
// "ffmpeg" on PATH.
func NewFFmpeg(binary, workDir string) *FFmpeg {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{
		binary:  binary,
		workDir: workDir,
		subs:    make(map[int]Handler),
	}
}

// Load verifies the ffmpeg binary and the x264 encoder, and prepares the
// scratch directory. Concurrent callers share one in-flight probe.
func (f *FFmpeg) Load(ctx context.Context) error {
	err := f.loader.ensure(func() error {
		if _, err := exec.LookPath(f.binary); err != nil {
			return fmt.Errorf("locate engine binary: %w", err)
		}
		if err := os.MkdirAll(f.workDir, 0755); err != nil {
			return fmt.Errorf("create engine workspace: %w", err)
		}
		if err := f.testEncoder(ctx); err != nil {
			return fmt.Errorf("engine self-test: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	f.stateMu.Lock()
	f.terminated = false
	f.stateMu.Unlock()
	return nil
}

// testEncoder runs a one-frame null encode to confirm the build carries
// the encoder the burn pipeline depends on.
func (f *FFmpeg) testEncoder(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, f.binary,
		"-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", "nullsrc=s=64x64:d=0.1:r=1",
		"-c:v", "libx264",
		"-frames:v", "1",
		"-f", "null", "-",
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("libx264 unavailable: %v %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func (f *FFmpeg) WriteFile(ctx context.Context, name string, data []byte) error {
	path, err := f.resolve(name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (f *FFmpeg) ReadFile(ctx context.Context, name string) ([]byte, error) {
	path, err := f.resolve(name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// DeleteFile removes a scratch file. A missing file is not an error:
// cleanup paths delete optimistically.
func (f *FFmpeg) DeleteFile(ctx context.Context, name string) error {
	path, err := f.resolve(name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Exec runs one ffmpeg command inside the scratch directory, streaming
// stderr lines to subscribers as log events.
func (f *FFmpeg) Exec(ctx context.Context, args []string) error {
	if err := f.ready(); err != nil {
		return err
	}

	f.runMu.Lock()
	defer f.runMu.Unlock()

	execCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	f.stateMu.Lock()
	if f.terminated {
		f.stateMu.Unlock()
		return ErrTerminated
	}
	f.cancelExec = cancel
	f.stateMu.Unlock()

	defer func() {
		f.stateMu.Lock()
		f.cancelExec = nil
		f.stateMu.Unlock()
	}()

	cmd := exec.CommandContext(execCtx, f.binary, args...)
	cmd.Dir = f.workDir

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("engine stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}

	var tail []string
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		f.emit(Event{Type: EventLog, Message: line})
		tail = append(tail, line)
		if len(tail) > logTailLines {
			tail = tail[len(tail)-logTailLines:]
		}
	}

	waitErr := cmd.Wait()

	f.stateMu.Lock()
	terminated := f.terminated
	f.stateMu.Unlock()
	if terminated {
		return ErrTerminated
	}
	if waitErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &ExecError{Args: args, Err: waitErr, LogTail: tail}
	}
	return nil
}

// Subscribe registers an event handler; the returned function removes it.
func (f *FFmpeg) Subscribe(h Handler) func() {
	f.subMu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = h
	f.subMu.Unlock()

	return func() {
		f.subMu.Lock()
		delete(f.subs, id)
		f.subMu.Unlock()
	}
}

// Terminate aborts any in-flight Exec and invalidates the instance until
// the next Load. The interrupted Exec reports ErrTerminated.
func (f *FFmpeg) Terminate() {
	f.stateMu.Lock()
	f.terminated = true
	cancel := f.cancelExec
	f.stateMu.Unlock()

	f.loader.invalidate()
	if cancel != nil {
		cancel()
	}
	log.Printf("[engine] terminated, reload required before next run")
}

func (f *FFmpeg) ready() error {
	f.stateMu.Lock()
	terminated := f.terminated
	f.stateMu.Unlock()
	if terminated {
		return ErrTerminated
	}
	if !f.loader.isLoaded() {
		return ErrNotLoaded
	}
	return nil
}

// resolve maps a flat scratch filename to its on-disk path, rejecting
// anything that would escape the workspace.
func (f *FFmpeg) resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid engine filename %q", name)
	}
	return filepath.Join(f.workDir, name), nil
}

func (f *FFmpeg) emit(ev Event) {
	f.subMu.Lock()
	handlers := make([]Handler, 0, len(f.subs))
	for _, h := range f.subs {
		handlers = append(handlers, h)
	}
	f.subMu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}
