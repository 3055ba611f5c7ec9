// Package renderer manages the local Fadecandy server process that turns
// OPC frames into LED strip output.
package renderer

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"net"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"time"
)

const (
	// probeTimeout bounds the check for an already-running renderer.
	probeTimeout = 500 * time.Millisecond
	// stopTimeout is how long Stop waits after SIGTERM before killing the
	// process.
	stopTimeout = 3 * time.Second
)

// Supervisor starts and stops the platform fcserver binary. It only ever
// owns a process it launched itself; a renderer that is already listening on
// the OPC port is left alone.
type Supervisor struct {
	addr   string
	binDir string

	mu      sync.Mutex
	cmd     *exec.Cmd
	done    chan struct{}
	started bool
}

// NewSupervisor returns a supervisor probing addr ("host:port") and
// launching the renderer binary from binDir when nothing answers.
func NewSupervisor(addr, binDir string) *Supervisor {
	return &Supervisor{addr: addr, binDir: binDir}
}

// Start launches fcserver unless an instance is already listening on the
// OPC port. Calling Start again after a successful launch is a no-op.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if conn, err := net.DialTimeout("tcp", s.addr, probeTimeout); err == nil {
		conn.Close()
		log.Printf("[Renderer] An instance is already listening on %s, not launching another", s.addr)
		return nil
	}

	bin := filepath.Join(s.binDir, binaryName())
	cmd := exec.Command(bin)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("renderer stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("renderer stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start renderer %s: %w", bin, err)
	}

	s.cmd = cmd
	s.started = true
	s.done = make(chan struct{})
	go streamOutput(stdout)
	go streamOutput(stderr)
	go s.reap()

	log.Printf("[Renderer] Started %s (pid %d)", filepath.Base(bin), cmd.Process.Pid)
	return nil
}

// Stop terminates the renderer if this supervisor launched it, escalating
// from SIGTERM to SIGKILL after a grace period.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if err := s.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		_ = s.cmd.Process.Kill()
	}
	select {
	case <-s.done:
	case <-time.After(stopTimeout):
		log.Println("[Renderer] Process ignored SIGTERM, killing it")
		_ = s.cmd.Process.Kill()
		<-s.done
	}
	s.started = false
	log.Println("[Renderer] Stopped")
}

// reap waits for the process so it never becomes a zombie, and logs exits
// the supervisor did not ask for.
func (s *Supervisor) reap() {
	err := s.cmd.Wait()
	close(s.done)
	if err != nil {
		log.Printf("[Renderer] Process exited: %v", err)
	}
}

func streamOutput(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		log.Printf("[Renderer] %s", scanner.Text())
	}
}

// binaryName picks the fcserver build that matches the platform, the same
// naming the upstream Fadecandy project ships.
func binaryName() string {
	switch runtime.GOOS {
	case "windows":
		return "fcserver.exe"
	case "darwin":
		return "fcserver-osx"
	default:
		return "fcserver-rpi"
	}
}
