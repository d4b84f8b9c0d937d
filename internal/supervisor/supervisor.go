// Package supervisor is the top-level actor that owns the collector, the
// syncer, and every long-running pipeline task: it starts each as a
// restart-on-panic goroutine and drains them in priority order on
// shutdown, grounded on the teacher's internal/deployment.ShutdownManager
// generalized from a one-shot shutdown-function list to a supervising
// actor that also restarts the tasks it runs.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"permanode/internal/logging"
)

// Status is a child task's last-observed run state, surfaced through the
// service tree endpoint.
type Status string

const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
	StatusFailed  Status = "failed"
)

// Child is one long-running task the supervisor owns: a collector, the
// syncer, or a solidifier worker. Run blocks until ctx is canceled or the
// task exits on its own; a non-nil return is treated as a crash and
// restarted, up to the supervisor's configured backoff.
type Child struct {
	Name string
	Run  func(ctx context.Context) error

	mu     sync.RWMutex
	status Status
}

func (c *Child) setStatus(s Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = s
}

// ServiceStatus reports c's current run state, for the service tree
// endpoint.
func (c *Child) ServiceStatus() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// ShutdownFunc is a priority-ordered cleanup step run during Shutdown,
// lower priorities first.
type ShutdownFunc struct {
	Name     string
	Priority int
	Func     func(ctx context.Context) error
}

// Supervisor runs a fixed set of Children, restarting any that exit with
// an error, and coordinates an ordered shutdown.
type Supervisor struct {
	log           *logging.EnhancedLogger
	restartDelay  time.Duration
	maxRestarts   int
	children      []*Child
	shutdownFuncs []ShutdownFunc
	mu            sync.Mutex
}

// New builds a Supervisor. restartDelay is the backoff between a crashed
// child's exit and its restart; maxRestarts bounds how many times a single
// child is restarted before the supervisor gives up on it and marks it
// StatusFailed.
func New(restartDelay time.Duration, maxRestarts int) *Supervisor {
	return &Supervisor{
		log:          logging.GetComponentLogger("supervisor"),
		restartDelay: restartDelay,
		maxRestarts:  maxRestarts,
	}
}

// Add registers a child task. Must be called before Run.
func (s *Supervisor) Add(child *Child) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children = append(s.children, child)
}

// RegisterShutdownFunc registers a cleanup step, run in ascending priority
// order during Shutdown.
func (s *Supervisor) RegisterShutdownFunc(name string, priority int, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sf := ShutdownFunc{Name: name, Priority: priority, Func: fn}
	inserted := false
	for i, existing := range s.shutdownFuncs {
		if priority < existing.Priority {
			s.shutdownFuncs = append(s.shutdownFuncs[:i], append([]ShutdownFunc{sf}, s.shutdownFuncs[i:]...)...)
			inserted = true
			break
		}
	}
	if !inserted {
		s.shutdownFuncs = append(s.shutdownFuncs, sf)
	}
}

// Run starts every registered child and blocks until ctx is canceled.
func (s *Supervisor) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, child := range s.children {
		wg.Add(1)
		go func(c *Child) {
			defer wg.Done()
			s.superviseChild(ctx, c)
		}(child)
	}
	wg.Wait()
}

func (s *Supervisor) superviseChild(ctx context.Context, c *Child) {
	restarts := 0
	for {
		c.setStatus(StatusRunning)
		err := s.runOnce(ctx, c)
		if ctx.Err() != nil {
			c.setStatus(StatusStopped)
			return
		}
		if err == nil {
			c.setStatus(StatusStopped)
			return
		}

		restarts++
		s.log.WithError(err).Error("child task exited, restarting", "child", c.Name, "attempt", restarts)
		if restarts > s.maxRestarts {
			c.setStatus(StatusFailed)
			s.log.Error("child task exceeded restart budget, giving up", "child", c.Name)
			return
		}

		select {
		case <-ctx.Done():
			c.setStatus(StatusStopped)
			return
		case <-time.After(s.restartDelay):
		}
	}
}

// runOnce invokes c.Run, converting a panic into an error so the restart
// loop treats it the same as a returned error.
func (s *Supervisor) runOnce(ctx context.Context, c *Child) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", c.Name, r)
		}
	}()
	return c.Run(ctx)
}

// Shutdown runs every registered shutdown function in priority order,
// stopping early if timeout elapses first.
func (s *Supervisor) Shutdown(ctx context.Context, timeout time.Duration) {
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.mu.Lock()
	funcs := make([]ShutdownFunc, len(s.shutdownFuncs))
	copy(funcs, s.shutdownFuncs)
	s.mu.Unlock()

	for _, fn := range funcs {
		select {
		case <-shutdownCtx.Done():
			s.log.Error("shutdown timeout reached", "remaining", fn.Name)
			return
		default:
			start := time.Now()
			if err := fn.Func(shutdownCtx); err != nil {
				s.log.WithError(err).Error("shutdown step failed", "name", fn.Name)
			} else {
				s.log.Info("shutdown step completed", "name", fn.Name, "duration", time.Since(start))
			}
		}
	}
}

// Tree is the recursive service-status shape the /service endpoint walks.
type Tree struct {
	Name         string  `json:"name"`
	Status       Status  `json:"status"`
	Microservices []Tree `json:"microservices,omitempty"`
}

// ServiceTree builds the recursive status tree rooted at this supervisor,
// one leaf per registered child.
func (s *Supervisor) ServiceTree(rootName string) Tree {
	s.mu.Lock()
	children := make([]*Child, len(s.children))
	copy(children, s.children)
	s.mu.Unlock()

	root := Tree{Name: rootName, Status: StatusRunning}
	for _, c := range children {
		status := c.ServiceStatus()
		if status != StatusRunning {
			root.Status = StatusFailed
		}
		root.Microservices = append(root.Microservices, Tree{Name: c.Name, Status: status})
	}
	return root
}
