package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/specialistvlad/pipegrid/internal/ctxlog"
	"github.com/specialistvlad/pipegrid/internal/graph"
	"github.com/specialistvlad/pipegrid/internal/node"
	"github.com/specialistvlad/pipegrid/internal/nodeid"
)

// ErrDependencyFailed is wrapped by the skip reason of nodes whose upstream
// stage failed.
var ErrDependencyFailed = errors.New("dependency failed")

// DefaultScheduler is the in-memory Scheduler. It keeps a count of unmet
// dependencies per node and releases a node when its count reaches zero.
type DefaultScheduler struct {
	g graph.Graph

	mu      sync.Mutex
	started bool
	closed  bool
	unmet   map[nodeid.Address]int
	settled map[nodeid.Address]bool
	pending int
	ready   chan *node.Node
	stop    func() bool
}

// New creates a scheduler for g.
func New(g graph.Graph) *DefaultScheduler {
	return &DefaultScheduler{
		g:       g,
		unmet:   make(map[nodeid.Address]int),
		settled: make(map[nodeid.Address]bool),
	}
}

// Start implements Scheduler.
func (s *DefaultScheduler) Start(ctx context.Context) (<-chan *node.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil, fmt.Errorf("scheduler already started")
	}
	s.started = true

	all := s.g.AllNodes(ctx)
	// Every node is sent at most once, so a channel of this size never blocks
	// the goroutine reporting Done.
	s.ready = make(chan *node.Node, len(all))
	s.pending = len(all)

	var roots []*node.Node
	for _, n := range all {
		deps, err := s.g.DependenciesOf(ctx, n.ID)
		if err != nil {
			return nil, err
		}
		s.unmet[n.ID] = len(deps)
		if len(deps) == 0 {
			roots = append(roots, n)
		}
	}

	ctxlog.FromContext(ctx).Debug("Scheduler started.", "nodes", len(all), "roots", len(roots))
	for _, n := range roots {
		s.ready <- n
	}
	if s.pending == 0 {
		s.closeLocked()
		return s.ready, nil
	}

	s.stop = context.AfterFunc(ctx, func() {
		s.Cancel(context.WithoutCancel(ctx), context.Cause(ctx))
	})
	return s.ready, nil
}

// Done implements Scheduler.
func (s *DefaultScheduler) Done(ctx context.Context, id nodeid.Address, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.settled[id] {
		return
	}
	s.settle(id)

	if ok {
		s.release(ctx, id)
	} else {
		s.skipDescendants(ctx, id)
	}

	if s.pending == 0 {
		s.closeLocked()
	}
}

// release decrements the unmet count of each dependent and emits those that
// became ready.
func (s *DefaultScheduler) release(ctx context.Context, id nodeid.Address) {
	dependents, err := s.g.DependentsOf(ctx, id)
	if err != nil {
		ctxlog.FromContext(ctx).Error("Failed to get dependents.", "node", id.String(), "error", err)
		return
	}
	for _, d := range dependents {
		s.unmet[d.ID]--
		if s.unmet[d.ID] == 0 && !s.settled[d.ID] && !s.closed {
			ctxlog.FromContext(ctx).Debug("Node is ready.", "node", d.ID.String())
			s.ready <- d
		}
	}
}

func (s *DefaultScheduler) skipDescendants(ctx context.Context, id nodeid.Address) {
	logger := ctxlog.FromContext(ctx)
	descendants, err := graph.Descendants(ctx, s.g, id)
	if err != nil {
		logger.Error("Failed to get descendants.", "node", id.String(), "error", err)
		return
	}
	reason := fmt.Errorf("%w: '%s'", ErrDependencyFailed, id.Name)
	for _, d := range descendants {
		if s.settled[d.ID] {
			continue
		}
		s.settle(d.ID)
		if err := s.g.MarkSkipped(ctx, d.ID, reason); err != nil {
			logger.Warn("Could not skip node.", "node", d.ID.String(), "error", err)
			continue
		}
		logger.Info("⏭️ Skipping stage", "stage", d.ID.Name, "because", id.Name)
	}
}

// Cancel implements Scheduler.
func (s *DefaultScheduler) Cancel(ctx context.Context, reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.closed {
		return
	}
	if reason == nil {
		reason = context.Canceled
	}

	logger := ctxlog.FromContext(ctx)
	for _, n := range s.g.AllNodes(ctx) {
		if s.settled[n.ID] {
			continue
		}
		// Running nodes settle through Done. Anything still pending, queued or
		// not, is skipped so a worker draining the channel cannot start it.
		if status, _ := s.g.NodeStatus(ctx, n.ID); status != node.StatusPending {
			continue
		}
		if err := s.g.MarkSkipped(ctx, n.ID, reason); err != nil {
			continue
		}
		s.settle(n.ID)
		logger.Debug("Node skipped by cancellation.", "node", n.ID.String())
	}
	s.closeLocked()
}

func (s *DefaultScheduler) settle(id nodeid.Address) {
	s.settled[id] = true
	s.pending--
}

func (s *DefaultScheduler) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	if s.stop != nil {
		s.stop()
	}
	close(s.ready)
}
