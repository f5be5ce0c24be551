package scheduler

import (
	"context"

	"github.com/specialistvlad/pipegrid/internal/node"
	"github.com/specialistvlad/pipegrid/internal/nodeid"
)

// Scheduler streams ready nodes of a graph.
//
// # Usage Pattern
//
//	ready, err := sch.Start(ctx)
//	for n := range ready {
//	    ok := run(n)
//	    sch.Done(ctx, n.ID, ok)
//	}
//
// The channel is closed once every node has settled (completed, failed or
// skipped), after Cancel, or when the context passed to Start is cancelled.
// Nodes still pending at that point are marked skipped.
//
// Implementations MUST be safe for concurrent use by several workers.
type Scheduler interface {
	// Start emits the root nodes and returns the channel of ready nodes.
	// It may be called once.
	Start(ctx context.Context) (<-chan *node.Node, error)

	// Done reports the outcome of a node previously received from the
	// channel. Reporting the same node twice has no effect.
	Done(ctx context.Context, id nodeid.Address, ok bool)

	// Cancel skips every node that has not started, with reason as the
	// recorded error, and closes the channel. In-flight nodes still report
	// through Done.
	Cancel(ctx context.Context, reason error)
}
