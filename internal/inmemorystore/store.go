package inmemorystore

import (
	"context"
	"sync"

	"github.com/specialistvlad/pipegrid/internal/node"
	"github.com/specialistvlad/pipegrid/internal/nodeid"
	"github.com/specialistvlad/pipegrid/internal/nodestore"
)

// Store is an in-memory implementation of nodestore.Store.
type Store struct {
	states  sync.Map // Key: nodeid.Address, Value: node.Status
	outputs sync.Map // Key: nodeid.Address, Value: any
	errors  sync.Map // Key: nodeid.Address, Value: error
	timings sync.Map // Key: nodeid.Address, Value: nodestore.Timing
}

// New creates a new, empty in-memory node state store.
func New() nodestore.Store {
	return &Store{}
}

// SetStatus updates the execution status of a specific node.
func (s *Store) SetStatus(ctx context.Context, id nodeid.Address, status node.Status) error {
	s.states.Store(id, status)
	return nil
}

// GetStatus retrieves the execution status of a specific node.
func (s *Store) GetStatus(ctx context.Context, id nodeid.Address) (node.Status, error) {
	status, ok := s.states.Load(id)
	if !ok {
		return node.StatusPending, nil
	}
	return status.(node.Status), nil
}

// SetOutput records the output of a node.
func (s *Store) SetOutput(ctx context.Context, id nodeid.Address, output any) error {
	s.outputs.Store(id, output)
	return nil
}

// GetOutput retrieves the recorded output of a node.
func (s *Store) GetOutput(ctx context.Context, id nodeid.Address) (any, error) {
	output, _ := s.outputs.Load(id)
	return output, nil
}

// SetError records the error of a node.
func (s *Store) SetError(ctx context.Context, id nodeid.Address, nodeErr error) error {
	if nodeErr == nil {
		s.errors.Delete(id)
		return nil
	}
	s.errors.Store(id, nodeErr)
	return nil
}

// GetError retrieves the recorded error of a node.
func (s *Store) GetError(ctx context.Context, id nodeid.Address) (error, error) {
	err, ok := s.errors.Load(id)
	if !ok {
		return nil, nil
	}
	return err.(error), nil
}

// SetTiming records when a node started and finished.
func (s *Store) SetTiming(ctx context.Context, id nodeid.Address, timing nodestore.Timing) error {
	s.timings.Store(id, timing)
	return nil
}

// GetTiming retrieves the recorded timing of a node.
func (s *Store) GetTiming(ctx context.Context, id nodeid.Address) (nodestore.Timing, error) {
	timing, ok := s.timings.Load(id)
	if !ok {
		return nodestore.Timing{}, nil
	}
	return timing.(nodestore.Timing), nil
}
