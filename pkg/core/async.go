package core

import (
	"context"
	"sync"

	"github.com/recall-labs/recallmem-go/pkg/retention"
	"github.com/recall-labs/recallmem-go/pkg/storage"
)

// OptimizeResult carries the outcome of an asynchronous optimization run.
type OptimizeResult struct {
	// Report is the optimization report, nil on error.
	Report *retention.Report

	// Error is the run error, nil on success.
	Error error
}

// PruneResult carries the outcome of an asynchronous pruning run.
type PruneResult struct {
	// Removed is the number of memories removed.
	Removed int

	// Error is the run error, nil on success.
	Error error
}

// AsyncClient provides asynchronous maintenance operations.
//
// The optimization pipeline and AI-assisted pruning may cross a network
// boundary to the reasoning service, which makes them the engine's only
// long-running operations; AsyncClient runs them in goroutines and delivers
// results over channels so an agent runtime can keep serving turns while
// maintenance runs.
//
// Example:
//
//	asyncClient, _ := core.NewAsyncClient(config)
//	defer asyncClient.Close()
//
//	resultChan := asyncClient.OptimizeAsync(ctx, "session_001")
//	// ... keep handling turns ...
//	result := <-resultChan
//	if result.Error != nil {
//	    log.Print(result.Error)
//	}
type AsyncClient struct {
	*Client
	wg sync.WaitGroup
}

// NewAsyncClient creates a new asynchronous client from configuration.
func NewAsyncClient(cfg *Config) (*AsyncClient, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	return &AsyncClient{
		Client: client,
	}, nil
}

// NewAsyncClientWithStore creates an asynchronous client over an explicitly
// injected store and scorer.
func NewAsyncClientWithStore(store storage.MemoryStore, scorer retention.Scorer, cfg *Config) (*AsyncClient, error) {
	client, err := NewClientWithStore(store, scorer, cfg)
	if err != nil {
		return nil, err
	}

	return &AsyncClient{
		Client: client,
	}, nil
}

// OptimizeAsync runs the optimization pipeline in a goroutine.
//
// Returns a channel that receives the result when the run completes. The
// channel is buffered and closed after delivery.
func (ac *AsyncClient) OptimizeAsync(ctx context.Context, sessionID string) <-chan *OptimizeResult {
	resultChan := make(chan *OptimizeResult, 1)
	ac.wg.Add(1)

	go func() {
		defer ac.wg.Done()
		report, err := ac.Optimize(ctx, sessionID)
		resultChan <- &OptimizeResult{
			Report: report,
			Error:  err,
		}
		close(resultChan)
	}()

	return resultChan
}

// PruneAsync runs the named pruning strategy in a goroutine.
//
// Returns a channel that receives the result when the run completes. The
// channel is buffered and closed after delivery.
func (ac *AsyncClient) PruneAsync(ctx context.Context, strategy, sessionID string) <-chan *PruneResult {
	resultChan := make(chan *PruneResult, 1)
	ac.wg.Add(1)

	go func() {
		defer ac.wg.Done()
		removed, err := ac.PruneMemories(ctx, strategy, sessionID)
		resultChan <- &PruneResult{
			Removed: removed,
			Error:   err,
		}
		close(resultChan)
	}()

	return resultChan
}

// Wait blocks until all in-flight asynchronous operations complete.
func (ac *AsyncClient) Wait() {
	ac.wg.Wait()
}

// Close waits for in-flight operations and closes the underlying client.
func (ac *AsyncClient) Close() error {
	ac.wg.Wait()
	return ac.Client.Close()
}
