package server

import (
	"errors"
	"fmt"
	"sync"
)

// Workspace holds the latest analysis of every open document.
type Workspace struct {
	analyses map[string]*Analysis
}

// NewWorkspace creates an empty workspace.
func NewWorkspace() *Workspace {
	return &Workspace{analyses: make(map[string]*Analysis)}
}

// Update re-analyzes a document and returns the new analysis.
func (ws *Workspace) Update(uri, text string) *Analysis {
	a := Analyze(text)
	ws.analyses[uri] = a
	return a
}

// Get returns the latest analysis of a document.
func (ws *Workspace) Get(uri string) (*Analysis, bool) {
	a, ok := ws.analyses[uri]
	return a, ok
}

// Remove forgets a closed document.
func (ws *Workspace) Remove(uri string) {
	delete(ws.analyses, uri)
}

// Len returns the number of tracked documents.
func (ws *Workspace) Len() int {
	return len(ws.analyses)
}

// workRequest represents a unit of work to be executed on the worker goroutine.
type workRequest struct {
	fn   func(*Workspace) interface{}
	done chan workResult
}

// workResult holds the return value from a workspace operation.
type workResult struct {
	value interface{}
	err   error
}

// Worker serializes all workspace access through a single goroutine.
// LSP handlers run concurrently; analysis state is not locked.
type Worker struct {
	ws       *Workspace
	requests chan workRequest
	quit     chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a Worker and starts the processing goroutine.
func NewWorker(ws *Workspace) *Worker {
	w := &Worker{
		ws:       ws,
		requests: make(chan workRequest, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop processes requests sequentially on a dedicated goroutine.
func (w *Worker) loop() {
	for {
		select {
		case req := <-w.requests:
			result := w.execute(req.fn)
			req.done <- result
		case <-w.quit:
			return
		}
	}
}

// execute runs a function on the workspace, recovering from panics.
func (w *Worker) execute(fn func(*Workspace) interface{}) workResult {
	var result workResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.err = fmt.Errorf("%v", r)
			}
		}()
		result.value = fn(w.ws)
	}()
	return result
}

// Do submits a function for execution on the worker goroutine and blocks
// until it completes. Returns the result and any error (including panics).
func (w *Worker) Do(fn func(*Workspace) interface{}) (interface{}, error) {
	req := workRequest{
		fn:   fn,
		done: make(chan workResult, 1),
	}
	select {
	case <-w.quit:
		return nil, errWorkerStopped
	default:
	}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, errWorkerStopped
	}
	select {
	case result := <-req.done:
		return result.value, result.err
	case <-w.quit:
		return nil, errWorkerStopped
	}
}

var errWorkerStopped = errors.New("worker stopped")

// Stop shuts down the worker goroutine. It is safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}
