// Package enrich adds data from secondary Alma endpoints to requested
// resources.
//
// A Task inspects one resource synchronously and returns the subtasks it
// needs; each subtask performs one remote fetch and mutates the resource in
// place. Tasks never block in Enrich, so the caller controls how subtasks
// are scheduled and can count them before any of them settles.
//
// Applying a task twice to the same resource overwrites the same fields.
package enrich

import (
	"context"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Sternrassler/alma-slip-report/pkg/model"
)

var subtasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "alma_enrich_subtasks_total",
	Help: "Enrichment subtasks by task and result",
}, []string{"task", "result"})

// Subtask is one in-flight secondary fetch for a resource.
type Subtask func(ctx context.Context) error

// Task enriches requested resources.
type Task interface {
	// Name identifies the task in logs and metrics.
	Name() string

	// Enrich returns the subtasks needed for r. It does not block.
	Enrich(r *model.RequestedResource) []Subtask
}

// Getter performs a GET against Alma and decodes the JSON body into out.
// *client.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, pathOrURL string, query url.Values, out any) error
}

// instrument wraps fn so its outcome is counted under the task name.
func instrument(task string, fn Subtask) Subtask {
	return func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil {
			subtasksTotal.WithLabelValues(task, "error").Inc()
		} else {
			subtasksTotal.WithLabelValues(task, "ok").Inc()
		}
		return err
	}
}

// Set holds one instance of every task so their shared lookups outlive a
// single run.
type Set struct {
	Item     Task
	Request  Task
	Location Task
	User     Task
}

// NewSet wires every task to client.
func NewSet(client Getter) *Set {
	return &Set{
		Item:     NewItemTask(client),
		Request:  NewRequestTask(client, NewLendingService(client)),
		Location: NewLocationTask(NewConfService(client)),
		User:     NewUserTask(client),
	}
}

// Select returns the tasks enabled by opts in their fixed application
// order: item, request, location, user.
func (s *Set) Select(opts model.EnrichmentOptions) []Task {
	var tasks []Task
	if opts.Item && s.Item != nil {
		tasks = append(tasks, s.Item)
	}
	if opts.Request && s.Request != nil {
		tasks = append(tasks, s.Request)
	}
	if opts.Location && s.Location != nil {
		tasks = append(tasks, s.Location)
	}
	if opts.User && s.User != nil {
		tasks = append(tasks, s.User)
	}
	return tasks
}
