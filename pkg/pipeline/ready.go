package pipeline

import (
	"cmp"
	"slices"
	"time"

	"github.com/dukex/graphflow/pkg/branch"
	"github.com/dukex/graphflow/pkg/models"
)

// view indexes the jobs of one pipeline for readiness decisions.
type view struct {
	jobs     []*models.Job
	byID     map[string]*models.Job
	executed map[string]bool
	gateways branch.GatewayOutputs
	edges    models.EdgeIndex
}

func newView(jobs []*models.Job) *view {
	v := &view{
		jobs:     jobs,
		byID:     make(map[string]*models.Job, len(jobs)),
		executed: make(map[string]bool),
		gateways: make(branch.GatewayOutputs),
		edges:    make(models.EdgeIndex, len(jobs)),
	}

	for _, job := range jobs {
		v.byID[job.ID] = job
		v.edges[job.NodeID] = models.EdgeMetadata{Incoming: job.IncomingEdges}

		if job.Status != models.JobStatusCompleted {
			continue
		}

		v.executed[job.NodeID] = true

		if active, ok := branch.GatewayOutputFrom(job.OutputData); ok {
			v.gateways[job.NodeID] = active
		}
	}

	for _, job := range jobs {
		for _, edge := range job.IncomingEdges {
			meta := v.edges[edge.Source]
			meta.Outgoing = append(meta.Outgoing, edge)
			v.edges[edge.Source] = meta
		}
	}

	return v
}

func (v *view) isReady(job *models.Job, now time.Time) bool {
	if job.Status != models.JobStatusPending || job.AwaitingRetry(now) {
		return false
	}

	for _, dep := range job.Dependencies {
		if d, ok := v.byID[dep]; !ok || d.Status != models.JobStatusCompleted {
			return false
		}
	}

	return branch.ShouldExecute(job.NodeID, v.gateways, v.edges, v.executed)
}

func (v *view) ready(now time.Time) []*models.Job {
	var ready []*models.Job

	for _, job := range v.jobs {
		if v.isReady(job, now) {
			ready = append(ready, job)
		}
	}

	return ready
}

func (v *view) count(status models.JobStatus) int {
	n := 0

	for _, job := range v.jobs {
		if job.Status == status {
			n++
		}
	}

	return n
}

// awaitingRetry returns the earliest time a delayed retry becomes available.
func (v *view) awaitingRetry(now time.Time) (time.Time, bool) {
	var (
		earliest time.Time
		found    bool
	)

	for _, job := range v.jobs {
		if !job.AwaitingRetry(now) {
			continue
		}

		if !found || job.AvailableAt.Before(earliest) {
			earliest = *job.AvailableAt
			found = true
		}
	}

	return earliest, found
}

func (v *view) unresolved(job *models.Job) int {
	n := 0

	for _, dep := range slices.Concat(job.Dependencies, job.TriggerDependencies) {
		if d, ok := v.byID[dep]; !ok || d.Status != models.JobStatusCompleted {
			n++
		}
	}

	return n
}

// blockedByFailure reports whether a job depends, directly or through other
// pending jobs, on a job that failed terminally.
func (v *view) blockedByFailure(job *models.Job) bool {
	return v.blocked(job, make(map[string]bool))
}

func (v *view) blocked(job *models.Job, seen map[string]bool) bool {
	if seen[job.ID] {
		return false
	}

	seen[job.ID] = true

	for _, dep := range slices.Concat(job.Dependencies, job.TriggerDependencies) {
		d, ok := v.byID[dep]
		if !ok {
			continue
		}

		switch d.Status {
		case models.JobStatusFailed:
			return true
		case models.JobStatusPending:
			if v.blocked(d, seen) {
				return true
			}
		}
	}

	return false
}

// sinkOutputs collects the outputs of completed jobs no other job consumes.
func (v *view) sinkOutputs() map[string]any {
	outputs := make(map[string]any)

	for _, job := range v.jobs {
		if job.Status == models.JobStatusCompleted && len(v.edges[job.NodeID].Outgoing) == 0 {
			outputs[job.NodeID] = job.OutputData
		}
	}

	return outputs
}

// ReadyJobs returns the pending jobs of a pipeline whose dependencies have
// completed and whose trigger rule is satisfied, in sequence order.
func ReadyJobs(jobs []*models.Job, now time.Time) []*models.Job {
	return newView(jobs).ready(now)
}

// Prioritize orders ready jobs for dispatch. Ties always fall back to job
// creation order.
func Prioritize(strategy models.PriorityStrategy, ready []*models.Job, jobs []*models.Job) []*models.Job {
	ordered := slices.Clone(ready)
	v := newView(jobs)

	var key func(*models.Job) int

	switch strategy {
	case models.PriorityStrategyFIFO:
		key = func(*models.Job) int { return 0 }
	case models.PriorityStrategyPriority:
		key = func(job *models.Job) int { return job.Priority }
	default:
		key = func(job *models.Job) int { return dependencyScore(job, v.unresolved(job)) }
	}

	slices.SortStableFunc(ordered, func(a, b *models.Job) int {
		return cmp.Or(cmp.Compare(key(a), key(b)), cmp.Compare(a.Sequence, b.Sequence))
	})

	return ordered
}
