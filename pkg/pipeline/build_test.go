package pipeline

import (
	"testing"
	"time"

	"github.com/dukex/graphflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func diamondPlan() *models.CompiledPlan {
	edges := []models.EdgeMeta{
		{EdgeID: "e1", Source: "start", Target: "left", IsTrigger: true},
		{EdgeID: "e2", Source: "start", Target: "right", IsTrigger: true},
		{EdgeID: "e3", Source: "left", Target: "join"},
		{EdgeID: "e4", Source: "right", Target: "join"},
	}

	index := models.EdgeIndex{}
	for _, edge := range edges {
		target := index[edge.Target]
		target.Incoming = append(target.Incoming, edge)
		index[edge.Target] = target

		source := index[edge.Source]
		source.Outgoing = append(source.Outgoing, edge)
		index[edge.Source] = source
	}

	return &models.CompiledPlan{
		GraphID:        "diamond",
		ExecutionOrder: []string{"start", "left", "right", "join"},
		NodeMappings: map[string]models.NodeMapping{
			"start": {NodeID: "start", ExecutorID: "trigger:manual", TypeID: "trigger:manual"},
			"left":  {NodeID: "left", ExecutorID: "log", TypeID: "log"},
			"right": {NodeID: "right", ExecutorID: "log", TypeID: "log", Config: map[string]any{ConfigPriority: -100}},
			"join":  {NodeID: "join", ExecutorID: "merge", TypeID: "merge", Label: "Output"},
		},
		EdgeIndex: index,
	}
}

func TestBuild_CreatesOnePendingJobPerNode(t *testing.T) {
	now := time.Now()
	pipeline := Build(diamondPlan(), Request{Name: "diamond run", MaxRetries: 2, MaxConcurrentJobs: 3}, now)

	assert.Equal(t, models.PipelineStatusPending, pipeline.Status)
	assert.Equal(t, "diamond", pipeline.GraphID)
	assert.NotEmpty(t, pipeline.ExecutionID)
	assert.NotNil(t, pipeline.InputData)
	require.Len(t, pipeline.Jobs, 4)

	ids := map[string]string{}

	for seq, job := range pipeline.Jobs {
		assert.Equal(t, seq, job.Sequence)
		assert.Equal(t, models.JobStatusPending, job.Status)
		assert.Equal(t, pipeline.ID, job.PipelineID)
		assert.Equal(t, 2, job.MaxRetries)
		ids[job.NodeID] = job.ID
	}

	left := pipeline.Jobs[1]
	assert.Empty(t, left.Dependencies)
	assert.Equal(t, []string{ids["start"]}, left.TriggerDependencies)

	join := pipeline.Jobs[3]
	assert.Equal(t, []string{ids["left"], ids["right"]}, join.Dependencies)
	assert.Empty(t, join.TriggerDependencies)
	assert.Len(t, join.IncomingEdges, 2)

	assert.Equal(t, -100, pipeline.Jobs[2].Priority, "config priority overrides the computed score")
	assert.Equal(t, 2*scorePerDependency+scoreNodeKindShift, join.Priority)
}

func TestReadyJobs(t *testing.T) {
	now := time.Now()
	pipeline := Build(diamondPlan(), Request{}, now)
	jobs := pipeline.Jobs

	ready := ReadyJobs(jobs, now)
	require.Len(t, ready, 1)
	assert.Equal(t, "start", ready[0].NodeID)

	jobs[0].Status = models.JobStatusCompleted
	assert.Len(t, ReadyJobs(jobs, now), 2)

	later := now.Add(time.Minute)
	jobs[1].AvailableAt = &later
	ready = ReadyJobs(jobs, now)
	require.Len(t, ready, 1)
	assert.Equal(t, "right", ready[0].NodeID)

	jobs[1].Status = models.JobStatusCompleted
	jobs[2].Status = models.JobStatusCompleted
	ready = ReadyJobs(jobs, now)
	require.Len(t, ready, 1)
	assert.Equal(t, "join", ready[0].NodeID)
}

func TestReadyJobs_InactiveGatewayBranch(t *testing.T) {
	now := time.Now()
	jobs := []*models.Job{
		{ID: "g", NodeID: "g", Status: models.JobStatusCompleted, OutputData: map[string]any{models.ActiveBranchesKey: "yes"}},
		{ID: "y", NodeID: "y", Status: models.JobStatusPending, TriggerDependencies: []string{"g"},
			IncomingEdges: []models.EdgeMeta{{EdgeID: "e1", Source: "g", Target: "y", IsTrigger: true, BranchName: "yes"}}},
		{ID: "n", NodeID: "n", Status: models.JobStatusPending, TriggerDependencies: []string{"g"},
			IncomingEdges: []models.EdgeMeta{{EdgeID: "e2", Source: "g", Target: "n", IsTrigger: true, BranchName: "no"}}},
	}

	ready := ReadyJobs(jobs, now)
	require.Len(t, ready, 1)
	assert.Equal(t, "y", ready[0].NodeID)
}

func TestPrioritize(t *testing.T) {
	jobs := []*models.Job{
		{ID: "1", NodeID: "writer", TypeID: "output", Sequence: 0, Priority: 5},
		{ID: "2", NodeID: "plain", TypeID: "log", Sequence: 1, Priority: 5},
		{ID: "3", NodeID: "reader", TypeID: "input", Sequence: 2, Priority: 1},
	}

	tests := []struct {
		name     string
		strategy models.PriorityStrategy
		want     []string
	}{
		{name: "fifo keeps creation order", strategy: models.PriorityStrategyFIFO, want: []string{"writer", "plain", "reader"}},
		{name: "priority sorts by job priority", strategy: models.PriorityStrategyPriority, want: []string{"reader", "writer", "plain"}},
		{name: "dependency order favours inputs", strategy: models.PriorityStrategyDependencyOrder, want: []string{"reader", "plain", "writer"}},
		{name: "unknown falls back to dependency order", strategy: "", want: []string{"reader", "plain", "writer"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, job := range Prioritize(tt.strategy, jobs, jobs) {
				got = append(got, job.NodeID)
			}

			assert.Equal(t, tt.want, got)
		})
	}
}
