package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Tenderflow/internal/domain"
)

func TestTimeline_RepeatableReads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tender := f.create(t)
	f.approve(t, tender.ID, f.tech)
	f.approve(t, tender.ID, f.tech)

	first, err := f.svc.Timeline(ctx, tender.ID)
	require.NoError(t, err)
	second, err := f.svc.Timeline(ctx, tender.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first, 3)

	assert.Equal(t, domain.ActionCreated, first[0].Entry.Action)
	require.NotNil(t, first[0].Step)
	assert.Equal(t, "Expression du besoin", first[0].Step.Title)
	assert.Equal(t, domain.StepRef{Phase: 1, Step: 2}, first[2].Entry.Step)
}

func TestTimeline_UnknownTender(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Timeline(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTasksForActor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t)
	b := f.create(t)
	f.approve(t, b.ID, f.tech)
	f.approve(t, b.ID, f.tech)
	f.approve(t, b.ID, f.tech) // (1,4), budget_service

	tasks, err := f.svc.TasksForActor(ctx, f.tech.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, a.ID, tasks[0].TenderID)
	assert.Equal(t, "Expression du besoin", tasks[0].StepTitle)
	assert.Equal(t, domain.RoleTechnicalService, tasks[0].Role)

	_, err = f.svc.TasksForActor(ctx, uuid.Nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTasksForRole_ExcludesFinishedTenders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	active := f.create(t)
	cancelled := f.create(t)
	_, err := f.svc.Cancel(ctx, TransitionInput{TenderID: cancelled.ID, ActorID: f.admin.ID})
	require.NoError(t, err)

	tasks, err := f.svc.TasksForRole(ctx, domain.RoleTechnicalService)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, active.ID, tasks[0].TenderID)

	all, err := f.svc.TasksForRole(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = f.svc.TasksForRole(ctx, domain.Role("janitor"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetTasks_AcceptsActorOrRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tender := f.create(t)

	byActor, err := f.svc.GetTasks(ctx, f.tech.ID.String())
	require.NoError(t, err)
	require.Len(t, byActor, 1)
	assert.Equal(t, tender.ID, byActor[0].TenderID)

	byRole, err := f.svc.GetTasks(ctx, " technical_service ")
	require.NoError(t, err)
	assert.Equal(t, byActor, byRole)

	_, err = f.svc.GetTasks(ctx, "nobody")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTasks_FlagOverdue(t *testing.T) {
	f := newFixture(t)
	f.create(t)

	f.clock.Advance(DefaultDeadline + time.Hour)
	tasks, err := f.svc.TasksForActor(context.Background(), f.tech.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].Overdue)
}

func TestListTenders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t)
	f.clock.Advance(time.Minute)
	newest := f.create(t)

	tenders, err := f.svc.ListTenders(ctx, ListFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, tenders, 1)
	assert.Equal(t, newest.ID, tenders[0].ID)

	_, err = f.svc.ListTenders(ctx, ListFilter{Status: "archived"})
	assert.ErrorIs(t, err, ErrValidation)

	got, err := f.svc.GetTender(ctx, newest.ID)
	require.NoError(t, err)
	assert.Equal(t, newest.Reference, got.Reference)

	_, err = f.svc.GetTender(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
