package data_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lessonforge/videogen/internal/data"
	"github.com/lessonforge/videogen/internal/domain/model"
)

func newTestJob(id string) *model.Job {
	sub := model.Submission{Question: "What is a derivative?"}
	sub.ApplyDefaults()
	return model.NewJob(id, sub)
}

func TestMemStore_CreateAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := data.NewMemStore()

	job := newTestJob("job-1")
	require.NoError(t, store.Create(ctx, job))

	got, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, got.Status)
	assert.Equal(t, job.Submission, got.Submission)
}

func TestMemStore_CreateDuplicate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := data.NewMemStore()

	require.NoError(t, store.Create(ctx, newTestJob("job-1")))
	err := store.Create(ctx, newTestJob("job-1"))
	assert.ErrorIs(t, err, data.ErrJobExists)
}

func TestMemStore_GetUnknownHasNoSideEffects(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := data.NewMemStore()

	_, err := store.Get(ctx, "nope")
	require.ErrorIs(t, err, data.ErrJobNotFound)

	// A failed lookup must not create a record.
	jobs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestMemStore_UpdateUnknown(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := data.NewMemStore()

	_, err := store.Update(ctx, "nope", func(*model.Job) error { return nil })
	assert.ErrorIs(t, err, data.ErrJobNotFound)
}

func TestMemStore_UpdateIsAtomic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := data.NewMemStore()
	require.NoError(t, store.Create(ctx, newTestJob("job-1")))

	// A failing mutation must leave the record untouched.
	boom := errors.New("boom")
	_, err := store.Update(ctx, "job-1", func(j *model.Job) error {
		j.AppendLog("half-done")
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Empty(t, got.Logs)
}

func TestMemStore_SnapshotIsolation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := data.NewMemStore()
	require.NoError(t, store.Create(ctx, newTestJob("job-1")))

	snap, err := store.Get(ctx, "job-1")
	require.NoError(t, err)

	// Mutating a snapshot must not leak into the canonical record.
	snap.AppendLog("tampered")
	snap.Status = model.JobStatusFailed

	got, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, got.Status)
	assert.Empty(t, got.Logs)
}

func TestMemStore_ConcurrentAppendsAllLand(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := data.NewMemStore()
	require.NoError(t, store.Create(ctx, newTestJob("job-1")))

	const writers = 32
	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, "job-1", func(j *model.Job) error {
				j.AppendLog("entry")
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Len(t, got.Logs, writers)
}

func TestMemStore_Delete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := data.NewMemStore()
	require.NoError(t, store.Create(ctx, newTestJob("job-1")))

	deleted, err := store.Delete(ctx, "job-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.Delete(ctx, "job-1")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = store.Get(ctx, "job-1")
	assert.ErrorIs(t, err, data.ErrJobNotFound)
}
