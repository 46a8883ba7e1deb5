package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailedList_BoundedNewestFirst(t *testing.T) {
	list := NewFailedList(3)

	for i := 0; i < 5; i++ {
		list.Add(Job{ID: fmt.Sprintf("job-%d", i)}, FailureInternal, errors.New("boom"))
	}

	snap := list.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "job-4", snap[0].Job.ID)
	assert.Equal(t, "job-3", snap[1].Job.ID)
	assert.Equal(t, "job-2", snap[2].Job.ID)
	assert.Equal(t, 3, list.Len())
}

func TestFailedList_SnapshotIsACopy(t *testing.T) {
	list := NewFailedList(10)
	list.Add(Job{ID: "job-1"}, FailureNotFound, errors.New("missing"))

	snap := list.Snapshot()
	snap[0].Job.ID = "mutated"

	assert.Equal(t, "job-1", list.Snapshot()[0].Job.ID)
	assert.Equal(t, "missing", list.Snapshot()[0].Reason)
}
