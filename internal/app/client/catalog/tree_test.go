package catalog_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"edusync/internal/app/client/catalog"
	"edusync/internal/app/client/downsync"
	"edusync/internal/app/client/writelock"
	"edusync/internal/domain/snapshot"
	"edusync/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func TestSubjectTree_AfterDownsync(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := downsync.NewService(writelock.New(writelock.DB, time.Second), slog.Default())
	_, err := svc.ApplySnapshot(context.Background(), db, testutil.SampleSnapshot())
	require.NoError(t, err)

	tree, err := catalog.SubjectTree(context.Background(), db)
	require.NoError(t, err)
	require.Len(t, tree, 3)

	byServerID := make(map[int64]catalog.Subject)
	for _, s := range tree {
		byServerID[s.ServerID] = s
	}

	math := byServerID[501]
	assert.True(t, math.Attached())
	assert.Equal(t, []string{"7-A"}, math.Sections)
	require.Len(t, math.Lessons, 2)
	assert.Equal(t, int64(9001), math.Lessons[0].ServerID)
	assert.Equal(t, int64(9002), math.Lessons[1].ServerID)
	for _, l := range math.Lessons {
		assert.Len(t, l.Contents, 1)
	}
	assert.Equal(t, int64(7001), math.Lessons[0].Contents[0].ServerID)

	arts := byServerID[503]
	assert.False(t, arts.Attached())
	assert.Empty(t, arts.Lessons)
	assert.True(t, arts.IsPublic)

	science := byServerID[502]
	assert.True(t, science.Attached())
	assert.Empty(t, science.Lessons)
}

func TestSubjectTree_Empty(t *testing.T) {
	db := testutil.NewTestDB(t)

	tree, err := catalog.SubjectTree(context.Background(), db)
	require.NoError(t, err)
	assert.Empty(t, tree)
}

// tagged снимок, в котором у всех уроков и материалов один префикс
func tagged(tag string) *snapshot.Snapshot {
	snap := testutil.SampleSnapshot()
	for i := range snap.Lessons {
		snap.Lessons[i].LessonTitle = tag + " lesson"
	}
	for i := range snap.SubjectContents {
		snap.SubjectContents[i].Title = tag + " content"
	}
	return snap
}

func TestSubjectTree_ConsistentDuringDownsync(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := downsync.NewService(writelock.New(writelock.DB, 5*time.Second), slog.Default())
	_, err := svc.ApplySnapshot(context.Background(), db, tagged("A"))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 30; i++ {
			tag := "A"
			if i%2 == 0 {
				tag = "B"
			}
			_, err := svc.ApplySnapshot(context.Background(), db, tagged(tag))
			assert.NoError(t, err)
		}
	}()

	for i := 0; i < 30; i++ {
		tree, err := catalog.SubjectTree(context.Background(), db)
		require.NoError(t, err)
		for _, s := range tree {
			for _, l := range s.Lessons {
				tag, _, _ := strings.Cut(l.Title, " ")
				for _, c := range l.Contents {
					assert.True(t, strings.HasPrefix(c.Title, tag+" "), "lesson %q got content %q", l.Title, c.Title)
				}
			}
		}
	}
	<-done
}

func TestSubjectTree_NilHandle(t *testing.T) {
	_, err := catalog.SubjectTree(context.Background(), nil)
	assert.ErrorIs(t, err, catalog.ErrNilHandle)
}
