package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dlops-io/mega-pipeline-aws/internal/core"
	"github.com/dlops-io/mega-pipeline-aws/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMockObserver = errors.New("mock observer error")

type recordingObserver struct {
	seen []string
	err  error
}

func (r *recordingObserver) ArtifactWritten(_ context.Context, kind core.Kind, id string) error {
	r.seen = append(r.seen, kind.Key(id))

	return r.err
}

func TestSyncDown_ClearLeavesExactlyRemoteSet(t *testing.T) {
	t.Parallel()

	remote := newMemStore()
	remote.put(core.KindPromptText, "a", "remote a")
	remote.put(core.KindPromptText, "b", "remote b")

	local := newMemStore()
	local.put(core.KindPromptText, "a", "stale a")
	local.put(core.KindPromptText, "old", "stale leftover")
	local.put(core.KindParagraphText, "keep", "other kind")

	report, err := newTestRunner(t, 1).SyncDown(context.Background(), remote, local, core.KindPromptText, true)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, report.Transferred)
	assert.Empty(t, report.Failures)
	assert.Equal(t, []string{"a", "b"}, local.ids(core.KindPromptText))
	assert.Equal(t, "remote a", local.get(core.KindPromptText, "a"))
	assert.Equal(t, []string{"keep"}, local.ids(core.KindParagraphText))
}

func TestSyncDown_WithoutClearKeepsLocalExtras(t *testing.T) {
	t.Parallel()

	remote := newMemStore()
	remote.put(core.KindPromptText, "a", "remote a")

	local := newMemStore()
	local.put(core.KindPromptText, "a", "stale a")
	local.put(core.KindPromptText, "extra", "local only")

	_, err := newTestRunner(t, 1).SyncDown(context.Background(), remote, local, core.KindPromptText, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "extra"}, local.ids(core.KindPromptText))
	assert.Equal(t, "remote a", local.get(core.KindPromptText, "a"))
}

func TestSyncDown_ObjectFailureContinuesBatch(t *testing.T) {
	t.Parallel()

	remote := newMemStore()
	remote.put(core.KindInputAudio, "a", "a")
	remote.put(core.KindInputAudio, "b", "b")
	remote.put(core.KindInputAudio, "c", "c")
	remote.failReads["b"] = true

	local := newMemStore()

	report, err := newTestRunner(t, 1).SyncDown(context.Background(), remote, local, core.KindInputAudio, true)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "c"}, report.Transferred)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "b", report.Failures[0].ID)
	require.ErrorIs(t, report.Failures[0].Err, pipeline.ErrStorage)
	require.ErrorIs(t, report.Failures[0].Err, errMockRead)
}

func TestSyncDown_ListFailureIsFatal(t *testing.T) {
	t.Parallel()

	remote := newMemStore()
	remote.failList = true

	_, err := newTestRunner(t, 1).SyncDown(context.Background(), remote, newMemStore(), core.KindInputAudio, false)
	require.ErrorIs(t, err, pipeline.ErrStorage)
}

func TestSyncUp_AlwaysOverwrites(t *testing.T) {
	t.Parallel()

	local := newMemStore()
	local.put(core.KindSynthesizedAudio, "a", "new audio")

	remote := newMemStore()
	remote.put(core.KindSynthesizedAudio, "a", "old audio")

	runner := newTestRunner(t, 1)

	report, err := runner.SyncUp(context.Background(), local, remote, core.KindSynthesizedAudio)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, report.Transferred)
	assert.Equal(t, "new audio", remote.get(core.KindSynthesizedAudio, "a"))

	_, err = runner.SyncUp(context.Background(), local, remote, core.KindSynthesizedAudio)
	require.NoError(t, err)
	assert.Equal(t, 2, remote.writeCount(core.KindSynthesizedAudio, "a"))
}

func TestSyncUp_NotifiesObserver(t *testing.T) {
	t.Parallel()

	local := newMemStore()
	local.put(core.KindParagraphText, "b", "b")
	local.put(core.KindParagraphText, "a", "a")

	remote := newMemStore()
	remote.failWrites["b"] = true

	observer := &recordingObserver{seen: nil, err: errMockObserver}

	report, err := newTestRunner(t, 1).SyncUp(
		context.Background(), local, remote, core.KindParagraphText, pipeline.WithObserver(observer),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, report.Transferred)
	assert.Equal(t, []string{"b"}, []string{report.Failures[0].ID})
	assert.Equal(t, []string{"text_paragraphs/a.txt"}, observer.seen)
}

func TestSync_NilStores(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(t, 1)

	_, err := runner.SyncUp(context.Background(), nil, newMemStore(), core.KindPromptText)
	require.ErrorIs(t, err, pipeline.ErrNilStore)

	_, err = runner.SyncDown(context.Background(), newMemStore(), nil, core.KindPromptText, false)
	require.ErrorIs(t, err, pipeline.ErrNilStore)
}
