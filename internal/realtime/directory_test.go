package realtime_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FleetTalk/internal/realtime"
)

func TestResolveOrCreateReturnsSameChannelTwice(t *testing.T) {
	repo := newFakeChannelRepo()
	directory := realtime.NewDirectory(repo, discardLogger())

	first := directory.ResolveOrCreate("t1", "c1")
	require.NotEmpty(t, first)

	second := directory.ResolveOrCreate("t1", "c1")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.inserts)
}

func TestResolveOrCreateSeparatesPairs(t *testing.T) {
	repo := newFakeChannelRepo()
	directory := realtime.NewDirectory(repo, discardLogger())

	first := directory.ResolveOrCreate("t1", "c1")
	other := directory.ResolveOrCreate("t1", "c2")
	foreign := directory.ResolveOrCreate("t2", "c1")

	require.NotEmpty(t, first)
	assert.NotEqual(t, first, other)
	assert.NotEqual(t, first, foreign)
}

func TestResolveOrCreateRejectsEmptyIdentifiers(t *testing.T) {
	repo := newFakeChannelRepo()
	directory := realtime.NewDirectory(repo, discardLogger())

	assert.Empty(t, directory.ResolveOrCreate("", "c1"))
	assert.Empty(t, directory.ResolveOrCreate("t1", ""))
	assert.Equal(t, 0, repo.inserts)
}

func TestResolveOrCreateEmptyOnLookupError(t *testing.T) {
	repo := newFakeChannelRepo()
	repo.findErr = errors.New("store unavailable")
	directory := realtime.NewDirectory(repo, discardLogger())

	assert.Empty(t, directory.ResolveOrCreate("t1", "c1"))
}

func TestResolveOrCreateEmptyOnInsertError(t *testing.T) {
	repo := newFakeChannelRepo()
	repo.insertErr = errors.New("store unavailable")
	directory := realtime.NewDirectory(repo, discardLogger())

	assert.Empty(t, directory.ResolveOrCreate("t1", "c1"))
}

func TestResolveOrCreateConvergesAfterLostRace(t *testing.T) {
	// A concurrent creator wins between the lookup and the insert: the
	// first lookup sees nothing, the insert reports a duplicate, and the
	// re-lookup returns the winner's channel.
	repo := newFakeChannelRepo()
	repo.seed("winner", "t1", "c1")
	repo.hideUntilInsert = true
	directory := realtime.NewDirectory(repo, discardLogger())

	assert.Equal(t, "winner", directory.ResolveOrCreate("t1", "c1"))
	assert.Equal(t, 0, repo.inserts)
}
