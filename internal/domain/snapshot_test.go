package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_RedactsValuesBeforeReveal(t *testing.T) {
	sess := NewSession("s1")
	alice, err := sess.Join("Alice", false)
	require.NoError(t, err)
	_, err = sess.Join("Bob", false)
	require.NoError(t, err)
	require.NoError(t, sess.SetVote(alice.ID, "5"))

	snap := sess.Snapshot()

	require.Len(t, snap.Participants, 2)
	assert.True(t, snap.Participants[0].HasVoted)
	assert.Empty(t, snap.Participants[0].Value, "hidden vote leaked")
	assert.False(t, snap.Participants[1].HasVoted)

	// Belt and braces: the serialized form must not carry the value either.
	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"value"`)
}

func TestSnapshot_ExposesValuesAfterReveal(t *testing.T) {
	sess := NewSession("s1")
	alice, err := sess.Join("Alice", false)
	require.NoError(t, err)
	bob, err := sess.Join("Bob", false)
	require.NoError(t, err)
	require.NoError(t, sess.SetVote(alice.ID, "5"))
	require.NoError(t, sess.SetVote(bob.ID, "8"))
	require.NoError(t, sess.Reveal())

	snap := sess.Snapshot()

	assert.Equal(t, "5", snap.Participants[0].Value)
	assert.Equal(t, "8", snap.Participants[1].Value)
}

func TestSnapshot_IsACopy(t *testing.T) {
	sess := NewSession("s1")
	alice, err := sess.Join("Alice", false)
	require.NoError(t, err)
	require.NoError(t, sess.SetVote(alice.ID, "5"))
	require.NoError(t, sess.Reveal())
	sess.Reset(nil)

	snap := sess.Snapshot()
	snap.Participants[0].Name = "Mallory"
	snap.History[0].Votes["Alice"] = "tampered"

	assert.Equal(t, "Alice", sess.Participants[0].Name)
	assert.Equal(t, "5", sess.History[0].Votes["Alice"])
}

func TestSnapshot_PreservesJoinOrder(t *testing.T) {
	sess := NewSession("s1")
	names := []string{"z", "a", "m", "b"}
	for _, name := range names {
		_, err := sess.Join(name, false)
		require.NoError(t, err)
	}

	snap := sess.Snapshot()

	for i, name := range names {
		assert.Equal(t, name, snap.Participants[i].Name)
	}
}
