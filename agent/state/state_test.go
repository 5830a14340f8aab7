package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetEmailFirstWriteWins(t *testing.T) {
	t.Parallel()

	st := NewConversationState("s1", time.Now())

	require.NoError(t, st.SetEmail(""))
	assert.Empty(t, st.CustomerEmail)

	require.NoError(t, st.SetEmail("alice@example.com"))
	assert.Equal(t, "alice@example.com", st.CustomerEmail)

	// Same address in a different case is a no-op, not a conflict.
	require.NoError(t, st.SetEmail("Alice@Example.com"))
	assert.Equal(t, "alice@example.com", st.CustomerEmail)

	err := st.SetEmail("bob@example.com")
	require.ErrorIs(t, err, ErrEmailConflict)
	assert.Equal(t, "alice@example.com", st.CustomerEmail)
}

func TestSetEmailMalformed(t *testing.T) {
	t.Parallel()

	st := NewConversationState("s1", time.Now())
	for _, bad := range []string{"not-an-email", "a@b", "@example.com", "alice@"} {
		err := st.SetEmail(bad)
		assert.ErrorIs(t, err, ErrEmailMalformed, "input %q", bad)
	}
	assert.Empty(t, st.CustomerEmail)
}

func TestFindEmail(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "dana.k@example.com", FindEmail("sure, it's dana.k@example.com thanks"))
	assert.Empty(t, FindEmail("I don't remember my address"))
}

func TestRecordOfferLadderOrder(t *testing.T) {
	t.Parallel()

	st := NewConversationState("s1", time.Now())

	require.NoError(t, st.RecordOffer(OfferPause))
	require.NoError(t, st.RecordOffer(OfferDowngrade))

	err := st.RecordOffer(OfferPause)
	require.ErrorIs(t, err, ErrOfferRepeated)

	require.NoError(t, st.RecordOffer(OfferDiscount))
	assert.Equal(t, []OfferID{OfferPause, OfferDowngrade, OfferDiscount}, st.OffersPresented)
}

func TestRecordOfferRejectsSkippedRung(t *testing.T) {
	t.Parallel()

	st := NewConversationState("s1", time.Now())
	require.NoError(t, st.RecordOffer(OfferDiscount))

	err := st.RecordOffer(OfferPause)
	require.ErrorIs(t, err, ErrOfferOutOfOrder)
}

func TestRecordOfferReplacementInterleaves(t *testing.T) {
	t.Parallel()

	st := NewConversationState("s1", time.Now())
	require.NoError(t, st.RecordOffer(OfferPause))
	require.NoError(t, st.RecordOffer(OfferReplaceDevice))
	require.NoError(t, st.RecordOffer(OfferDowngrade))
	assert.True(t, st.OfferPresented(OfferReplaceDevice))
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	st := NewConversationState("s1", time.Now())
	st.AppendTurn(SpeakerCustomer, "hello")
	st.CustomerProfile = Profile{"tier": "premium"}
	require.NoError(t, st.RecordOffer(OfferPause))

	dup := st.Clone()
	dup.AppendTurn(SpeakerAgent, "hi there")
	dup.CustomerProfile["tier"] = "regular"
	require.NoError(t, dup.RecordOffer(OfferDowngrade))
	dup.MarkComplete()

	assert.Len(t, st.Transcript, 1)
	assert.Equal(t, "premium", st.CustomerProfile.Get("tier"))
	assert.Equal(t, []OfferID{OfferPause}, st.OffersPresented)
	assert.False(t, st.SessionComplete)
}

func TestLastCustomerText(t *testing.T) {
	t.Parallel()

	st := NewConversationState("s1", time.Now())
	assert.Empty(t, st.LastCustomerText())

	st.AppendTurn(SpeakerCustomer, "first")
	st.AppendTurn(SpeakerAgent, "reply")
	st.AppendTurn(SpeakerCustomer, "second")
	assert.Equal(t, "second", st.LastCustomerText())
}

func TestValidateRejectsUnknownEnums(t *testing.T) {
	t.Parallel()

	st := NewConversationState("s1", time.Now())
	require.NoError(t, st.Validate())

	st.Intent = Intent("SALES")
	assert.ErrorIs(t, st.Validate(), ErrInvalidEnum)

	st.Intent = IntentRetention
	st.Outcome = Outcome("MAYBE")
	assert.ErrorIs(t, st.Validate(), ErrInvalidEnum)
}
