package matchmaker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/matchmaker"
)

func TestListLikes_PrunesDeletedUsers(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, matchmaker.Options{}, nil)
	h.seedUsers(t, 1, 2, 3)

	h.match(t, 1, 2)
	_, err := h.mm.Reconciler.ExpressPreference(ctx, 3, 1)
	require.NoError(t, err)

	require.NoError(t, h.mm.DeleteUser(ctx, 3))
	require.NoError(t, h.mm.DeleteUser(ctx, 2))

	for _, dir := range []matchmaker.Direction{matchmaker.DirectionSent, matchmaker.DirectionReceived, matchmaker.DirectionMatched} {
		views, _, err := h.mm.Guard.ListLikes(ctx, 1, dir, "", 10)
		require.NoError(t, err)
		assert.Empty(t, views, "direction %s", dir)
	}

	var n int64
	require.NoError(t, h.db.Model(&db.Like{}).Where("liker_id = 1 OR likee_id = 1").Count(&n).Error)
	assert.Equal(t, int64(0), n, "orphaned likes are deleted, not just hidden")
	assert.Equal(t, 3.0, testutil.ToFloat64(h.metrics.Repairs.WithLabelValues("prune")))
}

func TestListLikes_Directions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, matchmaker.Options{}, nil)
	h.seedUsers(t, 1, 2, 3, 4)

	h.match(t, 1, 2)
	_, err := h.mm.Reconciler.ExpressPreference(ctx, 1, 3)
	require.NoError(t, err)
	_, err = h.mm.Reconciler.ExpressPreference(ctx, 4, 1)
	require.NoError(t, err)

	counterparts := func(dir matchmaker.Direction) map[uint64]matchmaker.Status {
		views, _, err := h.mm.Guard.ListLikes(ctx, 1, dir, "", 10)
		require.NoError(t, err)
		out := map[uint64]matchmaker.Status{}
		for _, v := range views {
			require.NotNil(t, v.Counterpart)
			out[v.Counterpart.ID] = v.Channel.Status
		}
		return out
	}

	assert.Equal(t, map[uint64]matchmaker.Status{
		2: matchmaker.StatusMatchedNoMessages,
		3: matchmaker.StatusUnmatched,
	}, counterparts(matchmaker.DirectionSent))
	assert.Equal(t, map[uint64]matchmaker.Status{
		2: matchmaker.StatusMatchedNoMessages,
		4: matchmaker.StatusUnmatched,
	}, counterparts(matchmaker.DirectionReceived))
	assert.Equal(t, map[uint64]matchmaker.Status{
		2: matchmaker.StatusMatchedNoMessages,
	}, counterparts(matchmaker.DirectionMatched))

	_, _, err = h.mm.Guard.ListLikes(ctx, 1, matchmaker.Direction("sideways"), "", 10)
	assert.ErrorIs(t, err, svcErr.ErrValidation)
	_, _, err = h.mm.Guard.ListLikes(ctx, 1, matchmaker.DirectionSent, "bogus", 10)
	assert.ErrorIs(t, err, svcErr.ErrValidation)
}

// flakyUsers fails every lookup of one user with a transient error.
type flakyUsers struct {
	matchmaker.UserStore
	down  uint64
	calls atomic.Int32
}

func (s *flakyUsers) Get(ctx context.Context, id uint64) (*db.User, error) {
	if id == s.down {
		s.calls.Add(1)
		return nil, errors.New("invalid connection")
	}
	return s.UserStore.Get(ctx, id)
}

func TestListLikes_HydrationFailureKeepsRecord(t *testing.T) {
	ctx := context.Background()
	users := &flakyUsers{}
	h := newHarness(t, matchmaker.Options{}, func(s *matchmaker.Stores) {
		users.UserStore = s.Users
		s.Users = users
	})
	h.seedUsers(t, 1, 2, 3)
	for _, likee := range []uint64{2, 3} {
		_, err := h.mm.Reconciler.ExpressPreference(ctx, 1, likee)
		require.NoError(t, err)
	}

	users.down = 3
	views, _, err := h.mm.Guard.ListLikes(ctx, 1, matchmaker.DirectionSent, "", 10)
	require.NoError(t, err)
	require.Len(t, views, 2)

	byLikee := map[uint64]matchmaker.LikeView{}
	for _, v := range views {
		byLikee[v.Like.LikeeID] = v
	}
	assert.NotNil(t, byLikee[2].Counterpart)
	assert.Nil(t, byLikee[3].Counterpart)
	assert.Equal(t, int32(3), users.calls.Load(), "transient errors are retried")

	// nothing was pruned
	_, err = h.stores.Likes.Find(ctx, 1, 3)
	assert.NoError(t, err)
}

const legacyLog = `{
	"startDate": "2024-05-01T10:00:00Z",
	"lastMessageDate": "2024-05-01T10:05:00Z",
	"messages": [
		{"id": "3b0f4f0e-2d5c-4e0b-8f43-7b1d2f9a0001", "text": "second", "senderId": 2, "senderName": "B", "date": "2024-05-01T10:05:00Z"},
		{"id": "3b0f4f0e-2d5c-4e0b-8f43-7b1d2f9a0000", "text": "first", "senderId": "1", "senderName": "A", "date": "2024-05-01T10:00:00Z"},
		{"id": "3b0f4f0e-2d5c-4e0b-8f43-7b1d2f9a0000", "text": "first (dup)", "senderId": "1", "date": "2024-05-01T10:00:00Z"},
		{"id": "", "text": "no id", "senderId": "1", "date": "2024-05-01T10:01:00Z"},
		{"id": "x", "text": "stranger", "senderId": "9", "date": "2024-05-01T10:02:00Z"}
	]
}`

func injectLegacy(t *testing.T, h *harness, likeID uint64, raw string) {
	t.Helper()
	require.NoError(t, h.db.Model(&db.Like{}).Where("id = ?", likeID).
		Update("direct_conversation", datatypes.JSON(raw)).Error)
}

func TestLegacyLog_MigratedOnRead(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, matchmaker.Options{}, nil)
	h.seedUsers(t, 1, 2)
	conv := h.match(t, 1, 2)

	// both sides carry a copy of the same log
	injectLegacy(t, h, h.like(t, 1, 2).ID, legacyLog)
	injectLegacy(t, h, h.like(t, 2, 1).ID, legacyLog)

	for _, viewer := range []uint64{1, 2, 1} {
		views, _, err := h.mm.Guard.ListLikes(ctx, viewer, matchmaker.DirectionSent, "", 10)
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, matchmaker.StatusMatchedWithChannel, views[0].Channel.Status)
		assert.Empty(t, views[0].Like.DirectConversation)
	}

	msgs, _, err := h.mm.Appender.ListMessages(ctx, conv, 1, "", 10)
	require.NoError(t, err)
	var texts []string
	for _, m := range msgs {
		texts = append(texts, m.Text)
	}
	assert.Equal(t, []string{"first", "no id", "second"}, texts)
	assert.Equal(t, uint64(2), msgs[0].ReceiverID)

	c, err := h.stores.Conversations.Get(ctx, conv)
	require.NoError(t, err)
	assert.Equal(t, "second", c.LastMessageText)

	assert.Nil(t, h.like(t, 1, 2).DirectConversation)
	assert.Nil(t, h.like(t, 2, 1).DirectConversation)
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.Repairs.WithLabelValues("legacy")))
}

// racingClear loses the compare-and-clear a number of times, as if another
// writer touched the row in between.
type racingClear struct {
	matchmaker.LikeStore
	lose atomic.Int32
}

func (s *racingClear) ClearDirectConversation(ctx context.Context, id uint64, readAt time.Time) (bool, error) {
	if s.lose.Add(-1) >= 0 {
		return false, nil
	}
	return s.LikeStore.ClearDirectConversation(ctx, id, readAt)
}

func TestLegacyLog_ConflictIsRetried(t *testing.T) {
	ctx := context.Background()
	racing := &racingClear{}
	h := newHarness(t, matchmaker.Options{}, func(s *matchmaker.Stores) {
		racing.LikeStore = s.Likes
		s.Likes = racing
	})
	h.seedUsers(t, 1, 2)
	conv := h.match(t, 1, 2)
	injectLegacy(t, h, h.like(t, 1, 2).ID, legacyLog)

	racing.lose.Store(1)
	views, _, err := h.mm.Guard.ListLikes(ctx, 1, matchmaker.DirectionSent, "", 10)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Nil(t, h.like(t, 1, 2).DirectConversation)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Retries.WithLabelValues("likes.migrate_legacy")))

	msgs, _, err := h.mm.Appender.ListMessages(ctx, conv, 1, "", 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 3, "the repeated pass inserts nothing twice")
}

func TestLegacyLog_ExhaustedConflictLeavesListingIntact(t *testing.T) {
	ctx := context.Background()
	racing := &racingClear{}
	h := newHarness(t, matchmaker.Options{}, func(s *matchmaker.Stores) {
		racing.LikeStore = s.Likes
		s.Likes = racing
	})
	h.seedUsers(t, 1, 2)
	h.match(t, 1, 2)
	injectLegacy(t, h, h.like(t, 1, 2).ID, legacyLog)

	racing.lose.Store(100)
	views, _, err := h.mm.Guard.ListLikes(ctx, 1, matchmaker.DirectionSent, "", 10)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.NotNil(t, h.like(t, 1, 2).DirectConversation)
}

func TestDeleteUser_Validation(t *testing.T) {
	h := newHarness(t, matchmaker.Options{}, nil)
	err := h.mm.DeleteUser(context.Background(), 0)
	assert.ErrorIs(t, err, svcErr.ErrValidation)

	_, err = h.mm.GetUser(context.Background(), 404)
	assert.ErrorIs(t, err, svcErr.ErrNotFound)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
