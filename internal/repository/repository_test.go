package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/repository"
)

// setup in-memory DB
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.Migrate(database); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

func seedUsers(t *testing.T, gdb *gorm.DB, ids ...uint64) {
	t.Helper()
	for _, id := range ids {
		gender, looking := "MALE", "FEMALE"
		if id%2 == 0 {
			gender, looking = "FEMALE", "MALE"
		}
		require.NoError(t, gdb.Create(&db.User{
			ID: id, Name: fmt.Sprintf("user%d", id), Age: 30,
			Gender: gender, LookingFor: db.EncodeSet([]string{looking}),
		}).Error)
	}
}

func TestLikeCreateIfAbsent_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	first, created, err := repo.CreateIfAbsent(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, first.IsMatched)

	second, created, err := repo.CreateIfAbsent(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	dbase.Model(&db.Like{}).Where("liker_id = 1 AND likee_id = 2").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestLikeMarkMatched_KeepsEarliestDate(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	like, _, err := repo.CreateIfAbsent(ctx, 1, 2)
	require.NoError(t, err)

	t1 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	t0 := t1.Add(-time.Minute)

	require.NoError(t, repo.MarkMatched(ctx, like.ID, t1))
	require.NoError(t, repo.MarkMatched(ctx, like.ID, t1.Add(time.Hour))) // later: ignored
	require.NoError(t, repo.MarkMatched(ctx, like.ID, t0))                // earlier: wins

	got, err := repo.Get(ctx, like.ID)
	require.NoError(t, err)
	assert.True(t, got.IsMatched)
	require.NotNil(t, got.MatchedDate)
	assert.True(t, t0.Equal(*got.MatchedDate), "got %v", got.MatchedDate)
}

func TestLikeSetConversation_WritesOnce(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	like, _, err := repo.CreateIfAbsent(ctx, 1, 2)
	require.NoError(t, err)

	ok, err := repo.SetConversation(ctx, like.ID, "conv-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.SetConversation(ctx, like.ID, "conv-2")
	require.NoError(t, err)
	assert.False(t, ok)

	// relink only swaps the expected ref
	ok, err = repo.RelinkConversation(ctx, like.ID, "conv-x", "conv-2")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.Get(ctx, like.ID)
	require.NoError(t, err)
	assert.Equal(t, "conv-1", got.ChannelRef())
}

func TestListByLikee_ExcludesPassedLikers(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	seedUsers(t, dbase, 1, 3, 99)
	likes := repository.NewLikeRepository(dbase)
	passes := repository.NewPassRepository(dbase)

	// actors 1,3 liked recipient 99
	_, _, _ = likes.CreateIfAbsent(ctx, 1, 99)
	_, _, _ = likes.CreateIfAbsent(ctx, 3, 99)
	// recipient passed actor 3 → exclude
	require.NoError(t, passes.RecordPass(ctx, 99, 3))

	received, next, err := likes.ListByLikee(ctx, 99, "", 10)
	require.NoError(t, err)
	assert.Nil(t, next)
	require.Len(t, received, 1)
	assert.Equal(t, uint64(1), received[0].LikerID)

	count, err := likes.CountReceived(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	var passed int64
	dbase.Model(&db.Pass{}).Where("actor_id = 99 AND recipient_id = 3").Count(&passed)
	assert.Equal(t, int64(1), passed)

	require.NoError(t, passes.ClearPass(ctx, 99, 3))
	count, err = likes.CountReceived(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestListByLiker_Pagination(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	for likee := uint64(2); likee <= 6; likee++ {
		_, _, err := repo.CreateIfAbsent(ctx, 1, likee)
		require.NoError(t, err)
	}

	seen := map[uint64]bool{}
	token := ""
	pages := 0
	for {
		page, next, err := repo.ListByLiker(ctx, 1, token, 2)
		require.NoError(t, err)
		for _, l := range page {
			assert.False(t, seen[l.LikeeID], "duplicate likee %d", l.LikeeID)
			seen[l.LikeeID] = true
		}
		pages++
		if next == nil {
			break
		}
		token = *next
	}
	assert.Len(t, seen, 5)
	assert.Equal(t, 3, pages)

	_, _, err := repo.ListByLiker(ctx, 1, "not-a-token", 2)
	assert.Error(t, err)
}

func TestListNeedingRepair(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	seedUsers(t, dbase, 1, 2, 3, 4, 5, 6, 7, 8)
	repo := repository.NewLikeRepository(dbase)

	// mutual but still pending
	a, _, _ := repo.CreateIfAbsent(ctx, 1, 2)
	b, _, _ := repo.CreateIfAbsent(ctx, 2, 1)
	// one-way pending: healthy
	_, _, _ = repo.CreateIfAbsent(ctx, 3, 4)
	// matched without channel
	c, _, _ := repo.CreateIfAbsent(ctx, 5, 6)
	require.NoError(t, repo.MarkMatched(ctx, c.ID, time.Now().UTC()))
	// matched with channel: healthy
	d, _, _ := repo.CreateIfAbsent(ctx, 7, 8)
	require.NoError(t, repo.MarkMatched(ctx, d.ID, time.Now().UTC()))
	_, err := repo.SetConversation(ctx, d.ID, "conv-7-8")
	require.NoError(t, err)

	got, err := repo.ListNeedingRepair(ctx, 0, 10)
	require.NoError(t, err)

	var ids []uint64
	for _, l := range got {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []uint64{a.ID, b.ID, c.ID}, ids)

	got, err = repo.ListNeedingRepair(ctx, b.ID, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, c.ID, got[0].ID)

	// a healthy like of a deleted user
	require.NoError(t, repository.NewUserRepository(dbase).Delete(ctx, 8))
	got, err = repo.ListNeedingRepair(ctx, c.ID, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, d.ID, got[0].ID)
}

func TestConversationCreateIfAbsent_OnePerPair(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewConversationRepository(dbase)

	first, created, err := repo.CreateIfAbsent(ctx, &db.Conversation{ID: "c-1", PairKey: db.PairKey(2, 1), UserAID: 1, UserBID: 2})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := repo.CreateIfAbsent(ctx, &db.Conversation{ID: "c-2", PairKey: db.PairKey(1, 2), UserAID: 1, UserBID: 2})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "c-1", second.ID)
}

func TestMessages_OrderAndLastMessage(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	convs := repository.NewConversationRepository(dbase)
	msgs := repository.NewMessageRepository(dbase)

	conv, _, err := convs.CreateIfAbsent(ctx, &db.Conversation{ID: "c-1", PairKey: db.PairKey(1, 2), UserAID: 1, UserBID: 2})
	require.NoError(t, err)

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	newer := &db.Message{ID: "m-2", ConversationID: conv.ID, SenderID: 2, ReceiverID: 1, Text: "hey", CreatedAt: base.Add(time.Second)}
	older := &db.Message{ID: "m-1", ConversationID: conv.ID, SenderID: 1, ReceiverID: 2, Text: "hi", CreatedAt: base}

	// applied out of order
	for _, m := range []*db.Message{newer, older} {
		inserted, err := msgs.Insert(ctx, m)
		require.NoError(t, err)
		assert.True(t, inserted)
		require.NoError(t, convs.UpdateLastMessage(ctx, m))
	}

	// retried insert is a no-op
	inserted, err := msgs.Insert(ctx, &db.Message{ID: "m-1", ConversationID: conv.ID, SenderID: 1, ReceiverID: 2, Text: "dup", CreatedAt: base})
	require.NoError(t, err)
	assert.False(t, inserted)

	list, _, err := msgs.List(ctx, conv.ID, "", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "m-1", list[0].ID)
	assert.Equal(t, "hi", list[0].Text)
	assert.Equal(t, "m-2", list[1].ID)

	got, err := convs.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "hey", got.LastMessageText)
	assert.Equal(t, uint64(2), got.LastMessageSenderID)

	n, err := msgs.MarkRead(ctx, conv.ID, 1, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUserCandidates(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	seedUsers(t, dbase, 1, 2, 4, 6, 8)
	users := repository.NewUserRepository(dbase)
	likes := repository.NewLikeRepository(dbase)
	passes := repository.NewPassRepository(dbase)

	_, _, _ = likes.CreateIfAbsent(ctx, 1, 2) // already liked
	_, _, _ = likes.CreateIfAbsent(ctx, 4, 1) // liked me
	require.NoError(t, passes.RecordPass(ctx, 1, 6))

	me, err := users.Get(ctx, 1)
	require.NoError(t, err)

	got, err := users.Candidates(ctx, me, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(8), got[0].ID)

	require.NoError(t, users.Delete(ctx, 8))
	_, err = users.Get(ctx, 8)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
