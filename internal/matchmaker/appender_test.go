package matchmaker_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/matchmaker"
)

// match makes a and b like each other and returns their conversation id.
func (h *harness) match(t *testing.T, a, b uint64) string {
	t.Helper()
	ctx := context.Background()
	_, err := h.mm.Reconciler.ExpressPreference(ctx, a, b)
	require.NoError(t, err)
	out, err := h.mm.Reconciler.ExpressPreference(ctx, b, a)
	require.NoError(t, err)
	require.True(t, out.NewMatch)
	return out.Like.ChannelRef()
}

func TestWorkedExample(t *testing.T) {
	ctx := context.Background()
	T := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	clk := &clock{t: T}
	h := newHarness(t, matchmaker.Options{Now: clk.Now}, nil)
	h.seedUsers(t, 1, 2)

	// u1 likes u2
	out, err := h.mm.Reconciler.ExpressPreference(ctx, 1, 2)
	require.NoError(t, err)
	l1 := out.Like
	assert.False(t, l1.IsMatched)

	// u2 likes u1: both become matched at T and share C1
	out, err = h.mm.Reconciler.ExpressPreference(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, out.NewMatch)
	c1 := assertMatched(t, h, 1, 2)
	assert.True(t, T.Equal(*h.like(t, 1, 2).MatchedDate))

	clk.Set(T.Add(time.Second))
	m1, err := h.mm.Appender.SendMessage(ctx, c1, 1, "hi")
	require.NoError(t, err)
	clk.Set(T.Add(2 * time.Second))
	m2, err := h.mm.Appender.SendMessage(ctx, c1, 2, "hey")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m2.ReceiverID)

	for _, viewer := range []uint64{1, 2} {
		msgs, next, err := h.mm.Appender.ListMessages(ctx, c1, viewer, "", 10)
		require.NoError(t, err)
		assert.Nil(t, next)
		require.Len(t, msgs, 2)
		assert.Equal(t, m1.ID, msgs[0].ID)
		assert.Equal(t, m2.ID, msgs[1].ID)
	}

	views, _, err := h.mm.Guard.ListLikes(ctx, 1, matchmaker.DirectionMatched, "", 10)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, matchmaker.Channel{Status: matchmaker.StatusMatchedWithChannel, ConversationID: c1}, views[0].Channel)
	require.NotNil(t, views[0].Counterpart)
	assert.Equal(t, "user2", views[0].Counterpart.Name)
}

func TestSendMessage_Validation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, matchmaker.Options{MaxMessageLength: 5}, nil)
	h.seedUsers(t, 1, 2, 3)
	conv := h.match(t, 1, 2)

	_, err := h.mm.Appender.SendMessage(ctx, conv, 1, "   ")
	assert.ErrorIs(t, err, svcErr.ErrValidation)

	_, err = h.mm.Appender.SendMessage(ctx, conv, 1, "too long")
	assert.ErrorIs(t, err, svcErr.ErrValidation)

	_, err = h.mm.Appender.SendMessage(ctx, conv, 3, "hi")
	assert.ErrorIs(t, err, svcErr.ErrValidation, "outsider")

	_, err = h.mm.Appender.SendMessage(ctx, "missing", 1, "hi")
	assert.ErrorIs(t, err, svcErr.ErrNotFound)

	_, _, err = h.mm.Appender.ListMessages(ctx, conv, 3, "", 10)
	assert.ErrorIs(t, err, svcErr.ErrValidation)

	msg, err := h.mm.Appender.SendMessage(ctx, conv, 1, "  héllo ")
	require.NoError(t, err)
	assert.Equal(t, "héllo", msg.Text)
}

func TestSendMessage_PreservesSubmissionOrder(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, matchmaker.Options{}, nil)
	h.seedUsers(t, 1, 2)
	conv := h.match(t, 1, 2)

	// many sends within the same millisecond still list in order
	var want []string
	for i := range 30 {
		msg, err := h.mm.Appender.SendMessage(ctx, conv, uint64(1+i%2), fmt.Sprintf("m%d", i))
		require.NoError(t, err)
		want = append(want, msg.ID)
	}

	var got []string
	token := ""
	for {
		page, next, err := h.mm.Appender.ListMessages(ctx, conv, 1, token, 7)
		require.NoError(t, err)
		for _, m := range page {
			got = append(got, m.ID)
		}
		if next == nil {
			break
		}
		token = *next
	}
	assert.Equal(t, want, got)
}

func TestSendMessage_ConcurrentSendersLoseNothing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, matchmaker.Options{}, nil)
	h.seedUsers(t, 1, 2)
	conv := h.match(t, 1, 2)

	const perSender = 20
	var g errgroup.Group
	for _, sender := range []uint64{1, 2} {
		g.Go(func() error {
			for i := range perSender {
				if _, err := h.mm.Appender.SendMessage(ctx, conv, sender, fmt.Sprintf("%d-%d", sender, i)); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	msgs, _, err := h.mm.Appender.ListMessages(ctx, conv, 2, "", 100)
	require.NoError(t, err)
	require.Len(t, msgs, 2*perSender)

	texts := map[string]bool{}
	for i, m := range msgs {
		texts[m.Text] = true
		if i > 0 {
			prev := msgs[i-1]
			ordered := prev.CreatedAt.Before(m.CreatedAt) ||
				(prev.CreatedAt.Equal(m.CreatedAt) && strings.Compare(prev.ID, m.ID) < 0)
			assert.True(t, ordered, "messages %d and %d out of order", i-1, i)
		}
	}
	assert.Len(t, texts, 2*perSender)
	assert.Len(t, h.events.Messages(), 2*perSender)

	// the summary holds one of the two last messages
	c, err := h.stores.Conversations.Get(ctx, conv)
	require.NoError(t, err)
	assert.Contains(t, []string{fmt.Sprintf("1-%d", perSender-1), fmt.Sprintf("2-%d", perSender-1)}, c.LastMessageText)
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, matchmaker.Options{}, nil)
	h.seedUsers(t, 1, 2)
	conv := h.match(t, 1, 2)

	for _, text := range []string{"a", "b"} {
		_, err := h.mm.Appender.SendMessage(ctx, conv, 1, text)
		require.NoError(t, err)
	}
	_, err := h.mm.Appender.SendMessage(ctx, conv, 2, "c")
	require.NoError(t, err)

	n, err := h.mm.Appender.MarkRead(ctx, conv, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = h.mm.Appender.MarkRead(ctx, conv, 2)
	require.NoError(t, err)
	assert.Zero(t, n)

	msgs, _, err := h.mm.Appender.ListMessages(ctx, conv, 2, "", 10)
	require.NoError(t, err)
	for _, m := range msgs {
		assert.Equal(t, m.ReceiverID == 2, m.Read, "message %q", m.Text)
	}
}
