package matchmaker_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/events"
	"github.com/oggyb/muzz-match/internal/logger"
	"github.com/oggyb/muzz-match/internal/matchmaker"
	"github.com/oggyb/muzz-match/internal/metrics"
	"github.com/oggyb/muzz-match/internal/utils/retry"
)

var fastRetry = retry.Policy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

type harness struct {
	db      *gorm.DB
	stores  matchmaker.Stores
	mm      *matchmaker.Matchmaker
	events  *events.Recorder
	metrics *metrics.Metrics
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)
	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(database))
	return database
}

// newHarness builds the core on sqlite. wrap may replace stores, e.g. to
// inject faults.
func newHarness(t *testing.T, opts matchmaker.Options, wrap func(*matchmaker.Stores)) *harness {
	t.Helper()
	gdb := setupTestDB(t)
	stores := matchmaker.NewStores(gdb)
	if wrap != nil {
		wrap(&stores)
	}
	if opts.Retry.Attempts == 0 {
		opts.Retry = fastRetry
	}
	rec := &events.Recorder{}
	m := metrics.New()
	return &harness{
		db:      gdb,
		stores:  stores,
		mm:      matchmaker.New(stores, opts, rec, m, logger.Discard()),
		events:  rec,
		metrics: m,
	}
}

func (h *harness) seedUsers(t *testing.T, ids ...uint64) {
	t.Helper()
	for _, id := range ids {
		gender, looking := "MALE", "FEMALE"
		if id%2 == 0 {
			gender, looking = "FEMALE", "MALE"
		}
		require.NoError(t, h.db.Create(&db.User{
			ID: id, Name: fmt.Sprintf("user%d", id), Age: 30,
			Gender: gender, LookingFor: db.EncodeSet([]string{looking}),
		}).Error)
	}
}

func (h *harness) like(t *testing.T, liker, likee uint64) *db.Like {
	t.Helper()
	l, err := h.stores.Likes.Find(context.Background(), liker, likee)
	require.NoError(t, err)
	return l
}

func (h *harness) conversationCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(&db.Conversation{}).Count(&n).Error)
	return n
}

// hidingLikes makes the first hide reverse lookups miss, the way a write
// that is not yet visible to another client would.
type hidingLikes struct {
	matchmaker.LikeStore
	hide atomic.Int32
}

func (s *hidingLikes) Find(ctx context.Context, likerID, likeeID uint64) (*db.Like, error) {
	if s.hide.Add(-1) >= 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return s.LikeStore.Find(ctx, likerID, likeeID)
}

// brokenLinks fails SetConversation for the listed like ids.
type brokenLinks struct {
	matchmaker.LikeStore
	mu    sync.Mutex
	fail  map[uint64]bool
	calls int
}

func (s *brokenLinks) SetConversation(ctx context.Context, id uint64, conversationID string) (bool, error) {
	s.mu.Lock()
	s.calls++
	broken := s.fail[id]
	s.mu.Unlock()
	if broken {
		return false, svcErr.Unavailable(errors.New("connection reset"))
	}
	return s.LikeStore.SetConversation(ctx, id, conversationID)
}

func (s *brokenLinks) heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = nil
}

// clock is a settable time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}
