package matchmaker

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/repository"
)

// UserStore resolves profiles.
type UserStore interface {
	Get(ctx context.Context, id uint64) (*db.User, error)
	Save(ctx context.Context, user *db.User) error
	Delete(ctx context.Context, id uint64) error
	Candidates(ctx context.Context, user *db.User, limit int) ([]db.User, error)
}

// LikeStore holds directed likes. Every write is insert-if-absent or a
// conditional update, so calls can be repeated and reordered freely.
type LikeStore interface {
	CreateIfAbsent(ctx context.Context, likerID, likeeID uint64) (*db.Like, bool, error)
	Find(ctx context.Context, likerID, likeeID uint64) (*db.Like, error)
	Get(ctx context.Context, id uint64) (*db.Like, error)
	MarkMatched(ctx context.Context, id uint64, at time.Time) error
	SetConversation(ctx context.Context, id uint64, conversationID string) (bool, error)
	RelinkConversation(ctx context.Context, id uint64, from, to string) (bool, error)
	ClearDirectConversation(ctx context.Context, id uint64, readAt time.Time) (bool, error)
	Delete(ctx context.Context, id uint64) error
	ListByLiker(ctx context.Context, likerID uint64, token string, limit int) ([]db.Like, *string, error)
	ListByLikee(ctx context.Context, likeeID uint64, token string, limit int) ([]db.Like, *string, error)
	ListMatched(ctx context.Context, userID uint64, token string, limit int) ([]db.Like, *string, error)
	CountReceived(ctx context.Context, likeeID uint64) (int64, error)
	ListNeedingRepair(ctx context.Context, afterID uint64, limit int) ([]db.Like, error)
}

type ConversationStore interface {
	CreateIfAbsent(ctx context.Context, conv *db.Conversation) (*db.Conversation, bool, error)
	Get(ctx context.Context, id string) (*db.Conversation, error)
	UpdateLastMessage(ctx context.Context, msg *db.Message) error
	ListForUser(ctx context.Context, userID uint64, limit int) ([]db.Conversation, error)
}

type MessageStore interface {
	Insert(ctx context.Context, msg *db.Message) (bool, error)
	List(ctx context.Context, conversationID string, token string, limit int) ([]db.Message, *string, error)
	MarkRead(ctx context.Context, conversationID string, readerID uint64, at time.Time) (int64, error)
}

type PassStore interface {
	RecordPass(ctx context.Context, actorID, recipientID uint64) error
	ClearPass(ctx context.Context, actorID, recipientID uint64) error
}

// Stores bundles the record store the core works against.
type Stores struct {
	Users         UserStore
	Likes         LikeStore
	Conversations ConversationStore
	Messages      MessageStore
	Passes        PassStore
}

// NewStores wires the gorm repositories.
func NewStores(database *gorm.DB) Stores {
	return Stores{
		Users:         repository.NewUserRepository(database),
		Likes:         repository.NewLikeRepository(database),
		Conversations: repository.NewConversationRepository(database),
		Messages:      repository.NewMessageRepository(database),
		Passes:        repository.NewPassRepository(database),
	}
}
