package db

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// User table. Profiles are edited outside the matching core.
type User struct {
	ID         uint64         `gorm:"primaryKey;autoIncrement"`
	Name       string         `gorm:"size:64;not null"`
	Age        int            `gorm:"not null"`
	Bio        string         `gorm:"size:512"`
	ImageURL   string         `gorm:"size:512"`
	Gender     string         `gorm:"size:16;not null;index"`
	LookingFor datatypes.JSON // JSON array of genders
	Location   string         `gorm:"size:128"`
	Interests  datatypes.JSON // JSON array of strings
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
}

// LookingForSet decodes LookingFor; a malformed column reads as empty.
func (u *User) LookingForSet() []string { return decodeSet(u.LookingFor) }

// InterestSet decodes Interests; a malformed column reads as empty.
func (u *User) InterestSet() []string { return decodeSet(u.Interests) }

// Like is one user's directed interest in another.
//
// Unique index idx_liker_likee(liker_id, likee_id)
//   - At most one Like per ordered pair; inserts are insert-if-absent.
//
// Indexes:
//   - idx_likee_created(likee_id, created_at): "who liked me" listings.
//   - idx_matched_conversation(is_matched, conversation_id): sweeper scans.
//
// Fields:
//   - IsMatched / MatchedDate: set together, only ever false→true.
//   - ConversationID: the shared channel; written once per side.
//   - DirectConversation: legacy embedded log, migrated then cleared.
type Like struct {
	ID                 uint64         `gorm:"primaryKey;autoIncrement"`
	LikerID            uint64         `gorm:"not null;uniqueIndex:idx_liker_likee,priority:1"`
	LikeeID            uint64         `gorm:"not null;uniqueIndex:idx_liker_likee,priority:2;index:idx_likee_created,priority:1"`
	IsMatched          bool           `gorm:"not null;default:false;index:idx_matched_conversation,priority:1"`
	MatchedDate        *time.Time     `gorm:"precision:3"`
	ConversationID     *string        `gorm:"size:36;index:idx_matched_conversation,priority:2"`
	DirectConversation datatypes.JSON `gorm:"column:direct_conversation"`
	CreatedAt          time.Time      `gorm:"autoCreateTime;precision:3;index:idx_likee_created,priority:2"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime;precision:3"`
}

// Counterpart returns the other user of the like from viewer's side.
func (l *Like) Counterpart(viewer uint64) uint64 {
	if l.LikerID == viewer {
		return l.LikeeID
	}
	return l.LikerID
}

// ChannelRef returns the conversation id or "" when not linked yet.
func (l *Like) ChannelRef() string {
	if l.ConversationID == nil {
		return ""
	}
	return *l.ConversationID
}

// Conversation is the channel shared by a matched pair.
// PairKey is unique: exactly one conversation per unordered pair.
type Conversation struct {
	ID                  string     `gorm:"primaryKey;size:36"`
	PairKey             string     `gorm:"uniqueIndex;size:48;not null"`
	UserAID             uint64     `gorm:"not null;index"`
	UserBID             uint64     `gorm:"not null;index"`
	LastMessageText     string     `gorm:"size:2048"`
	LastMessageSentAt   *time.Time `gorm:"precision:3"`
	LastMessageSenderID uint64
	CreatedAt           time.Time `gorm:"autoCreateTime;precision:3"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime;precision:3"`
}

// PairKey builds the canonical key for an unordered user pair.
func PairKey(a, b uint64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// HasParticipant reports whether userID belongs to the conversation.
func (c *Conversation) HasParticipant(userID uint64) bool {
	return userID != 0 && (c.UserAID == userID || c.UserBID == userID)
}

// Other returns the participant that is not userID.
func (c *Conversation) Other(userID uint64) uint64 {
	if c.UserAID == userID {
		return c.UserBID
	}
	return c.UserAID
}

// Message rows are immutable except Read/ReadAt.
// Listing order is (created_at, id); ids are time-ordered UUIDv7.
type Message struct {
	ID             string     `gorm:"primaryKey;size:36"`
	ConversationID string     `gorm:"size:36;not null;index:idx_conversation_created,priority:1"`
	SenderID       uint64     `gorm:"not null"`
	ReceiverID     uint64     `gorm:"not null;index"`
	Text           string     `gorm:"size:2048;not null"`
	Read           bool       `gorm:"column:is_read;not null;default:false"`
	ReadAt         *time.Time `gorm:"precision:3"`
	CreatedAt      time.Time  `gorm:"precision:3;index:idx_conversation_created,priority:2"`
}

// Pass records that Actor swiped left on Recipient.
//
// Composite PK: (ActorID, RecipientID)
//   - One row per pair; liking later removes it.
type Pass struct {
	ActorID     uint64    `gorm:"primaryKey"`
	RecipientID uint64    `gorm:"primaryKey"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// Models lists every table the service migrates.
func Models() []any {
	return []any{&User{}, &Like{}, &Conversation{}, &Message{}, &Pass{}}
}

// EncodeSet marshals a string set for a JSON column, dropping blanks and duplicates.
func EncodeSet(values []string) datatypes.JSON {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, dup := seen[v]; v == "" || dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	b, _ := json.Marshal(out)
	return datatypes.JSON(b)
}

func decodeSet(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
