package matchmaker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/oggyb/muzz-match/internal/db"
)

// DirectConversation is the legacy message log embedded in a Like row.
// It is only read to be migrated into the pair's Conversation.
type DirectConversation struct {
	StartDate       time.Time       `json:"startDate"`
	LastMessageDate *time.Time      `json:"lastMessageDate,omitempty"`
	Messages        []LegacyMessage `json:"messages"`
}

type LegacyMessage struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	SenderID   LegacyID  `json:"senderId"`
	SenderName string    `json:"senderName,omitempty"`
	Date       time.Time `json:"date"`
}

// LegacyID accepts a user id written as a JSON number or a decimal string.
type LegacyID uint64

func (id *LegacyID) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("legacy sender id %q: %w", b, err)
	}
	*id = LegacyID(n)
	return nil
}

// ParseDirectConversation decodes the legacy column. An empty column is nil.
func ParseDirectConversation(raw datatypes.JSON) (*DirectConversation, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var dc DirectConversation
	if err := json.Unmarshal(raw, &dc); err != nil {
		return nil, err
	}
	return &dc, nil
}

// key identifies an entry for merging. Entries without an id are keyed by
// their content so that several of them survive a merge.
func (m LegacyMessage) key() string {
	if m.ID != "" {
		return m.ID
	}
	return fmt.Sprintf("|%d|%d|%s", m.SenderID, m.Date.UnixNano(), m.Text)
}

// MergeLog unions two message logs by id and orders the result by (date, id).
// When both logs hold the same id the first occurrence wins. Neither input
// is modified.
func MergeLog(current, incoming []LegacyMessage) []LegacyMessage {
	seen := make(map[string]struct{}, len(current)+len(incoming))
	out := make([]LegacyMessage, 0, len(current)+len(incoming))
	for _, log := range [][]LegacyMessage{current, incoming} {
		for _, m := range log {
			k := m.key()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// legacyNamespace derives stable ids for legacy messages whose id is unusable.
var legacyNamespace = uuid.MustParse("6f1c2d0e-4b7a-4c1e-9a59-3f0d2b8e7c41")

// toMessage converts a legacy entry for conv. ok is false when the sender is
// not a participant or the text is empty; such entries are dropped.
func toMessage(conv *db.Conversation, m LegacyMessage) (msg db.Message, ok bool) {
	sender := uint64(m.SenderID)
	if m.Text == "" || !conv.HasParticipant(sender) {
		return db.Message{}, false
	}

	id := m.ID
	if id == "" || len(id) > 36 {
		// deterministic, so re-running a migration inserts nothing new
		key := fmt.Sprintf("%s|%s|%d|%d|%s", conv.ID, m.ID, sender, m.Date.UnixMilli(), m.Text)
		id = uuid.NewSHA1(legacyNamespace, []byte(key)).String()
	}
	created := m.Date.UTC().Truncate(time.Millisecond)
	if created.IsZero() {
		created = time.Unix(0, 0).UTC()
	}
	return db.Message{
		ID:             id,
		ConversationID: conv.ID,
		SenderID:       sender,
		ReceiverID:     conv.Other(sender),
		Text:           m.Text,
		CreatedAt:      created,
	}, true
}
