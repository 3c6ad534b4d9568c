package match

// Ids are decimal strings; timestamps are unix milliseconds.

type User struct {
	ID         string   `json:"id,omitempty"`
	Name       string   `json:"name"`
	Age        int      `json:"age"`
	Bio        string   `json:"bio,omitempty"`
	ImageURL   string   `json:"image_url,omitempty"`
	Gender     string   `json:"gender"`
	LookingFor []string `json:"looking_for,omitempty"`
	Location   string   `json:"location,omitempty"`
	Interests  []string `json:"interests,omitempty"`
}

type Like struct {
	ID              string `json:"id"`
	LikerID         string `json:"liker_id"`
	LikeeID         string `json:"likee_id"`
	IsMatched       bool   `json:"is_matched"`
	MatchedAtUnixMs int64  `json:"matched_at_unix_ms,omitempty"`
	CreatedAtUnixMs int64  `json:"created_at_unix_ms"`
}

// Channel status is one of "unmatched", "matched_no_messages",
// "matched_with_channel".
type Channel struct {
	Status         string `json:"status"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type LikeView struct {
	Like        Like    `json:"like"`
	Counterpart *User   `json:"counterpart,omitempty"`
	Channel     Channel `json:"channel"`
}

type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	ReceiverID     string `json:"receiver_id"`
	Text           string `json:"text"`
	Read           bool   `json:"read"`
	ReadAtUnixMs   int64  `json:"read_at_unix_ms,omitempty"`
	SentAtUnixMs   int64  `json:"sent_at_unix_ms"`
}

type Conversation struct {
	ID                  string   `json:"id"`
	ParticipantIDs      []string `json:"participant_ids"`
	LastMessageText     string   `json:"last_message_text,omitempty"`
	LastMessageSenderID string   `json:"last_message_sender_id,omitempty"`
	LastMessageAtUnixMs int64    `json:"last_message_at_unix_ms,omitempty"`
}

type ExpressPreferenceRequest struct {
	LikerID string `json:"liker_id"`
	LikeeID string `json:"likee_id"`
}

type ExpressPreferenceResponse struct {
	Like     Like `json:"like"`
	Created  bool `json:"created"`
	NewMatch bool `json:"new_match"`
	// Channel lets the caller open the conversation right after a match.
	Channel Channel `json:"channel"`
}

type PassRequest struct {
	ActorID     string `json:"actor_id"`
	RecipientID string `json:"recipient_id"`
}

type PassResponse struct{}

type SendMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	Text           string `json:"text"`
}

type SendMessageResponse struct {
	Message Message `json:"message"`
}

type ListMessagesRequest struct {
	ConversationID  string  `json:"conversation_id"`
	ViewerID        string  `json:"viewer_id"`
	PaginationToken *string `json:"pagination_token,omitempty"`
	Limit           int     `json:"limit,omitempty"`
}

type ListMessagesResponse struct {
	Messages            []Message `json:"messages"`
	NextPaginationToken *string   `json:"next_pagination_token,omitempty"`
}

type MarkReadRequest struct {
	ConversationID string `json:"conversation_id"`
	ReaderID       string `json:"reader_id"`
}

type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

// ListLikesRequest direction is "sent" (default), "received" or "matched".
type ListLikesRequest struct {
	UserID          string  `json:"user_id"`
	Direction       string  `json:"direction,omitempty"`
	PaginationToken *string `json:"pagination_token,omitempty"`
	Limit           int     `json:"limit,omitempty"`
}

type ListLikesResponse struct {
	Likes               []LikeView `json:"likes"`
	NextPaginationToken *string    `json:"next_pagination_token,omitempty"`
}

type ListConversationsRequest struct {
	UserID string `json:"user_id"`
	Limit  int    `json:"limit,omitempty"`
}

type ListConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
}

type CountLikedYouRequest struct {
	RecipientUserID string `json:"recipient_user_id"`
}

type CountLikedYouResponse struct {
	Count uint64 `json:"count"`
}

type DiscoverRequest struct {
	UserID string `json:"user_id"`
	Limit  int    `json:"limit,omitempty"`
}

type DiscoverResponse struct {
	Users []User `json:"users"`
}

type PutUserRequest struct {
	User User `json:"user"`
}

type PutUserResponse struct {
	User User `json:"user"`
}

type GetUserRequest struct {
	UserID string `json:"user_id"`
}

type GetUserResponse struct {
	User User `json:"user"`
}

type DeleteUserRequest struct {
	UserID string `json:"user_id"`
}

type DeleteUserResponse struct{}
