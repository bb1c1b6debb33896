package model

import "time"

// Message is a persisted chat message. The id is store-assigned and
// monotonically increasing; CreatedAt is the pagination cursor key.
// Content may be empty only when an attachment is present. Deletes are hard
// deletes, so dangling ReplyToID references are expected and tolerated.
type Message struct {
	ID           int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	ChannelID    uint    `gorm:"not null;index:idx_channel_created" json:"channel_id"`
	AuthorID     uint    `gorm:"not null;index" json:"author_id"`
	Content      string  `gorm:"type:text" json:"content"`
	AttachmentID *string `gorm:"type:varchar(64)" json:"-"`
	ReplyToID    *int64  `json:"reply_to_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_channel_created" json:"created_at"`

	Author     *User       `gorm:"foreignKey:AuthorID" json:"-"`
	Attachment *Attachment `gorm:"foreignKey:AttachmentID;references:ID" json:"-"`
}

func (Message) TableName() string {
	return "messages"
}

// Attachment kinds.
const (
	AttachmentKindImage = "image"
	AttachmentKindVideo = "video"
	AttachmentKindFile  = "file"
)

// Attachment is immutable once created and owned by exactly one message.
// The id is an opaque collision-resistant string assigned at bind time;
// Width/Height are set only for image and video kinds.
type Attachment struct {
	ID     string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Kind   string `gorm:"not null;type:varchar(16)" json:"kind"`
	URL    string `gorm:"not null" json:"url"`
	Width  *int   `json:"width,omitempty"`
	Height *int   `json:"height,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Attachment) TableName() string {
	return "attachments"
}

// ReplySnapshot is the read-time projection of a parent message embedded in
// its replies. Content and Author are nil when the parent has been deleted.
type ReplySnapshot struct {
	MessageID int64    `json:"message_id"`
	Content   *string  `json:"content"`
	Author    *Profile `json:"author"`
}

// MessageView is a message hydrated with its author profile, attachment and
// reply snapshot. This is the shape handed to callers and fanned out to
// subscribers.
type MessageView struct {
	ID         int64          `json:"id"`
	ChannelID  uint           `json:"channel_id"`
	Content    string         `json:"content"`
	Author     Profile        `json:"author"`
	Attachment *Attachment    `json:"attachment"`
	Reply      *ReplySnapshot `json:"reply"`
	CreatedAt  time.Time      `json:"created_at"`
}
