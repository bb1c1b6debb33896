package model

import "time"

// Channel kinds.
const (
	ChannelKindDM    = "dm"
	ChannelKindGroup = "group"
)

// Channel is either a two-party direct message or an owned group.
// LastMessageID is a denormalized pointer to the newest message; it is only
// written inside the send transaction. Opened applies to DM channels and
// flips to true exactly once, on the first message.
type Channel struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	Kind          string `gorm:"not null;type:varchar(16);index" json:"kind"`
	Name          string `gorm:"type:varchar(255)" json:"name"`
	OwnerID       *uint  `gorm:"index" json:"owner_id,omitempty"` // group channels only
	LastMessageID *int64 `json:"last_message_id,omitempty"`
	Opened        bool   `gorm:"not null;default:false" json:"opened"` // dm channels only

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Channel) TableName() string {
	return "channels"
}

// IsDM reports whether the channel is a direct message.
func (c *Channel) IsDM() bool {
	return c.Kind == ChannelKindDM
}

// ChannelMember is a membership row. A DM channel has exactly two rows,
// a group channel one row per member (including the owner).
type ChannelMember struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	ChannelID uint `gorm:"not null;uniqueIndex:idx_channel_user" json:"channel_id"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_channel_user" json:"user_id"`

	JoinedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"joined_at"`
}

func (ChannelMember) TableName() string {
	return "channel_members"
}
