package model

import "time"

// LastRead is a per (channel, user) read cursor: the timestamp through which
// the user has read. Last-writer-wins, created implicitly on first use.
type LastRead struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ChannelID uint      `gorm:"not null;uniqueIndex:idx_lastread_channel_user" json:"channel_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_lastread_channel_user" json:"user_id"`
	ReadAt    time.Time `gorm:"not null" json:"read_at"`
}

func (LastRead) TableName() string {
	return "last_reads"
}
