package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProducer struct {
	keys     []string
	mentions []Mention
}

func (p *recordingProducer) SendMessage(key string, message any) error {
	p.keys = append(p.keys, key)
	p.mentions = append(p.mentions, message.(Mention))
	return nil
}

func TestMatches(t *testing.T) {
	n := NewBotNotifier(&recordingProducer{}, "@bot")

	assert.True(t, n.Matches("hey @bot do something"))
	assert.True(t, n.Matches("@bot"))
	assert.False(t, n.Matches("hey bot"))
	assert.False(t, n.Matches(""))
}

func TestNotifyCarriesMention(t *testing.T) {
	producer := &recordingProducer{}
	n := NewBotNotifier(producer, "@bot")

	require.NoError(t, n.Notify("@bot weather please", 42, "alice"))

	require.Len(t, producer.mentions, 1)
	m := producer.mentions[0]
	assert.Equal(t, "@bot weather please", m.Content)
	assert.Equal(t, uint(42), m.ChannelID)
	assert.Equal(t, "alice", m.AuthorName)
}

func TestNotifyWithoutProducerIsNoOp(t *testing.T) {
	n := NewBotNotifier(nil, "@bot")
	assert.NoError(t, n.Notify("@bot hello", 1, "alice"))
}
