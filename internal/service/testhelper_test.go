package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/driftchat/drift/internal/fanout"
	"github.com/driftchat/drift/internal/model"
	"github.com/driftchat/drift/internal/notify"
	"github.com/driftchat/drift/internal/repository"
	"github.com/driftchat/drift/internal/utils"
	logger "github.com/driftchat/drift/middleware/log"
)

// memDB is a small in-memory stand-in for the data store, shared by the
// fake repositories so cross-record effects (channel pointer, DM flag)
// behave like the real transaction.
type memDB struct {
	mu            sync.Mutex
	users         map[uint]*model.User
	channels      map[uint]*model.Channel
	members       map[uint][]uint
	messages      map[int64]*model.Message
	attachments   map[string]*model.Attachment
	lastReads     map[[2]uint]time.Time
	nextMessageID int64
	now           time.Time
}

func newMemDB() *memDB {
	return &memDB{
		users:       make(map[uint]*model.User),
		channels:    make(map[uint]*model.Channel),
		members:     make(map[uint][]uint),
		messages:    make(map[int64]*model.Message),
		attachments: make(map[string]*model.Attachment),
		lastReads:   make(map[[2]uint]time.Time),
		now:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick advances the fake clock so every insert gets a distinct timestamp.
func (db *memDB) tick() time.Time {
	db.now = db.now.Add(time.Millisecond)
	return db.now
}

func (db *memDB) isMember(channelID, userID uint) bool {
	for _, id := range db.members[channelID] {
		if id == userID {
			return true
		}
	}
	return false
}

func (db *memDB) viewOf(m *model.Message) *model.MessageView {
	view := &model.MessageView{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
	if author, ok := db.users[m.AuthorID]; ok {
		view.Author = author.Profile()
	}
	if m.AttachmentID != nil {
		view.Attachment = db.attachments[*m.AttachmentID]
	}
	if m.ReplyToID != nil {
		snapshot := &model.ReplySnapshot{MessageID: *m.ReplyToID}
		if parent, ok := db.messages[*m.ReplyToID]; ok {
			content := parent.Content
			snapshot.Content = &content
			if author, ok := db.users[parent.AuthorID]; ok {
				profile := author.Profile()
				snapshot.Author = &profile
			}
		}
		view.Reply = snapshot
	}
	return view
}

type fakeChannelRepo struct{ db *memDB }

func (r *fakeChannelRepo) FindByID(_ context.Context, id uint) (*model.Channel, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	channel, ok := r.db.channels[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *channel
	return &copied, nil
}

func (r *fakeChannelRepo) IsMember(_ context.Context, channelID, userID uint) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.db.isMember(channelID, userID), nil
}

func (r *fakeChannelRepo) Counterpart(_ context.Context, channelID, userID uint) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, id := range r.db.members[channelID] {
		if id != userID {
			if user, ok := r.db.users[id]; ok {
				return user, nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeChannelRepo) MemberChannelIDs(_ context.Context, userID uint) ([]uint, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var ids []uint
	for channelID, members := range r.db.members {
		for _, id := range members {
			if id == userID {
				ids = append(ids, channelID)
			}
		}
	}
	return ids, nil
}

type fakeMessageRepo struct{ db *memDB }

func (r *fakeMessageRepo) CreateWithChannelUpdate(_ context.Context, msg *model.Message, att *model.Attachment) (*model.MessageView, bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	channel, ok := r.db.channels[msg.ChannelID]
	if !ok {
		return nil, false, gorm.ErrRecordNotFound
	}

	if att != nil {
		stored := *att
		r.db.attachments[att.ID] = &stored
		msg.AttachmentID = &att.ID
	}

	r.db.nextMessageID++
	msg.ID = r.db.nextMessageID
	msg.CreatedAt = r.db.tick()
	stored := *msg
	r.db.messages[msg.ID] = &stored

	id := msg.ID
	channel.LastMessageID = &id

	dmOpened := false
	if channel.Kind == model.ChannelKindDM && !channel.Opened {
		channel.Opened = true
		dmOpened = true
	}

	return r.db.viewOf(&stored), dmOpened, nil
}

func (r *fakeMessageRepo) FindPage(_ context.Context, channelID uint, limit int, dir repository.CursorDirection, cursor *time.Time) ([]*model.MessageView, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var rows []*model.Message
	for _, m := range r.db.messages {
		if m.ChannelID != channelID {
			continue
		}
		if cursor != nil {
			if dir == repository.CursorAfter && !m.CreatedAt.After(*cursor) {
				continue
			}
			if dir == repository.CursorBefore && !m.CreatedAt.Before(*cursor) {
				continue
			}
		}
		rows = append(rows, m)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	if len(rows) > limit {
		rows = rows[:limit]
	}

	views := make([]*model.MessageView, 0, len(rows))
	for _, m := range rows {
		views = append(views, r.db.viewOf(m))
	}
	return views, nil
}

func (r *fakeMessageRepo) UpdateContent(_ context.Context, messageID int64, channelID, authorID uint, content string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	m, ok := r.db.messages[messageID]
	if !ok || m.ChannelID != channelID || m.AuthorID != authorID {
		return 0, nil
	}
	m.Content = content
	return 1, nil
}

func (r *fakeMessageRepo) FindByID(_ context.Context, id int64) (*model.Message, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.messages[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *m
	return &copied, nil
}

func (r *fakeMessageRepo) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.messages, id)
	return nil
}

type fakeLastReadRepo struct{ db *memDB }

func (r *fakeLastReadRepo) Get(_ context.Context, channelID, userID uint) (*time.Time, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if ts, ok := r.db.lastReads[[2]uint{channelID, userID}]; ok {
		return &ts, nil
	}
	return nil, nil
}

func (r *fakeLastReadRepo) Set(_ context.Context, channelID, userID uint, ts time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.lastReads[[2]uint{channelID, userID}] = ts
	return nil
}

func (r *fakeLastReadRepo) Checkout(_ context.Context, channelID, userID uint, now time.Time) (*time.Time, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := [2]uint{channelID, userID}
	var prev *time.Time
	if ts, ok := r.db.lastReads[key]; ok {
		copied := ts
		prev = &copied
	}
	r.db.lastReads[key] = now
	return prev, nil
}

type publishedEvent struct {
	Topic   string
	Type    string
	Payload json.RawMessage
}

// capturePublisher records everything the fanout publishes.
type capturePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	var envelope struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return err
	}
	p.events = append(p.events, publishedEvent{Topic: topic, Type: envelope.Type, Payload: envelope.Payload})
	return nil
}

func (p *capturePublisher) byType(eventType string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (p *capturePublisher) count(eventType string) int {
	return len(p.byType(eventType))
}

type sentMention struct {
	Key     string
	Message any
}

type fakeProducer struct {
	mu       sync.Mutex
	err      error
	mentions []sentMention
}

func (p *fakeProducer) SendMessage(key string, message any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.mentions = append(p.mentions, sentMention{Key: key, Message: message})
	return nil
}

func (p *fakeProducer) sent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.mentions)
}

// fixture bundles the service under test with its collaborators.
type fixture struct {
	db        *memDB
	publisher *capturePublisher
	producer  *fakeProducer
	messages  IMessageService
	lastReads ILastReadService
}

const (
	userAlice = uint(1)
	userBob   = uint(2)
	userCarol = uint(3)

	groupChannel = uint(10) // owner alice, members alice+bob
	dmChannel    = uint(20) // alice+carol, not yet opened
)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newMemDB()
	db.users[userAlice] = &model.User{ID: userAlice, UserName: "alice", Nickname: "Alice", AvatarURL: "https://cdn.example/a.png"}
	db.users[userBob] = &model.User{ID: userBob, UserName: "bob"}
	db.users[userCarol] = &model.User{ID: userCarol, UserName: "carol"}

	owner := userAlice
	db.channels[groupChannel] = &model.Channel{ID: groupChannel, Kind: model.ChannelKindGroup, Name: "general", OwnerID: &owner}
	db.members[groupChannel] = []uint{userAlice, userBob}

	db.channels[dmChannel] = &model.Channel{ID: dmChannel, Kind: model.ChannelKindDM}
	db.members[dmChannel] = []uint{userAlice, userCarol}

	publisher := &capturePublisher{}
	producer := &fakeProducer{}

	pool := utils.NewWorkerPool(2, 128)
	pool.Start()
	t.Cleanup(pool.Stop)

	channelRepo := &fakeChannelRepo{db: db}
	messageRepo := &fakeMessageRepo{db: db}
	lastReadRepo := &fakeLastReadRepo{db: db}

	channelService := NewChannelService(channelRepo)
	messageService := NewMessageService(
		messageRepo, channelRepo, lastReadRepo, channelService,
		fanout.New(publisher),
		notify.NewBotNotifier(producer, "@bot"),
		pool, logger.NewNop(),
	)
	lastReadService := NewLastReadService(lastReadRepo, channelService)

	return &fixture{
		db:        db,
		publisher: publisher,
		producer:  producer,
		messages:  messageService,
		lastReads: lastReadService,
	}
}
