package service

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/notification/domain/entity"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/notification/domain/repository"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/notification/infrastructure/persistence"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/realtime/domain/event"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/kv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type FeedServiceSuite struct {
	suite.Suite
	store *kv.Memory
	svc   FeedService
}

func (s *FeedServiceSuite) SetupTest() {
	s.store = kv.NewMemory()
	s.svc = NewFeedService(context.Background(), persistence.NewFeedRepository(s.store, ""), 0)
}

func (s *FeedServiceSuite) persisted() []entity.Record {
	raw, err := s.store.Get(context.Background(), persistence.DefaultKey)
	s.Require().NoError(err)
	var records []entity.Record
	s.Require().NoError(json.Unmarshal(raw, &records))
	return records
}

func (s *FeedServiceSuite) TestMergeDeduplicatesByID() {
	msg := event.Message{Type: event.ExternalDocumentReceived, ID: "9", Content: "x", EntityID: 3, EntityType: "external_document"}

	_, added := s.svc.Merge(msg)
	s.True(added)
	_, added = s.svc.Merge(msg)
	s.False(added)
	s.Len(s.svc.List(), 1)
}

func (s *FeedServiceSuite) TestPushEventBecomesRecord() {
	var msg event.Message
	s.Require().NoError(json.Unmarshal([]byte(`{"type":"INTERNAL_DOCUMENT_RECEIVED","id":42,"content":"New doc","entityId":7,"entityType":"internal_document","createdAt":"2024-01-01T00:00:00Z","read":false}`), &msg))

	_, added := s.svc.Merge(msg)
	s.Require().True(added)

	list := s.svc.List()
	s.Require().Len(list, 1)
	r := list[0]
	s.Equal("42", r.ID)
	s.Equal("Văn bản nội bộ mới", r.Title)
	s.Equal("New doc", r.Message)
	s.Equal(entity.SeverityInfo, r.Severity)
	s.False(r.Read)
	s.Equal("/van-ban-noi-bo/7", r.Link)
	s.Equal(int64(7), r.DocumentID)
	s.Equal(2024, r.CreatedAt.Year())
	s.Equal(1, s.svc.UnreadCount())
	s.Equal(list, s.persisted())
}

func (s *FeedServiceSuite) TestAddPrependsNewestFirst() {
	a := s.svc.Add(entity.Input{Title: "a"})
	b := s.svc.Add(entity.Input{Title: "b", Severity: entity.SeverityError})
	c := s.svc.Add(entity.Input{Title: "c", Severity: "bogus"})

	list := s.svc.List()
	s.Require().Len(list, 3)
	s.Equal([]string{c.ID, b.ID, a.ID}, []string{list[0].ID, list[1].ID, list[2].ID})
	s.NotEqual(a.ID, b.ID)
	s.Equal(entity.SeverityError, list[1].Severity)
	s.Equal(entity.SeverityInfo, list[0].Severity)
}

func (s *FeedServiceSuite) TestMarkAndClear() {
	a := s.svc.Add(entity.Input{Title: "a"})
	s.svc.Add(entity.Input{Title: "b"})
	s.Equal(2, s.svc.UnreadCount())

	s.True(s.svc.MarkAsRead(a.ID))
	s.False(s.svc.MarkAsRead("missing"))
	s.Equal(1, s.svc.UnreadCount())

	s.svc.MarkAllAsRead()
	s.Zero(s.svc.UnreadCount())
	for _, r := range s.persisted() {
		s.True(r.Read)
	}

	s.svc.Clear()
	s.Empty(s.svc.List())
	s.Empty(s.persisted())
}

func (s *FeedServiceSuite) TestNotifyAfterPersist() {
	var seen int
	unsubscribe := s.svc.Subscribe(func() {
		raw, err := s.store.Get(context.Background(), persistence.DefaultKey)
		s.Require().NoError(err)
		var records []entity.Record
		s.Require().NoError(json.Unmarshal(raw, &records))
		seen = len(records)
	})
	s.svc.Add(entity.Input{Title: "a"})
	s.Equal(1, seen)

	unsubscribe()
	s.svc.Add(entity.Input{Title: "b"})
	s.Equal(1, seen)
}

func (s *FeedServiceSuite) TestListReturnsCopy() {
	s.svc.Add(entity.Input{Title: "a"})
	list := s.svc.List()
	list[0].Read = true
	s.Equal(1, s.svc.UnreadCount())
}

func TestFeedServiceSuite(t *testing.T) {
	suite.Run(t, new(FeedServiceSuite))
}

func TestUnreadCountMatchesRecordsUnderRandomOps(t *testing.T) {
	svc := NewFeedService(context.Background(), persistence.NewFeedRepository(kv.NewMemory(), ""), 50)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		switch rng.Intn(5) {
		case 0, 1:
			svc.Add(entity.Input{Title: "n"})
		case 2:
			list := svc.List()
			if len(list) > 0 {
				svc.MarkAsRead(list[rng.Intn(len(list))].ID)
			}
		case 3:
			svc.Merge(event.Message{Type: event.InternalDocumentUpdated, ID: event.ID(string(rune('a' + rng.Intn(26))))})
		case 4:
			if rng.Intn(10) == 0 {
				svc.MarkAllAsRead()
			}
		}

		unread := 0
		list := svc.List()
		for _, r := range list {
			if !r.Read {
				unread++
			}
		}
		require.Equal(t, unread, svc.UnreadCount())
		require.LessOrEqual(t, len(list), 50)
	}
}

func TestCorruptSnapshotStartsEmpty(t *testing.T) {
	store := kv.NewMemory()
	require.NoError(t, store.Set(context.Background(), persistence.DefaultKey, []byte("][")))

	svc := NewFeedService(context.Background(), persistence.NewFeedRepository(store, ""), 0)
	assert.Empty(t, svc.List())

	svc.Add(entity.Input{Title: "fresh"})
	assert.Len(t, svc.List(), 1)
}

func TestRebindLoadsOtherUser(t *testing.T) {
	store := kv.NewMemory()
	alice := persistence.NewFeedRepository(kv.WithPrefix(store, "user:1:"), "")
	bob := persistence.NewFeedRepository(kv.WithPrefix(store, "user:2:"), "")

	svc := NewFeedService(context.Background(), alice, 0)
	svc.Add(entity.Input{Title: "for alice"})

	notified := false
	svc.Subscribe(func() { notified = true })
	svc.Rebind(context.Background(), bob)
	assert.Empty(t, svc.List())
	assert.True(t, notified)

	svc.Rebind(context.Background(), alice)
	require.Len(t, svc.List(), 1)
	assert.Equal(t, "for alice", svc.List()[0].Title)
}

// gatedRepo 第一次 Save 卡住，直到 release 关闭
type gatedRepo struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once

	mu    sync.Mutex
	saved []entity.Record
}

var _ repository.FeedRepository = (*gatedRepo)(nil)

func newGatedRepo() *gatedRepo {
	return &gatedRepo{entered: make(chan struct{}), release: make(chan struct{})}
}

func (r *gatedRepo) Load(context.Context) ([]entity.Record, error) {
	return nil, nil
}

func (r *gatedRepo) Save(_ context.Context, records []entity.Record) error {
	r.once.Do(func() {
		close(r.entered)
		<-r.release
	})
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append([]entity.Record(nil), records...)
	return nil
}

func (r *gatedRepo) last() []entity.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saved
}

func TestSlowSaveDoesNotOverwriteNewerSnapshot(t *testing.T) {
	repo := newGatedRepo()
	svc := NewFeedService(context.Background(), repo, 0)

	firstDone := make(chan struct{})
	go func() {
		svc.Add(entity.Input{Title: "A"})
		close(firstDone)
	}()
	<-repo.entered

	secondDone := make(chan struct{})
	go func() {
		svc.Add(entity.Input{Title: "B"})
		close(secondDone)
	}()
	require.Eventually(t, func() bool { return len(svc.List()) == 2 }, time.Second, time.Millisecond)

	close(repo.release)
	<-firstDone
	<-secondDone

	saved := repo.last()
	require.Len(t, saved, 2)
	assert.Equal(t, "B", saved[0].Title)
	assert.Equal(t, "A", saved[1].Title)
}
