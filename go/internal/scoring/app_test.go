package scoring

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iNESlab/golbang-live/go/internal/models"
	"github.com/iNESlab/golbang-live/go/internal/scorecache"
)

// fakeStore is an in-memory EventStore. Persist records its arguments and
// feeds them back through LoadHoleScores, so a flush/warm round trip can be
// exercised without Postgres.
type fakeStore struct {
	mu           sync.Mutex
	event        *models.Event
	participants map[uuid.UUID]models.Participant
	listCalls    int

	persistCalls    int
	persistedAggs   []models.ParticipantAggregate
	persistedEvent  *models.EventAggregate
	persistedScores []models.HoleScore
}

func newFakeStore(event *models.Event, participants ...models.Participant) *fakeStore {
	s := &fakeStore{event: event, participants: make(map[uuid.UUID]models.Participant)}
	for _, p := range participants {
		s.participants[p.ID] = p
	}
	return s
}

func (s *fakeStore) GetEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	if s.event == nil || s.event.ID != eventID {
		return nil, scorecache.ErrNotFound
	}
	ev := *s.event
	return &ev, nil
}

func (s *fakeStore) GetParticipant(ctx context.Context, participantID uuid.UUID) (*models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[participantID]
	if !ok {
		return nil, scorecache.ErrNotFound
	}
	return &p, nil
}

func (s *fakeStore) ListParticipants(ctx context.Context, eventID uuid.UUID) ([]models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	var out []models.Participant
	for _, p := range s.participants {
		if p.EventID == eventID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeStore) LoadHoleScores(ctx context.Context, eventID uuid.UUID) ([]models.HoleScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.HoleScore(nil), s.persistedScores...), nil
}

func (s *fakeStore) Persist(ctx context.Context, eventID uuid.UUID, aggs []models.ParticipantAggregate, eventAgg *models.EventAggregate, holeScores []models.HoleScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistCalls++
	s.persistedAggs = append([]models.ParticipantAggregate(nil), aggs...)
	s.persistedEvent = eventAgg
	s.persistedScores = append([]models.HoleScore(nil), holeScores...)
	return nil
}

// recordingBroadcaster captures fan-out calls instead of pushing to sockets.
type recordingBroadcaster struct {
	mu        sync.Mutex
	updates   []ScoreUpdate
	groups    []int
	snapshots []EventSnapshot
}

func (b *recordingBroadcaster) BroadcastGroupUpdate(eventID uuid.UUID, groupType int, update ScoreUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updates = append(b.updates, update)
	b.groups = append(b.groups, groupType)
}

func (b *recordingBroadcaster) BroadcastEventSnapshot(eventID uuid.UUID, snapshot EventSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshots = append(b.snapshots, snapshot)
}

func testEvent() *models.Event {
	return &models.Event{ID: uuid.New(), Title: "weekend round", HoleCount: 18}
}

func testParticipant(eventID uuid.UUID, name string, group int, team models.TeamType, handicap int) models.Participant {
	return models.Participant{
		ID:        uuid.New(),
		EventID:   eventID,
		MemberID:  uuid.New(),
		UserName:  name,
		GroupType: group,
		TeamType:  team,
		Handicap:  handicap,
	}
}

func TestSubmitScorePipeline(t *testing.T) {
	ctx := context.Background()
	event := testEvent()
	p := testParticipant(event.ID, "kim", 1, models.TeamTypeNone, 3)
	store := newFakeStore(event, p)
	broadcaster := &recordingBroadcaster{}
	app := NewApp(scorecache.NewMemoryCache(), store, broadcaster, nil)

	update, err := app.SubmitScore(ctx, event, p.ID, 4, 5)
	require.NoError(t, err)

	assert.Equal(t, p.ID, update.ParticipantID)
	assert.Equal(t, 1, update.GroupType)
	assert.Equal(t, 4, update.HoleNumber)
	assert.Equal(t, 5, update.Score)
	assert.Equal(t, 5, update.SumScore)
	assert.Equal(t, 2, update.HandicapScore)

	require.Len(t, broadcaster.updates, 1)
	assert.Equal(t, 1, broadcaster.groups[0])
	assert.Equal(t, *update, broadcaster.updates[0])
}

func TestSubmitScoreResubmitOverwrites(t *testing.T) {
	ctx := context.Background()
	event := testEvent()
	p := testParticipant(event.ID, "kim", 1, models.TeamTypeNone, 0)
	app := NewApp(scorecache.NewMemoryCache(), newFakeStore(event, p), &recordingBroadcaster{}, nil)

	_, err := app.SubmitScore(ctx, event, p.ID, 3, 7)
	require.NoError(t, err)
	update, err := app.SubmitScore(ctx, event, p.ID, 3, 5)
	require.NoError(t, err)

	// A corrected hole replaces the earlier value rather than adding to it.
	assert.Equal(t, 5, update.SumScore)
}

func TestSubmitScoreHoleOutOfRange(t *testing.T) {
	event := testEvent()
	event.HoleCount = 9
	p := testParticipant(event.ID, "kim", 1, models.TeamTypeNone, 0)
	app := NewApp(scorecache.NewMemoryCache(), newFakeStore(event, p), &recordingBroadcaster{}, nil)

	_, err := app.SubmitScore(context.Background(), event, p.ID, 10, 4)
	assert.ErrorIs(t, err, ErrHoleOutOfRange)
}

func TestSubmitScoreParticipantNotInEvent(t *testing.T) {
	event := testEvent()
	stranger := testParticipant(uuid.New(), "park", 1, models.TeamTypeNone, 0)
	app := NewApp(scorecache.NewMemoryCache(), newFakeStore(event, stranger), &recordingBroadcaster{}, nil)

	_, err := app.SubmitScore(context.Background(), event, stranger.ID, 1, 4)
	assert.ErrorIs(t, err, scorecache.ErrNotFound)
}

func TestSubmitScoreCacheUnavailable(t *testing.T) {
	ctx := context.Background()
	event := testEvent()
	p := testParticipant(event.ID, "kim", 1, models.TeamTypeNone, 0)
	cache := scorecache.NewMemoryCache()
	broadcaster := &recordingBroadcaster{}
	app := NewApp(cache, newFakeStore(event, p), broadcaster, nil)

	_, err := app.SubmitScore(ctx, event, p.ID, 1, 4)
	require.NoError(t, err)

	cache.FailWrites = true
	_, err = app.SubmitScore(ctx, event, p.ID, 2, 4)
	assert.ErrorIs(t, err, scorecache.ErrCacheUnavailable)
	assert.Len(t, broadcaster.updates, 1)

	// Once the cache recovers, submissions flow again on the same state.
	cache.FailWrites = false
	update, err := app.SubmitScore(ctx, event, p.ID, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, 8, update.SumScore)
}

func TestSubmitScoreTeamEvaluation(t *testing.T) {
	ctx := context.Background()
	event := testEvent()
	pa := testParticipant(event.ID, "kim", 1, models.TeamTypeA, 0)
	pb := testParticipant(event.ID, "lee", 1, models.TeamTypeB, 0)
	app := NewApp(scorecache.NewMemoryCache(), newFakeStore(event, pa, pb), &recordingBroadcaster{}, nil)

	_, err := app.SubmitScore(ctx, event, pa.ID, 1, 4)
	require.NoError(t, err)
	update, err := app.SubmitScore(ctx, event, pb.ID, 1, 6)
	require.NoError(t, err)

	// Team A holds the lower group total, so the B submitter is not winning.
	assert.False(t, update.IsGroupWin)

	snapshot, err := app.BuildSnapshot(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WinningTeamA, snapshot.Event.GroupWinTeam)
	assert.Equal(t, models.WinningTeamA, snapshot.Event.TotalWinTeam)
}

func TestWarmCacheIsIdempotent(t *testing.T) {
	ctx := context.Background()
	event := testEvent()
	p := testParticipant(event.ID, "kim", 1, models.TeamTypeNone, 0)
	store := newFakeStore(event, p)
	app := NewApp(scorecache.NewMemoryCache(), store, &recordingBroadcaster{}, nil)

	require.NoError(t, app.WarmCache(ctx, event.ID))
	require.NoError(t, app.WarmCache(ctx, event.ID))

	// The second call sees a warm cache and never hits the store.
	assert.Equal(t, 1, store.listCalls)
}

func TestFlushThenWarmRoundTrip(t *testing.T) {
	ctx := context.Background()
	event := testEvent()
	p1 := testParticipant(event.ID, "kim", 1, models.TeamTypeNone, 2)
	p2 := testParticipant(event.ID, "lee", 1, models.TeamTypeNone, 0)
	store := newFakeStore(event, p1, p2)
	app := NewApp(scorecache.NewMemoryCache(), store, &recordingBroadcaster{}, nil)

	_, err := app.SubmitScore(ctx, event, p1.ID, 1, 4)
	require.NoError(t, err)
	_, err = app.SubmitScore(ctx, event, p1.ID, 2, 5)
	require.NoError(t, err)
	_, err = app.SubmitScore(ctx, event, p2.ID, 1, 3)
	require.NoError(t, err)

	require.NoError(t, app.Flush(ctx, event.ID))
	require.Equal(t, 1, store.persistCalls)
	require.Len(t, store.persistedAggs, 2)
	require.Len(t, store.persistedScores, 3)

	before, err := app.BuildSnapshot(ctx, event.ID)
	require.NoError(t, err)

	// A fresh cache warmed from the persisted scores reproduces the same
	// totals and rank labels.
	rebuilt := NewApp(scorecache.NewMemoryCache(), store, &recordingBroadcaster{}, nil)
	require.NoError(t, rebuilt.WarmCache(ctx, event.ID))
	after, err := rebuilt.BuildSnapshot(ctx, event.ID)
	require.NoError(t, err)

	require.Len(t, after.Rankings, len(before.Rankings))
	for i := range before.Rankings {
		assert.Equal(t, before.Rankings[i].ParticipantID, after.Rankings[i].ParticipantID)
		assert.Equal(t, before.Rankings[i].SumScore, after.Rankings[i].SumScore)
		assert.Equal(t, before.Rankings[i].Rank, after.Rankings[i].Rank)
		assert.Equal(t, before.Rankings[i].HandicapRank, after.Rankings[i].HandicapRank)
	}
}

func TestFlushEmptyEventIsNoop(t *testing.T) {
	event := testEvent()
	store := newFakeStore(event)
	app := NewApp(scorecache.NewMemoryCache(), store, &recordingBroadcaster{}, nil)

	require.NoError(t, app.Flush(context.Background(), event.ID))
	assert.Equal(t, 0, store.persistCalls)
}

func TestBroadcastSnapshotSkipsIdleParticipants(t *testing.T) {
	ctx := context.Background()
	event := testEvent()
	active := testParticipant(event.ID, "kim", 1, models.TeamTypeNone, 0)
	idle := testParticipant(event.ID, "lee", 2, models.TeamTypeNone, 0)
	store := newFakeStore(event, active, idle)
	broadcaster := &recordingBroadcaster{}
	app := NewApp(scorecache.NewMemoryCache(), store, broadcaster, nil)

	require.NoError(t, app.WarmCache(ctx, event.ID))
	_, err := app.SubmitScore(ctx, event, active.ID, 1, 4)
	require.NoError(t, err)

	require.NoError(t, app.BroadcastSnapshot(ctx, event.ID))
	require.Len(t, broadcaster.snapshots, 1)

	rankings := broadcaster.snapshots[0].Rankings
	require.Len(t, rankings, 1)
	assert.Equal(t, active.ID, rankings[0].ParticipantID)
	assert.Equal(t, "1", rankings[0].Rank)
	assert.Equal(t, "kim", rankings[0].User.Name)
}

func TestGroupRosterEchoesCurrentState(t *testing.T) {
	ctx := context.Background()
	event := testEvent()
	p1 := testParticipant(event.ID, "kim", 1, models.TeamTypeNone, 0)
	p2 := testParticipant(event.ID, "lee", 2, models.TeamTypeNone, 0)
	app := NewApp(scorecache.NewMemoryCache(), newFakeStore(event, p1, p2), &recordingBroadcaster{}, nil)

	_, err := app.SubmitScore(ctx, event, p1.ID, 1, 4)
	require.NoError(t, err)
	_, err = app.SubmitScore(ctx, event, p2.ID, 1, 3)
	require.NoError(t, err)

	roster, err := app.GroupRoster(ctx, event.ID, 1)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, p1.ID, roster[0].ParticipantID)
	assert.Equal(t, 4, roster[0].SumScore)
	assert.Equal(t, 1, roster[0].HoleNumber)
}
