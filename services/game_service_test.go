package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/trexbooth/models"
	"github.com/wfunc/trexbooth/network"
	"github.com/wfunc/trexbooth/persistence"
)

type recordedSession struct {
	playerID   int64
	humanScore int
	aiScore    int
	humanWon   bool
	commentary string
}

type fakeStore struct {
	players   map[string]int64
	names     map[int64]string
	sessions  []recordedSession
	lastLimit int
	err       error
}

func newFakeStore() *fakeStore {
	return &fakeStore{players: map[string]int64{}, names: map[int64]string{}}
}

func (f *fakeStore) UpsertPlayer(_ context.Context, name, email, company string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	id, ok := f.players[email]
	if !ok {
		id = int64(len(f.players) + 1)
		f.players[email] = id
	}
	f.names[id] = name
	return id, nil
}

func (f *fakeStore) RecordSession(_ context.Context, playerID int64, humanScore, aiScore int, humanWon bool, commentary string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if _, ok := f.names[playerID]; !ok {
		return 0, persistence.ErrPlayerNotFound
	}
	f.sessions = append(f.sessions, recordedSession{playerID, humanScore, aiScore, humanWon, commentary})
	return int64(len(f.sessions)), nil
}

func (f *fakeStore) Leaderboard(_ context.Context, limit int) ([]models.LeaderboardEntry, error) {
	f.lastLimit = limit
	return nil, f.err
}

func (f *fakeStore) Stats(context.Context) (*models.Stats, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Stats{TotalGames: int64(len(f.sessions))}, nil
}

type fixedOpponent int

func (o fixedOpponent) Score(int) int { return int(o) }

type echoCommentator struct{}

func (echoCommentator) Commentary(_ context.Context, humanScore, aiScore int, playerName string) string {
	return "boa, " + playerName
}

type event struct {
	name    string
	payload interface{}
}

type fakeNotifier struct {
	events []event
	err    error
}

func (n *fakeNotifier) BroadcastToAll(name string, payload interface{}) error {
	n.events = append(n.events, event{name, payload})
	return n.err
}

type fakeRecorder struct{ scores, wins int }

func (r *fakeRecorder) RecordScore(humanWon bool) {
	r.scores++
	if humanWon {
		r.wins++
	}
}

func TestRegister_Upserts(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	svc := NewGameService(store, fixedOpponent(10), echoCommentator{}, notifier, nil)
	ctx := context.Background()

	first, err := svc.Register(ctx, "Ana", "ana@x.com", "Acme")
	require.NoError(t, err)
	second, err := svc.Register(ctx, "Ana2", "ana@x.com", "Acme2")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "Ana2", store.names[first])
	require.Len(t, notifier.events, 2)
	assert.Equal(t, network.EventPlayerRegistered, notifier.events[1].name)
	assert.Equal(t, PlayerRegistered{PlayerID: first, Name: "Ana2", Company: "Acme2"}, notifier.events[1].payload)
}

func TestRegister_RequiresNameAndEmail(t *testing.T) {
	svc := NewGameService(newFakeStore(), fixedOpponent(10), echoCommentator{}, nil, nil)

	_, err := svc.Register(context.Background(), " ", "ana@x.com", "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = svc.Register(context.Background(), "Ana", "", "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestSubmitScore(t *testing.T) {
	tests := []struct {
		name     string
		human    int
		ai       int
		humanWon bool
	}{
		{"human wins", 150, 120, true},
		{"ai wins", 150, 170, false},
		{"tie goes to ai", 150, 150, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			notifier := &fakeNotifier{}
			recorder := &fakeRecorder{}
			svc := NewGameService(store, fixedOpponent(tt.ai), echoCommentator{}, notifier, recorder)
			ctx := context.Background()

			id, err := svc.Register(ctx, "Ana", "ana@x.com", "")
			require.NoError(t, err)

			result, err := svc.SubmitScore(ctx, id, "Ana", tt.human)
			require.NoError(t, err)

			assert.Equal(t, tt.human, result.HumanScore)
			assert.Equal(t, tt.ai, result.AIScore)
			assert.Equal(t, tt.humanWon, result.HumanWon)
			assert.Equal(t, "boa, Ana", result.Commentary)

			require.Len(t, store.sessions, 1)
			assert.Equal(t, recordedSession{id, tt.human, tt.ai, tt.humanWon, "boa, Ana"}, store.sessions[0])

			assert.Equal(t, 1, recorder.scores)
			if tt.humanWon {
				assert.Equal(t, 1, recorder.wins)
			}

			last := notifier.events[len(notifier.events)-1]
			assert.Equal(t, network.EventSessionRecorded, last.name)
		})
	}
}

func TestSubmitScore_Errors(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	svc := NewGameService(store, fixedOpponent(10), echoCommentator{}, notifier, nil)

	_, err := svc.SubmitScore(context.Background(), 1, "Ana", -1)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.SubmitScore(context.Background(), 1, "Ana", math.MaxInt32+1)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.SubmitScore(context.Background(), 42, "Ghost", 100)
	assert.ErrorIs(t, err, persistence.ErrPlayerNotFound)
	assert.Empty(t, notifier.events)
}

func TestSubmitScore_NotifierFailureIgnored(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{err: errors.New("feed down")}
	svc := NewGameService(store, fixedOpponent(10), echoCommentator{}, notifier, nil)

	id, err := svc.Register(context.Background(), "Ana", "ana@x.com", "")
	require.NoError(t, err)
	_, err = svc.SubmitScore(context.Background(), id, "Ana", 100)
	assert.NoError(t, err)
}

func TestLeaderboard_ClampsLimit(t *testing.T) {
	store := newFakeStore()
	svc := NewGameService(store, fixedOpponent(10), echoCommentator{}, nil, nil)

	entries, err := svc.Leaderboard(context.Background(), 10_000)
	require.NoError(t, err)
	assert.Equal(t, MaxLeaderboardLimit, store.lastLimit)
	assert.NotNil(t, entries)

	_, err = svc.Leaderboard(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, store.lastLimit)
}

func TestStats_PropagatesStoreError(t *testing.T) {
	store := newFakeStore()
	store.err = &persistence.ConnectError{Attempts: 2, Err: errors.New("password authentication failed")}
	svc := NewGameService(store, fixedOpponent(10), echoCommentator{}, nil, nil)

	_, err := svc.Stats(context.Background())
	var connErr *persistence.ConnectError
	assert.ErrorAs(t, err, &connErr)

}
