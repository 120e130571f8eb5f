package network

import (
	"context"
	"errors"
	"testing"

	errs "emmakit/pkg/errors"
	"emmakit/pkg/logger"
	"emmakit/pkg/twitter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves a fixed follower table
type fakeSource struct {
	users     map[string]twitter.User
	followers map[int64][]int64
	failing   map[int64]error
	lookedUp  []twitter.Identifier
	fetched   []int64
}

func (f *fakeSource) LookupUsers(ctx context.Context, ids []twitter.Identifier) ([]twitter.User, error) {
	f.lookedUp = append(f.lookedUp, ids...)
	var out []twitter.User
	for _, id := range ids {
		if u, ok := f.users[id.String()]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeSource) Followers(ctx context.Context, id twitter.Identifier, opts twitter.CursorOptions) ([]int64, error) {
	seed := int64(id.(twitter.UserID))
	f.fetched = append(f.fetched, seed)
	if err := f.failing[seed]; err != nil {
		return nil, err
	}
	var out []int64
	for _, follower := range f.followers[seed] {
		if _, ok := opts.Filter[follower]; ok {
			out = append(out, follower)
		}
	}
	return out, nil
}

type memorySink struct {
	edges []Edge
	err   error
}

func (m *memorySink) WriteEdges(edges []Edge) error {
	if m.err != nil {
		return m.err
	}
	m.edges = append(m.edges, edges...)
	return nil
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		users: map[string]twitter.User{
			"alice": {ID: 1, ScreenName: "alice"},
			"bob":   {ID: 2, ScreenName: "bob"},
			"carol": {ID: 3, ScreenName: "carol"},
		},
		followers: map[int64][]int64{
			1: {2, 3, 99},
			2: {1, 500},
			3: {1, 2},
		},
		failing: map[int64]error{},
	}
}

func seeds(names ...string) []twitter.Identifier {
	out := make([]twitter.Identifier, len(names))
	for i, n := range names {
		out[i] = twitter.ScreenName(n)
	}
	return out
}

func TestFollowNetworkInducedSubgraph(t *testing.T) {
	src := newFakeSource()
	sink := &memorySink{}

	graph, err := FollowNetwork(context.Background(), src, seeds("alice", "bob", "carol"), FollowOptions{
		Sink:   sink,
		Logger: logger.NewNopLogger(),
	})
	require.NoError(t, err)

	want := []Edge{
		{"2", "1"}, {"3", "1"},
		{"1", "2"},
		{"1", "3"}, {"2", "3"},
	}
	assert.Equal(t, want, graph.Edges)
	assert.Equal(t, want, sink.edges)
	assert.Len(t, graph.Seeds, 3)
	assert.Empty(t, graph.Failed)
}

func TestFollowNetworkSkipsFailingSeed(t *testing.T) {
	src := newFakeSource()
	src.failing[2] = &errs.Error{Type: errs.ErrorTypeNotFound, Message: "User has been suspended.", APICode: 63}
	testLog := logger.NewTestLogger()

	var progressed []int64
	graph, err := FollowNetwork(context.Background(), src, seeds("alice", "bob", "carol"), FollowOptions{
		Logger: testLog,
		Progress: func(seed int64, edges int) error {
			progressed = append(progressed, seed)
			return nil
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 3}, src.fetched)
	assert.Equal(t, []int64{2}, graph.Failed)
	assert.Equal(t, []int64{1, 3}, progressed)
	assert.Equal(t, []Edge{{"2", "1"}, {"3", "1"}, {"1", "3"}, {"2", "3"}}, graph.Edges)
	assert.True(t, testLog.HasMessage("follower fetch failed, skipping seed"))
}

func TestFollowNetworkResumeSkipsCompletedSeeds(t *testing.T) {
	src := newFakeSource()

	graph, err := FollowNetwork(context.Background(), src, seeds("alice", "bob", "carol"), FollowOptions{
		Skip:   map[int64]bool{1: true, 3: true},
		Logger: logger.NewNopLogger(),
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, src.fetched)
	assert.Equal(t, []Edge{{"1", "2"}}, graph.Edges)
}

func TestFollowNetworkStopsOnSinkError(t *testing.T) {
	src := newFakeSource()
	sink := &memorySink{err: errors.New("disk full")}

	_, err := FollowNetwork(context.Background(), src, seeds("alice", "bob"), FollowOptions{
		Sink:   sink,
		Logger: logger.NewNopLogger(),
	})
	require.EqualError(t, err, "disk full")
	assert.Equal(t, []int64{1}, src.fetched)
}

func TestFollowNetworkCancelled(t *testing.T) {
	src := newFakeSource()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FollowNetwork(ctx, src, seeds("alice"), FollowOptions{Logger: logger.NewNopLogger()})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, src.fetched)
}

func TestFollowNetworkUnresolvedSeeds(t *testing.T) {
	src := newFakeSource()
	testLog := logger.NewTestLogger()

	graph, err := FollowNetwork(context.Background(), src, seeds("alice", "ghost"), FollowOptions{Logger: testLog})
	require.NoError(t, err)
	assert.Len(t, graph.Seeds, 1)
	assert.Empty(t, graph.Edges)
	assert.True(t, testLog.HasMessage("some seeds could not be resolved"))
}

func corpus() []twitter.Tweet {
	mk := func(author, text string) twitter.Tweet {
		return twitter.Tweet{Text: text, User: twitter.User{ScreenName: author}}
	}
	return []twitter.Tweet{
		mk("Alice", "hello @Bob and @carol_1"),
		mk("Bob", "RT @Alice: hello @dave"),
		mk("Carol", "no handles here"),
		mk("Dave", "email me at x@Example.com"),
	}
}

func TestMentionsNetworkModes(t *testing.T) {
	tests := []struct {
		mode Mode
		want []Edge
	}{
		{Mentions, []Edge{{"alice", "bob"}, {"alice", "carol_1"}, {"dave", "example"}}},
		{Retweets, []Edge{{"bob", "alice"}}},
		{Both, []Edge{{"alice", "bob"}, {"alice", "carol_1"}, {"bob", "alice"}, {"bob", "dave"}, {"dave", "example"}}},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, MentionsNetwork(corpus(), tt.mode))
		})
	}
}

func TestParticipantsAndResolve(t *testing.T) {
	edges := MentionsNetwork(corpus(), Both)
	handles := Participants(edges)
	assert.Equal(t, []string{"alice", "bob", "carol_1", "dave", "example"}, handles)

	src := newFakeSource()
	users, err := ResolveParticipants(context.Background(), src, handles)
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, twitter.ScreenName("carol_1"), src.lookedUp[2])

	users, err = ResolveParticipants(context.Background(), src, nil)
	require.NoError(t, err)
	assert.Nil(t, users)
}

func TestHashtagCoOccurrence(t *testing.T) {
	edges := HashtagCoOccurrence([]string{"#a #b #c"}, true)
	assert.Equal(t, []Edge{{"a", "b"}, {"a", "c"}, {"b", "c"}}, edges)
}

func TestHashtagCoOccurrenceRules(t *testing.T) {
	texts := []string{
		"#Go #go #Rust",
		"RT @x: #go #rust",
		"#solo",
		"#café and #Zürich",
	}

	edges := HashtagCoOccurrence(texts, false)
	assert.Equal(t, []Edge{{"go", "rust"}, {"café", "zürich"}}, edges)

	edges = HashtagCoOccurrence(texts, true)
	assert.Equal(t, []Edge{{"go", "rust"}, {"go", "rust"}, {"café", "zürich"}}, edges)
}

func TestParseMode(t *testing.T) {
	m, ok := ParseMode("Retweets")
	assert.True(t, ok)
	assert.Equal(t, Retweets, m)

	_, ok = ParseMode("likes")
	assert.False(t, ok)
}
