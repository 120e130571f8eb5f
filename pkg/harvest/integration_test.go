package harvest

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"emmakit/pkg/config"
	"emmakit/pkg/logger"
	"emmakit/pkg/network"
	"emmakit/pkg/storage"
	"emmakit/pkg/twitter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockHarvester(t *testing.T, m *mockTwitterServer) (*Harvester, *config.Config) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Harvest.CheckpointDir = filepath.Join(t.TempDir(), "checkpoints")
	cfg.Harvest.EdgeLog = filepath.Join(t.TempDir(), "edges.tsv")

	client, err := twitter.NewClient(cfg,
		twitter.WithHTTPClient(m.server.Client()),
		twitter.WithBaseURL(m.server.URL),
		twitter.WithLogger(logger.NewNopLogger()),
		twitter.WithSleep(m.sleep),
	)
	require.NoError(t, err)

	h, err := New(cfg, WithClient(client), WithLogger(logger.NewNopLogger()))
	require.NoError(t, err)
	return h, cfg
}

// seedGraph has 7 follower pages at two ids per page
func seedGraph(m *mockTwitterServer) {
	m.addUser(1, "ada", 2, 3, 4, 99, 98)
	m.addUser(2, "grace", 1, 3)
	m.addUser(3, "edsger", 1)
	m.addUser(4, "barbara", 1, 2, 3, 97)
}

func expectedFollowEdges() []network.Edge {
	return []network.Edge{
		{Source: "2", Target: "1"}, {Source: "3", Target: "1"}, {Source: "4", Target: "1"},
		{Source: "1", Target: "2"}, {Source: "3", Target: "2"},
		{Source: "1", Target: "3"},
		{Source: "1", Target: "4"}, {Source: "2", Target: "4"}, {Source: "3", Target: "4"},
	}
}

func TestFollowNetworkEndToEndWithTrackedWindow(t *testing.T) {
	m := newMockTwitterServer(2, 3)
	defer m.Close()
	seedGraph(m)
	h, cfg := newMockHarvester(t, m)

	graph, err := h.FollowNetwork(context.Background(), []string{"ada", "grace", "edsger", "barbara"}, false)
	require.NoError(t, err)

	assert.ElementsMatch(t, expectedFollowEdges(), graph.Edges)
	assert.Empty(t, graph.Failed)
	assert.EqualValues(t, 7, m.followerCalls, "every page is fetched exactly once")
	assert.EqualValues(t, 0, m.rateLimitHits, "a tracked window is never overrun")
	assert.Equal(t, 2, m.resets())

	logged, err := storage.ReadEdges(cfg.Harvest.EdgeLog)
	require.NoError(t, err)
	assert.ElementsMatch(t, graph.Edges, logged)
}

func TestFollowNetworkEndToEndWithProviderLimits(t *testing.T) {
	m := newMockTwitterServer(2, 3)
	defer m.Close()
	m.reportWindow = false
	seedGraph(m)
	h, _ := newMockHarvester(t, m)

	graph, err := h.FollowNetwork(context.Background(), []string{"ada", "grace", "edsger", "barbara"}, false)
	require.NoError(t, err)

	assert.ElementsMatch(t, expectedFollowEdges(), graph.Edges)
	assert.EqualValues(t, 2, m.rateLimitHits)
	assert.EqualValues(t, 9, m.followerCalls, "a limited page is retried, not skipped")
	assert.Equal(t, 2, m.resets())
}

func TestFollowNetworkEndToEndSkipsMissingSeed(t *testing.T) {
	m := newMockTwitterServer(10, 100)
	defer m.Close()
	seedGraph(m)
	m.missing[3] = true
	h, _ := newMockHarvester(t, m)

	graph, err := h.FollowNetwork(context.Background(), []string{"1", "2", "3", "4"}, false)
	require.NoError(t, err)

	assert.Equal(t, []int64{3}, graph.Failed)
	assert.Len(t, graph.Edges, 8)
	assert.Equal(t, 0, m.resets())
}

func TestMentionsNetworkEndToEnd(t *testing.T) {
	m := newMockTwitterServer(10, 100)
	defer m.Close()
	m.addUser(1, "ada")
	m.addUser(2, "grace")
	m.addTweet("ada", 30, "RT @grace: compilers #cobol")
	m.addTweet("ada", 20, "thanks @grace and @edsger #math #engines")
	m.addTweet("ada", 10, "older @nobody")
	h, _ := newMockHarvester(t, m)

	result, err := h.MentionsNetwork(context.Background(), []string{"ada"}, 2, network.Mentions)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Tweets)
	assert.Equal(t, []network.Edge{
		{Source: "ada", Target: "grace"},
		{Source: "ada", Target: "edsger"},
		{Source: "ada", Target: "nobody"},
	}, result.Edges)
	// edsger and nobody are unknown to the provider
	require.Len(t, result.Participants, 2)

	result, err = h.MentionsNetwork(context.Background(), []string{"ada"}, 1, network.Retweets)
	require.NoError(t, err)
	assert.Equal(t, []network.Edge{{Source: "ada", Target: "grace"}}, result.Edges)
}

func TestMentionsNetworkEndToEndPagesPastRetweets(t *testing.T) {
	m := newMockTwitterServer(10, 100)
	defer m.Close()
	m.addUser(1, "ada")
	m.addUser(2, "grace")
	for id := int64(600); id > 0; id-- {
		if id%5 == 0 {
			m.addTweet("ada", id, fmt.Sprintf("RT @grace: note %d", id))
			continue
		}
		m.addTweet("ada", id, fmt.Sprintf("reply %d to @grace", id))
	}
	h, _ := newMockHarvester(t, m)

	result, err := h.MentionsNetwork(context.Background(), []string{"ada"}, 300, network.Mentions)
	require.NoError(t, err)
	assert.Equal(t, 300, result.Tweets)
	assert.Len(t, result.Edges, 300)
}
