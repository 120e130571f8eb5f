package network

import (
	"context"
	"strconv"

	"emmakit/pkg/logger"
	"emmakit/pkg/twitter"
)

// FollowOptions tunes a follow-network harvest
type FollowOptions struct {
	// Sink, when set, receives each seed's edges before the next seed starts
	Sink EdgeSink
	// Progress is called after a seed's followers were fetched (and sunk)
	Progress func(seed int64, edges int) error
	// Skip holds seed ids completed by an earlier run
	Skip map[int64]bool
	Logger logger.Logger
}

// FollowGraph is the follow subgraph induced by a seed set
type FollowGraph struct {
	// Seeds are the resolved seed accounts in lookup order
	Seeds []twitter.User
	// Edges run follower -> seed, both as decimal ids
	Edges []Edge
	// Failed lists seeds whose followers could not be fetched
	Failed []int64
}

// FollowNetwork resolves seeds to canonical ids and, for each one, pages its
// followers restricted to the seed set. One edge is emitted per follower ->
// seed relation. A seed whose fetch fails is logged and skipped; only
// context cancellation and sink or progress errors end the harvest early.
func FollowNetwork(ctx context.Context, src FollowerSource, seeds []twitter.Identifier, opts FollowOptions) (*FollowGraph, error) {
	log := logger.OrGlobal(opts.Logger)
	graph := &FollowGraph{}
	if len(seeds) == 0 {
		return graph, nil
	}

	users, err := src.LookupUsers(ctx, seeds)
	if err != nil {
		return graph, err
	}
	graph.Seeds = users

	members := make(map[int64]struct{}, len(users))
	for _, u := range users {
		members[u.ID] = struct{}{}
	}
	if len(users) < len(seeds) {
		log.WarnWithFields("some seeds could not be resolved", map[string]interface{}{
			"requested": len(seeds),
			"resolved":  len(users),
		})
	}

	for i, seed := range users {
		if err := ctx.Err(); err != nil {
			return graph, err
		}
		if opts.Skip[seed.ID] {
			log.DebugWithFields("seed already harvested, skipping", map[string]interface{}{
				"seed": seed.ID,
			})
			continue
		}

		followers, err := src.Followers(ctx, twitter.UserID(seed.ID), twitter.CursorOptions{Filter: members})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return graph, ctxErr
			}
			log.WithError(err).WarnWithFields("follower fetch failed, skipping seed", map[string]interface{}{
				"seed":        seed.ID,
				"screen_name": seed.ScreenName,
			})
			graph.Failed = append(graph.Failed, seed.ID)
			continue
		}

		target := strconv.FormatInt(seed.ID, 10)
		edges := make([]Edge, 0, len(followers))
		for _, f := range followers {
			edges = append(edges, Edge{Source: strconv.FormatInt(f, 10), Target: target})
		}
		graph.Edges = append(graph.Edges, edges...)

		if opts.Sink != nil && len(edges) > 0 {
			if err := opts.Sink.WriteEdges(edges); err != nil {
				return graph, err
			}
		}
		if opts.Progress != nil {
			if err := opts.Progress(seed.ID, len(edges)); err != nil {
				return graph, err
			}
		}
		logger.LogHarvestProgress(log, seed.ScreenName, i+1, len(users))
	}

	return graph, nil
}
