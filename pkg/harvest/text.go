package harvest

import (
	"context"

	"emmakit/pkg/logger"
	"emmakit/pkg/network"
	"emmakit/pkg/twitter"
)

// MentionsResult is a mentions or retweet network with its participants
type MentionsResult struct {
	Edges        []network.Edge
	Participants []twitter.User
	Tweets       int
}

// corpus fetches up to count recent tweets per user. A user whose timeline
// cannot be fetched is logged and skipped.
func (h *Harvester) corpus(ctx context.Context, users []string, count int, includeRetweets bool) ([]twitter.Tweet, error) {
	ids, err := twitter.ParseIdentifiers(users)
	if err != nil {
		return nil, err
	}

	var tweets []twitter.Tweet
	for i, id := range ids {
		page, err := h.client.Timeline(ctx, id, twitter.TimelineOptions{
			Count:           count,
			IncludeRetweets: includeRetweets,
		})
		if err != nil {
			if ctx.Err() != nil {
				return tweets, ctx.Err()
			}
			h.logger.WithError(err).WarnWithFields("timeline fetch failed, skipping user", map[string]interface{}{
				"user": id.String(),
			})
			continue
		}
		tweets = append(tweets, page...)
		logger.LogHarvestProgress(h.logger, id.String(), i+1, len(ids))
	}
	return tweets, nil
}

// MentionsNetwork fetches the users' timelines and derives author -> handle
// edges for mode, then looks up every participant.
func (h *Harvester) MentionsNetwork(ctx context.Context, users []string, count int, mode network.Mode) (*MentionsResult, error) {
	tweets, err := h.corpus(ctx, users, count, mode != network.Mentions)
	if err != nil {
		return nil, err
	}

	edges := network.MentionsNetwork(tweets, mode)
	participants, err := network.ResolveParticipants(ctx, h.client, network.Participants(edges))
	if err != nil {
		return nil, err
	}

	h.logger.InfoWithFields("Mentions network derived", map[string]interface{}{
		"mode":         mode.String(),
		"tweets":       len(tweets),
		"edges":        len(edges),
		"participants": len(participants),
	})

	return &MentionsResult{Edges: edges, Participants: participants, Tweets: len(tweets)}, nil
}

// HashtagNetwork fetches the users' timelines and pairs hashtags that
// appear in the same tweet.
func (h *Harvester) HashtagNetwork(ctx context.Context, users []string, count int, includeRetweets bool) ([]network.Edge, error) {
	tweets, err := h.corpus(ctx, users, count, includeRetweets)
	if err != nil {
		return nil, err
	}

	edges := network.HashtagCoOccurrence(network.Texts(tweets), includeRetweets)
	h.logger.InfoWithFields("Hashtag network derived", map[string]interface{}{
		"tweets": len(tweets),
		"edges":  len(edges),
	})
	return edges, nil
}
