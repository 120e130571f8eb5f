// Package network derives edge lists from Twitter data.
//
// FollowNetwork builds the follow subgraph induced by a seed set: one
// follower -> seed edge for every seed that follows another seed. Failing
// seeds are skipped so one suspended account does not end a long harvest.
//
// MentionsNetwork and HashtagCoOccurrence work on an already fetched corpus
// and never touch the network.
package network
