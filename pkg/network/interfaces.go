package network

import (
	"context"

	"emmakit/pkg/twitter"
)

// UserLookup hydrates identifiers into full user records
type UserLookup interface {
	LookupUsers(ctx context.Context, ids []twitter.Identifier) ([]twitter.User, error)
}

// FollowerSource is the part of the Twitter client a follow harvest needs
type FollowerSource interface {
	UserLookup
	Followers(ctx context.Context, id twitter.Identifier, opts twitter.CursorOptions) ([]int64, error)
}

// EdgeSink receives edges as soon as they are found
type EdgeSink interface {
	WriteEdges(edges []Edge) error
}

// Ensure *twitter.Client satisfies FollowerSource
var _ FollowerSource = (*twitter.Client)(nil)
