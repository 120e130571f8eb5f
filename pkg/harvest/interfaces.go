package harvest

import (
	"context"

	"emmakit/pkg/network"
	"emmakit/pkg/twitter"
)

// TwitterAPI defines the Twitter operations a harvest uses
type TwitterAPI interface {
	network.FollowerSource
	Timeline(ctx context.Context, id twitter.Identifier, opts twitter.TimelineOptions) ([]twitter.Tweet, error)
}

var _ TwitterAPI = (*twitter.Client)(nil)
