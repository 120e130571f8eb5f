// Package twitter is a small, rate-limit-aware client for the Twitter REST
// v1.1 API, covering what network harvests need: follower and friend id
// listings, user hydration, timelines, search and friendship checks.
//
// Every quota-governed call goes through the same loop. The client's
// quota.Tracker is consulted first and blocks until the resource's window
// resets when it is exhausted. The request is then executed with bounded
// retries for transient failures. A provider rate limit (code 88 or HTTP
// 429) marks the resource exhausted and the call is repeated after the wait.
//
//	client, err := twitter.NewClient(cfg)
//	ids, err := client.Followers(ctx, twitter.ScreenName("nasa"), twitter.CursorOptions{})
//	tweets, err := client.Timeline(ctx, twitter.UserID(11348282), twitter.TimelineOptions{
//		Count: 450,
//		Since: time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC),
//	})
package twitter
