// Package facebook is a thin Graph API accessor.
//
// NewClient trades the app id and secret for an application access token.
// Requests are signed either with that token (ScopeUser) or with the
// configured page token (ScopePage); a page-scoped call without a page token
// fails with an authorization error before anything is sent.
//
// UserIDFromURL and PostIDFromURL turn public post, video, photo, permalink
// and event links into Graph ids.
package facebook
