package network

import (
	"context"
	"regexp"
	"strings"

	"emmakit/pkg/twitter"
)

// Mode selects which tweets feed a mentions network
type Mode int

const (
	// Mentions uses every handle of tweets that are not retweets
	Mentions Mode = iota
	// Retweets uses the retweeted author of each retweet
	Retweets
	// Both uses every handle of every tweet
	Both
)

func (m Mode) String() string {
	switch m {
	case Mentions:
		return "mentions"
	case Retweets:
		return "retweets"
	case Both:
		return "both"
	default:
		return "unknown"
	}
}

// ParseMode accepts "mentions", "retweets" or "both"
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mentions":
		return Mentions, true
	case "retweets":
		return Retweets, true
	case "both":
		return Both, true
	}
	return Mentions, false
}

var (
	handlePattern  = regexp.MustCompile(`@(\w+)`)
	hashtagPattern = regexp.MustCompile(`#([\p{L}\p{M}\p{N}_]+)`)
)

// Handles returns the lowercased @handles of text in order of appearance
func Handles(text string) []string {
	return tokens(handlePattern, text)
}

// Hashtags returns the lowercased #tags of text in order of appearance
func Hashtags(text string) []string {
	return tokens(hashtagPattern, text)
}

func tokens(re *regexp.Regexp, text string) []string {
	matches := re.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.ToLower(m[1]))
	}
	return out
}

// MentionsNetwork derives author -> handle edges from a tweet corpus
func MentionsNetwork(corpus []twitter.Tweet, mode Mode) []Edge {
	var edges []Edge
	for _, tw := range corpus {
		text := tw.Body()
		rt := tw.IsRetweet()

		var handles []string
		switch mode {
		case Mentions:
			if rt {
				continue
			}
			handles = Handles(text)
		case Retweets:
			if !rt {
				continue
			}
			if all := Handles(text); len(all) > 0 {
				handles = all[:1]
			}
		default:
			handles = Handles(text)
		}

		author := strings.ToLower(tw.User.ScreenName)
		for _, h := range handles {
			edges = append(edges, Edge{Source: author, Target: h})
		}
	}
	return edges
}

// ResolveParticipants looks up handles, e.g. Participants of a mentions network
func ResolveParticipants(ctx context.Context, lookup UserLookup, handles []string) ([]twitter.User, error) {
	if len(handles) == 0 {
		return nil, nil
	}
	ids := make([]twitter.Identifier, len(handles))
	for i, h := range handles {
		ids[i] = twitter.ScreenName(h)
	}
	return lookup.LookupUsers(ctx, ids)
}

// HashtagCoOccurrence emits one edge per unordered pair of distinct tags
// sharing a text. Pairs are not deduplicated across texts.
func HashtagCoOccurrence(texts []string, includeRetweets bool) []Edge {
	var edges []Edge
	for _, text := range texts {
		if !includeRetweets && twitter.IsRetweetText(text) {
			continue
		}

		tags := distinct(Hashtags(text))
		for i := 0; i < len(tags); i++ {
			for j := i + 1; j < len(tags); j++ {
				edges = append(edges, Edge{Source: tags[i], Target: tags[j]})
			}
		}
	}
	return edges
}

// Texts returns the body of every tweet
func Texts(corpus []twitter.Tweet) []string {
	out := make([]string, len(corpus))
	for i, tw := range corpus {
		out[i] = tw.Body()
	}
	return out
}

func distinct(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
