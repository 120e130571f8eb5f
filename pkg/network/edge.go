package network

// Edge is a directed relation, e.g. follower -> followee or author -> mentioned handle
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Participants returns every distinct endpoint of edges in first-seen order
func Participants(edges []Edge) []string {
	seen := make(map[string]struct{}, len(edges))
	var out []string
	add := func(s string) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, e := range edges {
		add(e.Source)
		add(e.Target)
	}
	return out
}
