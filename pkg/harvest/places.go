package harvest

import (
	"fmt"
	"strings"

	"emmakit/pkg/gazetteer"
	"emmakit/pkg/twitter"
)

// Gazetteer loads the configured GeoNames file on first use
func (h *Harvester) Gazetteer() (*gazetteer.Gazetteer, error) {
	h.gazOnce.Do(func() {
		path := h.cfg.Gazetteer.File
		if path == "" {
			h.gazErr = fmt.Errorf("no gazetteer file configured")
			return
		}
		h.gaz, h.gazErr = gazetteer.LoadFile(path)
		if h.gazErr != nil {
			return
		}
		h.logger.InfoWithFields("Gazetteer loaded", map[string]interface{}{
			"path":      path,
			"places":    h.gaz.Len(),
			"malformed": h.gaz.Malformed(),
		})
	})
	return h.gaz, h.gazErr
}

// ResolvePlace resolves a place name; an unknown name reports false
func (h *Harvester) ResolvePlace(name string) (gazetteer.Place, bool, error) {
	g, err := h.Gazetteer()
	if err != nil {
		return gazetteer.Place{}, false, err
	}
	place, ok := g.Resolve(strings.TrimSpace(name))
	return place, ok, nil
}

// LocateUser resolves the free-text location of a profile. The whole text
// is tried first, then each comma-separated part in order.
func (h *Harvester) LocateUser(user twitter.User) (gazetteer.Place, bool, error) {
	g, err := h.Gazetteer()
	if err != nil {
		return gazetteer.Place{}, false, err
	}

	location := strings.TrimSpace(user.Location)
	if location == "" {
		return gazetteer.Place{}, false, nil
	}
	if place, ok := g.Resolve(location); ok {
		return place, true, nil
	}
	for _, part := range strings.Split(location, ",") {
		if place, ok := g.Resolve(strings.TrimSpace(part)); ok {
			return place, true, nil
		}
	}
	return gazetteer.Place{}, false, nil
}
