package harvest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"emmakit/pkg/twitter"
)

// mockTwitterServer simulates the provider endpoints a harvest touches,
// including a followers/ids window that only resets when the client sleeps.
type mockTwitterServer struct {
	server *httptest.Server

	mu        sync.Mutex
	users     map[int64]twitter.User
	followers map[int64][]int64
	timelines map[string][]twitter.Tweet
	missing   map[int64]bool

	pageSize       int
	windowLimit    int
	windowUsed     int
	reportWindow   bool
	windowResets   int
	rateLimitHits  int32
	followerCalls  int32
	statusRequests int32
}

func newMockTwitterServer(pageSize, windowLimit int) *mockTwitterServer {
	m := &mockTwitterServer{
		users:        make(map[int64]twitter.User),
		followers:    make(map[int64][]int64),
		timelines:    make(map[string][]twitter.Tweet),
		missing:      make(map[int64]bool),
		pageSize:     pageSize,
		windowLimit:  windowLimit,
		reportWindow: true,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/application/rate_limit_status.json", m.handleStatus)
	mux.HandleFunc("/users/lookup.json", m.handleLookup)
	mux.HandleFunc("/followers/ids.json", m.handleFollowers)
	mux.HandleFunc("/statuses/user_timeline.json", m.handleTimeline)

	m.server = httptest.NewServer(mux)
	return m
}

func (m *mockTwitterServer) Close() { m.server.Close() }

func (m *mockTwitterServer) addUser(id int64, screenName string, followers ...int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = twitter.User{ID: id, ScreenName: screenName}
	m.followers[id] = followers
}

func (m *mockTwitterServer) addTweet(screenName string, id int64, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timelines[screenName] = append(m.timelines[screenName], twitter.Tweet{
		ID:   id,
		Text: text,
		User: twitter.User{ScreenName: screenName},
	})
}

// sleep stands in for the client's waits: time passing opens a new window
func (m *mockTwitterServer) sleep(ctx context.Context, d time.Duration) error {
	m.mu.Lock()
	m.windowUsed = 0
	m.windowResets++
	m.mu.Unlock()
	return ctx.Err()
}

func (m *mockTwitterServer) resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.windowResets
}

func (m *mockTwitterServer) reset() int64 {
	return time.Now().Add(time.Minute).Unix()
}

func (m *mockTwitterServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.statusRequests, 1)
	m.mu.Lock()
	defer m.mu.Unlock()

	resources := map[string]interface{}{}
	if m.reportWindow && strings.Contains(r.URL.Query().Get("resources"), "followers") {
		resources["followers"] = map[string]interface{}{
			"/followers/ids": map[string]interface{}{
				"limit":     m.windowLimit,
				"remaining": m.windowLimit - m.windowUsed,
				"reset":     m.reset(),
			},
		}
	}
	m.writeJSON(w, http.StatusOK, map[string]interface{}{"resources": resources})
}

func (m *mockTwitterServer) handleLookup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		m.writeError(w, http.StatusBadRequest, 0, err.Error())
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []twitter.User
	if ids := r.PostForm.Get("user_id"); ids != "" {
		for _, s := range strings.Split(ids, ",") {
			id, _ := strconv.ParseInt(s, 10, 64)
			if u, ok := m.users[id]; ok {
				out = append(out, u)
			}
		}
	}
	if names := r.PostForm.Get("screen_name"); names != "" {
		for _, name := range strings.Split(names, ",") {
			for _, u := range m.users {
				if strings.EqualFold(u.ScreenName, name) {
					out = append(out, u)
				}
			}
		}
	}
	if len(out) == 0 {
		m.writeError(w, http.StatusNotFound, 17, "No user matches for specified terms.")
		return
	}
	m.writeJSON(w, http.StatusOK, out)
}

func (m *mockTwitterServer) handleFollowers(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.followerCalls, 1)
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.windowUsed >= m.windowLimit {
		atomic.AddInt32(&m.rateLimitHits, 1)
		w.Header().Set("x-rate-limit-reset", strconv.FormatInt(m.reset(), 10))
		m.writeError(w, http.StatusTooManyRequests, 88, "Rate limit exceeded")
		return
	}
	m.windowUsed++

	query := r.URL.Query()
	id, _ := strconv.ParseInt(query.Get("user_id"), 10, 64)
	if m.missing[id] {
		m.writeError(w, http.StatusNotFound, 34, "Sorry, that page does not exist.")
		return
	}

	offset := 0
	if cursor, _ := strconv.Atoi(query.Get("cursor")); cursor > 0 {
		offset = cursor
	}
	all := m.followers[id]
	end := offset + m.pageSize
	next := end
	if end >= len(all) {
		end = len(all)
		next = 0
	}
	m.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ids":         all[offset:end],
		"next_cursor": next,
	})
}

func (m *mockTwitterServer) handleTimeline(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	query := r.URL.Query()
	tweets, ok := m.timelines[query.Get("screen_name")]
	if !ok {
		m.writeError(w, http.StatusUnauthorized, 0, "Not authorized.")
		return
	}

	count, _ := strconv.Atoi(query.Get("count"))
	maxID, _ := strconv.ParseInt(query.Get("max_id"), 10, 64)
	includeRTs := query.Get("include_rts") == "true"

	// count is applied before retweets are dropped, as the provider does
	page := []twitter.Tweet{}
	for _, tw := range tweets {
		if maxID > 0 && tw.ID > maxID {
			continue
		}
		if len(page) == count {
			break
		}
		page = append(page, tw)
	}
	if !includeRTs {
		kept := page[:0]
		for _, tw := range page {
			if !tw.IsRetweet() {
				kept = append(kept, tw)
			}
		}
		page = kept
	}
	m.writeJSON(w, http.StatusOK, page)
}

func (m *mockTwitterServer) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (m *mockTwitterServer) writeError(w http.ResponseWriter, status, code int, message string) {
	m.writeJSON(w, status, map[string]interface{}{
		"errors": []map[string]interface{}{{"code": code, "message": message}},
	})
}
