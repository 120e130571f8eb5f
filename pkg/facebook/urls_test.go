package facebook

import (
	"context"
	"net/http"
	"testing"

	errs "emmakit/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjectURL(t *testing.T) {
	tests := []struct {
		url  string
		want objectRef
	}{
		{"https://www.facebook.com/nasa/posts/10153", objectRef{owner: "nasa", object: "10153"}},
		{"https://www.facebook.com/54971236771/posts/10153", objectRef{owner: "54971236771", object: "10153"}},
		{"https://www.facebook.com/nasa/videos/987/", objectRef{owner: "nasa", object: "987"}},
		{"https://www.facebook.com/photo.php?fbid=111&set=a.1", objectRef{object: "111"}},
		{"https://www.facebook.com/permalink.php?story_fbid=333&id=444", objectRef{owner: "444", object: "333"}},
		{"https://www.facebook.com/events/555/", objectRef{object: "555"}},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := parseObjectURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseObjectURLUnsupported(t *testing.T) {
	for _, u := range []string{
		"https://www.facebook.com/nasa",
		"https://www.facebook.com/groups/123",
		"https://www.facebook.com/nasa/posts/",
		"https://www.facebook.com/video.php?v=222",
		"://bad",
	} {
		_, err := parseObjectURL(u)
		assert.True(t, errs.IsType(err, errs.ErrorTypeMalformedInput), u)
	}
}

func TestIDsFromURL(t *testing.T) {
	lookups := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/web/nasa", func(w http.ResponseWriter, r *http.Request) {
		lookups++
		w.Write([]byte(`<html><a href="/ajax?fbpage_id=54971236771&x=1">NASA</a></html>`))
	})
	mux.HandleFunc("/web/ghost", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>nothing</html>`))
	})
	client, _ := newTestClient(t, mux, "")
	ctx := context.Background()

	id, err := client.UserIDFromURL(ctx, "https://www.facebook.com/nasa/posts/10153")
	require.NoError(t, err)
	assert.Equal(t, "54971236771", id)

	post, err := client.PostIDFromURL(ctx, "https://www.facebook.com/nasa/posts/10153")
	require.NoError(t, err)
	assert.Equal(t, "54971236771_10153", post)

	post, err = client.PostIDFromURL(ctx, "https://www.facebook.com/123/videos/987")
	require.NoError(t, err)
	assert.Equal(t, "123_987", post)
	assert.Equal(t, 2, lookups)

	post, err = client.PostIDFromURL(ctx, "https://www.facebook.com/events/555/")
	require.NoError(t, err)
	assert.Equal(t, "555", post)

	_, err = client.UserIDFromURL(ctx, "https://www.facebook.com/ghost/posts/1")
	assert.True(t, errs.IsType(err, errs.ErrorTypeNotFound))
}
