package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNtfySinkSend(t *testing.T) {
	var got *http.Request
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(r.Context())
		b, _ := io.ReadAll(r.Body)
		body = string(b)
	}))
	defer srv.Close()

	sink := NewNtfySink(zerolog.Nop(), srv.URL, "slideforge", "secret")
	err := sink.Send(context.Background(), Message{
		Title:    "Run complete",
		Body:     "600s video exported",
		Priority: "high",
		Tags:     []string{"white_check_mark", "movie_camera"},
	})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "/slideforge", got.URL.Path)
	assert.Equal(t, "Run complete", got.Header.Get("Title"))
	assert.Equal(t, "high", got.Header.Get("Priority"))
	assert.Equal(t, "white_check_mark,movie_camera", got.Header.Get("Tags"))
	assert.Equal(t, "Bearer secret", got.Header.Get("Authorization"))
	assert.Equal(t, "600s video exported", body)
}

func TestNtfySinkRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	sink := NewNtfySink(zerolog.Nop(), srv.URL, "topic", "")
	err := sink.Send(context.Background(), Message{Title: "x"})
	require.Error(t, err)
}

func TestNopSink(t *testing.T) {
	require.NoError(t, Nop{}.Send(context.Background(), Message{Title: "ignored"}))
}
