package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/gravmusic/internal/browser"
)

// sseEvent is one parsed server-sent event
type sseEvent struct {
	name string
	data string
}

// readEvents parses events from an SSE body onto a channel until it closes
func readEvents(body *bufio.Scanner) <-chan sseEvent {
	out := make(chan sseEvent, 16)
	go func() {
		defer close(out)
		var ev sseEvent
		for body.Scan() {
			line := body.Text()
			switch {
			case strings.HasPrefix(line, "event:"):
				ev.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				ev.data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			case line == "":
				if ev.name != "" {
					out <- ev
				}
				ev = sseEvent{}
			}
		}
	}()
	return out
}

func nextEvent(t *testing.T, events <-chan sseEvent, name string) sseEvent {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "stream closed before %q event", name)
			if ev.name == name {
				return ev
			}
		case <-timeout:
			t.Fatalf("no %q event received", name)
		}
	}
}

func TestCommandStream(t *testing.T) {
	router, controller, resource := setupPlayerRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	// Selected before anyone listens: the stream replays the load
	_, err := controller.SelectSong(context.Background(), 1, "a1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/player/commands", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	events := readEvents(bufio.NewScanner(resp.Body))
	nextEvent(t, events, "listener")

	var cmd browser.Command
	require.NoError(t, json.Unmarshal([]byte(nextEvent(t, events, "command").data), &cmd))
	assert.Equal(t, browser.OpLoad, cmd.Op)
	assert.Equal(t, "/a1/s2.mp3", cmd.Src)

	require.NoError(t, json.Unmarshal([]byte(nextEvent(t, events, "command").data), &cmd))
	assert.Equal(t, browser.OpVolume, cmd.Op)

	// With a listener attached play is accepted and streamed
	assert.Equal(t, 1, resource.ListenerCount())
	_, err = controller.Play(context.Background())
	require.NoError(t, err)

	require.NoError(t, json.Unmarshal([]byte(nextEvent(t, events, "command").data), &cmd))
	assert.Equal(t, browser.OpPlay, cmd.Op)

	cancel()
	require.Eventually(t, func() bool { return resource.ListenerCount() == 0 }, 3*time.Second, 10*time.Millisecond)
}
