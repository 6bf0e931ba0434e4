package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/annotate/internal/config"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(config.DefaultEngine(), discard)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, "tester", "canvas-1", nil)
		hub.Register(client)
		go client.WritePump(r.Context())
		client.ReadPump(r.Context())
	}))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func read(t *testing.T, ctx context.Context, conn *websocket.Conn) Message {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var m Message
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestHubSessionOverWebsocket(t *testing.T) {
	hub, url := startHub(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	welcome := read(t, ctx, conn)
	require.Equal(t, TypeWelcome, welcome.Type)
	assert.Equal(t, TypeDocSync, read(t, ctx, conn).Type)
	assert.Equal(t, TypeRender, read(t, ctx, conn).Type)
	assert.True(t, hub.Busy("canvas-1"))

	add, err := json.Marshal(Message{Type: TypeFeatureAdd, Seq: 1, Payload: json.RawMessage(boxRecord)})
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, add))

	for {
		m := read(t, ctx, conn)
		if m.Type != TypeAck {
			continue
		}
		var p AckPayload
		require.NoError(t, json.Unmarshal(m.Payload, &p))
		assert.Equal(t, int64(1), p.Seq)
		assert.Equal(t, []string{"box_01"}, p.IDs)
		break
	}

	session, ok := hub.Session("canvas-1")
	require.True(t, ok)
	assert.Equal(t, 1, session.Len())
}

func TestHubRejectsSecondWriter(t *testing.T) {
	hub, url := startHub(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer first.Close(websocket.StatusNormalClosure, "")
	require.Equal(t, TypeWelcome, read(t, ctx, first).Type)

	second, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer second.Close(websocket.StatusNormalClosure, "")

	m := read(t, ctx, second)
	require.Equal(t, TypeError, m.Type)
	assert.Contains(t, string(m.Payload), ErrCanvasBusy.Error())

	_, _, err = second.Read(ctx)
	assert.Error(t, err)
	assert.True(t, hub.Busy("canvas-1"))
}
