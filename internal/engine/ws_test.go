package engine

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ws "github.com/slidequiz/engine/pkg/http/ws"
)

func dialSessionWS(t *testing.T, ts *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/sessions/" + sessionID
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readWSMessage(t *testing.T, conn *websocket.Conn) ws.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg ws.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// awaitSubscription round-trips a ping. The read loop only starts once the
// handler has registered its listeners, so a pong proves the tick stream is
// attached.
func awaitSubscription(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(ws.Message{Type: ws.TypePing}))
	msg := readWSMessage(t, conn)
	require.Equal(t, ws.TypePong, msg.Type)
}

func TestWebSocketStreamsTickSnapshots(t *testing.T) {
	ts, manager, sched := newTestServer(t)
	eng := manager.Create(context.Background())
	id := eng.Session().ID()

	conn := dialSessionWS(t, ts, id)
	awaitSubscription(t, conn)

	resp := postJSON(t, ts.URL+"/v1/sessions/"+id+"/questions/q1/enter", nil)
	require.Equal(t, 200, resp.StatusCode)
	resp.Body.Close()

	sched.advance(1) // grace, nothing streamed
	sched.advance(1)

	msg := readWSMessage(t, conn)
	require.Equal(t, ws.TypeQuestionTick, msg.Type)
	var tick ws.QuestionTickPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &tick))
	assert.Equal(t, "q1", tick.QuestionID)
	assert.Equal(t, 14, tick.RemainingSeconds)
	assert.Equal(t, 94, tick.DisplayedPoints)
	assert.Equal(t, "countdown", tick.Phase)

	sched.advance(1)
	msg = readWSMessage(t, conn)
	require.Equal(t, ws.TypeQuestionTick, msg.Type)
	require.NoError(t, json.Unmarshal(msg.Payload, &tick))
	assert.Equal(t, 13, tick.RemainingSeconds)
	assert.Equal(t, 88, tick.DisplayedPoints)
}

func TestWebSocketStreamsTimeoutAndScoreUpdate(t *testing.T) {
	ts, manager, sched := newTestServer(t)
	eng := manager.Create(context.Background())
	id := eng.Session().ID()

	conn := dialSessionWS(t, ts, id)
	awaitSubscription(t, conn)

	_, err := eng.EnterQuestion(context.Background(), "q2")
	require.NoError(t, err)

	sched.advance(1)  // grace
	sched.advance(10) // through the full limit

	// every countdown second before expiry is streamed
	ticks := 0
	msg := readWSMessage(t, conn)
	for msg.Type == ws.TypeQuestionTick {
		ticks++
		msg = readWSMessage(t, conn)
	}
	assert.Equal(t, 9, ticks)

	require.Equal(t, ws.TypeQuestionTimeout, msg.Type)
	var timeout ws.QuestionTimeoutPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &timeout))
	assert.Equal(t, "q2", timeout.QuestionID)

	msg = readWSMessage(t, conn)
	require.Equal(t, ws.TypeScoreUpdate, msg.Type)
	var totals ws.ScoreUpdatePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &totals))
	assert.Zero(t, totals.Score)
	assert.Equal(t, 50, totals.TotalPossible)
}

func TestWebSocketReplacementConnectionKeepsStream(t *testing.T) {
	ts, manager, sched := newTestServer(t)
	eng := manager.Create(context.Background())
	id := eng.Session().ID()

	first := dialSessionWS(t, ts, id)
	awaitSubscription(t, first)

	// a second dial for the same session replaces the first connection
	second := dialSessionWS(t, ts, id)
	awaitSubscription(t, second)

	// the server closes the replaced peer; its teardown must not detach the
	// replacement's stream
	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	var discard ws.Message
	require.Error(t, first.ReadJSON(&discard))

	resp := postJSON(t, ts.URL+"/v1/sessions/"+id+"/questions/q2/enter", nil)
	require.Equal(t, 200, resp.StatusCode)
	resp.Body.Close()

	sched.advance(1)
	sched.advance(1)

	msg := readWSMessage(t, second)
	require.Equal(t, ws.TypeQuestionTick, msg.Type)
	var tick ws.QuestionTickPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &tick))
	assert.Equal(t, "q2", tick.QuestionID)
	assert.Equal(t, 9, tick.RemainingSeconds)
	assert.Equal(t, 45, tick.DisplayedPoints)
}
