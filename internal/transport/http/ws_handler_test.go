package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/Raj5489/Share-Me/internal/config"
	"github.com/Raj5489/Share-Me/internal/core"
	"github.com/Raj5489/Share-Me/internal/proto"
)

func startTestServer(t *testing.T) (*httptest.Server, context.CancelFunc) {
	t.Helper()

	logger := zerolog.Nop()
	hub := core.NewHub(nil, &logger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := NewServer(hub, nil, config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
	}, &logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts, cancel
}

func dialWS(t *testing.T, ctx context.Context, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func sendWS(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s: %v", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readWS(t *testing.T, ctx context.Context, conn *websocket.Conn) proto.Outbound {
	t.Helper()

	var out proto.Outbound
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read outbound: %v", err)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	ts, cancel := startTestServer(t)
	defer cancel()

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}

	var body HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode health body: %v", err)
	}
	if body.Status != "ok" || body.Goroutines <= 0 || body.AllocBytes == 0 {
		t.Fatalf("implausible health report: %+v", body)
	}
}

func TestTransfersEndpointWithoutStore(t *testing.T) {
	ts, cancel := startTestServer(t)
	defer cancel()

	resp, err := ts.Client().Get(ts.URL + "/api/transfers")
	if err != nil {
		t.Fatalf("transfers request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	var rows []TransferResponse
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		t.Fatalf("decode transfers body: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("history disabled, expected empty list: %v", rows)
	}
}

func TestTransfersEndpointRejectsBadLimit(t *testing.T) {
	ts, cancel := startTestServer(t)
	defer cancel()

	for _, limit := range []string{"0", "-1", "501", "abc"} {
		resp, err := ts.Client().Get(ts.URL + "/api/transfers?limit=" + limit)
		if err != nil {
			t.Fatalf("transfers request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != 400 {
			t.Fatalf("limit=%s: status %d, want 400", limit, resp.StatusCode)
		}
	}
}

func TestWebSocketJoinAndBroadcast(t *testing.T) {
	ts, cancel := startTestServer(t)
	defer cancel()

	ctx, closeCtx := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCtx()

	connA := dialWS(t, ctx, ts)
	connB := dialWS(t, ctx, ts)

	sendWS(t, ctx, connA, proto.InboundTypeJoinRoom, proto.JoinData{Room: "ABC123"})

	out := readWS(t, ctx, connA)
	if out.Type != proto.OutboundTypeUsersInRoom {
		t.Fatalf("first join reply is %s, want users-in-room", out.Type)
	}
	var snapshot proto.UsersInRoomData
	if err := json.Unmarshal(out.Data, &snapshot); err != nil {
		t.Fatalf("unmarshal users-in-room: %v", err)
	}
	if snapshot.Room != "ABC123" || len(snapshot.Users) != 0 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
	// room-status follows for the joiner.
	if out = readWS(t, ctx, connA); out.Type != proto.OutboundTypeRoomStatus {
		t.Fatalf("expected room-status, got %s", out.Type)
	}

	sendWS(t, ctx, connB, proto.InboundTypeJoinRoom, proto.JoinData{Room: "abc123"})

	// A sees B arrive despite B's lowercase code.
	if out = readWS(t, ctx, connA); out.Type != proto.OutboundTypeUserJoined {
		t.Fatalf("expected user-joined on A, got %s", out.Type)
	}
	if out = readWS(t, ctx, connA); out.Type != proto.OutboundTypeRoomStatus {
		t.Fatalf("expected room-status on A, got %s", out.Type)
	}

	// Drain B's own join replies.
	readWS(t, ctx, connB) // users-in-room
	readWS(t, ctx, connB) // room-status

	// A announces a file; B receives it verbatim, tagged with A's id.
	info := proto.FileInfoData{Room: "ABC123", FileID: "f-1", FileName: "a.bin", FileSize: 3}
	sendWS(t, ctx, connA, proto.InboundTypeFileInfo, info)

	out = readWS(t, ctx, connB)
	if out.Type != proto.InboundTypeFileInfo || out.From == "" {
		t.Fatalf("expected forwarded file-info with sender id, got %+v", out)
	}
	var got proto.FileInfoData
	if err := json.Unmarshal(out.Data, &got); err != nil {
		t.Fatalf("unmarshal forwarded file-info: %v", err)
	}
	if got != info {
		t.Fatalf("forwarded payload altered: %+v", got)
	}
}

func TestWebSocketRejectsMalformedRoomCode(t *testing.T) {
	ts, cancel := startTestServer(t)
	defer cancel()

	ctx, closeCtx := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCtx()

	conn := dialWS(t, ctx, ts)
	sendWS(t, ctx, conn, proto.InboundTypeJoinRoom, proto.JoinData{Room: "!!!!"})

	out := readWS(t, ctx, conn)
	if out.Type != proto.OutboundTypeError || out.Error == nil {
		t.Fatalf("expected error reply, got %+v", out)
	}
	if out.Error.Code != core.ErrCodeInvalidRoomCode {
		t.Fatalf("error code = %q, want %q", out.Error.Code, core.ErrCodeInvalidRoomCode)
	}

	// The connection stays usable after the rejection.
	sendWS(t, ctx, conn, proto.InboundTypePing, proto.PingData{Timestamp: 42})
	out = readWS(t, ctx, conn)
	if out.Type != proto.OutboundTypePong {
		t.Fatalf("expected pong after rejected join, got %s", out.Type)
	}
}

func TestWebSocketPingPong(t *testing.T) {
	ts, cancel := startTestServer(t)
	defer cancel()

	ctx, closeCtx := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCtx()

	conn := dialWS(t, ctx, ts)
	sendWS(t, ctx, conn, proto.InboundTypePing, proto.PingData{Timestamp: 1234, Transferring: true})

	out := readWS(t, ctx, conn)
	if out.Type != proto.OutboundTypePong {
		t.Fatalf("expected pong, got %s", out.Type)
	}
	var pong proto.PongData
	if err := json.Unmarshal(out.Data, &pong); err != nil {
		t.Fatalf("unmarshal pong: %v", err)
	}
	if pong.Timestamp != 1234 || pong.ServerTime == 0 {
		t.Fatalf("unexpected pong: %+v", pong)
	}
}

func TestWebSocketUnknownTypeRejected(t *testing.T) {
	ts, cancel := startTestServer(t)
	defer cancel()

	ctx, closeCtx := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCtx()

	conn := dialWS(t, ctx, ts)
	sendWS(t, ctx, conn, "shout", map[string]string{"text": "hello"})

	out := readWS(t, ctx, conn)
	if out.Type != proto.OutboundTypeError || out.Error == nil || out.Error.Code != "bad_request" {
		t.Fatalf("expected bad_request error, got %+v", out)
	}
}
