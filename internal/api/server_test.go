package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"collision-pipeline/pkg/logger"

	"github.com/gorilla/websocket"
)

func startTestServer(t *testing.T, cfg ServerConfig) (*Server, string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	cfg.Logger = logger.Discard()
	s := NewServer(&mockEngine{frame: testFrame()}, nil, cfg)

	done := make(chan error, 1)
	go func() { done <- s.Serve(ln) }()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.Shutdown(ctx); err != nil {
			t.Errorf("shutdown: %v", err)
		}
		if err := <-done; err != nil {
			t.Errorf("serve: %v", err)
		}
	})

	return s, ln.Addr().String()
}

func TestServerServesHTTP(t *testing.T) {
	_, addr := startTestServer(t, ServerConfig{})

	resp, err := http.Get("http://" + addr + "/api/stats")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestWebSocketStreamsStats(t *testing.T) {
	s, addr := startTestServer(t, ServerConfig{BroadcastInterval: 10 * time.Millisecond})

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var msg struct {
		Event string        `json:"event"`
		Data  statsResponse `json:"data"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Invalid message: %v", err)
	}
	if msg.Event != "frame:stats" || msg.Data.Tick != 7 {
		t.Errorf("Unexpected message %+v", msg)
	}
	if s.Hub().ClientCount() != 1 {
		t.Errorf("Expected 1 client, got %d", s.Hub().ClientCount())
	}
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	_, addr := startTestServer(t, ServerConfig{})

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", header)
	if err == nil {
		t.Fatal("Expected the handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403, got %v", resp)
	}
}

func TestWebSocketPerIPLimit(t *testing.T) {
	_, addr := startTestServer(t, ServerConfig{})

	var conns []*websocket.Conn
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()

	for i := 0; i < MaxWSConnectionsPerIP; i++ {
		c, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
		if err != nil {
			t.Fatalf("dial %d: %v", i, err)
		}
		conns = append(conns, c)
	}

	_, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	if err == nil {
		t.Fatal("Expected the extra connection to be rejected")
	}
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected 429, got %v", resp)
	}
}

func TestServerBasicAuthCoversWebSocket(t *testing.T) {
	_, addr := startTestServer(t, ServerConfig{BasicAuthUser: "admin", BasicAuthPass: "secret"})

	_, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without credentials, got %v", err)
	}

	header := http.Header{"Authorization": []string{"Basic " + basicToken("admin", "secret")}}
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", header)
	if err != nil {
		t.Fatalf("dial with credentials: %v", err)
	}
	conn.Close()
}

func basicToken(user, pass string) string {
	req, _ := http.NewRequest("GET", "/", strings.NewReader(""))
	req.SetBasicAuth(user, pass)
	return strings.TrimPrefix(req.Header.Get("Authorization"), "Basic ")
}

func TestWebSocketRejectedAfterHubStop(t *testing.T) {
	s, addr := startTestServer(t, ServerConfig{})
	s.Hub().Stop()

	_, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	if err == nil {
		t.Fatal("Expected the handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %v", resp)
	}
	if s.Hub().ClientCount() != 0 {
		t.Errorf("Expected no clients, got %d", s.Hub().ClientCount())
	}
}
