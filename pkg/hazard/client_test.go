package hazard

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func startDetectionServer(t *testing.T, handle func(conn *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		handle(conn)
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestSendFrameEnvelope(t *testing.T) {
	frames := make(chan map[string]string, 1)
	url := startDetectionServer(t, func(conn *websocket.Conn) {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg map[string]string
		if err := conn.ReadJSON(&msg); err != nil {
			t.Errorf("server read failed: %v", err)
			return
		}
		frames <- msg
	})

	c := NewClient(url)
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	if err := c.SendFrame("ZmFrZS1qcGVn"); err != nil {
		t.Fatalf("SendFrame failed: %v", err)
	}

	select {
	case msg := <-frames:
		if msg["image"] != "ZmFrZS1qcGVn" {
			t.Errorf("unexpected envelope: %v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("frame never arrived")
	}
}

func TestResultsDelivered(t *testing.T) {
	url := startDetectionServer(t, func(conn *websocket.Conn) {
		report, _ := json.Marshal(Result{
			Status: "ok",
			Detections: []Detection{
				{Box: [4]float64{10, 20, 110, 220}, Label: "pole"},
			},
			Hazard: true,
		})
		conn.WriteMessage(websocket.TextMessage, report)
	})

	results := make(chan Result, 1)
	c := NewClient(url)
	c.OnResult = func(r Result) { results <- r }
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	select {
	case r := <-results:
		if !r.Hazard {
			t.Error("hazard flag not set")
		}
		if len(r.Detections) != 1 || r.Detections[0].Label != "pole" {
			t.Errorf("unexpected detections: %+v", r.Detections)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("result never delivered")
	}
}

func TestSendFrameWhenClosed(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1/ws/vision")
	if err := c.SendFrame("x"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}

	url := startDetectionServer(t, func(conn *websocket.Conn) {
		time.Sleep(100 * time.Millisecond)
	})
	c = NewClient(url)
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if err := c.SendFrame("x"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected after close, got %v", err)
	}
}
