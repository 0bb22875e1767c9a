package output

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func startTestHandle(t *testing.T) (*MPV, net.Conn) {
	t.Helper()
	socketPath := filepath.Join(os.TempDir(), "clickwheel-output-test.sock")
	_ = os.Remove(socketPath)
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, _ := ln.Accept()
		accepted <- conn
	}()

	h := NewMPV(Options{
		MPVPath:        "mpv",
		IPCPath:        socketPath,
		DisableProcess: true,
	})
	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("start handle: %v", err)
	}
	conn := <-accepted
	t.Cleanup(func() { conn.Close() })
	return h, conn
}

func TestLoadAndEvents(t *testing.T) {
	h, conn := startTestHandle(t)

	if err := h.Load("http://srv/rest/stream?id=1", 30); err != nil {
		t.Fatalf("load: %v", err)
	}

	go func() {
		for _, evt := range []map[string]any{
			{"event": "file-loaded"},
			{"event": "property-change", "name": "time-pos", "data": 12.5},
			{"event": "end-file", "reason": "eof"},
		} {
			b, _ := json.Marshal(evt)
			conn.Write(append(b, '\n'))
		}
	}()

	timeout := time.After(2 * time.Second)
	var gotLoaded, gotPos, gotEnd bool
loop:
	for {
		select {
		case evt := <-h.Events():
			if evt.Err != nil {
				t.Fatalf("event err: %v", evt.Err)
			}
			if evt.Loaded {
				gotLoaded = true
			}
			if evt.TimePos != nil && *evt.TimePos == 12.5 {
				gotPos = true
			}
			if evt.Ended {
				gotEnd = true
				break loop
			}
		case <-timeout:
			t.Fatalf("timeout waiting for events")
		}
	}
	if !gotLoaded || !gotPos || !gotEnd {
		t.Fatalf("expected loaded, time-pos and eof events, got loaded=%v pos=%v end=%v", gotLoaded, gotPos, gotEnd)
	}
}

func TestSwapStopIsNotEnded(t *testing.T) {
	h, conn := startTestHandle(t)

	go func() {
		b, _ := json.Marshal(map[string]any{"event": "end-file", "reason": "stop"})
		conn.Write(append(b, '\n'))
	}()

	select {
	case evt := <-h.Events():
		if evt.Ended {
			t.Fatal("stop reason reported as natural end")
		}
		if evt.EndReason != "stop" {
			t.Fatalf("end reason = %q", evt.EndReason)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for end-file event")
	}
}

func TestLoadSendsStartPosition(t *testing.T) {
	h, conn := startTestHandle(t)

	if err := h.Load("http://srv/rest/stream?id=1", 92.5); err != nil {
		t.Fatalf("load: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, "loadfile") {
			if !strings.Contains(line, "start=92.500") {
				t.Fatalf("loadfile missing start option: %s", line)
			}
			return
		}
	}
	t.Fatal("loadfile command never arrived")
}

func TestVolumeClampAndReadback(t *testing.T) {
	h, _ := startTestHandle(t)

	if err := h.SetVolume(1.5); err != nil {
		t.Fatalf("set volume: %v", err)
	}
	if v := h.Volume(); v != 1 {
		t.Fatalf("volume = %v, want clamp to 1", v)
	}
	if err := h.SetVolume(-0.2); err != nil {
		t.Fatalf("set volume: %v", err)
	}
	if v := h.Volume(); v != 0 {
		t.Fatalf("volume = %v, want clamp to 0", v)
	}
}
