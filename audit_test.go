package ftp2http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/apnarm/ftp2http/relay"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

func buildAuditGateway(t *testing.T, relayURL string, sink AuditSink, enabled bool) *Gateway {
	t.Helper()
	cfg := testConfig(t, relayURL)
	cfg.Audit.Enabled = enabled
	cfg.Audit.BufferSize = 64
	g, err := New().WithConfig(cfg).WithAuditSink(sink).WithLogger(discardLogger()).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return g
}

func collect(ch <-chan AuditEvent, n int, t *testing.T) []AuditEvent {
	t.Helper()
	var out []AuditEvent
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case ev := <-ch:
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("expected %d events, got %d", n, len(out))
		}
	}
	return out
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	be := newBackend(t)
	sink := &countingSink{}
	g := buildAuditGateway(t, be.URL, sink, false)

	_, _ = g.Authenticate(context.Background(), "alice", "wrong")
	g.Close()

	if sink.count.Load() != 0 {
		t.Fatalf("expected no audit events, got %d", sink.count.Load())
	}
}

func TestAuditLoginEventsCarryContext(t *testing.T) {
	be := newBackend(t)
	sink := NewChannelSink(8)
	g := buildAuditGateway(t, be.URL, sink, true)
	defer g.Close()

	ctx := WithSessionID(WithClientIP(context.Background(), "198.51.100.33"), "c-1")
	_, _ = g.Authenticate(ctx, "alice", "super-secret-password")
	_, _ = g.Authenticate(ctx, "alice", "alice-pw")

	events := collect(sink.Events(), 2, t)
	fail, ok := events[0], events[1]
	if fail.EventType != auditEventLoginFailure || fail.Success || fail.Error != string(auditErrInvalidCredentials) {
		t.Fatalf("unexpected failure event %+v", fail)
	}
	if ok.EventType != auditEventLoginSuccess || !ok.Success || ok.Metadata["source"] != "local" {
		t.Fatalf("unexpected success event %+v", ok)
	}
	for _, ev := range events {
		if ev.IP != "198.51.100.33" || ev.SessionID != "c-1" || ev.Username != "alice" {
			t.Fatalf("missing context fields %+v", ev)
		}
		for _, v := range ev.Metadata {
			if v == "super-secret-password" {
				t.Fatal("password leaked into audit metadata")
			}
		}
	}
}

func TestAuditUploadOutcomes(t *testing.T) {
	be := newBackend(t)
	be.status.Store(http.StatusInternalServerError)
	sink := NewChannelSink(8)
	g := buildAuditGateway(t, be.URL, sink, true)
	defer g.Close()
	ctx := context.Background()

	sess, err := g.Authenticate(ctx, "alice", "alice-pw")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	_ = collect(sink.Events(), 1, t)

	tr, _ := g.OpenUpload(ctx, sess, "/alice/a.txt", "wb")
	_, _ = tr.Write([]byte("abc"))
	tr.Finish(ctx)

	aborted, _ := g.OpenUpload(ctx, sess, "/alice/b.txt", "wb")
	_, _ = aborted.Write([]byte("partial"))
	aborted.Abort(nil)

	events := collect(sink.Events(), 2, t)
	if events[0].EventType != auditEventUploadFailed || events[0].Error != string(auditErrBackendRejected) || events[0].UploadID == "" {
		t.Fatalf("unexpected failure event %+v", events[0])
	}
	if events[0].Metadata["file"] != "a.txt" || events[0].Metadata["bytes"] != "3" {
		t.Fatalf("unexpected metadata %+v", events[0].Metadata)
	}
	if events[1].EventType != auditEventUploadDiscarded {
		t.Fatalf("unexpected discard event %+v", events[1])
	}
}

func TestAuditErrorCodes(t *testing.T) {
	cases := map[AuditErrorCode]error{
		"":                         nil,
		auditErrInvalidCredentials: ErrAuthenticationFailed,
		auditErrRateLimited:        ErrLoginRateLimited,
		auditErrBackendRejected:    &relay.UnexpectedHTTPResponse{Detail: "500: x", StatusCode: 500},
		auditErrBackendUnreachable: &relay.UnexpectedHTTPResponse{Detail: "*url.Error: dial"},
		auditErrInternal:           context.Canceled,
	}
	for want, err := range cases {
		if got := auditErrorCode(err); got != want {
			t.Fatalf("%v: expected %q, got %q", err, want, got)
		}
	}
}

func TestAuditBufferFullDropIfFullDoesNotBlock(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
	}, sink)
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	start := time.Now()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}
	if dispatcher.Dropped() == 0 {
		t.Fatal("expected at least one dropped event")
	}
}

func TestAuditCloseDrainsQueue(t *testing.T) {
	sink := &countingSink{}
	dispatcher := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 16}, sink)
	for i := 0; i < 10; i++ {
		dispatcher.Emit(context.Background(), AuditEvent{EventType: "e"})
	}
	dispatcher.Close()

	if sink.count.Load() != 10 || dispatcher.Delivered() != 10 {
		t.Fatalf("expected 10 delivered, got sink=%d delivered=%d", sink.count.Load(), dispatcher.Delivered())
	}
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "late"})
	if sink.count.Load() != 10 {
		t.Fatal("emit after close must be ignored")
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), AuditEvent{EventType: "upload_relayed", Username: "alice", Success: true})
	sink.Emit(context.Background(), AuditEvent{EventType: "login_failure"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	var ev AuditEvent
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil || ev.Username != "alice" {
		t.Fatalf("bad first line %q: %v", lines[0], err)
	}
}
