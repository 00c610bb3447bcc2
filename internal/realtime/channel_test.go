package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"pulseboard/dashboard/internal/cache"
	"pulseboard/dashboard/internal/state"
)

func instantSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func recvWrite(t *testing.T, sock *FakeSocket) string {
	t.Helper()
	select {
	case text := <-sock.Writes():
		return text
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a socket write")
		return ""
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestChannel_SessionWritesResumeThenSubscribes(t *testing.T) {
	sock := NewFakeSocket()
	dialer := &FakeDialer{Sockets: []Socket{sock}}
	c := NewChannel("ws://test", dialer, cache.NewMemoryStore(), state.NewStore(), withSleepFunc(instantSleep))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Subscribe(ctx, "entries"); err != nil {
		t.Fatal(err)
	}
	if err := c.Subscribe(ctx, "activity"); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	resume := recvWrite(t, sock)
	if gjson.Get(resume, "op").String() != "resume" {
		t.Fatalf("first frame must be the resume op, got %s", resume)
	}
	if gjson.Get(resume, "payload.lastMessageId").Int() != 0 {
		t.Fatalf("fresh channel must resume from 0: %s", resume)
	}
	subs := gjson.Get(resume, "payload.subscriptions").Array()
	if len(subs) != 2 || subs[0].String() != "activity" || subs[1].String() != "entries" {
		t.Fatalf("resume must carry sorted subscriptions: %s", resume)
	}

	// Each channel is re-subscribed exactly once, in sorted order.
	for _, want := range []string{"activity", "entries"} {
		frame := recvWrite(t, sock)
		if gjson.Get(frame, "op").String() != "subscribe" || gjson.Get(frame, "payload.channel").String() != want {
			t.Fatalf("expected subscribe %q, got %s", want, frame)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop on cancel")
	}
}

func TestChannel_ReconnectReplaysUpdatedResume(t *testing.T) {
	s1 := NewFakeSocket()
	s2 := NewFakeSocket()
	dialer := &FakeDialer{Sockets: []Socket{s1, s2}}
	c := NewChannel("ws://test", dialer, cache.NewMemoryStore(), state.NewStore(),
		withSleepFunc(func(ctx context.Context, d time.Duration) error { return ctx.Err() }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Subscribe(ctx, "activity"); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	recvWrite(t, s1) // resume
	recvWrite(t, s1) // subscribe activity

	s1.EmitText(`{"id":"7","type":"activityUpdate","data":{"id":"e1","timestamp":100,"type":"file_change"}}`)
	waitFor(t, func() bool { return c.LastMessageID() == 7 })

	// Peer drop: the next session must replay the advanced cursor.
	s1.CloseRead()

	resume := recvWrite(t, s2)
	if gjson.Get(resume, "op").String() != "resume" {
		t.Fatalf("reconnect must start with resume, got %s", resume)
	}
	if gjson.Get(resume, "payload.lastMessageId").Int() != 7 {
		t.Fatalf("resume must carry the advanced cursor: %s", resume)
	}
	frame := recvWrite(t, s2)
	if gjson.Get(frame, "payload.channel").String() != "activity" {
		t.Fatalf("reconnect must re-subscribe the channel once: %s", frame)
	}

	cancel()
	<-done
}

func TestChannel_HandleMergesByFrameType(t *testing.T) {
	memory := state.NewStore()
	store := cache.NewMemoryStore()
	updates := 0
	c := NewChannel("ws://test", &FakeDialer{}, store, memory,
		WithUpdateFunc(func() { updates++ }))

	c.handle(`{"id":"3","type":"activityUpdate","data":[{"id":"e1","timestamp":100,"type":"file_change"}]}`)
	c.handle(`{"id":"4","type":"terminal-command","data":{"id":"c1","command":"ls","timestamp":200}}`)
	c.handle(`{"id":"5","type":"workspaceChanged","data":{"path":"/home/dev/proj"}}`)
	c.handle(`{"id":"2","type":"noSuchType","data":{}}`)

	snap := memory.Snapshot()
	if len(snap.Events) != 1 || snap.Events[0].ID != "e1" {
		t.Fatalf("activity frame not merged: %v", snap.Events)
	}
	if len(snap.Commands) != 1 || snap.Commands[0].Command != "ls" {
		t.Fatalf("terminal frame not merged: %v", snap.Commands)
	}
	if snap.Workspace != "/home/dev/proj" {
		t.Fatalf("workspace frame not merged: %q", snap.Workspace)
	}
	if updates != 3 {
		t.Fatalf("expected 3 update callbacks, got %d", updates)
	}

	// Events also land in the persistent cache.
	events, _, err := store.GetAll()
	if err != nil || len(events) != 1 {
		t.Fatalf("event must be cached: %v %v", events, err)
	}
	// Lower message ids never move the cursor backwards.
	if c.LastMessageID() != 5 {
		t.Fatalf("cursor must be the max seen id, got %d", c.LastMessageID())
	}
}

func TestChannel_GivesUpAfterMaxDialFailures(t *testing.T) {
	dialer := &FakeDialer{} // no sockets prepared, every dial fails
	c := NewChannel("ws://test", dialer, cache.NewMemoryStore(), state.NewStore(),
		withSleepFunc(func(ctx context.Context, d time.Duration) error { return nil }))

	err := c.Run(context.Background())
	if err == nil {
		t.Fatal("expected an error after repeated dial failures")
	}
	if dialer.Dials != 5 {
		t.Fatalf("expected 5 dial attempts, got %d", dialer.Dials)
	}
}

func TestChannel_ResumeStateLoadedFromCache(t *testing.T) {
	store := cache.NewMemoryStore()
	if err := store.SaveResume(cache.ResumeState{LastMessageID: 12, Subscriptions: []string{"terminal"}}); err != nil {
		t.Fatal(err)
	}
	c := NewChannel("ws://test", &FakeDialer{}, store, state.NewStore())
	if c.LastMessageID() != 12 {
		t.Fatalf("cursor must restore from cache, got %d", c.LastMessageID())
	}
	subs := c.Subscriptions()
	if len(subs) != 1 || subs[0] != "terminal" {
		t.Fatalf("subscriptions must restore from cache: %v", subs)
	}
}

func TestChannel_UnsubscribeRemovesChannel(t *testing.T) {
	c := NewChannel("ws://test", &FakeDialer{}, cache.NewMemoryStore(), state.NewStore())
	ctx := context.Background()
	if err := c.Subscribe(ctx, "todos"); err != nil {
		t.Fatal(err)
	}
	if err := c.Unsubscribe(ctx, "todos"); err != nil {
		t.Fatal(err)
	}
	if subs := c.Subscriptions(); len(subs) != 0 {
		t.Fatalf("unsubscribe must clear the set: %v", subs)
	}
	if err := c.Unsubscribe(ctx, "todos"); err != nil {
		t.Fatalf("unsubscribing an absent channel must be a no-op: %v", err)
	}
}
