package chat_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	modelchat "github.com/lilhelper-coder/Asset-Architect-sub000/internal/model/chat"
	chat "github.com/lilhelper-coder/Asset-Architect-sub000/internal/service/chat"
)

func TestRegistryGetSession(t *testing.T) {
	reg := chat.NewRegistry(0)
	ctx := context.Background()

	session := reg.Open("127.0.0.1:5000", nil)

	got, err := reg.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if got != session {
		t.Fatalf("unexpected session: got %s want %s", got.ID, session.ID)
	}
	if got.Profile != modelchat.DefaultProfile() {
		t.Fatalf("expected default profile, got %+v", got.Profile)
	}
	if got.Window.Limit() != chat.DefaultWindowLimit {
		t.Fatalf("unexpected window limit: %d", got.Window.Limit())
	}
}

func TestRegistryGetSessionNotFound(t *testing.T) {
	reg := chat.NewRegistry(0)

	if _, err := reg.Get(context.Background(), "missing"); err != chat.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRegistryOpenAssignsDistinctIDs(t *testing.T) {
	reg := chat.NewRegistry(0)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		s := reg.Open("", nil)
		if seen[s.ID] {
			t.Fatalf("duplicate session id %s", s.ID)
		}
		seen[s.ID] = true
	}
	if reg.Count() != 50 {
		t.Fatalf("expected 50 sessions, got %d", reg.Count())
	}
}

func TestRegistryCloseRemovesSession(t *testing.T) {
	reg := chat.NewRegistry(0)
	session := reg.Open("", nil)

	reg.Close(session.ID)
	reg.Close(session.ID)

	if reg.Count() != 0 {
		t.Fatalf("expected empty registry, got %d", reg.Count())
	}
	if _, err := reg.Get(context.Background(), session.ID); err == nil {
		t.Fatal("expected error for closed session")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if !reg.Wait(ctx) {
		t.Fatal("Wait should return once every session is closed")
	}
}

func TestRegistryCloseAllCancelsSessions(t *testing.T) {
	reg := chat.NewRegistry(0)

	var canceled atomic.Int32
	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		s := reg.Open("", func() { canceled.Add(1) })
		ids = append(ids, s.ID)
	}

	if n := reg.CloseAll(); n != 3 {
		t.Fatalf("expected 3 sessions signalled, got %d", n)
	}
	if canceled.Load() != 3 {
		t.Fatalf("expected 3 cancel calls, got %d", canceled.Load())
	}

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if reg.Wait(short) {
		t.Fatal("Wait should block while sessions are still registered")
	}

	for _, id := range ids {
		reg.Close(id)
	}
	ctx, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	if !reg.Wait(ctx) {
		t.Fatal("Wait should return after sessions close")
	}
}
