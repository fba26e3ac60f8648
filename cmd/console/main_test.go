package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/cwrk-planet/support-relay/pkg/admin"
	"github.com/cwrk-planet/support-relay/pkg/protocol"
)

func msg(id, content string, at time.Time) protocol.Message {
	return protocol.Message{ID: id, Content: content, Sender: "user", CreatedAt: at, UserID: "u1"}
}

func TestRenderer_HistoryMergedAheadOfPushes(t *testing.T) {
	var out bytes.Buffer
	r := newRenderer(&out)
	t0 := time.Unix(1_700_000_000, 0)
	online := true

	s := admin.State{
		Chats:    []protocol.Chat{{ID: "u1", Online: &online}},
		Selected: "u1",
		Messages: []protocol.Message{msg("m3", "third", t0.Add(3*time.Second))},
	}
	r.render(s)

	s.Messages = protocol.MergeMessages(s.Messages, []protocol.Message{
		msg("m1", "first", t0.Add(time.Second)),
		msg("m2", "second", t0.Add(2*time.Second)),
	})
	r.render(s)
	r.render(s)

	got := out.String()
	if !strings.Contains(got, "--- u1 (online) ---") {
		t.Fatalf("missing thread title:\n%s", got)
	}
	for _, c := range []string{"first", "second", "third"} {
		if n := strings.Count(got, ": "+c+"\n"); n != 1 {
			t.Fatalf("%q printed %d times:\n%s", c, n, got)
		}
	}
}

func TestRenderer_SwitchingThreadReprints(t *testing.T) {
	var out bytes.Buffer
	r := newRenderer(&out)
	m := msg("m1", "hello", time.Unix(1_700_000_000, 0))

	r.render(admin.State{Selected: "u1", Messages: []protocol.Message{m}})
	r.render(admin.State{Selected: "u2"})
	r.render(admin.State{Selected: "u1", Messages: []protocol.Message{m}})

	got := out.String()
	if n := strings.Count(got, ": hello\n"); n != 2 {
		t.Fatalf("hello printed %d times:\n%s", n, got)
	}
	if !strings.Contains(got, "--- u2 ---") {
		t.Fatalf("thread without a list entry should fall back to its id:\n%s", got)
	}
}

func TestResolveChat(t *testing.T) {
	s := admin.State{Chats: []protocol.Chat{{ID: "a"}, {ID: "b"}}}
	for arg, want := range map[string]string{"2": "b", "1": "a", "3": "3", "user_x": "user_x"} {
		if got := resolveChat(s, arg); got != want {
			t.Fatalf("resolveChat(%q) = %q, want %q", arg, got, want)
		}
	}
}
