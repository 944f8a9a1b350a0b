package persona

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDecodeMessages_Array(t *testing.T) {
	t.Parallel()

	in := `[
  {"id":"a","text":"hi","sender_role":"self","timestamp":"2025-01-01T00:00:00Z"},
  {"id":"b","text":"hey you","sender_role":"other","timestamp":"2025-01-01T00:01:00Z"}
]`
	got, err := DecodeMessages(context.Background(), strings.NewReader(in), HistoryOptions{})
	if err != nil {
		t.Fatalf("DecodeMessages: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len=%d", len(got))
	}
	if got[0].ID != "a" || got[0].SenderRole != RoleSelf || got[1].SenderRole != RoleOther {
		t.Fatalf("got=%+v", got)
	}
	if !got[1].Timestamp.Equal(time.Date(2025, 1, 1, 0, 1, 0, 0, time.UTC)) {
		t.Fatalf("timestamp=%v", got[1].Timestamp)
	}
}

func TestDecodeMessages_ObjectSkipsOtherKeys(t *testing.T) {
	t.Parallel()

	in := `{
  "title": "chat",
  "meta": {"nested": [1, {"x": [2, 3]}], "ok": true},
  "messages": [
    {"userId":"user","text":"from me","createdAt":"2025-02-01T10:00:00Z"},
    {"userId":"u-42","text":"from them"},
    {"userId":"user","text":"Chat cleared","system":true}
  ],
  "after": null
}`
	got, err := DecodeMessages(context.Background(), strings.NewReader(in), HistoryOptions{})
	if err != nil {
		t.Fatalf("DecodeMessages: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len=%d", len(got))
	}
	want := []SenderRole{RoleSelf, RoleOther, RoleSystem}
	for i, r := range want {
		if got[i].SenderRole != r {
			t.Fatalf("got[%d].SenderRole=%q want %q", i, got[i].SenderRole, r)
		}
	}
	if got[0].Timestamp.IsZero() || !got[1].Timestamp.IsZero() {
		t.Fatalf("timestamps=%v,%v", got[0].Timestamp, got[1].Timestamp)
	}
	if len(got[1].ID) != 36 {
		t.Fatalf("expected generated uuid, id=%q", got[1].ID)
	}
}

func TestDecodeMessages_ChatExportShape(t *testing.T) {
	t.Parallel()

	in := `{"conversation_id":"c1","messages":[
  {"role":"user","create_time":1735689600,"text":"q"},
  {"role":"assistant","create_time":1735689660,"text":"a"},
  {"role":"tool","text":"t"}
]}`
	got, err := DecodeMessages(context.Background(), strings.NewReader(in), HistoryOptions{})
	if err != nil {
		t.Fatalf("DecodeMessages: %v", err)
	}
	if got[0].SenderRole != RoleSelf || got[1].SenderRole != RoleOther || got[2].SenderRole != RoleSystem {
		t.Fatalf("roles=%q,%q,%q", got[0].SenderRole, got[1].SenderRole, got[2].SenderRole)
	}
	if want := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC); !got[0].Timestamp.Equal(want) {
		t.Fatalf("timestamp=%v", got[0].Timestamp)
	}
}

func TestDecodeMessages_CustomField(t *testing.T) {
	t.Parallel()

	in := `{"messages":"ignored","history":[{"text":"x","userId":"me"}]}`
	got, err := DecodeMessages(context.Background(), strings.NewReader(in), HistoryOptions{ArrayField: "history", SelfUserID: "me"})
	if err != nil {
		t.Fatalf("DecodeMessages: %v", err)
	}
	if len(got) != 1 || got[0].SenderRole != RoleSelf {
		t.Fatalf("got=%+v", got)
	}
}

func TestDecodeMessages_Errors(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"primitive":     `"hello"`,
		"missing field": `{"other":[]}`,
		"not array":     `{"messages":{"a":1}}`,
		"truncated":     `[{"text":"a"}`,
		"empty":         ``,
	}
	for name, in := range cases {
		if _, err := DecodeMessages(context.Background(), strings.NewReader(in), HistoryOptions{}); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestDecodeMessages_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := DecodeMessages(ctx, strings.NewReader(`[{"text":"a"}]`), HistoryOptions{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestDecodeMessages_NilContext(t *testing.T) {
	t.Parallel()

	if _, err := DecodeMessagesJSONL(nil, strings.NewReader(`{"text":"a"}`), HistoryOptions{}); err == nil {
		t.Fatalf("DecodeMessagesJSONL: expected error for nil ctx")
	}
	if _, err := DecodeMessages(nil, strings.NewReader(`[{"text":"a"}]`), HistoryOptions{}); err == nil {
		t.Fatalf("DecodeMessages: expected error for nil ctx")
	}
}

func TestLoadMessages_JSONL(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "chat.jsonl")
	data := "{\"text\":\"one\",\"sender_role\":\"self\"}\n\n{\"text\":\"two\",\"sender_role\":\"OTHER\"}\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := LoadMessages(context.Background(), path, HistoryOptions{})
	if err != nil {
		t.Fatalf("LoadMessages: %v", err)
	}
	if len(got) != 2 || got[1].Text != "two" || got[1].SenderRole != RoleOther {
		t.Fatalf("got=%+v", got)
	}

	bad := filepath.Join(t.TempDir(), "bad.jsonl")
	if err := os.WriteFile(bad, []byte("{\"text\":\"ok\"}\nnot json\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadMessages(context.Background(), bad, HistoryOptions{}); err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("err=%v", err)
	}
}

func TestLoadMessages_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := LoadMessages(context.Background(), filepath.Join(t.TempDir(), "nope.json"), HistoryOptions{}); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := LoadMessages(context.Background(), "", HistoryOptions{}); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
