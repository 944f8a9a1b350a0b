package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/theimaginaryfoundation/remember-o-bot/persona"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// firstRand always takes the first candidate and never the optional branches.
type firstRand struct{}

func (firstRand) Intn(int) int     { return 0 }
func (firstRand) Float64() float64 { return 0.99 }

var morning = time.Date(2025, 6, 1, 7, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, remote persona.Completer) http.Handler {
	t.Helper()

	gen := &persona.Generator{Rand: firstRand{}, Remote: remote, PhraseChance: 0.3, MemoryChance: 0.5}
	s, err := New(Options{Generator: gen, Clock: persona.FixedClock(morning)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, out
}

func trainBody(n int) string {
	var items []string
	for i := 0; i < n; i++ {
		items = append(items, fmt.Sprintf(`{"userId":"u2","text":"I love you %d, remember our first date?","createdAt":"2025-01-01T10:%02d:00Z"}`, i, i))
	}
	return `{"messages":[` + strings.Join(items, ",") + `]}`
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec, out := do(t, newTestServer(t, nil), http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK || out["status"] != "ok" {
		t.Fatalf("code=%d body=%v", rec.Code, out)
	}
	if out["timestamp"] != "2025-06-01T07:00:00Z" {
		t.Fatalf("timestamp=%v", out["timestamp"])
	}
}

func TestTrain(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil)
	rec, out := do(t, h, http.MethodPost, "/api/ai/train", trainBody(12))
	if rec.Code != http.StatusOK || out["success"] != true {
		t.Fatalf("code=%d body=%v", rec.Code, out)
	}
	p, ok := out["personality"].(map[string]any)
	if !ok {
		t.Fatalf("personality=%v", out["personality"])
	}
	if p["emotional_tone"] != "very-positive" {
		t.Fatalf("tone=%v", p["emotional_tone"])
	}
	if mem, _ := p["memories"].([]any); len(mem) == 0 {
		t.Fatalf("expected memories, got %v", p["memories"])
	}
}

func TestTrain_TooFewMessages(t *testing.T) {
	t.Parallel()

	rec, out := do(t, newTestServer(t, nil), http.MethodPost, "/api/ai/train", trainBody(9))
	if rec.Code != http.StatusUnprocessableEntity || out["success"] != false {
		t.Fatalf("code=%d body=%v", rec.Code, out)
	}
	if !strings.Contains(out["error"].(string), "not enough messages") {
		t.Fatalf("error=%v", out["error"])
	}
}

func TestTrain_BadBody(t *testing.T) {
	t.Parallel()

	rec, out := do(t, newTestServer(t, nil), http.MethodPost, "/api/ai/train", `{"messages": 3}`)
	if rec.Code != http.StatusBadRequest || out["success"] != false {
		t.Fatalf("code=%d body=%v", rec.Code, out)
	}
}

func TestGenerate_Local(t *testing.T) {
	t.Parallel()

	body := `{"message":"how is work?","conversationHistory":[{"userId":"user","text":"hey"}],` +
		`"personality":{"communication_style":"balanced","emotional_tone":"neutral"}}`
	rec, out := do(t, newTestServer(t, nil), http.MethodPost, "/api/ai/generate", body)
	if rec.Code != http.StatusOK || out["success"] != true {
		t.Fatalf("code=%d body=%v", rec.Code, out)
	}
	if out["response"] != persona.ReplyPool(persona.TopicWork)[0] {
		t.Fatalf("response=%v", out["response"])
	}
}

func TestGenerate_RemoteSeesHistory(t *testing.T) {
	t.Parallel()

	var got persona.CompletionRequest
	remote := persona.CompleterFunc(func(_ context.Context, req persona.CompletionRequest) (string, error) {
		got = req
		return "remote says hi", nil
	})
	body := `{"message":"hi","conversationHistory":[{"userId":"user","text":"a"},{"userId":"x","text":"b"}],"personality":{}}`
	rec, out := do(t, newTestServer(t, remote), http.MethodPost, "/api/ai/generate", body)
	if rec.Code != http.StatusOK || out["response"] != "remote says hi" {
		t.Fatalf("code=%d body=%v", rec.Code, out)
	}
	if len(got.Transcript) != 2 || got.Transcript[0].Role != "user" || got.Transcript[1].Role != "assistant" {
		t.Fatalf("transcript=%+v", got.Transcript)
	}
}

func TestGenerate_Validation(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil)
	for name, body := range map[string]string{
		"no message":     `{"personality":{}}`,
		"no personality": `{"message":"hi"}`,
		"bad history":    `{"message":"hi","personality":{},"conversationHistory":"nope"}`,
		"not json":       `hello`,
	} {
		rec, out := do(t, h, http.MethodPost, "/api/ai/generate", body)
		if rec.Code != http.StatusBadRequest || out["success"] != false {
			t.Fatalf("%s: code=%d body=%v", name, rec.Code, out)
		}
	}
}

func TestActiveMessage(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil)
	rec, out := do(t, h, http.MethodPost, "/api/ai/active-message", `{"personality":{"memories":[{"content":"the lake","importance":1}]}}`)
	if rec.Code != http.StatusOK || out["success"] != true {
		t.Fatalf("code=%d body=%v", rec.Code, out)
	}
	if out["message"] != persona.ProactiveTemplates(7)[0] {
		t.Fatalf("message=%v", out["message"])
	}

	rec, _ = do(t, h, http.MethodPost, "/api/ai/active-message", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code=%d", rec.Code)
	}
}

func TestNew_RequiresGenerator(t *testing.T) {
	t.Parallel()

	if _, err := New(Options{}); err == nil {
		t.Fatalf("expected error")
	}
}

// phraseRand always takes the optional branches and the first candidate.
type phraseRand struct{}

func (phraseRand) Intn(int) int     { return 0 }
func (phraseRand) Float64() float64 { return 0 }

func TestGenerate_ProfileFieldsReachGenerator(t *testing.T) {
	t.Parallel()

	gen := &persona.Generator{Rand: phraseRand{}, PhraseChance: 0.3}
	s, err := New(Options{Generator: gen, Clock: persona.FixedClock(morning)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	body := `{"message":"hi","personality":{"communication_style":"playful-expressive","common_phrases":["love you forever"]}}`
	rec, out := do(t, s.Handler(), http.MethodPost, "/api/ai/generate", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("code=%d body=%v", rec.Code, out)
	}
	want := "love you forever " + persona.ReplyEmojis()[0]
	if out["response"] != want {
		t.Fatalf("response=%v want %q", out["response"], want)
	}
}

func TestPersonality_CamelCaseRejected(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil)
	camel := `{"communicationStyle":"playful-expressive","commonPhrases":["love you forever"]}`
	for path, body := range map[string]string{
		"/api/ai/generate":       `{"message":"hi","personality":` + camel + `}`,
		"/api/ai/active-message": `{"personality":` + camel + `}`,
	} {
		rec, out := do(t, h, http.MethodPost, path, body)
		if rec.Code != http.StatusBadRequest || out["success"] != false {
			t.Fatalf("%s: code=%d body=%v", path, rec.Code, out)
		}
		if msg, _ := out["error"].(string); !strings.Contains(msg, "communicationStyle") {
			t.Fatalf("%s: error=%q", path, msg)
		}
	}
}

func TestCORS_AnyOriginByDefault(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodOptions, "/api/ai/generate", nil)
	req.Header.Set("Origin", "http://localhost:8081")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	newTestServer(t, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("code=%d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-origin=%q", got)
	}
}

func TestCORS_ConfiguredOrigins(t *testing.T) {
	t.Parallel()

	gen := &persona.Generator{Rand: firstRand{}}
	s, err := New(Options{Generator: gen, CORSOrigins: []string{"http://app.test"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h := s.Handler()

	for origin, wantCode := range map[string]int{
		"http://app.test":  http.StatusOK,
		"http://evil.test": http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != wantCode {
			t.Fatalf("%s: code=%d want %d", origin, rec.Code, wantCode)
		}
	}

	if _, err := New(Options{Generator: gen, CORSOrigins: []string{"app.test"}}); err == nil {
		t.Fatalf("expected error for origin without scheme")
	}
}
