package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ajay-arram0101/web-search-agent/internal/agent"
	"github.com/ajay-arram0101/web-search-agent/internal/history"
)

// scriptedProvider replays one fixed delta script per model turn.
type scriptedProvider struct {
	turns [][]agent.RawDelta
	calls atomic.Int32
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Stream(ctx context.Context, _ *agent.CompletionRequest) (<-chan agent.RawDelta, error) {
	turn := int(p.calls.Add(1)) - 1
	ch := make(chan agent.RawDelta)
	go func() {
		defer close(ch)
		if turn >= len(p.turns) {
			return
		}
		for _, d := range p.turns[turn] {
			select {
			case ch <- d:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

type echoTool struct{}

func (echoTool) Name() string        { return "echo" }
func (echoTool) Description() string { return "Echoes back the input." }
func (echoTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`)
}
func (echoTool) Execute(_ context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", err
	}
	return in.Text, nil
}

func finalAnswerDelta(id, answer string, tools string) agent.RawDelta {
	return agent.RawDelta{Tool: &agent.ToolCallFragment{
		ID:        id,
		Name:      "final_answer",
		Arguments: `{"answer":"` + answer + `","tools_used":` + tools + `}`,
	}}
}

func newTestServer(t *testing.T, provider agent.Provider, transcript *history.Store) *httptest.Server {
	t.Helper()
	registry := agent.NewRegistry()
	for _, tool := range []agent.Tool{echoTool{}, agent.FinalAnswerTool{}} {
		if err := registry.Register(tool); err != nil {
			t.Fatal(err)
		}
	}
	executor := agent.NewExecutor(provider, registry, nil, nil, nil)
	srv := New(executor, transcript, nil, nil, Options{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &scriptedProvider{}, nil)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "healthy" {
		t.Errorf(`status = %q, want "healthy"`, body["status"])
	}
}

func TestInvokeStreamsStepMarkup(t *testing.T) {
	provider := &scriptedProvider{turns: [][]agent.RawDelta{
		{
			{Tool: &agent.ToolCallFragment{ID: "c1", Name: "echo", Arguments: `{"text":"hi"}`}},
		},
		{finalAnswerDelta("c2", "hi there", `["echo"]`)},
	}}
	ts := newTestServer(t, provider, nil)

	resp, err := http.Post(ts.URL+"/invoke?content=say+hi", "text/plain", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Cache-Control"); got != "no-cache" {
		t.Errorf("Cache-Control = %q", got)
	}
	if got := resp.Header.Get("X-Accel-Buffering"); got != "no" {
		t.Errorf("X-Accel-Buffering = %q", got)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	out := string(body)
	if !strings.Contains(out, "<step><step_name>echo</step_name>") {
		t.Errorf("missing echo step in %q", out)
	}
	if !strings.Contains(out, "<step><step_name>final_answer</step_name>") {
		t.Errorf("missing final_answer step in %q", out)
	}
}

func TestInvokeRequiresContent(t *testing.T) {
	ts := newTestServer(t, &scriptedProvider{}, nil)

	resp, err := http.Post(ts.URL+"/invoke", "text/plain", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestInvokeMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, &scriptedProvider{}, nil)

	resp, err := http.Get(ts.URL + "/invoke?content=hi")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestInvokePersistsTranscript(t *testing.T) {
	store, err := history.NewStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	provider := &scriptedProvider{turns: [][]agent.RawDelta{
		{finalAnswerDelta("c1", "42", `[]`)},
	}}
	ts := newTestServer(t, provider, store)

	resp, err := http.Post(ts.URL+"/invoke?content=meaning+of+life&session_id=s1", "text/plain", nil)
	if err != nil {
		t.Fatal(err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	turns, err := store.Recent(context.Background(), "s1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 1 {
		t.Fatalf("got %d turns, want 1", len(turns))
	}
	if turns[0].Question != "meaning of life" || turns[0].Answer != "42" {
		t.Errorf("turn = %+v", turns[0])
	}
}

func TestInvokeSessionHistoryCarriesOver(t *testing.T) {
	// Two runs in the same session: the second model call must see the
	// first exchange in its history.
	sawHistory := make(chan int, 2)
	provider := &historyProbeProvider{sawHistory: sawHistory}
	ts := newTestServer(t, provider, nil)

	for _, q := range []string{"first", "second"} {
		resp, err := http.Post(ts.URL+"/invoke?content="+q+"&session_id=s1", "text/plain", nil)
		if err != nil {
			t.Fatal(err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	if got := <-sawHistory; got != 0 {
		t.Errorf("first run saw %d history messages, want 0", got)
	}
	if got := <-sawHistory; got != 2 {
		t.Errorf("second run saw %d history messages, want 2", got)
	}
}

// historyProbeProvider reports the history length of each request and
// immediately answers.
type historyProbeProvider struct {
	sawHistory chan int
}

func (p *historyProbeProvider) Name() string { return "probe" }

func (p *historyProbeProvider) Stream(ctx context.Context, req *agent.CompletionRequest) (<-chan agent.RawDelta, error) {
	p.sawHistory <- len(req.History)
	ch := make(chan agent.RawDelta, 1)
	ch <- finalAnswerDelta("c1", "ok", `[]`)
	close(ch)
	return ch, nil
}
