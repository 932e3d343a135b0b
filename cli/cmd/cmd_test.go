package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/ltwin/communication-translator/history"
	"github.com/ltwin/communication-translator/types"
)

const validContent = "please translate this technical plan for the team"

// service is a fake translation service.
type service struct {
	srv      *httptest.Server
	requests atomic.Int32
	lastBody atomic.Value
}

func newService(t *testing.T, translate http.HandlerFunc) *service {
	t.Helper()
	s := &service{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/translate", func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		body, _ := io.ReadAll(r.Body)
		s.lastBody.Store(string(body))
		translate(w, r)
	})
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":"healthy","version":"1.0.0"}`)
	})
	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.srv.Close)
	return s
}

func frames(payloads ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, p := range payloads {
			_, _ = io.WriteString(w, "data: "+p+"\n\n")
			w.(http.Flusher).Flush()
		}
	}
}

// isolate runs the test in an empty directory with its own history home.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("COMMTRANS_HOME", dir)
	t.Setenv("COMMTRANS_CONFIG", "")
	t.Setenv("COMMTRANS_ENDPOINT", "")
	return dir
}

type result struct {
	stdout string
	stderr string
	err    error
}

func (r result) exitCode() int {
	if r.err == nil {
		return 0
	}
	var ec cli.ExitCoder
	if errors.As(r.err, &ec) {
		return ec.ExitCode()
	}
	return -1
}

func run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := &cli.App{
		Name:           "commtrans",
		Flags:          GlobalFlags(),
		Commands:       Commands("test"),
		Reader:         strings.NewReader(stdin),
		Writer:         &stdout,
		ErrWriter:      &stderr,
		ExitErrHandler: func(*cli.Context, error) {},
	}
	err := app.RunContext(t.Context(), append([]string{"commtrans"}, args...))
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func TestTranslate_StreamsPlainText(t *testing.T) {
	isolate(t)
	svc := newService(t, frames(
		`[META]{"detected_direction":"dev_to_product","confidence":0.92,"reasoning":"technical terms"}`,
		"Pages ",
		"load faster.",
		"[DONE]",
	))

	res := run(t, "", "--endpoint", svc.srv.URL, "--log-level", "error", "translate", validContent)
	if res.exitCode() != exitCompleted {
		t.Fatalf("exit = %d (%v), stderr: %s", res.exitCode(), res.err, res.stderr)
	}
	if res.stdout != "Pages load faster.\n" {
		t.Errorf("stdout = %q", res.stdout)
	}
	if !strings.Contains(res.stderr, "Auto-detected: Technical plan → Business language (confidence: 92%)") {
		t.Errorf("stderr missing annotation: %s", res.stderr)
	}
	if !strings.Contains(res.stderr, "technical terms") {
		t.Errorf("stderr missing reasoning: %s", res.stderr)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(svc.lastBody.Load().(string)), &body); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if body["auto_detect"] != true || body["content"] != validContent {
		t.Errorf("request body = %v", body)
	}
}

func TestTranslate_ExitCodes(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		args       []string
		wantCode   int
		wantStderr string
		wantCalls  int32
	}{
		{
			name:       "stream error",
			handler:    frames("partial ", "[ERROR] upstream overloaded"),
			args:       []string{validContent},
			wantCode:   exitFailed,
			wantStderr: "upstream overloaded",
			wantCalls:  1,
		},
		{
			name:       "connection lost",
			handler:    frames("partial"),
			args:       []string{validContent},
			wantCode:   exitFailed,
			wantStderr: types.ConnectionLostMessage,
			wantCalls:  1,
		},
		{
			name: "transport failure with detail",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = io.WriteString(w, `{"detail":"could not detect the direction","error_code":"LOW_CONFIDENCE"}`)
			},
			args:       []string{validContent},
			wantCode:   exitTransport,
			wantStderr: "could not detect the direction",
			wantCalls:  1,
		},
		{
			name:       "validation error",
			handler:    frames("[DONE]"),
			args:       []string{"too short"},
			wantCode:   exitFailed,
			wantStderr: "too short",
			wantCalls:  0,
		},
		{
			name:       "invalid direction",
			handler:    frames("[DONE]"),
			args:       []string{"--direction", "sideways", validContent},
			wantCode:   exitFailed,
			wantStderr: "invalid direction",
			wantCalls:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			svc := newService(t, tt.handler)

			args := append([]string{"--endpoint", svc.srv.URL, "--log-level", "error", "translate"}, tt.args...)
			res := run(t, "", args...)

			if res.exitCode() != tt.wantCode {
				t.Errorf("exit = %d, want %d (err %v)", res.exitCode(), tt.wantCode, res.err)
			}
			got := res.stderr
			if res.err != nil {
				got += res.err.Error()
			}
			if !strings.Contains(got, tt.wantStderr) {
				t.Errorf("stderr %q missing %q", got, tt.wantStderr)
			}
			if n := svc.requests.Load(); n != tt.wantCalls {
				t.Errorf("requests = %d, want %d", n, tt.wantCalls)
			}
		})
	}
}

func TestTranslate_ExplicitDirection(t *testing.T) {
	isolate(t)
	svc := newService(t, frames("Add a cache.", "[DONE]"))

	res := run(t, "", "--endpoint", svc.srv.URL, "translate", "-d", "product_to_dev", validContent)
	if res.exitCode() != exitCompleted {
		t.Fatalf("exit = %d, stderr: %s", res.exitCode(), res.stderr)
	}
	body := svc.lastBody.Load().(string)
	if !strings.Contains(body, `"direction":"product_to_dev"`) || !strings.Contains(body, `"auto_detect":false`) {
		t.Errorf("request body = %s", body)
	}
}

func TestTranslate_InputSources(t *testing.T) {
	t.Run("stdin", func(t *testing.T) {
		isolate(t)
		svc := newService(t, frames("ok", "[DONE]"))

		res := run(t, validContent+"\n", "--endpoint", svc.srv.URL, "translate")
		if res.exitCode() != exitCompleted {
			t.Fatalf("exit = %d, stderr: %s", res.exitCode(), res.stderr)
		}
		if !strings.Contains(svc.lastBody.Load().(string), validContent) {
			t.Errorf("request body = %s", svc.lastBody.Load())
		}
	})

	t.Run("file", func(t *testing.T) {
		dir := isolate(t)
		svc := newService(t, frames("ok", "[DONE]"))
		path := filepath.Join(dir, "input.txt")
		if err := os.WriteFile(path, []byte(validContent), 0o644); err != nil {
			t.Fatal(err)
		}

		res := run(t, "", "--endpoint", svc.srv.URL, "translate", "--file", path)
		if res.exitCode() != exitCompleted {
			t.Fatalf("exit = %d, stderr: %s", res.exitCode(), res.stderr)
		}
		if !strings.Contains(svc.lastBody.Load().(string), validContent) {
			t.Errorf("request body = %s", svc.lastBody.Load())
		}
	})

	t.Run("missing file", func(t *testing.T) {
		isolate(t)
		res := run(t, "", "translate", "--file", "/nonexistent/input.txt")
		if res.exitCode() != exitFailed {
			t.Errorf("exit = %d, want %d", res.exitCode(), exitFailed)
		}
	})
}

func TestTranslate_ExportAndSummary(t *testing.T) {
	dir := isolate(t)
	svc := newService(t, frames("Faster pages.", "[DONE]"))
	out := filepath.Join(dir, "out", "result.md")

	res := run(t, "", "--endpoint", svc.srv.URL, "translate", "--export", out, "--summary", validContent)
	if res.exitCode() != exitCompleted {
		t.Fatalf("exit = %d, stderr: %s", res.exitCode(), res.stderr)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if string(data) != "Faster pages." {
		t.Errorf("exported = %q", data)
	}
	for _, want := range []string{"Exported to " + out, "state=completed", "Text Deltas:      1", "Succeeded:        1"} {
		if !strings.Contains(res.stderr, want) {
			t.Errorf("stderr missing %q:\n%s", want, res.stderr)
		}
	}
}

func TestTranslate_ConfigFile(t *testing.T) {
	dir := isolate(t)
	svc := newService(t, frames("ok", "[DONE]"))
	t.Setenv("TEST_COMMTRANS_URL", svc.srv.URL)

	cfg := "endpoint: ${TEST_COMMTRANS_URL}\ndirection: dev_to_product\nhistory:\n  disabled: true\n"
	if err := os.WriteFile(filepath.Join(dir, "commtrans.yaml"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	res := run(t, "", "translate", validContent)
	if res.exitCode() != exitCompleted {
		t.Fatalf("exit = %d, stderr: %s", res.exitCode(), res.stderr)
	}
	if !strings.Contains(svc.lastBody.Load().(string), `"direction":"dev_to_product"`) {
		t.Errorf("request body = %s", svc.lastBody.Load())
	}
	if _, err := os.Stat(filepath.Join(dir, history.FileName)); !os.IsNotExist(err) {
		t.Errorf("history written although disabled: %v", err)
	}
}

func TestHistory_ListAndShow(t *testing.T) {
	isolate(t)
	svc := newService(t, frames("Faster pages.", "[DONE]"))

	for range 2 {
		if res := run(t, "", "--endpoint", svc.srv.URL, "translate", validContent); res.exitCode() != 0 {
			t.Fatalf("translate exit = %d, stderr: %s", res.exitCode(), res.stderr)
		}
	}

	res := run(t, "", "history", "list", "--format", "json")
	if res.err != nil {
		t.Fatalf("history list: %v", res.err)
	}
	var records []history.Record
	if err := json.Unmarshal([]byte(res.stdout), &records); err != nil {
		t.Fatalf("decode list: %v\n%s", err, res.stdout)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].State != "completed" || records[0].Output != "Faster pages." {
		t.Errorf("record = %+v", records[0])
	}
	if !records[0].StartedAt.After(records[1].StartedAt) && !records[0].StartedAt.Equal(records[1].StartedAt) {
		t.Error("records should be newest first")
	}

	res = run(t, "", "history", "list", "--format", "table", "--no-color", "--limit", "1")
	if res.err != nil {
		t.Fatalf("history list table: %v", res.err)
	}
	if lines := strings.Split(strings.TrimSpace(res.stdout), "\n"); len(lines) != 2 {
		t.Errorf("table lines = %d, want header + 1:\n%s", len(lines), res.stdout)
	}

	res = run(t, "", "history", "show", "--output", records[1].ID[:8])
	if res.err != nil {
		t.Fatalf("history show: %v", res.err)
	}
	if res.stdout != "Faster pages.\n" {
		t.Errorf("show --output = %q", res.stdout)
	}

	res = run(t, "", "history", "show", "no-such-id")
	if res.exitCode() != exitFailed {
		t.Errorf("show unknown exit = %d, want %d", res.exitCode(), exitFailed)
	}
}

func TestFilterRecords(t *testing.T) {
	records := []history.Record{
		{ID: "a", State: "completed"},
		{ID: "b", State: "failed"},
		{ID: "c", State: "completed"},
		{ID: "d", State: "completed"},
	}

	tests := []struct {
		name  string
		state string
		limit int
		want  string
	}{
		{"all newest first", "", 0, "dcba"},
		{"limit", "", 2, "dc"},
		{"state", "completed", 0, "dca"},
		{"state and limit", "failed", 5, "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got strings.Builder
			for _, r := range filterRecords(records, tt.state, tt.limit) {
				got.WriteString(r.ID)
			}
			if got.String() != tt.want {
				t.Errorf("got %q, want %q", got.String(), tt.want)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	isolate(t)
	svc := newService(t, frames("[DONE]"))

	res := run(t, "", "--endpoint", svc.srv.URL, "health", "--format", "json")
	if res.err != nil {
		t.Fatalf("health: %v", res.err)
	}
	var resp HealthResponse
	if err := json.Unmarshal([]byte(res.stdout), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "healthy" || resp.Version != "1.0.0" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHealth_Unreachable(t *testing.T) {
	isolate(t)
	svc := newService(t, frames("[DONE]"))
	url := svc.srv.URL
	svc.srv.Close()

	res := run(t, "", "--endpoint", url, "health")
	if res.exitCode() != exitTransport {
		t.Errorf("exit = %d, want %d", res.exitCode(), exitTransport)
	}
	if res.err == nil || !strings.Contains(res.err.Error(), "is unreachable") {
		t.Errorf("err = %v", res.err)
	}
}

func TestHealth_Unhealthy(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"detail":"model warming up"}`)
	}))
	t.Cleanup(srv.Close)

	res := run(t, "", "--endpoint", srv.URL, "health")
	if res.exitCode() != exitTransport {
		t.Fatalf("exit = %d, want %d", res.exitCode(), exitTransport)
	}
	if !strings.Contains(res.err.Error(), "is unhealthy: model warming up") {
		t.Errorf("err = %v", res.err)
	}
	if !strings.Contains(res.stderr, `"command":"health"`) || !strings.Contains(res.stderr, "health check rejected") {
		t.Errorf("stderr missing health log: %s", res.stderr)
	}
	if res.stdout != "" {
		t.Errorf("stdout = %q", res.stdout)
	}
}

func TestVersion(t *testing.T) {
	res := run(t, "", "version", "--format", "json")
	if res.err != nil {
		t.Fatalf("version: %v", res.err)
	}
	var resp VersionResponse
	if err := json.Unmarshal([]byte(res.stdout), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Version != types.Version || resp.Commit != "test" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestReadOnlyFlags(t *testing.T) {
	names := map[string]bool{}
	for _, f := range ReadOnlyFlags() {
		names[f.Names()[0]] = true
	}
	if !names["format"] || !names["no-color"] {
		t.Errorf("ReadOnlyFlags() = %v", names)
	}
}

func TestHistory_Archived(t *testing.T) {
	dir := isolate(t)
	svc := newService(t, frames(
		`[META]{"detected_direction":"dev_to_product","confidence":0.8}`,
		"Faster pages.",
		"[DONE]",
	))
	archiveDir := filepath.Join(dir, "archive")

	cfg := "adapter:\n  type: archive\n  url: " + archiveDir + "\n  dataset: sessions\n"
	if err := os.WriteFile(filepath.Join(dir, "commtrans.yaml"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	if res := run(t, "", "--endpoint", svc.srv.URL, "translate", validContent); res.exitCode() != 0 {
		t.Fatalf("translate exit = %d, stderr: %s", res.exitCode(), res.stderr)
	}

	res := run(t, "", "history", "archived", "--format", "json", "--state", "completed")
	if res.err != nil {
		t.Fatalf("history archived: %v (stderr %s)", res.err, res.stderr)
	}
	var entries []map[string]any
	if err := json.Unmarshal([]byte(res.stdout), &entries); err != nil {
		t.Fatalf("decode: %v\n%s", err, res.stdout)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0]["detected_direction"] != "dev_to_product" || entries[0]["mode"] != "auto" {
		t.Errorf("entry = %v", entries[0])
	}
}

func TestHistory_ArchivedRequiresTarget(t *testing.T) {
	isolate(t)
	res := run(t, "", "history", "archived")
	if res.exitCode() != exitFailed {
		t.Errorf("exit = %d, want %d", res.exitCode(), exitFailed)
	}
}
