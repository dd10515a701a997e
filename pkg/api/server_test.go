package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/asyncload/pkg/api/handlers"
	"github.com/marmos91/asyncload/pkg/linker"
	"github.com/marmos91/asyncload/pkg/loader"
	"github.com/marmos91/asyncload/pkg/metrics"
	"github.com/marmos91/asyncload/pkg/objects"
	"github.com/marmos91/asyncload/pkg/store/memory"
)

// testSetup creates a started loader over an in-memory store holding /A and
// /B (imports /A), wrapped in a running Runner.
func testSetup(t *testing.T) Dependencies {
	t.Helper()

	st := memory.New()
	ctx := context.Background()
	for name, imports := range map[string][]string{"/A": nil, "/B": {"/A"}} {
		m := &linker.Manifest{Name: name}
		main := linker.Export{Name: "Main", Class: "Blob"}
		for i, imp := range imports {
			m.Imports = append(m.Imports, linker.Import{Package: imp, Object: "Main"})
			main.Refs = append(main.Refs, i)
		}
		m.Exports = []linker.Export{main}
		data, err := linker.Encode(m)
		if err != nil {
			t.Fatalf("Failed to encode manifest: %v", err)
		}
		if err := st.WritePackage(ctx, name, data); err != nil {
			t.Fatalf("Failed to write package: %v", err)
		}
	}

	cfg := loader.DefaultConfig()
	cfg.Multithreaded = true
	cfg.IdleSleep = time.Millisecond
	ld := loader.New(cfg, linker.NewStoreFactory(st, 0), objects.NewRegistry())
	if err := ld.Start(ctx); err != nil {
		t.Fatalf("Failed to start loader: %v", err)
	}

	runner := loader.NewRunner(ld, loader.RunnerConfig{Interval: time.Millisecond})
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = runner.Run(runCtx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = ld.Stop(time.Second)
	})

	return Dependencies{Loader: runner, Store: st, StoreType: "memory"}
}

func doJSON(t *testing.T, method, url, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func TestRouter_LoadThroughAPI(t *testing.T) {
	ts := httptest.NewServer(NewRouter(testSetup(t)))
	defer ts.Close()

	var queued handlers.QueueResponse
	if code := doJSON(t, "POST", ts.URL+"/api/v1/loader/packages", `{"name":"/B","priority":3}`, &queued); code != http.StatusAccepted {
		t.Fatalf("Expected status %d, got %d", http.StatusAccepted, code)
	}
	if queued.RequestID <= 0 {
		t.Fatalf("Expected a request id, got %d", queued.RequestID)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		var info loader.PackageInfo
		code := doJSON(t, "GET", ts.URL+"/api/v1/loader/packages/B", "", &info)
		if code == http.StatusOK && info.State == "loaded" {
			if info.Percent != 100 {
				t.Errorf("Expected 100%%, got %v", info.Percent)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Package /B did not load, last state %q", info.State)
		}
		time.Sleep(5 * time.Millisecond)
	}

	var req handlers.RequestResponse
	doJSON(t, "GET", fmt.Sprintf("%s/api/v1/loader/requests/%d", ts.URL, queued.RequestID), "", &req)
	if req.Pending {
		t.Error("Expected request to be finished")
	}

	var status handlers.StatusResponse
	if code := doJSON(t, "GET", ts.URL+"/api/v1/loader/status", "", &status); code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, code)
	}
	if status.Strategy != "worker" || status.Succeeded < 1 {
		t.Errorf("Unexpected status: %+v", status.Status)
	}
}

func TestRouter_SuspendResumeCancel(t *testing.T) {
	ts := httptest.NewServer(NewRouter(testSetup(t)))
	defer ts.Close()

	var st loader.Status
	if code := doJSON(t, "POST", ts.URL+"/api/v1/loader/suspend", "", &st); code != http.StatusOK || !st.Suspended {
		t.Fatalf("Suspend failed: status %d, suspended %v", code, st.Suspended)
	}

	doJSON(t, "POST", ts.URL+"/api/v1/loader/packages", `{"name":"/A"}`, nil)

	if code := doJSON(t, "POST", ts.URL+"/api/v1/loader/cancel", "", &st); code != http.StatusOK {
		t.Fatalf("Cancel failed: status %d", code)
	}
	if st.Canceled < 1 {
		t.Errorf("Expected a canceled load, got %+v", st)
	}

	if code := doJSON(t, "POST", ts.URL+"/api/v1/loader/resume", "", &st); code != http.StatusOK || st.Suspended {
		t.Fatalf("Resume failed: status %d, suspended %v", code, st.Suspended)
	}
	if code := doJSON(t, "POST", ts.URL+"/api/v1/loader/resume", "", nil); code != http.StatusConflict {
		t.Fatalf("Expected status %d, got %d", http.StatusConflict, code)
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	metrics.Reset()
	t.Cleanup(metrics.Reset)

	deps := testSetup(t)

	ts := httptest.NewServer(NewRouter(deps))
	if code := doJSON(t, "GET", ts.URL+"/health/ready", "", nil); code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, code)
	}
	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected /metrics to be absent, got %d", resp.StatusCode)
	}
	ts.Close()

	metrics.InitRegistry()
	ts = httptest.NewServer(NewRouter(deps))
	defer ts.Close()
	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "go_goroutines") {
		t.Errorf("Unexpected metrics response %d: %.200s", resp.StatusCode, body)
	}
}

func TestAPIServer_Lifecycle(t *testing.T) {
	deps := testSetup(t)

	if _, err := NewServer(APIConfig{}, Dependencies{}); err == nil {
		t.Fatal("Expected an error without a loader")
	}

	server, err := NewServer(APIConfig{ReadTimeout: 5 * time.Second}, deps)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	if server.Port() != 8080 {
		t.Errorf("Expected default port 8080, got %d", server.Port())
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Serve(ctx, ln)
	}()

	var resp handlers.Response
	url := fmt.Sprintf("http://%s/health", ln.Addr().String())
	deadline := time.Now().Add(5 * time.Second)
	for {
		r, err := http.Get(url)
		if err == nil {
			_ = json.NewDecoder(r.Body).Decode(&resp)
			_ = r.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Server did not come up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if server.Addr() != ln.Addr().String() {
		t.Errorf("Expected bound address %s, got %q", ln.Addr(), server.Addr())
	}
	if resp.Status != "healthy" {
		t.Errorf("Expected status 'healthy', got '%s'", resp.Status)
	}

	cancel()
	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Server returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Server did not shut down")
	}

	if err := server.Stop(context.Background()); err != nil {
		t.Errorf("Second Stop returned error: %v", err)
	}
}
