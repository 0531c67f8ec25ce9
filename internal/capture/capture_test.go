package capture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/moamenhredeen/oasrec/internal/models"
)

func petServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /pets/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Request-Id", "req-1")
		fmt.Fprintf(w, `{"id":%q}`, r.PathValue("id"))
	})
	mux.HandleFunc("POST /pets", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write(body)
	})
	return httptest.NewServer(mux)
}

func TestRouterMatch(t *testing.T) {
	r := NewRouter("/pets/{id}", "/pets/mine", "/orgs/{org}/users/{id}")

	tests := []struct {
		path     string
		template string
		params   map[string]string
	}{
		{"/pets/42", "/pets/{id}", map[string]string{"id": "42"}},
		{"/pets/mine", "/pets/mine", nil},
		{"/orgs/acme/users/7", "/orgs/{org}/users/{id}", map[string]string{"org": "acme", "id": "7"}},
		{"/pets/a%20b", "/pets/{id}", map[string]string{"id": "a b"}},
		{"/unknown/1", "/unknown/1", nil},
		{"/pets", "/pets", nil},
	}
	for _, tt := range tests {
		template, params := r.Match(tt.path)
		if template != tt.template {
			t.Errorf("%s: expected template %s, got %s", tt.path, tt.template, template)
		}
		if fmt.Sprint(params) != fmt.Sprint(tt.params) {
			t.Errorf("%s: expected params %v, got %v", tt.path, tt.params, params)
		}
	}
}

func TestRecorderRecordsRoundTrips(t *testing.T) {
	srv := petServer()
	defer srv.Close()

	rec := NewRecorder(srv.Client().Transport, NewRouter("/pets/{id}"))
	client := &http.Client{Transport: rec}

	ctx := WithAnnotation(context.Background(), Annotation{Summary: "Show pet", Tags: []string{"pets"}})
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/pets/7?verbose=true", nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != `{"id":"7"}` {
		t.Errorf("caller must still see the body, got %q", body)
	}

	resp, err = client.Post(srv.URL+"/pets", "application/json", strings.NewReader(`{"name":"rex"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	exchanges := rec.Exchanges()
	if len(exchanges) != 2 {
		t.Fatalf("expected 2 exchanges, got %d", len(exchanges))
	}

	get := exchanges[0]
	if get.Key() != models.NewOperationKey("GET", "/pets/{id}") {
		t.Errorf("unexpected key %s", get.Key())
	}
	if get.PathParams["id"] != "7" || get.Query["verbose"] != "true" {
		t.Errorf("unexpected params %v %v", get.PathParams, get.Query)
	}
	if get.ResponseHeaders["X-Request-Id"] != "req-1" {
		t.Errorf("missing response header: %v", get.ResponseHeaders)
	}
	if get.Summary != "Show pet" || len(get.Tags) != 1 {
		t.Errorf("annotation not carried: %+v", get)
	}

	post := exchanges[1]
	if post.StatusCode != http.StatusCreated || post.RequestBody != `{"name":"rex"}` || post.ResponseBody != `{"name":"rex"}` {
		t.Errorf("unexpected post exchange %+v", post)
	}
	if post.RequestContentType != "application/json" {
		t.Errorf("unexpected request content type %q", post.RequestContentType)
	}

	rec.Reset()
	if rec.Len() != 0 {
		t.Error("expected no exchanges after reset")
	}
}

func TestRecorderIsSafeForConcurrentUse(t *testing.T) {
	srv := petServer()
	defer srv.Close()

	rec := NewRecorder(srv.Client().Transport, NewRouter("/pets/{id}"))
	client := &http.Client{Transport: rec}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := client.Get(fmt.Sprintf("%s/pets/%d", srv.URL, i))
			if err == nil {
				resp.Body.Close()
			}
		}(i)
	}
	wg.Wait()

	if rec.Len() != 20 {
		t.Errorf("expected 20 exchanges, got %d", rec.Len())
	}
}

func TestMiddleware(t *testing.T) {
	var mu sync.Mutex
	var got []models.Exchange
	sink := func(ex models.Exchange) {
		mu.Lock()
		got = append(got, ex)
		mu.Unlock()
	}

	handler := Middleware(NewRouter("/pets/{id}"), sink)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		io.Copy(w, r.Body)
	}))

	req := httptest.NewRequest(http.MethodPut, "/pets/3", bytes.NewBufferString(`{"name":"a"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Body.String() != `{"name":"a"}` {
		t.Errorf("handler must still read the body, got %q", w.Body.String())
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 exchange, got %d", len(got))
	}
	ex := got[0]
	if ex.Path != "/pets/{id}" || ex.PathParams["id"] != "3" || ex.StatusCode != http.StatusAccepted {
		t.Errorf("unexpected exchange %+v", ex)
	}
	if ex.RequestBody != `{"name":"a"}` || ex.ResponseBody != `{"name":"a"}` {
		t.Errorf("unexpected bodies %+v", ex)
	}
}

func TestExchangeLogRoundTrip(t *testing.T) {
	exchanges := []models.Exchange{
		{Method: "GET", Path: "/pets", StatusCode: 200, ResponseBody: `[{"name":"<a>"}]`},
		{Method: "DELETE", Path: "/pets/{id}", PathParams: map[string]string{"id": "1"}, StatusCode: 204},
	}
	var buf bytes.Buffer
	if err := WriteExchanges(&buf, exchanges); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if strings.Count(buf.String(), "\n") != 2 {
		t.Errorf("expected one line per exchange:\n%s", buf.String())
	}

	read, err := ReadExchanges(&buf, nil)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(read) != 2 || read[0].ResponseBody != `[{"name":"<a>"}]` || read[1].PathParams["id"] != "1" {
		t.Errorf("unexpected exchanges %+v", read)
	}
}

func TestReadExchangesSkipsBadLines(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	in := strings.NewReader("{\"method\":\"GET\",\"path\":\"/a\",\"status_code\":200}\n\nnot json\n{\"method\":\"GET\",\"path\":\"/b\",\"status_code\":200}\n")

	read, err := ReadExchanges(in, zap.New(core))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(read) != 2 || read[1].Path != "/b" {
		t.Errorf("unexpected exchanges %+v", read)
	}
	if logs.Len() != 1 {
		t.Errorf("expected one warning, got %d", logs.Len())
	}
}

func TestAppendFile(t *testing.T) {
	path := t.TempDir() + "/exchanges.jsonl"
	for i := 0; i < 2; i++ {
		if err := AppendFile(path, []models.Exchange{{Method: "GET", Path: "/a", StatusCode: 200}}); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
	read, err := ReadFiles([]string{path}, nil)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(read) != 2 {
		t.Errorf("expected 2 exchanges, got %d", len(read))
	}

	if _, err := ReadFiles([]string{path + ".missing"}, nil); err == nil {
		t.Error("expected error for missing log")
	}
}

func TestNewExchangeIgnoresServerBasePath(t *testing.T) {
	ctx := WithAnnotation(context.Background(), Annotation{Template: "/pets/{id}"})
	req := httptest.NewRequest(http.MethodGet, "http://api.example.com/v1/pets/7", nil).WithContext(ctx)

	ex := NewExchange(NewRouter(), req, nil, http.StatusOK, http.Header{}, nil)
	if ex.Path != "/pets/{id}" || ex.PathParams["id"] != "7" {
		t.Errorf("expected template match below the base path, got %s %v", ex.Path, ex.PathParams)
	}

	ctx = WithAnnotation(context.Background(), Annotation{Template: "/owners/{id}"})
	req = httptest.NewRequest(http.MethodGet, "http://api.example.com/v1/pets/7", nil).WithContext(ctx)
	if ex := NewExchange(NewRouter(), req, nil, http.StatusOK, http.Header{}, nil); ex.Path != "/v1/pets/7" {
		t.Errorf("expected a mismatching template to be ignored, got %s", ex.Path)
	}
}
