package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jacentio/pantry/api"
	"github.com/jacentio/pantry/item"
	"github.com/jacentio/pantry/query"
	"github.com/jacentio/pantry/store"
)

func newServer(t *testing.T) (*store.Memory, *httptest.Server) {
	t.Helper()
	gateway := store.NewMemory()
	h := api.New(gateway, slog.New(slog.NewTextHandler(testWriter{t}, nil)))
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return gateway, srv
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSpace(string(p)))
	return len(p), nil
}

func do(t *testing.T, method, url string, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp, decoded
}

func createWidget(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, body := do(t, http.MethodPost, srv.URL+"/api/items",
		`{"name":"Widget","price":9.99,"category":"tools"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", resp.StatusCode, body)
	}
	id, _ := body["id"].(string)
	if id == "" {
		t.Fatalf("expected an id in the response, got %v", body)
	}
	return id
}

func TestItemLifecycle(t *testing.T) {
	_, srv := newServer(t)

	// Create.
	id := createWidget(t, srv)

	// Fetch it back: defaults and timestamps.
	resp, doc := do(t, http.MethodGet, srv.URL+"/api/items/"+id, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if doc["description"] != "" {
		t.Errorf("expected empty description, got %v", doc["description"])
	}
	if doc["createdAt"] != doc["updatedAt"] {
		t.Errorf("fresh item must have createdAt == updatedAt: %v", doc)
	}

	// Patch the price.
	resp, body := do(t, http.MethodPatch, srv.URL+"/api/items/"+id, `{"price":12.5}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, body)
	}

	resp, doc = do(t, http.MethodGet, srv.URL+"/api/items/"+id, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if doc["price"] != 12.5 {
		t.Errorf("expected patched price 12.5, got %v", doc["price"])
	}
	if doc["name"] != "Widget" {
		t.Errorf("patch must leave name unchanged, got %v", doc["name"])
	}
	created, err1 := time.Parse(time.RFC3339Nano, doc["createdAt"].(string))
	updated, err2 := time.Parse(time.RFC3339Nano, doc["updatedAt"].(string))
	if err1 != nil || err2 != nil {
		t.Fatalf("timestamps did not parse: %v / %v", err1, err2)
	}
	if !updated.After(created) {
		t.Errorf("expected updatedAt > createdAt after patch: %v / %v", created, updated)
	}

	// Delete, then the id is gone.
	resp, _ = do(t, http.MethodDelete, srv.URL+"/api/items/"+id, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	resp, _ = do(t, http.MethodGet, srv.URL+"/api/items/"+id, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestCreate_MissingFields(t *testing.T) {
	_, srv := newServer(t)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/items", `{"name":"Widget"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	missing, _ := body["missing"].([]any)
	if !reflect.DeepEqual(missing, []any{"price", "category"}) {
		t.Errorf("expected missing [price category], got %v", body["missing"])
	}
}

func TestCreate_InvalidPrice(t *testing.T) {
	_, srv := newServer(t)

	for _, payload := range []string{
		`{"name":"Widget","price":-1,"category":"tools"}`,
		`{"name":"Widget","price":"9.99","category":"tools"}`,
	} {
		resp, body := do(t, http.MethodPost, srv.URL+"/api/items", payload)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400 for %s, got %d", payload, resp.StatusCode)
		}
		if !reflect.DeepEqual(body["invalid"], []any{"price"}) {
			t.Errorf("expected invalid [price], got %v", body["invalid"])
		}
	}
}

func TestCreate_InvalidJSON(t *testing.T) {
	_, srv := newServer(t)

	resp, _ := do(t, http.MethodPost, srv.URL+"/api/items", `{"name":`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestReplace(t *testing.T) {
	_, srv := newServer(t)
	id := createWidget(t, srv)

	resp, _ := do(t, http.MethodPut, srv.URL+"/api/items/"+id,
		`{"name":"Gadget","price":19.99,"category":"gizmos"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	_, doc := do(t, http.MethodGet, srv.URL+"/api/items/"+id, "")
	if doc["name"] != "Gadget" || doc["price"] != 19.99 || doc["category"] != "gizmos" {
		t.Errorf("replace did not apply: %v", doc)
	}
	if doc["description"] != "" {
		t.Errorf("replace must reset unsent description to empty, got %v", doc["description"])
	}
}

func TestReplace_ValidationAfterID(t *testing.T) {
	_, srv := newServer(t)
	id := createWidget(t, srv)

	resp, body := do(t, http.MethodPut, srv.URL+"/api/items/"+id, `{"name":"Gadget"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if body["missing"] == nil {
		t.Errorf("expected a missing list, got %v", body)
	}
}

func TestPatch_UnknownFields(t *testing.T) {
	_, srv := newServer(t)
	id := createWidget(t, srv)

	resp, body := do(t, http.MethodPatch, srv.URL+"/api/items/"+id, `{"color":"red"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if !reflect.DeepEqual(body["invalid"], []any{"color"}) {
		t.Errorf("expected invalid [color], got %v", body["invalid"])
	}
	if !reflect.DeepEqual(body["allowed"], []any{"name", "price", "category", "description"}) {
		t.Errorf("expected the allowed set, got %v", body["allowed"])
	}

	// The stored document is untouched.
	_, doc := do(t, http.MethodGet, srv.URL+"/api/items/"+id, "")
	if _, ok := doc["color"]; ok {
		t.Error("rejected patch must not reach the store")
	}
}

func TestPatch_EmptyBody(t *testing.T) {
	_, srv := newServer(t)
	id := createWidget(t, srv)

	resp, _ := do(t, http.MethodPatch, srv.URL+"/api/items/"+id, `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for empty patch, got %d", resp.StatusCode)
	}
}

func TestInvalidID_GatewayUntouched(t *testing.T) {
	tg := &trackingGateway{Gateway: store.NewMemory()}
	h := api.New(tg, slog.New(slog.NewTextHandler(testWriter{t}, nil)))
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/items/not-a-uuid", ""},
		{http.MethodPut, "/api/items/not-a-uuid", `{"name":"X","price":1,"category":"y"}`},
		{http.MethodPatch, "/api/items/not-a-uuid", `{"price":1}`},
		{http.MethodDelete, "/api/items/not-a-uuid", ""},
	} {
		resp, body := do(t, tc.method, srv.URL+tc.path, tc.body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d: %v", tc.method, resp.StatusCode, body)
		}
	}
	if tg.calls != 0 {
		t.Errorf("gateway must not be reached on invalid ids, saw %d calls", tg.calls)
	}
}

func TestWellFormedMissingID(t *testing.T) {
	_, srv := newServer(t)
	missing := item.NewID().String()

	for _, tc := range []struct{ method, body string }{
		{http.MethodGet, ""},
		{http.MethodPut, `{"name":"X","price":1,"category":"y"}`},
		{http.MethodPatch, `{"price":1}`},
		{http.MethodDelete, ""},
	} {
		resp, _ := do(t, tc.method, srv.URL+"/api/items/"+missing, tc.body)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", tc.method, resp.StatusCode)
		}
	}
}

func TestList(t *testing.T) {
	_, srv := newServer(t)

	for _, payload := range []string{
		`{"name":"Hammer","price":25,"category":"tools"}`,
		`{"name":"Screwdriver","price":12,"category":"tools"}`,
		`{"name":"Apple","price":1,"category":"food"}`,
	} {
		do(t, http.MethodPost, srv.URL+"/api/items", payload)
	}

	resp, body := do(t, http.MethodGet, srv.URL+"/api/items", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["count"] != 3.0 {
		t.Errorf("expected count 3, got %v", body["count"])
	}

	resp, body = do(t, http.MethodGet,
		srv.URL+"/api/items?category=tools&minPrice=10&sort=price&fields=name,price", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	items, _ := body["items"].([]any)
	want := []any{
		map[string]any{"name": "Screwdriver", "price": 12.0},
		map[string]any{"name": "Hammer", "price": 25.0},
	}
	if !reflect.DeepEqual(items, want) {
		t.Errorf("expected %v, got %v", want, items)
	}
}

func TestList_BadMinPrice(t *testing.T) {
	_, srv := newServer(t)

	resp, _ := do(t, http.MethodGet, srv.URL+"/api/items?minPrice=cheap", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestLegacyProducts(t *testing.T) {
	gateway, srv := newServer(t)

	ts := item.Timestamp(time.Now())
	_, err := gateway.Create(context.Background(), item.LegacyCollection, item.Fields{
		"name": "Old Widget", "price": 4.99, "category": "legacy",
		"description": "", "createdAt": ts, "updatedAt": ts,
	})
	if err != nil {
		t.Fatalf("seed products: %v", err)
	}

	resp, body := do(t, http.MethodGet, srv.URL+"/api/products", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["count"] != 1.0 {
		t.Errorf("expected count 1, got %v", body["count"])
	}
	products, _ := body["products"].([]any)
	if len(products) != 1 {
		t.Fatalf("expected a products array, got %v", body)
	}
}

func TestRouteNotFound(t *testing.T) {
	_, srv := newServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/nope", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if body["error"] != "API endpoint not found" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestInternalFailureHidden(t *testing.T) {
	h := api.New(failingGateway{}, slog.New(slog.NewTextHandler(testWriter{t}, nil)))
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/items", "")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if body["error"] != "internal server error" {
		t.Errorf("internal detail must not leak: %v", body)
	}
}

func TestHealth(t *testing.T) {
	_, srv := newServer(t)
	resp, _ := do(t, http.MethodGet, srv.URL+"/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

// trackingGateway counts calls that reach the store.
type trackingGateway struct {
	store.Gateway
	calls int
}

func (g *trackingGateway) Get(ctx context.Context, collection string, id item.ID) (map[string]any, error) {
	g.calls++
	return g.Gateway.Get(ctx, collection, id)
}

func (g *trackingGateway) Replace(ctx context.Context, collection string, id item.ID, fields item.Fields) error {
	g.calls++
	return g.Gateway.Replace(ctx, collection, id, fields)
}

func (g *trackingGateway) Patch(ctx context.Context, collection string, id item.ID, fields item.Fields) error {
	g.calls++
	return g.Gateway.Patch(ctx, collection, id, fields)
}

func (g *trackingGateway) Delete(ctx context.Context, collection string, id item.ID) error {
	g.calls++
	return g.Gateway.Delete(ctx, collection, id)
}

// failingGateway simulates a store transport failure.
type failingGateway struct{}

var errDown = errors.New("connection refused")

func (failingGateway) List(context.Context, string, query.Query) ([]map[string]any, error) {
	return nil, errDown
}
func (failingGateway) Get(context.Context, string, item.ID) (map[string]any, error) {
	return nil, errDown
}
func (failingGateway) Create(context.Context, string, item.Fields) (item.ID, error) {
	return "", errDown
}
func (failingGateway) Replace(context.Context, string, item.ID, item.Fields) error { return errDown }
func (failingGateway) Patch(context.Context, string, item.ID, item.Fields) error   { return errDown }
func (failingGateway) Delete(context.Context, string, item.ID) error               { return errDown }
