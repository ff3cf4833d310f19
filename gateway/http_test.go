package gateway

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"contractvm/core"
	"contractvm/internal/testutil"
)

func buildTestBundle(t *testing.T, indexHTML string) []byte {
	t.Helper()
	b, err := testutil.BuildContractBundle(nil, map[string][]byte{"index.html": []byte(indexHTML)})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func newTestServer(t *testing.T) (*Server, core.ContractKey) {
	t.Helper()
	sandbox, err := testutil.NewSandbox()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sandbox.Cleanup() })

	store, err := core.NewContractStore(sandbox.Root, 4, nil)
	if err != nil {
		t.Fatal(err)
	}

	key := core.NewContractKey([]byte("a contract"))
	if err := store.PutPackedState(key, buildTestBundle(t, "<html>hi</html>")); err != nil {
		t.Fatal(err)
	}

	return NewServer(store, sandbox.Path("bundles"), nil), key
}

func TestHandleHome(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("GET / status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestHandleContractServesIndexHTML(t *testing.T) {
	srv, key := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/contract/"+key.String(), nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /contract/{key} status = %d, want %d, body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "hi") {
		t.Errorf("response body = %q, want it to contain the bundle's index.html", rec.Body.String())
	}
}

func TestHandleContractLowercasesKey(t *testing.T) {
	srv, key := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/contract/"+strings.ToUpper(key.String()), nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("uppercase key should still resolve (spec.md §6 lowercases before decoding), got status %d", rec.Code)
	}
}

func TestHandleContractBadKeyIsBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/contract/not-a-valid-hex-key", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleContractUnknownKeyIsEmptyOK(t *testing.T) {
	srv, _ := newTestServer(t)
	unknown := core.NewContractKey([]byte("never stored"))
	req := httptest.NewRequest(http.MethodGet, "/contract/"+unknown.String(), nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want empty for a contract with no associated bundle", rec.Body.String())
	}
}

func TestHandleStateEchoesKey(t *testing.T) {
	srv, key := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/contract/"+key.String()+"/state", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != key.String() {
		t.Errorf("body = %q, want the echoed key %q", rec.Body.String(), key.String())
	}
}
