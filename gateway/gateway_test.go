package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darko-mesaros/adventures-of-json/component"
	"github.com/darko-mesaros/adventures-of-json/docstore"
	"github.com/darko-mesaros/adventures-of-json/errors"
)

const heroDocument = `{
	"name": "Hubert",
	"creation_date": "2024-01-15",
	"level": "5",
	"abilities": {
		"security": "3",
		"elasticity": "7",
		"durability": "2",
		"versioning": "true",
		"filtered": "false"
	},
	"inventory": ["map"],
	"services_visited": ["s3", "lambda", "worker", "queue"],
	"events": [{"created": "true"}, {"objectStoreRecursion": "2024-01-15"}]
}`

func newTestGateway(store docstore.Store) *Gateway {
	return New(DefaultConfig(), store, component.Dependencies{})
}

func postDocument(t *testing.T, g *Gateway, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/hubert", strings.NewReader(body))
	rec := httptest.NewRecorder()
	g.Handler()(rec, req)
	return rec
}

func responseMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp["message"]
}

func TestGateway_StoresValidDocument(t *testing.T) {
	store := docstore.NewMemoryStore()
	g := newTestGateway(store)

	rec := postDocument(t, g, heroDocument)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Item added successfully", responseMessage(t, rec))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	stored, err := store.Get(context.Background(), "Hubert")
	require.NoError(t, err)
	assert.Equal(t, float64(5), stored.Level)
	assert.True(t, stored.Abilities.Versioning)
	assert.False(t, stored.Abilities.Filtered)
}

func TestGateway_DuplicatePostLeavesOneItem(t *testing.T) {
	store := docstore.NewMemoryStore()
	g := newTestGateway(store)

	first := postDocument(t, g, heroDocument)
	second := postDocument(t, g, heroDocument)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, 1, store.Len())
}

func TestGateway_ValidationFailureListsFields(t *testing.T) {
	store := docstore.NewMemoryStore()
	g := newTestGateway(store)

	doc := `{
		"creation_date": "2024-01-15",
		"level": "not-a-number",
		"abilities": {
			"security": "3",
			"elasticity": "7",
			"durability": "2",
			"versioning": "true",
			"filtered": "false"
		},
		"inventory": ["map"],
		"services_visited": ["s3", "lambda"],
		"events": [{"x": "true"}, {"y": "true"}]
	}`
	rec := postDocument(t, g, doc)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	msg := responseMessage(t, rec)
	assert.True(t, strings.HasPrefix(msg, "Error: "))
	assert.Contains(t, msg, "name")
	assert.Contains(t, msg, "level")
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestGateway_MalformedJSONRejected(t *testing.T) {
	store := docstore.NewMemoryStore()
	g := newTestGateway(store)

	rec := postDocument(t, g, "not json at all")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.HasPrefix(responseMessage(t, rec), "Error: "))
	assert.Equal(t, 0, store.Len())
}

func TestGateway_MethodNotAllowed(t *testing.T) {
	g := newTestGateway(docstore.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/hubert", nil)
	rec := httptest.NewRecorder()
	g.Handler()(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestGateway_BodyTooLarge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRequestSize = 64
	g := New(cfg, docstore.NewMemoryStore(), component.Dependencies{})

	rec := postDocument(t, g, heroDocument)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestGateway_TransientStoreFailure(t *testing.T) {
	store := docstore.NewMemoryStore()
	store.FailWith(errors.ErrStorageUnavailable)
	g := newTestGateway(store)

	rec := postDocument(t, g, heroDocument)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Error: store temporarily unavailable", responseMessage(t, rec))
}

func TestGateway_StoreTimeout(t *testing.T) {
	store := docstore.NewMemoryStore()
	store.FailWith(context.DeadlineExceeded)
	g := newTestGateway(store)

	rec := postDocument(t, g, heroDocument)

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, "Error: store timeout", responseMessage(t, rec))
}

func TestGateway_FatalStoreFailure(t *testing.T) {
	store := docstore.NewMemoryStore()
	store.FailWith(errors.WrapFatal(errors.ErrMissingConfig, "MemoryStore", "Upsert", "wiring broken"))
	g := newTestGateway(store)

	rec := postDocument(t, g, heroDocument)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error: internal server error", responseMessage(t, rec))
}

func TestGateway_InitializeValidation(t *testing.T) {
	g := New(Config{}, nil, component.Dependencies{})
	err := g.Initialize()
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}
