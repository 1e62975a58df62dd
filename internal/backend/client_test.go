package backend

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL}, StaticToken("tok"), discardLogger(), nil, nil)
}

func TestSearchClientsByName(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/search", r.URL.Path)
		assert.Equal(t, "Frío Sur", r.URL.Query().Get("q"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[
			{"_id":"64b7f0c2a1b2c3d4e5f60718","nombre":"Frío Sur SA","sucursales":["a1","a2"]},
			{"id":"64b7f0c2a1b2c3d4e5f60719","name":"Frío Sur Norte","branches":[{"_id":"b1","nombre":"Casa central"}]},
			{"nombre":"sin id"}
		]`))
	})

	recs, err := c.SearchClientsByName(context.Background(), " Frío Sur ")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "64b7f0c2a1b2c3d4e5f60718", recs[0].ID)
	assert.Equal(t, "Frío Sur SA", recs[0].DisplayName())
	assert.Equal(t, []string{"a1", "a2"}, recs[0].BranchIDs)
	assert.Equal(t, []Branch{{ID: "b1", Name: "Casa central"}}, recs[1].Branches)
}

func TestSearchClientsByNameEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"_id":{"$oid":"64b7f0c2a1b2c3d4e5f60718"},"razonSocial":"ACME"}]}`))
	})
	recs, err := c.SearchClientsByName(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "64b7f0c2a1b2c3d4e5f60718", recs[0].ID)
	assert.Equal(t, "ACME", recs[0].Name)
}

func TestSearchClientsByNameStatuses(t *testing.T) {
	cases := []struct {
		name        string
		status      int
		wantErr     error
		wantMatches int
	}{
		{"not found means no matches", http.StatusNotFound, nil, 0},
		{"unauthorized", http.StatusUnauthorized, ErrUnavailable, 0},
		{"forbidden", http.StatusForbidden, ErrUnavailable, 0},
		{"server error", http.StatusBadGateway, ErrUnavailable, 0},
		{"bad request", http.StatusBadRequest, ErrUnavailable, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			})
			recs, err := c.SearchClientsByName(context.Background(), "x")
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, recs)
				return
			}
			require.NoError(t, err)
			assert.Len(t, recs, tc.wantMatches)
		})
	}
}

func TestSearchClientsByNameNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Config{BaseURL: url}, nil, discardLogger(), nil, nil)
	_, err := c.SearchClientsByName(context.Background(), "x")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGetClientByID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/user/64b7f0c2a1b2c3d4e5f60718":
			_, _ = w.Write([]byte(`{"_id":"64b7f0c2a1b2c3d4e5f60718","nombre":"Ana","apellido":"Gómez"}`))
		case "/users/user/64b7f0c2a1b2c3d4e5f6071a":
			_, _ = w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	rec, err := c.GetClientByID(context.Background(), "64b7f0c2a1b2c3d4e5f60718")
	require.NoError(t, err)
	assert.Equal(t, "Ana Gómez", rec.DisplayName())

	_, err = c.GetClientByID(context.Background(), "64b7f0c2a1b2c3d4e5f6071a")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.GetClientByID(context.Background(), "ffffffffffffffffffffffff")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBranchesResolvesReferencedIDs(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch r.URL.Path {
		case "/sucursales/a1":
			_, _ = w.Write([]byte(`{"_id":"a1","nombre":"Depósito"}`))
		case "/sucursales/a2":
			_, _ = w.Write([]byte(`{"data":{"id":"a2","direccion":"Av. Siempreviva 742"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	rec := ClientRecord{
		ID:        "c1",
		Branches:  []Branch{{ID: "b0", Name: "Embebida"}},
		BranchIDs: []string{"a1", "gone", "a2"},
	}
	branches, err := c.Branches(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, []Branch{
		{ID: "b0", Name: "Embebida"},
		{ID: "a1", Name: "Depósito"},
		{ID: "a2", Name: "Av. Siempreviva 742", Address: "Av. Siempreviva 742"},
	}, branches)
	assert.Equal(t, 3, calls)
}

func TestBranchesPropagatesOutage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := c.Branches(context.Background(), ClientRecord{ID: "c1", BranchIDs: []string{"a1"}})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCreateQuote(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/cotizaciones", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"_id":"q-1","estado":"pendiente"}`))
	})

	rec, err := c.CreateQuote(context.Background(), map[string]any{"manoDeObra": 1500.0, "estado": "pendiente"})
	require.NoError(t, err)
	assert.Equal(t, "q-1", rec.ID)
	assert.InDelta(t, 1500, got["manoDeObra"], 1e-9)
}

func TestCreateQuoteFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"tipoDeTrabajo requerido"}`))
	})
	_, err := c.CreateQuote(context.Background(), map[string]any{})
	require.Error(t, err)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnprocessableEntity, statusErr.Status)
	assert.Contains(t, statusErr.Body, "tipoDeTrabajo")
}

func TestTokenFailureIsUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent without a token")
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, NewServiceTokenProvider(ServiceTokenConfig{}), discardLogger(), nil, nil)
	_, err := c.GetClientByID(context.Background(), "64b7f0c2a1b2c3d4e5f60718")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, err, ErrMissingSecret)
}
