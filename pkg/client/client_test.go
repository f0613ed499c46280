package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/domain"
	"github.com/narwhalmedia/mediaresolver/pkg/client"
)

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/media/search", r.URL.Path)
		assert.Equal(t, "naruto", r.URL.Query().Get("q"))
		assert.Equal(t, "anime", r.URL.Query().Get("type"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"query":"naruto","type":"anime","count":1,
			"results":[{"id":"` + uuid.NewString() + `","title":"Naruto","type":"anime","status":"completed","coverImage":"https://img/naruto.jpg"}]}`))
	}))
	defer server.Close()

	c := client.NewClient(server.URL+"/", nil)
	results, err := c.Search(context.Background(), "naruto", domain.TypeAnime, 1)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Naruto", results[0].Title)
	assert.Equal(t, "https://img/naruto.jpg", results[0].CoverImage)
}

func TestClient_SearchWithoutTypeOmitsParam(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.URL.Query()["type"]
		assert.False(t, present)
		_, _ = w.Write([]byte(`{"success":true,"results":[]}`))
	}))
	defer server.Close()

	results, err := client.NewClient(server.URL, nil).Search(context.Background(), "dune", domain.TypeAll, 5)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"error":"query is required"}`))
	}))
	defer server.Close()

	_, err := client.NewClient(server.URL, nil).Search(context.Background(), "", domain.TypeAll, 5)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "query is required", apiErr.Message)
}

func TestClient_Get(t *testing.T) {
	id := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/media/"+id.String() {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"error":"media not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"media":{"id":"` + id.String() + `","title":"Dark","type":"series","status":"completed"}}`))
	}))
	defer server.Close()
	c := client.NewClient(server.URL, nil)

	rec, err := c.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, domain.TypeSeries, rec.Type)

	_, err = c.Get(context.Background(), uuid.New())
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestClient_BatchSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/media/batch-search", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body struct {
			Items []client.Item `json:"items"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []client.Item{{ID: 1, Title: "Goblin", Type: "K-Drama"}, {ID: 2, Title: "???", Type: "Anime"}}, body.Items)

		_, _ = w.Write([]byte(`{"success":true,"results":[
			{"id":1,"found":true,"data":{"title":"Goblin","type":"kdrama","status":"completed","coverImage":"https://img/goblin.jpg"},"source":"database"},
			{"id":2,"found":false,"source":"none"}]}`))
	}))
	defer server.Close()

	matches, err := client.NewClient(server.URL, nil).BatchSearch(context.Background(), []client.Item{
		{ID: 1, Title: "Goblin", Type: "K-Drama"},
		{ID: 2, Title: "???", Type: "Anime"},
	})

	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.True(t, matches[0].Found)
	assert.Equal(t, "https://img/goblin.jpg", matches[0].Data.CoverImage)
	assert.Equal(t, "database", matches[0].Source)
	assert.False(t, matches[1].Found)
	assert.Nil(t, matches[1].Data)
}
