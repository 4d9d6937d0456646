package steam

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/roster-bot/internal/domain"
)

const id = "76561198000000001"

func fakeSteam(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New("key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func TestParseRaw(t *testing.T) {
	cases := []struct {
		in, id, vanity string
		bad            bool
	}{
		{in: id, id: id},
		{in: "  " + id + " ", id: id},
		{in: "https://steamcommunity.com/profiles/" + id + "/", id: id},
		{in: "steamcommunity.com/id/gaben", vanity: "gaben"},
		{in: "gaben", vanity: "gaben"},
		{in: "", bad: true},
		{in: "https://steamcommunity.com/groups/x", bad: true},
		{in: "not a steam id!", bad: true},
	}
	for _, c := range cases {
		gotID, gotVanity, err := parseRaw(c.in)
		if c.bad {
			assert.ErrorIs(t, err, domain.ErrInvalidIdentity, c.in)
			continue
		}
		require.NoError(t, err, c.in)
		assert.Equal(t, c.id, gotID, c.in)
		assert.Equal(t, c.vanity, gotVanity, c.in)
	}
}

func TestResolve_ID64(t *testing.T) {
	c := fakeSteam(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ISteamUser/GetPlayerSummaries/v0002/", r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{"response":{"players":[{"steamid":"` + id + `","personaname":" Gabe "}]}}`))
	})

	got, err := c.Resolve(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, got.CanonicalID)
	assert.Equal(t, "Gabe", got.DisplayName)
}

func TestResolve_Vanity(t *testing.T) {
	c := fakeSteam(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ISteamUser/ResolveVanityURL/v0001/":
			assert.Equal(t, "gaben", r.URL.Query().Get("vanityurl"))
			_, _ = w.Write([]byte(`{"response":{"steamid":"` + id + `","success":1}}`))
		default:
			_, _ = w.Write([]byte(`{"response":{"players":[{"steamid":"` + id + `","personaname":"Gabe"}]}}`))
		}
	})

	got, err := c.Resolve(context.Background(), "https://steamcommunity.com/id/gaben")
	require.NoError(t, err)
	assert.Equal(t, id, got.CanonicalID)
}

func TestResolve_UnknownVanityIsInvalid(t *testing.T) {
	c := fakeSteam(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":{"success":42,"message":"No match"}}`))
	})
	_, err := c.Resolve(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrInvalidIdentity)
}

func TestResolve_UnknownIDHasNoName(t *testing.T) {
	c := fakeSteam(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":{"players":[]}}`))
	})
	got, err := c.Resolve(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, got.CanonicalID)
	assert.Empty(t, got.DisplayName)
}

func TestResolve_APIErrorIsNotInvalidIdentity(t *testing.T) {
	c := fakeSteam(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	})
	got, err := c.Resolve(context.Background(), id)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrInvalidIdentity)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, id, got.CanonicalID)
}

func TestResolve_NoAPIKey(t *testing.T) {
	c := New("")
	_, err := c.Resolve(context.Background(), id)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}
