package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/v78582514-blip/notes-app-clean/internal/kv"
	"github.com/v78582514-blip/notes-app-clean/internal/share"
	"github.com/v78582514-blip/notes-app-clean/internal/store"
	"github.com/v78582514-blip/notes-app-clean/internal/ws"
)

func newTestServer(t *testing.T) (*FiberServer, *store.Store) {
	t.Helper()
	st := store.New(kv.NewMemory(), zerolog.Nop())
	srv := New(st, ws.NewHub(zerolog.Nop()), share.LogSink{Log: zerolog.Nop()}, []byte("test-secret"), zerolog.Nop())
	srv.RegisterRoutes()
	return srv, st
}

func doJSON(t *testing.T, srv *FiberServer, method, path string, body any, token string) (*http.Response, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func TestCreateNote(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := doJSON(t, srv, http.MethodPost, "/notes", map[string]any{"text": "Buy milk"}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	note := body["note"].(map[string]any)
	require.Equal(t, "Buy milk", note["text"])
	require.NotEmpty(t, note["id"])

	// Blank notes are rejected.
	resp, _ = doJSON(t, srv, http.MethodPost, "/notes", map[string]any{"text": "  "}, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetNote_BadAndMissingID(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := doJSON(t, srv, http.MethodGet, "/notes/not-a-uuid", nil, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodGet, "/notes/00000000-0000-0000-0000-000000000000", nil, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateNote_PatchClearsColor(t *testing.T) {
	srv, st := newTestServer(t)
	n := st.AddNote(context.Background(), store.NewNote{Text: "x", Color: "#abcdef"})

	resp, body := doJSON(t, srv, http.MethodPut, "/notes/"+n.ID, map[string]any{"color": ""}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	note := body["note"].(map[string]any)
	require.Nil(t, note["color"])
	require.Equal(t, "x", note["text"])
}

func TestLinkAndGrid(t *testing.T) {
	srv, st := newTestServer(t)
	ctx := context.Background()

	a := st.AddNote(ctx, store.NewNote{Text: "Buy milk"})
	b := st.AddNote(ctx, store.NewNote{Text: "Buy eggs"})
	st.AddNote(ctx, store.NewNote{Text: "unrelated"})

	resp, body := doJSON(t, srv, http.MethodPost, "/notes/"+a.ID+"/link", map[string]any{"target_id": b.ID}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	group := body["group"].(map[string]any)
	gid := group["id"].(string)
	require.NotEmpty(t, gid)

	resp, body = doJSON(t, srv, http.MethodGet, "/grid?q=buy", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	first := items[0].(map[string]any)
	require.Equal(t, "group", first["kind"])

	// Ungrouping puts the note back on the grid.
	resp, _ = doJSON(t, srv, http.MethodPost, "/notes/"+a.ID+"/ungroup", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, body = doJSON(t, srv, http.MethodGet, "/grid", nil, "")
	require.Len(t, body["items"], 3) // group + note a + the loose note
}

func TestLinkNotes_SelfLink(t *testing.T) {
	srv, st := newTestServer(t)
	n := st.AddNote(context.Background(), store.NewNote{Text: "x"})

	resp, _ := doJSON(t, srv, http.MethodPost, "/notes/"+n.ID+"/link", map[string]any{"target_id": n.ID}, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPrivateGroupFlow(t *testing.T) {
	srv, st := newTestServer(t)
	ctx := context.Background()

	g := st.AddGroup(ctx, "Diary")
	n := st.AddNote(ctx, store.NewNote{Text: "dear diary"})
	require.NoError(t, st.AddToGroup(ctx, n.ID, g.ID))

	// Public group: members are readable without a token.
	resp, _ := doJSON(t, srv, http.MethodGet, "/groups/"+g.ID+"/notes", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Too-short password is rejected.
	resp, _ = doJSON(t, srv, http.MethodPost, "/groups/"+g.ID+"/password", map[string]any{"password": "abc"}, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodPost, "/groups/"+g.ID+"/password", map[string]any{"password": "sesame"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Locked now: no token is rejected by the gate.
	resp, _ = doJSON(t, srv, http.MethodGet, "/groups/"+g.ID+"/notes", nil, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Wrong password cannot unlock.
	resp, _ = doJSON(t, srv, http.MethodPost, "/groups/"+g.ID+"/unlock", map[string]any{"password": "Sesame"}, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := doJSON(t, srv, http.MethodPost, "/groups/"+g.ID+"/unlock", map[string]any{"password": "sesame"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := body["token"].(string)
	require.NotEmpty(t, token)

	resp, body = doJSON(t, srv, http.MethodGet, "/groups/"+g.ID+"/notes", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body["notes"], 1)

	// A token for one group does not open another.
	other := st.AddGroup(ctx, "Other")
	require.NoError(t, st.SetPassword(ctx, other.ID, "different"))
	resp, _ = doJSON(t, srv, http.MethodGet, "/groups/"+other.ID+"/notes", nil, token)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Clearing the password reopens the group for everyone.
	resp, _ = doJSON(t, srv, http.MethodDelete, "/groups/"+g.ID+"/password", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, srv, http.MethodGet, "/groups/"+g.ID+"/notes", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestExportImportGroup(t *testing.T) {
	srv, st := newTestServer(t)
	ctx := context.Background()

	a := st.AddNote(ctx, store.NewNote{Text: "a"})
	b := st.AddNote(ctx, store.NewNote{Text: "b"})
	g, err := st.LinkNotes(ctx, a.ID, b.ID)
	require.NoError(t, err)

	resp, body := doJSON(t, srv, http.MethodGet, "/groups/"+g.ID+"/export", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body["notes"], 2)

	resp, imported := doJSON(t, srv, http.MethodPost, "/import/group", body, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	newGroup := imported["group"].(map[string]any)
	require.NotEqual(t, g.ID, newGroup["id"])
	require.Len(t, imported["notes"], 2)
}

func TestShareNote(t *testing.T) {
	srv, st := newTestServer(t)
	n := st.AddNote(context.Background(), store.NewNote{Title: "Groceries", Text: "milk"})

	resp, body := doJSON(t, srv, http.MethodPost, "/notes/"+n.ID+"/share", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Groceries\nmilk", body["text"])
}

func TestHealthReportsStoreErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := doJSON(t, srv, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", body["status"])
	require.Empty(t, body["save_error"])
	require.Empty(t, body["load_error"])
}

func TestReloadRecoversFromCorruptState(t *testing.T) {
	mem := kv.NewMemory()
	st := store.New(mem, zerolog.Nop())
	srv := New(st, ws.NewHub(zerolog.Nop()), share.LogSink{Log: zerolog.Nop()}, []byte("test-secret"), zerolog.Nop())
	srv.RegisterRoutes()

	require.NoError(t, mem.Set(context.Background(), store.StateKey, "garbage"))
	require.Error(t, st.Load(context.Background()))

	resp, body := doJSON(t, srv, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, body["load_error"])

	// Repair the blob, retry through the API.
	require.NoError(t, mem.Set(context.Background(), store.StateKey, `{"version":1,"notes":[],"groups":[]}`))
	resp, body = doJSON(t, srv, http.MethodPost, "/reload", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, body["load_error"])
}

func TestDeleteGroupCascadesThroughAPI(t *testing.T) {
	srv, st := newTestServer(t)
	ctx := context.Background()

	a := st.AddNote(ctx, store.NewNote{Text: "a"})
	b := st.AddNote(ctx, store.NewNote{Text: "b"})
	g, err := st.LinkNotes(ctx, a.ID, b.ID)
	require.NoError(t, err)

	resp, _ := doJSON(t, srv, http.MethodDelete, "/groups/"+g.ID, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/notes/%s", a.ID), nil, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
