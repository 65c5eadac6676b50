package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teleskop/fieldbridge/batch"
	"github.com/teleskop/fieldbridge/errors"
	"github.com/teleskop/fieldbridge/mapping"
	"github.com/teleskop/fieldbridge/schema"
	"github.com/teleskop/fieldbridge/session"
	"github.com/teleskop/fieldbridge/transform"
)

type stubBackend struct {
	fields  map[string][]schema.Field
	records map[string]schema.Record
}

func (b *stubBackend) FieldCatalog(ctx context.Context, providerID, projectID string) ([]schema.Field, error) {
	return b.fields[providerID], nil
}

func (b *stubBackend) RawRecord(ctx context.Context, providerID, recordID string) (schema.Record, error) {
	record, ok := b.records[recordID]
	if !ok {
		return nil, errors.NewRecordNotFound("record %s", recordID)
	}
	return record, nil
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	backend := &stubBackend{
		fields: map[string][]schema.Field{
			"testrail": {
				{ID: "title", Name: "Title", Type: schema.TypeString, Required: true},
			},
			"zephyr": {
				{ID: "summary", Name: "Summary", Type: schema.TypeString, Required: true},
			},
		},
		records: map[string]schema.Record{
			"TC-1": {"title": "Login works"},
		},
	}

	sess := session.New(session.Config{
		Source:     session.Scope{ProviderID: "testrail", ProjectID: "TR-1"},
		Target:     session.Scope{ProviderID: "zephyr", ProjectID: "Z-1"},
		Catalogs:   backend,
		Records:    backend,
		Dispatcher: transform.NewDispatcher(nil),
		RecordIDs:  []string{"TC-1", "TC-404"},
		Mappings: mapping.Set{
			{SourceFieldID: "title", TargetFieldID: "summary", Transformation: transform.NoneConfig()},
		},
	})

	srv := New(sess, zap.NewNop().Sugar(), []string{"http://localhost"})
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(func() {
		ts.Close()
		srv.Shutdown(context.Background())
	})
	return srv, ts
}

func getJSON(t *testing.T, url string, v interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp
}

func postJSON(t *testing.T, url string, v interface{}) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp
}

func TestStateEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	var msg StateMessage
	resp := getJSON(t, ts.URL+"/api/state", &msg)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "batch_state", msg.Type)
	assert.Equal(t, batch.StatusNotRequested, msg.State.Entries["TC-1"].Status)
}

func TestLoadPageEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	var msg StateMessage
	resp := postJSON(t, ts.URL+"/api/batch/page/1", &msg)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, batch.StatusReady, msg.State.Entries["TC-1"].Status)
	assert.Equal(t, batch.StatusFailed, msg.State.Entries["TC-404"].Status)
}

func TestLoadPageRejectsBadPage(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/batch/page/0", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPreviewEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	var p map[string]interface{}
	resp := getJSON(t, ts.URL+"/api/preview/TC-1", &p)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "TC-1", p["record_id"])

	resp = getJSON(t, ts.URL+"/api/preview/TC-404", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestValidateEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	var body struct {
		Messages []string `json:"messages"`
	}
	resp := getJSON(t, ts.URL+"/api/mappings/validate", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body.Messages)
}

func TestAutomapEndpoint(t *testing.T) {
	srv, ts := newTestServer(t)

	// The only target field is already mapped, so nothing is proposed
	var body struct {
		Proposed []mapping.FieldMapping `json:"proposed"`
		Mappings mapping.Set            `json:"mappings"`
	}
	resp := postJSON(t, ts.URL+"/api/mappings/automap", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body.Proposed)
	assert.Len(t, srv.session.Mappings(), 1)
}

func TestBroadcastSuppressesUnchangedState(t *testing.T) {
	srv, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// First broadcast ships the initial state
	srv.broadcastState()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	var msg StateMessage
	require.NoError(t, conn.ReadJSON(&msg))

	// Same state again: no frame may arrive, regardless of wall clock
	srv.broadcastState()
	srv.broadcastState()
	conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "received a redundant frame for unchanged state")
}

func TestWebSocketOriginEnforcement(t *testing.T) {
	_, ts := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	// Disallowed browser origin is refused at the handshake
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{
		"Origin": []string{"http://evil.example"},
	})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Allowed host matches regardless of port
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{
		"Origin": []string{"http://localhost:3000"},
	})
	require.NoError(t, err)
	conn.Close()
}

func TestWebSocketPushesStateOnChange(t *testing.T) {
	srv, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Ask for page 1 over the socket, then drive the broadcaster directly
	// rather than waiting out the push ticker.
	require.NoError(t, conn.WriteJSON(commandMessage{Type: "load_page", Page: 1}))
	require.Eventually(t, func() bool {
		return srv.session.BatchState().Entries["TC-1"].Status == batch.StatusReady
	}, time.Second, 5*time.Millisecond)
	srv.broadcastState()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var msg StateMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "batch_state", msg.Type)
	assert.Equal(t, batch.StatusReady, msg.State.Entries["TC-1"].Status)
}
