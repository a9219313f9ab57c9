package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"citysafe/pkg/api"
	"citysafe/pkg/auth"
	"citysafe/pkg/config"
	"citysafe/pkg/external"
	"citysafe/pkg/live"
	"citysafe/pkg/media"
	"citysafe/pkg/models"
	"citysafe/pkg/store"
)

const signingKey = "backend-key-1"

type fixture struct {
	handler http.Handler
	hub     *live.Hub
	media   *media.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	require.NoError(t, store.Open(t.TempDir()))
	t.Cleanup(func() { _ = store.Close() })

	config.SetRuntime(&config.RuntimeConfig{
		BackendKeys: map[string]struct{}{signingKey: {}},
		SigningKeys: map[string]struct{}{signingKey: {}},
	})
	t.Cleanup(func() { config.SetRuntime(nil) })

	ms, err := media.NewStore(t.TempDir(), 0)
	require.NoError(t, err)

	hub := live.NewHub()
	h := api.Handler(api.Deps{Hub: hub, Media: ms})
	return &fixture{handler: h, hub: hub, media: ms}
}

// do sends a request as a signed frontend user. An empty user sends the
// request unsigned.
func (f *fixture) do(method, path, user string, body any) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("X-Role-Name", "frontend")
	if user != "" {
		req.Header.Set("X-User-ID", user)
		req.Header.Set("X-User-Signature", auth.Sign(signingKey, user))
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) doAdmin(method, path string, body any) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("X-Role-Name", "admin")
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func makeStaff(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, store.SaveProfile(models.Profile{ID: id, Role: models.RoleEmployee}))
}

func TestMessageLifecycle(t *testing.T) {
	f := newFixture(t)

	events, cancel := f.hub.Subscribe(live.ChatTopic("istanbul"))
	defer cancel()

	rr := f.do("POST", "/v1/channels/istanbul/messages", "alice", map[string]any{"body": "anyone near taksim?"})
	require.Equal(t, http.StatusCreated, rr.Code)
	var m models.Message
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m))
	require.NotEmpty(t, m.ID)
	require.Equal(t, "alice", m.Author)
	require.Equal(t, models.KindText, m.Kind)

	ev := <-events
	require.Equal(t, "message", ev.Type)

	// bob reads it
	rr = f.do("POST", "/v1/messages/"+m.ID+"/reads", "bob", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	// repeat read stays 200
	rr = f.do("POST", "/v1/messages/"+m.ID+"/reads", "bob", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.do("GET", "/v1/messages/"+m.ID, "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var got models.Message
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Equal(t, []string{"bob"}, got.ReadBy)

	// reactions
	rr = f.do("POST", "/v1/messages/"+m.ID+"/reactions", "bob", map[string]string{"reaction": "thumbs_up"})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = f.do("DELETE", "/v1/messages/"+m.ID+"/reactions", "bob", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	// listing still shows a single message
	rr = f.do("GET", "/v1/channels/istanbul/messages", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var msgs []models.Message
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &msgs))
	require.Len(t, msgs, 1)

	// only the author (or staff) may delete
	rr = f.do("DELETE", "/v1/messages/"+m.ID, "bob", nil)
	require.Equal(t, http.StatusForbidden, rr.Code)
	rr = f.do("DELETE", "/v1/messages/"+m.ID, "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.do("GET", "/v1/messages/"+m.ID, "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	got = models.Message{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.True(t, got.Deleted)
	require.Empty(t, got.Body)
}

func TestPostMessageRejectsBadPayloads(t *testing.T) {
	f := newFixture(t)

	rr := f.do("POST", "/v1/channels/istanbul/messages", "alice", map[string]any{"body": "x", "kind": "sticker"})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do("POST", "/v1/channels/istanbul/messages", "alice", map[string]any{"kind": "image"})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do("POST", "/v1/channels/istanbul/messages", "alice", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	// unsigned callers are rejected by the identity middleware
	rr = f.do("POST", "/v1/channels/istanbul/messages", "", map[string]any{"body": "x"})
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestChannelsListing(t *testing.T) {
	f := newFixture(t)
	rr := f.do("POST", "/v1/channels/istanbul/messages", "alice", map[string]any{"body": "hi"})
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = f.do("POST", "/v1/channels/ankara/messages", "bob", map[string]any{"body": "yo"})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = f.do("GET", "/v1/channels", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var chans []models.Channel
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &chans))
	require.Len(t, chans, 2)
}

func TestSOSLifecycle(t *testing.T) {
	f := newFixture(t)
	makeStaff(t, "officer")

	events, cancel := f.hub.Subscribe(live.TopicSOS)
	defer cancel()

	rr := f.do("POST", "/v1/sos", "alice", map[string]any{
		"type":     "medical",
		"urgency":  "critical",
		"message":  "need help",
		"location": map[string]any{"lat": 41.0, "lng": 28.9, "city": "istanbul"},
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	var a models.SOSAlert
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &a))
	require.Equal(t, models.SOSActive, a.Status)
	require.NotEmpty(t, a.Incident)
	require.Equal(t, "alice", a.User)

	require.Equal(t, "sos_created", (<-events).Type)

	// dashboard listing is staff only
	rr = f.do("GET", "/v1/sos", "alice", nil)
	require.Equal(t, http.StatusForbidden, rr.Code)
	rr = f.do("GET", "/v1/sos?status=active", "officer", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var alerts []models.SOSAlert
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &alerts))
	require.Len(t, alerts, 1)

	// owner sees their own alerts
	rr = f.do("GET", "/v1/sos/mine", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	// strangers cannot read someone else's alert
	rr = f.do("GET", "/v1/sos/"+a.ID, "mallory", nil)
	require.Equal(t, http.StatusForbidden, rr.Code)

	// assign is staff only
	rr = f.do("POST", "/v1/sos/"+a.ID+"/assign", "alice", nil)
	require.Equal(t, http.StatusForbidden, rr.Code)
	rr = f.do("POST", "/v1/sos/"+a.ID+"/assign", "officer", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &a))
	require.Equal(t, models.SOSResponding, a.Status)
	require.Equal(t, "officer", a.Responder)

	rr = f.do("POST", "/v1/sos/"+a.ID+"/resolve", "officer", map[string]string{"status": "resolved"})
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &a))
	require.Equal(t, models.SOSResolved, a.Status)
	require.NotZero(t, a.ResolvedTS)

	// terminal alerts reject further transitions
	rr = f.do("POST", "/v1/sos/"+a.ID+"/assign", "officer", nil)
	require.Equal(t, http.StatusConflict, rr.Code)
	rr = f.do("POST", "/v1/sos/"+a.ID+"/resolve", "officer", map[string]string{"status": "false_alarm"})
	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestSOSOwnerCanResolve(t *testing.T) {
	f := newFixture(t)
	rr := f.do("POST", "/v1/sos", "alice", map[string]any{
		"type":     "other",
		"location": map[string]any{"lat": 39.9, "lng": 32.8, "city": "ankara"},
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	var a models.SOSAlert
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &a))

	rr = f.do("POST", "/v1/sos/"+a.ID+"/resolve", "alice", map[string]string{"status": "false_alarm"})
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &a))
	require.Equal(t, models.SOSFalseAlarm, a.Status)
}

func TestSOSValidation(t *testing.T) {
	f := newFixture(t)

	rr := f.do("POST", "/v1/sos", "alice", map[string]any{"type": "earthquake", "location": map[string]any{"lat": 1.0, "lng": 1.0}})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do("POST", "/v1/sos", "alice", map[string]any{"type": "medical"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestProfileEndpoints(t *testing.T) {
	f := newFixture(t)

	payload := map[string]any{
		"name":    "Alice",
		"phone":   "+905551112233",
		"city":    "istanbul",
		"privacy": map[string]bool{"hide_phone": true},
	}
	rr := f.do("PUT", "/v1/profiles/alice", "alice", payload)
	require.Equal(t, http.StatusOK, rr.Code)

	// cannot write someone else's profile
	rr = f.do("PUT", "/v1/profiles/bob", "alice", payload)
	require.Equal(t, http.StatusForbidden, rr.Code)

	// stranger view hides the phone
	rr = f.do("GET", "/v1/profiles/alice", "bob", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var p models.Profile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	require.Empty(t, p.Phone)

	// owner view keeps it
	rr = f.do("GET", "/v1/profiles/alice", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	require.Equal(t, "+905551112233", p.Phone)

	// directory is staff only
	rr = f.do("GET", "/v1/profiles", "alice", nil)
	require.Equal(t, http.StatusForbidden, rr.Code)

	// role changes are admin only
	rr = f.do("POST", "/v1/profiles/alice/role", "alice", map[string]string{"role": "employee"})
	require.Equal(t, http.StatusForbidden, rr.Code)
	rr = f.doAdmin("POST", "/v1/profiles/alice/role", map[string]string{"role": "employee"})
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	require.Equal(t, models.RoleEmployee, p.Role)

	// freshly promoted employee can now list the directory
	rr = f.do("GET", "/v1/profiles", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)

	hash, err := auth.HashPassword("dispatch-pass")
	require.NoError(t, err)
	require.NoError(t, store.SaveProfile(models.Profile{ID: "officer", Role: models.RoleEmployee, PasswordHash: hash}))

	rr := f.do("POST", "/v1/login", "", map[string]string{"user": "officer", "password": "dispatch-pass"})
	require.Equal(t, http.StatusOK, rr.Code)
	var out map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Equal(t, "officer", out["user"])
	require.Equal(t, models.RoleEmployee, out["role"])
	require.Equal(t, auth.Sign(signingKey, "officer"), out["signature"])

	rr = f.do("POST", "/v1/login", "", map[string]string{"user": "officer", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	// same uniform error for unknown accounts
	rr = f.do("POST", "/v1/login", "", map[string]string{"user": "ghost", "password": "whatever"})
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSignEndpoint(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest("POST", "/v1/sign", strings.NewReader(`{"user":"alice"}`))
	req.Header.Set("X-Role-Name", "backend")
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	var out map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Equal(t, auth.Sign(signingKey, "alice"), out["signature"])

	// frontend keys cannot mint signatures
	rr = f.do("POST", "/v1/sign", "alice", map[string]string{"user": "alice"})
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestReportFlow(t *testing.T) {
	f := newFixture(t)
	makeStaff(t, "mod")

	rr := f.do("POST", "/v1/reports", "alice", map[string]string{
		"target_kind": "user", "target_id": "spammer", "flag": "spam",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	var rep models.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rep))
	require.Equal(t, models.ReportOpen, rep.Status)
	require.Equal(t, "alice", rep.Reporter)

	// unknown flag rejected
	rr = f.do("POST", "/v1/reports", "alice", map[string]string{
		"target_kind": "user", "target_id": "x", "flag": "ugly",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	// reporting a nonexistent message 404s
	rr = f.do("POST", "/v1/reports", "alice", map[string]string{
		"target_kind": "message", "target_id": "missing", "flag": "spam",
	})
	require.Equal(t, http.StatusNotFound, rr.Code)

	// queue is staff only
	rr = f.do("GET", "/v1/reports?status=open", "alice", nil)
	require.Equal(t, http.StatusForbidden, rr.Code)
	rr = f.do("GET", "/v1/reports?status=open", "mod", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var reports []models.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &reports))
	require.Len(t, reports, 1)

	rr = f.do("POST", "/v1/reports/"+rep.ID+"/review", "mod", map[string]string{"status": "dismissed"})
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rep))
	require.Equal(t, models.ReportDismissed, rep.Status)
	require.Equal(t, "mod", rep.ReviewedBy)

	// already handled
	rr = f.do("POST", "/v1/reports/"+rep.ID+"/review", "mod", map[string]string{"status": "reviewed"})
	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestMediaUploadAndDownload(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "voice.m4a")
	require.NoError(t, err)
	_, err = fw.Write([]byte("audio-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/v1/media", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Role-Name", "frontend")
	req.Header.Set("X-User-ID", "alice")
	req.Header.Set("X-User-Signature", auth.Sign(signingKey, "alice"))
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var blob media.Blob
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &blob))
	require.Equal(t, "alice", blob.Owner)
	require.Equal(t, int64(len("audio-bytes")), blob.Size)

	rr = f.do("GET", "/v1/media/"+blob.ID, "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "audio-bytes", rr.Body.String())

	rr = f.do("GET", "/v1/media/nope", "", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestWeatherProxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"weather":[{"description":"clear sky"}],"main":{"temp":24.1},"name":"Ankara"}`))
	}))
	defer upstream.Close()

	require.NoError(t, store.Open(t.TempDir()))
	t.Cleanup(func() { _ = store.Close() })
	wc := external.NewWeatherClient(upstream.URL, "k", 0)
	h := api.Handler(api.Deps{Hub: live.NewHub(), Weather: wc})

	req := httptest.NewRequest("GET", "/v1/weather?lat=39.9&lon=32.8", nil)
	req.Header.Set("X-Role-Name", "frontend")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	var cond external.Conditions
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cond))
	require.Equal(t, "Ankara", cond.City)
	require.Equal(t, 24.1, cond.TempC)

	// missing params
	req = httptest.NewRequest("GET", "/v1/weather?lat=39.9", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWeatherProxyUnconfigured(t *testing.T) {
	h := api.Handler(api.Deps{Hub: live.NewHub()})
	req := httptest.NewRequest("GET", "/v1/weather?lat=1&lon=2", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestAdminSurface(t *testing.T) {
	f := newFixture(t)

	rr := f.do("POST", "/v1/channels/istanbul/messages", "alice", map[string]any{"body": "hi"})
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = f.do("POST", "/v1/sos", "alice", map[string]any{"type": "fire", "location": map[string]any{"lat": 1.0, "lng": 2.0}})
	require.Equal(t, http.StatusCreated, rr.Code)

	// non-admin callers are rejected
	rr = f.do("GET", "/v1/admin/stats", "alice", nil)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = f.doAdmin("GET", "/v1/admin/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	require.Equal(t, float64(1), stats["channels"])
	require.Equal(t, float64(1), stats["messages"])
	require.Equal(t, float64(1), stats["sos_total"])

	rr = f.doAdmin("GET", "/v1/admin/sos", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.doAdmin("GET", "/v1/admin/keys?prefix=chat:", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "chat:istanbul")
	require.NotContains(t, rr.Body.String(), "sos:alert:")
}

func TestAdminRetentionTrigger(t *testing.T) {
	ran := false
	require.NoError(t, store.Open(t.TempDir()))
	t.Cleanup(func() { _ = store.Close() })
	h := api.Handler(api.Deps{Hub: live.NewHub(), RetentionRun: func() error { ran = true; return nil }})

	req := httptest.NewRequest("POST", "/v1/admin/retention/run", nil)
	req.Header.Set("X-Role-Name", "admin")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, ran)
}

func TestLiveSSEStream(t *testing.T) {
	f := newFixture(t)

	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	req, err := http.NewRequest("GET", srv.URL+"/v1/channels/istanbul/live", nil)
	require.NoError(t, err)
	req.Header.Set("X-Role-Name", "frontend")
	req.Header.Set("X-User-ID", "alice")
	req.Header.Set("X-User-Signature", auth.Sign(signingKey, "alice"))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// wait for the subscriber to register, then publish
	for i := 0; i < 100 && f.hub.Subscribers(live.ChatTopic("istanbul")) == 0; i++ {
		time.Sleep(10 * time.Millisecond)
	}
	require.Positive(t, f.hub.Subscribers(live.ChatTopic("istanbul")))
	f.hub.PublishJSON(live.ChatTopic("istanbul"), "message", map[string]string{"id": "m1"})

	buf := make([]byte, 1024)
	n, err := resp.Body.Read(buf)
	require.NoError(t, err)
	require.Contains(t, string(buf[:n]), "event: message")
	require.Contains(t, string(buf[:n]), fmt.Sprintf("data: %s", `{"id":"m1"}`))
}

func TestLiveWebsocketStream(t *testing.T) {
	f := newFixture(t)

	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	hdr := http.Header{}
	hdr.Set("X-Role-Name", "frontend")
	hdr.Set("X-User-ID", "alice")
	hdr.Set("X-User-Signature", auth.Sign(signingKey, "alice"))
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/channels/istanbul/ws"

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, hdr)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// wait for the subscriber to register, then publish
	for i := 0; i < 100 && f.hub.Subscribers(live.ChatTopic("istanbul")) == 0; i++ {
		time.Sleep(10 * time.Millisecond)
	}
	require.Positive(t, f.hub.Subscribers(live.ChatTopic("istanbul")))
	f.hub.PublishJSON(live.ChatTopic("istanbul"), "message", map[string]string{"id": "m1"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev live.Event
	require.NoError(t, conn.ReadJSON(&ev))
	require.Equal(t, "message", ev.Type)
	require.JSONEq(t, `{"id":"m1"}`, string(ev.Data))
}
