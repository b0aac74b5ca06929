package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"

	"github.com/hushmap/hushmap/internal/db"
	"github.com/hushmap/hushmap/internal/feed"
	"github.com/hushmap/hushmap/internal/identity"
	"github.com/hushmap/hushmap/internal/story"
	"github.com/hushmap/hushmap/internal/validate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	engine *gin.Engine
	auth   *identity.Authenticator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	d, err := db.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), "ERROR")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := d.DB.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.Migrate(context.Background(), d.DB); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo := db.NewRepository(d.DB)
	candidates := feed.NewCachedCandidates(db.NewPostRepository(repo), nil, 0)
	feedSvc := feed.NewService(candidates, db.NewLikeRepository(repo), feed.Options{Window: 100, MaxRadiusMeters: 50000})
	storySvc := story.NewService(story.NewMemoryStore(), nil, nil, story.Options{})

	validator, err := validate.New()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	auth := identity.NewAuthenticator("test-secret", "hushmap")

	router := NewRouter(Deps{
		DB:                  d,
		Feed:                feedSvc,
		Candidates:          candidates,
		Stories:             storySvc,
		Auth:                auth,
		Validator:           validator,
		DefaultRadiusMeters: 5000,
		CandidateWindow:     100,
		MaxUploadSize:       1 << 20,
	})
	engine := gin.New()
	router.SetupRoutes(engine)

	return &testServer{engine: engine, auth: auth}
}

func (s *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := s.auth.Issue(userID, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

type rpcResult struct {
	Result json.RawMessage `json:"result"`
	Error  *JSONRPCError   `json:"error"`
}

func (s *testServer) rawCall(t *testing.T, user, body string) rpcResult {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(t, user))
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /rpc status = %d, body %s", w.Code, w.Body.String())
	}
	var res rpcResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return res
}

func (s *testServer) call(t *testing.T, user, method string, params interface{}) rpcResult {
	t.Helper()
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	body := fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"method":%q,"params":%s}`, method, raw)
	return s.rawCall(t, user, body)
}

// mustCall fails unless the call succeeded and decodes the result into dest
func (s *testServer) mustCall(t *testing.T, user, method string, params, dest interface{}) {
	t.Helper()
	res := s.call(t, user, method, params)
	if res.Error != nil {
		t.Fatalf("%s error: %+v", method, res.Error)
	}
	if dest != nil {
		if err := json.Unmarshal(res.Result, dest); err != nil {
			t.Fatalf("%s decode result: %v", method, err)
		}
	}
}

func expectCode(t *testing.T, res rpcResult, code int) {
	t.Helper()
	if res.Error == nil {
		t.Fatalf("expected error code %d, got result %s", code, res.Result)
	}
	if res.Error.Code != code {
		t.Errorf("error code = %d (%s), want %d", res.Error.Code, res.Error.Message, code)
	}
}

type secretResult struct {
	ID                 string   `json:"id"`
	AuthorID           string   `json:"authorId"`
	LikeCount          int64    `json:"likeCount"`
	CommentCount       int64    `json:"commentCount"`
	Score              int64    `json:"score"`
	IsAnonymous        bool     `json:"isAnonymous"`
	DistanceMeters     *float64 `json:"distanceMeters"`
	LikedByCurrentUser bool     `json:"likedByCurrentUser"`
	Mine               bool     `json:"mine"`
}

var sanFrancisco = map[string]float64{"latitude": 37.7749, "longitude": -122.4194}

func TestJSONRPCEnvelope(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "parse error", body: `{"jsonrpc":`, code: ErrParseError},
		{name: "wrong version", body: `{"jsonrpc":"1.0","id":1,"method":"secrets.get"}`, code: ErrInvalidRequest},
		{name: "missing method", body: `{"jsonrpc":"2.0","id":1}`, code: ErrInvalidRequest},
		{name: "unknown method", body: `{"jsonrpc":"2.0","id":1,"method":"secrets.nope"}`, code: ErrMethodNotFound},
		{name: "schema violation", body: `{"jsonrpc":"2.0","id":1,"method":"secrets.get_feed","params":{"strategy":"hot"}}`, code: ErrInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectCode(t, s.rawCall(t, "", tt.body), tt.code)
		})
	}
}

func TestSecretsFlow(t *testing.T) {
	s := newTestServer(t)

	create := map[string]interface{}{"text": "I never left", "location": sanFrancisco}
	expectCode(t, s.call(t, "", "secrets.create", create), ErrUnauthorized)

	var mine secretResult
	s.mustCall(t, "alice", "secrets.create", create, &mine)
	if mine.ID == "" || mine.AuthorID != "alice" || !mine.Mine {
		t.Fatalf("unexpected created secret: %+v", mine)
	}

	var anon secretResult
	s.mustCall(t, "bob", "secrets.create", map[string]interface{}{
		"text":        "nobody knows",
		"location":    map[string]float64{"latitude": 37.7760, "longitude": -122.4180},
		"isAnonymous": true,
		"hashtags":    []string{"night"},
	}, &anon)
	if anon.AuthorID != "" {
		t.Errorf("anonymous secret leaked author %q", anon.AuthorID)
	}

	// far away, outside any reasonable radius
	s.mustCall(t, "carol", "secrets.create", map[string]interface{}{
		"text":     "new york",
		"location": map[string]float64{"latitude": 40.7128, "longitude": -74.0060},
	}, nil)

	t.Run("feed requires location", func(t *testing.T) {
		expectCode(t, s.call(t, "carol", "secrets.get_feed", map[string]interface{}{}), ErrInvalidParams)
	})

	t.Run("toggle like", func(t *testing.T) {
		var state struct {
			Liked bool  `json:"liked"`
			Delta int64 `json:"delta"`
		}
		s.mustCall(t, "carol", "secrets.toggle_like", map[string]string{"postId": mine.ID}, &state)
		if !state.Liked || state.Delta != 1 {
			t.Errorf("first toggle = %+v, want liked +1", state)
		}
		s.mustCall(t, "carol", "secrets.toggle_like", map[string]string{"postId": mine.ID}, &state)
		if state.Liked || state.Delta != -1 {
			t.Errorf("second toggle = %+v, want unliked -1", state)
		}
		s.mustCall(t, "carol", "secrets.toggle_like", map[string]string{"postId": mine.ID}, &state)
		expectCode(t, s.call(t, "carol", "secrets.toggle_like", map[string]string{"postId": "missing"}), ErrNotFound)
	})

	t.Run("comments", func(t *testing.T) {
		s.mustCall(t, "dave", "secrets.add_comment", map[string]string{"postId": mine.ID, "text": "same"}, nil)
		s.mustCall(t, "erin", "secrets.add_comment", map[string]string{"postId": mine.ID, "text": "me too"}, nil)
		expectCode(t, s.call(t, "erin", "secrets.add_comment", map[string]string{"postId": mine.ID, "text": ""}), ErrInvalidParams)

		var comments []struct {
			AuthorID string `json:"authorId"`
			Text     string `json:"text"`
		}
		s.mustCall(t, "", "secrets.list_comments", map[string]string{"postId": mine.ID}, &comments)
		if len(comments) != 2 || comments[0].AuthorID != "dave" || comments[1].AuthorID != "erin" {
			t.Errorf("comments = %+v, want dave then erin", comments)
		}
	})

	t.Run("get", func(t *testing.T) {
		var got secretResult
		s.mustCall(t, "carol", "secrets.get", map[string]string{"id": mine.ID}, &got)
		if got.LikeCount != 1 || got.CommentCount != 2 || got.Score != 3 || !got.LikedByCurrentUser {
			t.Errorf("secrets.get = %+v", got)
		}
		expectCode(t, s.call(t, "carol", "secrets.get", map[string]string{"id": "missing"}), ErrNotFound)
	})

	t.Run("feed", func(t *testing.T) {
		var entries []secretResult
		s.mustCall(t, "carol", "secrets.get_feed", map[string]interface{}{
			"location":     sanFrancisco,
			"radiusMeters": 1000,
			"strategy":     "popular",
		}, &entries)

		if len(entries) != 2 {
			t.Fatalf("feed has %d entries, want 2", len(entries))
		}
		if entries[0].ID != mine.ID || !entries[0].LikedByCurrentUser {
			t.Errorf("popular feed head = %+v, want liked %s", entries[0], mine.ID)
		}
		if entries[1].AuthorID != "" || !entries[1].IsAnonymous {
			t.Errorf("anonymous entry = %+v", entries[1])
		}
		if entries[0].DistanceMeters == nil || *entries[0].DistanceMeters > 1 {
			t.Errorf("distance = %v, want ~0", entries[0].DistanceMeters)
		}

		s.mustCall(t, "bob", "secrets.get_feed", map[string]interface{}{"location": sanFrancisco, "strategy": "nearby"}, &entries)
		if len(entries) != 2 || !entries[1].Mine {
			t.Errorf("bob should see his anonymous secret marked mine: %+v", entries)
		}

		s.mustCall(t, "", "secrets.get_feed", map[string]interface{}{"location": sanFrancisco, "radiusMeters": 0}, &entries)
		if len(entries) != 0 {
			t.Errorf("zero radius feed = %d entries, want 0", len(entries))
		}
	})
}

func TestStoriesFlow(t *testing.T) {
	s := newTestServer(t)

	var st struct {
		ID        string `json:"id"`
		CreatedAt int64  `json:"createdAt"`
		ExpiresAt int64  `json:"expiresAt"`
	}
	expectCode(t, s.call(t, "", "stories.create", map[string]string{"imageUrl": "https://img/a.jpg"}), ErrUnauthorized)
	expectCode(t, s.call(t, "alice", "stories.create", map[string]string{"caption": "no image"}), ErrInvalidParams)
	s.mustCall(t, "alice", "stories.create", map[string]string{"imageUrl": "https://img/a.jpg", "caption": "sunset"}, &st)
	if st.ExpiresAt-st.CreatedAt != story.TTL {
		t.Errorf("expiresAt - createdAt = %d", st.ExpiresAt-st.CreatedAt)
	}
	s.mustCall(t, "bob", "stories.create", map[string]string{"imageUrl": "https://img/b.jpg"}, nil)

	var groups []struct {
		AuthorID string `json:"authorId"`
		Stories  []struct {
			ID string `json:"id"`
		} `json:"stories"`
	}
	s.mustCall(t, "", "stories.list_active", nil, &groups)
	if len(groups) != 2 {
		t.Fatalf("groups = %+v, want 2 authors", groups)
	}

	var view struct {
		FirstView bool `json:"firstView"`
	}
	s.mustCall(t, "bob", "stories.view", map[string]string{"storyId": st.ID}, &view)
	if !view.FirstView {
		t.Error("first view not reported")
	}
	s.mustCall(t, "bob", "stories.view", map[string]string{"storyId": st.ID}, &view)
	if view.FirstView {
		t.Error("repeat view reported as first")
	}

	expectCode(t, s.call(t, "bob", "stories.delete", map[string]string{"storyId": st.ID}), ErrForbidden)
	s.mustCall(t, "alice", "stories.delete", map[string]string{"storyId": st.ID}, nil)
	expectCode(t, s.call(t, "bob", "stories.view", map[string]string{"storyId": st.ID}), ErrNotFound)
	expectCode(t, s.call(t, "bob", "stories.view", map[string]string{}), ErrInvalidParams)
}

func TestSocialFlow(t *testing.T) {
	s := newTestServer(t)

	expectCode(t, s.call(t, "alice", "social.follow", map[string]string{"userId": "alice"}), ErrInvalidParams)
	expectCode(t, s.call(t, "", "social.follow", map[string]string{"userId": "bob"}), ErrUnauthorized)

	var res struct {
		Changed bool `json:"changed"`
	}
	s.mustCall(t, "alice", "social.follow", map[string]string{"userId": "bob"}, &res)
	if !res.Changed {
		t.Error("first follow should change state")
	}
	s.mustCall(t, "alice", "social.follow", map[string]string{"userId": "bob"}, &res)
	if res.Changed {
		t.Error("repeat follow should not change state")
	}
	s.mustCall(t, "carol", "social.follow", map[string]string{"userId": "bob"}, nil)

	var counts struct {
		Followers int64 `json:"followers"`
		Following int64 `json:"following"`
	}
	s.mustCall(t, "", "social.get_follow_counts", map[string]string{"userId": "bob"}, &counts)
	if counts.Followers != 2 || counts.Following != 0 {
		t.Errorf("bob counts = %+v, want 2/0", counts)
	}
	s.mustCall(t, "alice", "social.get_follow_counts", nil, &counts)
	if counts.Followers != 0 || counts.Following != 1 {
		t.Errorf("alice counts = %+v, want 0/1", counts)
	}

	s.mustCall(t, "carol", "social.unfollow", map[string]string{"userId": "bob"}, &res)
	if !res.Changed {
		t.Error("unfollow should change state")
	}

	var profile struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
		Bio         string `json:"bio"`
		Followers   int64  `json:"followers"`
		IsFollowing bool   `json:"isFollowing"`
	}
	s.mustCall(t, "bob", "profile.update", map[string]string{"displayName": " Bob ", "bio": "quiet"}, &profile)
	if profile.DisplayName != "Bob" {
		t.Errorf("display name = %q, want trimmed", profile.DisplayName)
	}
	s.mustCall(t, "bob", "profile.update", map[string]string{"bio": "louder"}, &profile)
	if profile.DisplayName != "Bob" || profile.Bio != "louder" {
		t.Errorf("partial update lost fields: %+v", profile)
	}
	expectCode(t, s.call(t, "bob", "profile.update", map[string]string{"bio": strings.Repeat("x", 300)}), ErrInvalidParams)

	s.mustCall(t, "alice", "profile.get", map[string]string{"userId": "bob"}, &profile)
	if profile.Followers != 1 || !profile.IsFollowing || profile.Bio != "louder" {
		t.Errorf("profile.get = %+v", profile)
	}

	s.mustCall(t, "alice", "profile.get", map[string]string{"userId": "nobody"}, &profile)
	if profile.ID != "nobody" || profile.DisplayName != "" {
		t.Errorf("missing profile = %+v, want empty card", profile)
	}
	expectCode(t, s.call(t, "", "profile.get", nil), ErrUnauthorized)
}

func TestHTTPRoutes(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		header map[string]string
		want   int
	}{
		{name: "health", method: http.MethodGet, path: "/health", want: http.StatusOK},
		{name: "metrics", method: http.MethodGet, path: "/metrics", want: http.StatusOK},
		{name: "bad token", method: http.MethodGet, path: "/health", header: map[string]string{"Authorization": "Bearer nope"}, want: http.StatusUnauthorized},
		{name: "upload anonymous", method: http.MethodPost, path: "/media", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			s.engine.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("%s %s = %d, want %d", tt.method, tt.path, w.Code, tt.want)
			}
		})
	}

	t.Run("request id echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(requestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		s.engine.ServeHTTP(w, req)
		if got := w.Header().Get(requestIDHeader); got != "abc-123" {
			t.Errorf("request id = %q, want abc-123", got)
		}
	})
}

func TestUploadWithoutBackend(t *testing.T) {
	s := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "a.png")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	_ = mw.WriteField("destination", "stories")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/media", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.token(t, "alice"))
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("upload status = %d, want %d (%s)", w.Code, http.StatusServiceUnavailable, w.Body.String())
	}
}
