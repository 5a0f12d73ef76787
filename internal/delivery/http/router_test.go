package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gdugdh24/mpit2026-roulette/internal/delivery/http/handler"
	"github.com/gdugdh24/mpit2026-roulette/internal/delivery/http/middleware"
	"github.com/gdugdh24/mpit2026-roulette/internal/domain"
	"github.com/gdugdh24/mpit2026-roulette/internal/repository/memory"
	"github.com/gdugdh24/mpit2026-roulette/internal/usecase/auth"
	"github.com/gdugdh24/mpit2026-roulette/internal/usecase/friendship"
	"github.com/gdugdh24/mpit2026-roulette/internal/usecase/icebreaker"
	"github.com/gdugdh24/mpit2026-roulette/internal/usecase/matchmaking"
	"github.com/gdugdh24/mpit2026-roulette/internal/usecase/profile"
	"github.com/gdugdh24/mpit2026-roulette/internal/usecase/session"
	"github.com/gdugdh24/mpit2026-roulette/internal/usecase/watcher"
	"github.com/gin-gonic/gin"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// newTestEngine wires the whole API over the in-memory store.
func newTestEngine(t *testing.T, devLogin bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	tickets := memory.NewTicketRepository(store)
	sessions := memory.NewSessionRepository(store)
	friendships := memory.NewFriendshipRepository(store)
	profiles := memory.NewProfileRepository(store)
	feed := memory.NewChangeFeed()

	tokens := auth.NewTokenUseCase(testSecret, store)
	friends := friendship.NewFriendshipUseCase(sessions, friendships, profiles, discard)
	coordinator := matchmaking.NewMatchCoordinator(tickets, profiles, feed, matchmaking.Options{SessionTTL: time.Minute}, discard)
	sessionUseCase := session.NewSessionUseCase(sessions, tickets, friends, feed, discard)
	sessionWatcher := watcher.NewSessionWatcher(sessionUseCase, feed, 50*time.Millisecond, discard)
	icebreakers := icebreaker.NewIcebreakerUseCase(sessions, profiles, nil, nil, discard)

	router := NewRouter(
		handler.NewAuthHandler(tokens),
		handler.NewProfileHandler(profile.NewProfileUseCase(profiles, friends)),
		handler.NewMatchHandler(coordinator),
		handler.NewSessionHandler(sessionUseCase, sessionWatcher, icebreakers, discard),
		handler.NewFriendHandler(friends),
		middleware.NewAuthMiddleware(tokens),
		discard,
		devLogin,
	)
	return router.Setup()
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func login(t *testing.T, h http.Handler, userID int, name string, interests ...string) string {
	t.Helper()
	w := do(t, h, http.MethodPost, "/api/v1/auth/dev", "", gin.H{
		"user_id":      userID,
		"display_name": name,
		"interests":    interests,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("dev login: %d %s", w.Code, w.Body.String())
	}
	return decode[auth.DevLoginResponse](t, w).Token
}

// pair logs in two users and matches them, returning their tokens and the
// session id.
func pair(t *testing.T, h http.Handler) (string, string, string) {
	t.Helper()
	anna := login(t, h, 1, "Anna", "music", "hiking")
	boris := login(t, h, 2, "Boris", "hiking")

	w := do(t, h, http.MethodPost, "/api/v1/match/search", anna, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search: %d %s", w.Code, w.Body.String())
	}
	if got := decode[matchmaking.SearchResult](t, w); got.Status != domain.TicketWaiting {
		t.Fatalf("first searcher status = %s", got.Status)
	}

	w = do(t, h, http.MethodPost, "/api/v1/match/search", boris, nil)
	res := decode[matchmaking.SearchResult](t, w)
	if res.Status != domain.TicketMatched || res.SessionID == nil {
		t.Fatalf("second searcher = %+v", res)
	}
	if res.Partner == nil || res.Partner.UserID != 1 {
		t.Fatalf("partner = %+v", res.Partner)
	}
	return anna, boris, *res.SessionID
}

func TestHealth(t *testing.T) {
	h := newTestEngine(t, false)
	for _, method := range []string{http.MethodGet, http.MethodHead} {
		if w := do(t, h, method, "/health", "", nil); w.Code != http.StatusOK {
			t.Errorf("%s /health = %d", method, w.Code)
		}
	}
}

func TestAuth(t *testing.T) {
	t.Run("dev login disabled", func(t *testing.T) {
		h := newTestEngine(t, false)
		w := do(t, h, http.MethodPost, "/api/v1/auth/dev", "", gin.H{"user_id": 1, "display_name": "x"})
		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d", w.Code)
		}
	})

	t.Run("protected routes need a token", func(t *testing.T) {
		h := newTestEngine(t, true)
		if w := do(t, h, http.MethodPost, "/api/v1/match/search", "", nil); w.Code != http.StatusUnauthorized {
			t.Fatalf("no token = %d", w.Code)
		}
		if w := do(t, h, http.MethodPost, "/api/v1/match/search", "garbage", nil); w.Code != http.StatusUnauthorized {
			t.Fatalf("bad token = %d", w.Code)
		}
	})

	t.Run("me", func(t *testing.T) {
		h := newTestEngine(t, true)
		token := login(t, h, 7, "Vera")
		w := do(t, h, http.MethodGet, "/api/v1/auth/me", token, nil)
		if w.Code != http.StatusOK || decode[map[string]int](t, w)["user_id"] != 7 {
			t.Fatalf("me = %d %s", w.Code, w.Body.String())
		}
	})

	t.Run("token in query for GET", func(t *testing.T) {
		h := newTestEngine(t, true)
		token := login(t, h, 7, "Vera")
		w := do(t, h, http.MethodGet, "/api/v1/profile/me?access_token="+token, "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
	})
}

func TestMatchAndBecomeFriends(t *testing.T) {
	h := newTestEngine(t, true)
	anna, boris, sessionID := pair(t, h)
	path := "/api/v1/sessions/" + sessionID

	w := do(t, h, http.MethodGet, path, anna, nil)
	view := decode[domain.SessionView](t, w)
	if view.State != domain.StateActive || !view.OwesDecision || view.PartnerID != 2 {
		t.Fatalf("initial view = %+v", view)
	}

	w = do(t, h, http.MethodPost, path+"/decision", anna, gin.H{"decision": "yes"})
	if w.Code != http.StatusOK {
		t.Fatalf("decision: %d %s", w.Code, w.Body.String())
	}
	if view := decode[domain.SessionView](t, w); view.Ended || view.MyDecision != domain.DecisionYes {
		t.Fatalf("after first yes = %+v", view)
	}

	// The partner only learns that anna decided, not how.
	view = decode[domain.SessionView](t, do(t, h, http.MethodGet, path, boris, nil))
	if !view.PartnerDecided {
		t.Fatalf("boris view = %+v", view)
	}

	w = do(t, h, http.MethodPost, path+"/decision", boris, gin.H{"decision": "yes"})
	view = decode[domain.SessionView](t, w)
	if !view.Ended || view.EndedReason != domain.EndedBothYes || !view.Friends {
		t.Fatalf("after both yes = %+v", view)
	}

	w = do(t, h, http.MethodGet, "/api/v1/friends", anna, nil)
	list := decode[struct {
		Friends []friendship.Friend `json:"friends"`
	}](t, w)
	if len(list.Friends) != 1 || list.Friends[0].UserID != 2 {
		t.Fatalf("friends = %s", w.Body.String())
	}

	card := decode[profile.ProfileCard](t, do(t, h, http.MethodGet, "/api/v1/profile/2", anna, nil))
	if !card.IsFriend || card.DisplayName != "Boris" {
		t.Fatalf("card = %+v", card)
	}

	// Both acknowledge; the second one archives the session.
	if got := decode[map[string]bool](t, do(t, h, http.MethodPost, path+"/ack", anna, nil)); got["archived"] {
		t.Fatal("archived after one acknowledgement")
	}
	if got := decode[map[string]bool](t, do(t, h, http.MethodPost, path+"/ack", boris, nil)); !got["archived"] {
		t.Fatal("not archived after both acknowledgements")
	}
	view = decode[domain.SessionView](t, do(t, h, http.MethodGet, path, anna, nil))
	if !view.Ended {
		t.Fatalf("archived session view = %+v", view)
	}
}

func TestDecisionErrors(t *testing.T) {
	h := newTestEngine(t, true)
	anna, _, sessionID := pair(t, h)
	outsider := login(t, h, 3, "Gleb")
	path := "/api/v1/sessions/" + sessionID

	if w := do(t, h, http.MethodPost, path+"/decision", anna, gin.H{"decision": "maybe"}); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid decision = %d", w.Code)
	}
	if w := do(t, h, http.MethodPost, path+"/decision", outsider, gin.H{"decision": "yes"}); w.Code != http.StatusForbidden {
		t.Fatalf("outsider = %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, path, outsider, nil); w.Code != http.StatusForbidden {
		t.Fatalf("outsider read = %d", w.Code)
	}

	do(t, h, http.MethodPost, path+"/decision", anna, gin.H{"decision": "yes"})
	if w := do(t, h, http.MethodPost, path+"/decision", anna, gin.H{"decision": "yes"}); w.Code != http.StatusOK {
		t.Fatalf("identical resubmit = %d", w.Code)
	}

	w := do(t, h, http.MethodPost, path+"/decision", anna, gin.H{"decision": "no"})
	if w.Code != http.StatusConflict {
		t.Fatalf("changed decision = %d", w.Code)
	}
	conflict := decode[handler.SessionConflictResponse](t, w)
	if conflict.Session.MyDecision != domain.DecisionYes {
		t.Fatalf("conflict view = %+v", conflict.Session)
	}
}

func TestLeaveAndDetach(t *testing.T) {
	h := newTestEngine(t, true)
	anna, boris, sessionID := pair(t, h)
	path := "/api/v1/sessions/" + sessionID

	w := do(t, h, http.MethodPost, path+"/detach", boris, nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("detach = %d", w.Code)
	}

	view := decode[domain.SessionView](t, do(t, h, http.MethodGet, path, anna, nil))
	if view.EndedReason != domain.EndedAbandoned || view.EndedBy == nil || *view.EndedBy != 2 {
		t.Fatalf("view after detach = %+v", view)
	}

	// Leaving an ended session reports the existing outcome.
	w = do(t, h, http.MethodPost, path+"/leave", anna, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("leave = %d", w.Code)
	}
	if got := decode[domain.SessionView](t, w); got.EndedBy == nil || *got.EndedBy != 2 {
		t.Fatalf("leave view = %+v", got)
	}

	w = do(t, h, http.MethodPost, path+"/decision", anna, gin.H{"decision": "yes"})
	if w.Code != http.StatusConflict {
		t.Fatalf("decision after end = %d", w.Code)
	}

	// Detach is a beacon and never fails visibly.
	if w := do(t, h, http.MethodPost, "/api/v1/sessions/unknown/detach", anna, nil); w.Code != http.StatusAccepted {
		t.Fatalf("detach unknown = %d", w.Code)
	}
}

func TestCancelSearch(t *testing.T) {
	h := newTestEngine(t, true)
	anna := login(t, h, 1, "Anna")
	boris := login(t, h, 2, "Boris")

	res := decode[matchmaking.SearchResult](t, do(t, h, http.MethodPost, "/api/v1/match/search", anna, nil))
	path := "/api/v1/match/search/" + res.TicketID

	if w := do(t, h, http.MethodDelete, path, boris, nil); w.Code != http.StatusForbidden {
		t.Fatalf("foreign cancel = %d", w.Code)
	}
	for i := 0; i < 2; i++ {
		if w := do(t, h, http.MethodDelete, path, anna, nil); w.Code != http.StatusOK {
			t.Fatalf("cancel #%d = %d", i, w.Code)
		}
	}

	got := decode[matchmaking.SearchResult](t, do(t, h, http.MethodGet, path, anna, nil))
	if got.Status != domain.TicketCancelled {
		t.Fatalf("status = %s", got.Status)
	}

	// A cancelled ticket is never claimed.
	got = decode[matchmaking.SearchResult](t, do(t, h, http.MethodPost, "/api/v1/match/search", boris, nil))
	if got.Status != domain.TicketWaiting {
		t.Fatalf("boris matched a cancelled ticket: %+v", got)
	}
}

func TestIcebreakers(t *testing.T) {
	h := newTestEngine(t, true)
	anna, _, sessionID := pair(t, h)
	path := "/api/v1/sessions/" + sessionID + "/icebreakers"

	w := do(t, h, http.MethodGet, path, anna, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d %s", w.Code, w.Body.String())
	}
	lines := decode[map[string][]string](t, w)["icebreakers"]
	if len(lines) == 0 || !strings.Contains(lines[0], "hiking") {
		t.Fatalf("icebreakers = %v", lines)
	}

	do(t, h, http.MethodPost, "/api/v1/sessions/"+sessionID+"/leave", anna, nil)
	if w := do(t, h, http.MethodGet, path, anna, nil); w.Code != http.StatusConflict {
		t.Fatalf("icebreakers after end = %d", w.Code)
	}
}

func TestSessionEventsStream(t *testing.T) {
	h := newTestEngine(t, true)
	anna, boris, sessionID := pair(t, h)

	srv := httptest.NewServer(h)
	defer srv.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(srv.URL + "/api/v1/sessions/" + sessionID + "/events?access_token=" + anna)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content type = %q", ct)
	}

	do(t, h, http.MethodPost, "/api/v1/sessions/"+sessionID+"/decision", boris, gin.H{"decision": "no"})

	// The stream ends on its own once the session is over.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if !strings.Contains(string(body), "event:session") || !strings.Contains(string(body), `"ended_reason":"one_no"`) {
		t.Fatalf("stream = %s", body)
	}
}

func TestTicketEventsStream(t *testing.T) {
	h := newTestEngine(t, true)
	anna := login(t, h, 1, "Anna")
	boris := login(t, h, 2, "Boris")

	res := decode[matchmaking.SearchResult](t, do(t, h, http.MethodPost, "/api/v1/match/search", anna, nil))

	srv := httptest.NewServer(h)
	defer srv.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(srv.URL + "/api/v1/match/search/" + res.TicketID + "/events?access_token=" + anna)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	do(t, h, http.MethodPost, "/api/v1/match/search", boris, nil)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if !strings.Contains(string(body), `"status":"matched"`) {
		t.Fatalf("stream = %s", body)
	}
}
