package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rainit/rainit/backend/internal/analysis/intent"
	"github.com/rainit/rainit/backend/internal/model/chat"
	"github.com/rainit/rainit/backend/internal/model/persona"
	"github.com/rainit/rainit/backend/internal/service/ai"
	chatservice "github.com/rainit/rainit/backend/internal/service/chat"
	"github.com/rainit/rainit/backend/internal/service/dialogue"
)

type firstPicker struct{}

func (firstPicker) IntN(int) int { return 0 }

type stubCompleter struct {
	reply   string
	err     error
	calls   int
	history []chat.Turn
}

func (s *stubCompleter) Complete(_ context.Context, history []chat.Turn, _ string, _ string) (string, error) {
	s.calls++
	s.history = history
	return s.reply, s.err
}

func (s *stubCompleter) Stream(ctx context.Context, history []chat.Turn, instruction, text string, onDelta func(string)) (string, error) {
	out, err := s.Complete(ctx, history, instruction, text)
	if err == nil {
		onDelta(out)
	}
	return out, err
}

func setupRouter(completer *stubCompleter) (*chi.Mux, *chatservice.Service) {
	p := persona.Seed()[0]
	store := chatservice.NewService()
	coordinator := dialogue.New(store, intent.New(p, intent.WithPicker(firstPicker{})), completer, p, zap.NewNop())

	r := chi.NewRouter()
	New(coordinator, zap.NewNop()).RegisterRoutes(r)
	return r, store
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestChatGreeting(t *testing.T) {
	r, store := setupRouter(&stubCompleter{reply: "unused"})

	resp := do(r, http.MethodPost, "/chat", `{"message":"안녕!"}`)
	require.Equal(t, http.StatusOK, resp.Code)

	var body chatResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, persona.Seed()[0].Greetings[0], body.Text)
	require.Equal(t, string(intent.Greeting), body.Intent)
	require.Equal(t, 2, store.Len(chat.DefaultSessionID))
}

func TestChatRejectsInvalidMessages(t *testing.T) {
	r, store := setupRouter(&stubCompleter{reply: "unused"})

	for name, body := range map[string]string{
		"missing":   `{}`,
		"empty":     `{"message":""}`,
		"number":    `{"message":42}`,
		"null":      `{"message":null}`,
		"malformed": `{"message":`,
		"noBody":    ``,
	} {
		t.Run(name, func(t *testing.T) {
			resp := do(r, http.MethodPost, "/chat", body)
			require.Equal(t, http.StatusBadRequest, resp.Code)
			require.Contains(t, resp.Body.String(), `"error"`)
		})
	}
	require.Zero(t, store.Len(chat.DefaultSessionID))
}

func TestChatFallbackKeepsStatusOK(t *testing.T) {
	completer := &stubCompleter{err: &ai.Error{Kind: ai.KindUpstream, Err: errors.New("503")}}
	r, store := setupRouter(completer)

	resp := do(r, http.MethodPost, "/chat", `{"message":"오늘 날씨 어때?"}`)
	require.Equal(t, http.StatusOK, resp.Code)

	var body chatResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, persona.DefaultFallbackReply, body.Text)
	require.True(t, body.Fallback)
	require.Equal(t, 1, completer.calls)
	require.Equal(t, 2, store.Len(chat.DefaultSessionID))
}

func TestChatUnknownSession(t *testing.T) {
	r, _ := setupRouter(&stubCompleter{reply: "ok"})

	resp := do(r, http.MethodPost, "/chat", `{"message":"안녕","sessionId":"nope"}`)
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestResetClearsLog(t *testing.T) {
	completer := &stubCompleter{reply: "응"}
	r, store := setupRouter(completer)

	for _, msg := range []string{"안녕", "취미가 뭐야?", "고양이 좋아해?"} {
		resp := do(r, http.MethodPost, "/chat", `{"message":"`+msg+`"}`)
		require.Equal(t, http.StatusOK, resp.Code)
	}
	require.Equal(t, 6, store.Len(chat.DefaultSessionID))

	resp := do(r, http.MethodPost, "/reset", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `{"message":"대화 기록이 초기화되었습니다."}`, resp.Body.String())
	require.Zero(t, store.Len(chat.DefaultSessionID))

	resp = do(r, http.MethodPost, "/chat", `{"message":"오늘 날씨 어때?"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, 2, completer.calls)
	require.Empty(t, completer.history)
	require.Equal(t, 2, store.Len(chat.DefaultSessionID))

	resp = do(r, http.MethodPost, "/reset", `{}`)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Zero(t, store.Len(chat.DefaultSessionID))
}

func TestResetIgnoresUndecodableBody(t *testing.T) {
	r, store := setupRouter(&stubCompleter{reply: "응"})

	session := do(r, http.MethodPost, "/session", "")
	require.Equal(t, http.StatusCreated, session.Code)
	var created chat.Session
	require.NoError(t, json.Unmarshal(session.Body.Bytes(), &created))

	for _, id := range []string{chat.DefaultSessionID, created.ID} {
		resp := do(r, http.MethodPost, "/chat", `{"message":"안녕","sessionId":"`+id+`"}`)
		require.Equal(t, http.StatusOK, resp.Code)
	}

	for _, body := range []string{"garbage", `{"sessionId":`, `{"sessionId":7}`} {
		resp := do(r, http.MethodPost, "/reset", body)
		require.Equal(t, http.StatusOK, resp.Code, body)
		require.JSONEq(t, `{"message":"대화 기록이 초기화되었습니다."}`, resp.Body.String())
	}
	require.Zero(t, store.Len(chat.DefaultSessionID))
	require.Equal(t, 2, store.Len(created.ID))

	resp := do(r, http.MethodPost, "/reset", `{"sessionId":"`+created.ID+`"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Zero(t, store.Len(created.ID))
}

func TestSessionAndHistory(t *testing.T) {
	r, _ := setupRouter(&stubCompleter{reply: "응"})

	resp := do(r, http.MethodPost, "/session", "")
	require.Equal(t, http.StatusCreated, resp.Code)

	var session chat.Session
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &session))
	require.NotEmpty(t, session.ID)

	resp = do(r, http.MethodPost, "/chat", `{"message":"반가워","sessionId":"`+session.ID+`"}`)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = do(r, http.MethodGet, "/history?sessionId="+session.ID, "")
	require.Equal(t, http.StatusOK, resp.Code)

	var history historyResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &history))
	require.Equal(t, session.ID, history.SessionID)
	require.Len(t, history.Turns, 2)
	require.Equal(t, "반가워", history.Turns[0].Text)

	resp = do(r, http.MethodGet, "/history", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `{"sessionId":"","turns":[]}`, resp.Body.String())
}
