package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rainit/rainit/backend/internal/analysis/intent"
	"github.com/rainit/rainit/backend/internal/model/chat"
	"github.com/rainit/rainit/backend/internal/model/persona"
	chatservice "github.com/rainit/rainit/backend/internal/service/chat"
	"github.com/rainit/rainit/backend/internal/service/dialogue"
)

type echoCompleter struct{}

func (echoCompleter) Complete(_ context.Context, _ []chat.Turn, _ string, text string) (string, error) {
	return "echo: " + text, nil
}

func (e echoCompleter) Stream(ctx context.Context, history []chat.Turn, instruction, text string, onDelta func(string)) (string, error) {
	out, err := e.Complete(ctx, history, instruction, text)
	onDelta(out)
	return out, err
}

func newTestRouter() (http.Handler, *chatservice.Service) {
	p := persona.Seed()[0]
	store := chatservice.NewService()
	coordinator := dialogue.New(store, intent.New(p), echoCompleter{}, p, zap.NewNop())

	return NewRouter(Dependencies{
		Personas:       persona.NewMemoryStore(persona.Seed()),
		Coordinator:    coordinator,
		AllowedOrigins: []string{"http://localhost:7072"},
		Logger:         zap.NewNop(),
	}), store
}

func TestRoutesServedAtRootAndAPI(t *testing.T) {
	router, store := newTestRouter()

	for _, prefix := range []string{"", "/api"} {
		req := httptest.NewRequest(http.MethodPost, prefix+"/chat", strings.NewReader(`{"message":"뭐 먹을까?"}`))
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		require.Equal(t, http.StatusOK, resp.Code, prefix)
		require.JSONEq(t, `{"text":"echo: 뭐 먹을까?","intent":"unhandled"}`, resp.Body.String())
	}
	require.Equal(t, 4, store.Len(chat.DefaultSessionID))

	for _, target := range []string{"/healthz", "/api/healthz", "/persona", "/api/persona"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusOK, resp.Code, target)
	}
}

func TestPreflightFromFrontend(t *testing.T) {
	router, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:7072")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, "http://localhost:7072", resp.Header().Get("Access-Control-Allow-Origin"))
}
