package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// client talks to the chat server's JSON endpoints.
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string, httpClient *http.Client) *client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

type chatReply struct {
	Text     string `json:"text"`
	Intent   string `json:"intent"`
	Fallback bool   `json:"fallback"`
}

func (c *client) send(ctx context.Context, sessionID, message string) (chatReply, error) {
	var reply chatReply
	err := c.post(ctx, "/chat", map[string]string{"message": message, "sessionId": sessionID}, http.StatusOK, &reply)
	return reply, err
}

func (c *client) reset(ctx context.Context, sessionID string) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	err := c.post(ctx, "/reset", map[string]string{"sessionId": sessionID}, http.StatusOK, &out)
	return out.Message, err
}

func (c *client) newSession(ctx context.Context) (string, error) {
	var out struct {
		SessionID string `json:"sessionId"`
	}
	err := c.post(ctx, "/session", struct{}{}, http.StatusCreated, &out)
	return out.SessionID, err
}

func (c *client) post(ctx context.Context, path string, body any, wantStatus int, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}

	if resp.StatusCode != wantStatus {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("POST %s: %s (%d)", path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("POST %s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
