// ws_smoke logs in against a running server, tails the event feed, plays
// one round and then logs in again to watch the first feed get closed.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"coin_ledger/internal/logger"

	"github.com/gorilla/websocket"
)

func main() {
	base := flag.String("addr", "127.0.0.1:8080", "server host:port")
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	bet := flag.Int64("bet", 50, "dice stake")
	flag.Parse()
	logger.Init("debug", false)

	token := login(*base, *email, *password)

	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	wsURL := fmt.Sprintf("ws://%s/ws?token=%s", *base, url.QueryEscape(token))
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		logger.Fatal("dial feed", "error", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				logger.Info("feed closed", "error", err)
				return
			}
			logger.Info("event", "msg", string(msg))
		}
	}()

	status, body := post(*base, "/api/v1/games/dice/play", token, map[string]any{"bet": *bet})
	logger.Info("round", "status", status, "body", body)

	time.Sleep(500 * time.Millisecond)

	// второй логин вытесняет первую сессию
	_ = login(*base, *email, *password)

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		logger.Warn("feed still open after second login")
	}
	logger.Info("smoke test finished")
}

func login(base, email, password string) string {
	status, body := post(base, "/api/v1/auth/login", "", map[string]any{"email": email, "password": password})
	if status != http.StatusOK {
		logger.Fatal("login failed", "status", status, "body", body)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil || out.Token == "" {
		logger.Fatal("login response", "body", body)
	}
	return out.Token
}

func post(base, path, token string, payload any) (int, string) {
	b, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPost, "http://"+base+path, bytes.NewReader(b))
	if err != nil {
		logger.Fatal("build request", "error", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{Timeout: 5 * time.Second}
	res, err := client.Do(req)
	if err != nil {
		logger.Fatal("request", "path", path, "error", err)
	}
	defer res.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(res.Body)
	return res.StatusCode, buf.String()
}
