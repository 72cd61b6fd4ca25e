// Package bottest provides a fake Telegram Bot API server for tests.
package bottest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"sync"
	"testing"
	"time"
)

// Username is the username of the fake bot
const Username = "mashinato_test_bot"

// Request represents a Bot API request received by the server
type Request struct {
	Method      string
	ChatID      string
	Text        string
	ReplyMarkup string // JSON
}

// API is a fake Telegram Bot API recording every request
type API struct {
	*httptest.Server

	mu       sync.Mutex
	requests []Request
	serial   int
}

// NewAPI starts an API closed when the test ends, pass its URL as the bot's API URL
func NewAPI(t testing.TB) *API {
	t.Helper()
	a := &API{}
	a.Server = httptest.NewServer(http.HandlerFunc(a.handle))
	t.Cleanup(a.Close)
	return a
}

// Requests returns the recorded requests of the given method, all of them if method is empty
func (a *API) Requests(method string) []Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	var requests []Request
	for _, r := range a.requests {
		if method == "" || r.Method == method {
			requests = append(requests, r)
		}
	}
	return requests
}

// Messages returns the recorded `sendMessage` requests
func (a *API) Messages() []Request {
	return a.Requests("sendMessage")
}

// Reset forgets every recorded request
func (a *API) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = nil
}

func (a *API) handle(w http.ResponseWriter, r *http.Request) {
	var params map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&params)

	req := Request{
		Method:      path.Base(r.URL.Path),
		ChatID:      str(params["chat_id"]),
		Text:        str(params["text"]),
		ReplyMarkup: str(params["reply_markup"]),
	}
	a.mu.Lock()
	a.requests = append(a.requests, req)
	a.serial++
	id := a.serial
	a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch req.Method {
	case "getMe":
		fmt.Fprintf(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Mashinato","username":%q}}`, Username)
	case "sendMessage":
		text, _ := json.Marshal(req.Text)
		fmt.Fprintf(w, `{"ok":true,"result":{"message_id":%d,"date":%d,"chat":{"id":%s,"type":"private"},"text":%s}}`,
			id, time.Now().Unix(), req.ChatID, text)
	default:
		fmt.Fprint(w, `{"ok":true,"result":true}`)
	}
}

func str(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}
