package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	tb "gopkg.in/telebot.v3"

	"MashinatoBot/internal/auth"
	"MashinatoBot/internal/bot"
	"MashinatoBot/internal/db"
	"MashinatoBot/internal/events"
	"MashinatoBot/internal/locales"
	"MashinatoBot/internal/notify"
)

// response bodies
const (
	InternalErrorResponseBody       = "Internal error"
	RateLimitedResponseBody         = "Rate limited"
	UnauthorizedResponseBody        = "Unauthorized"
	TelegramRequestTokenHeader      = "X-Telegram-Bot-Api-Secret-Token"
	InvalidOAuthRequestResponseBody = "Authorization failed (invalid request)"
	CallbackPageTemplate            = "<!DOCTYPE html><html lang=\"%s\"><head><meta charset=\"utf-8\">%s<title>Mashinato Bot</title></head><body><h1>%s</h1><p>%s</p></body></html>\n"
	RedirectToChatMetaTemplate      = "<meta http-equiv=\"refresh\" content=\"0; url=tg://resolve?domain=%s\">"
)

const defaultMaxBodySize = 1 << 20

// dispatcher dispatches inbound events to the users, *notify.Router satisfies it
type dispatcher interface {
	Dispatch(ctx context.Context, e events.Event) (notify.Report, error)
}

// limiter rate limits the HTTP endpoints by client IP, *ratelimiters.Limiters satisfies it
type limiter interface {
	OAuthRedirectRequestAllowed(ctx context.Context, IP string) bool
	WebhookPushAllowed(ctx context.Context, IP string) bool
}

// server holds the dependencies of the HTTP handlers
type server struct {
	store    *db.Store
	auth     *auth.Manager
	bot      *bot.Bot
	router   dispatcher
	limiter  limiter // nil disables rate limiting
	webhook  WebhookConfig
	language string
	now      func() time.Time
}

// routes registers the handlers on a new ServeMux behind the middleware
func (s *server) routes(oauthRedirectPath, telegramBotWebhookPath string) http.Handler {
	r := http.NewServeMux()
	r.HandleFunc("GET /health", s.HandleHealth)
	r.HandleFunc("GET "+oauthRedirectPath, s.HandleOAuthRedirect)
	r.HandleFunc("POST "+s.webhook.Path, s.HandleWebhook)
	if telegramBotWebhookPath != "" { // long polling otherwise
		r.HandleFunc("POST "+telegramBotWebhookPath, s.HandleBotUpdate)
	}
	return middleware(r)
}

// HandleHealth reports whether the store is reachable
func (s *server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		log.Errorf("health check failed: %v", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintln(w, "Unhealthy")
		return
	}
	fmt.Fprintln(w, "OK")
}

// HandleBotUpdate handles an incoming Telegram Bot Update request
func (s *server) HandleBotUpdate(w http.ResponseWriter, r *http.Request) {
	// check if request is legit from Telegram
	if secret := s.bot.WebhookSecret(); secret != "" && r.Header.Get(TelegramRequestTokenHeader) != secret {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, defaultMaxBodySize))
	if err != nil {
		log.Errorf("failed to read request body: %v", err)
		return
	}
	if len(body) == 0 { // getting an additional empty request after normal update when using Cloudflare proxy, weird
		return
	}

	var update tb.Update
	if err = json.Unmarshal(body, &update); err != nil {
		log.WithField("IP", r.RemoteAddr).Errorf("invalid update: %v", err)
		return
	}

	// handle the update in the background and respond to the webhook request ASAP
	go s.bot.HandleUpdate(update)
}

// HandleOAuthRedirect handles an incoming identity provider OAuth redirect request
func (s *server) HandleOAuthRedirect(w http.ResponseWriter, r *http.Request) {
	logger := log.WithField("IP", r.RemoteAddr)
	query := r.URL.Query()

	if providerErr := query.Get("error"); providerErr != "" {
		logger.WithField("error", providerErr).Infof("authorization denied by the provider: %s", query.Get("error_description"))
		s.writeCallbackPage(w, http.StatusOK, false)
		return
	}

	code, state := query.Get("code"), query.Get("state")
	if code == "" || state == "" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintln(w, InvalidOAuthRequestResponseBody)
		return
	}

	if s.limiter != nil && !s.limiter.OAuthRedirectRequestAllowed(r.Context(), r.RemoteAddr) {
		logger.Info("OAuth redirect rate limited")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprintln(w, RateLimitedResponseBody)
		return
	}

	res, err := s.auth.CompleteLogin(r.Context(), code, state)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidState) {
			logger.WithField("state", state).Warn("invalid OAuth redirect request: unknown, expired or replayed state")
		} else {
			logger.WithFields(log.Fields{"UID": res.Session.UserID, "chat": res.ChatID}).Errorf("failed to complete login: %v", err)
		}
		s.bot.NotifyLogin(res, err)
		s.writeCallbackPage(w, http.StatusInternalServerError, false)
		return
	}

	s.bot.NotifyLogin(res, nil)
	s.writeCallbackPage(w, http.StatusOK, true)
}

// writeCallbackPage responds the HTML page shown in the user's browser after the OAuth redirect,
// a successful one also redirects the user back to the chat using Telegram URI scheme
func (s *server) writeCallbackPage(w http.ResponseWriter, status int, succeeded bool) {
	locale := locales.Get(s.language)
	title, body, meta := locale.CallbackFailedPageTitle, locale.CallbackFailedPageBody, ""
	if succeeded {
		title, body = locale.CallbackSucceededPageTitle, locale.CallbackSucceededPageBody
		meta = fmt.Sprintf(RedirectToChatMetaTemplate, html.EscapeString(s.bot.Username()))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, CallbackPageTemplate, html.EscapeString(s.language), meta, html.EscapeString(title), html.EscapeString(body))
}

// webhookResponse is the body of an accepted backend event push
type webhookResponse struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Delivered int    `json:"delivered"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

// HandleWebhook handles an incoming backend event push, verifying its signature before anything else
func (s *server) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	logger := log.WithField("IP", r.RemoteAddr)

	if s.limiter != nil && !s.limiter.WebhookPushAllowed(r.Context(), r.RemoteAddr) {
		logger.Info("webhook push rate limited")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprintln(w, RateLimitedResponseBody)
		return
	}

	maxBodySize := s.webhook.MaxBodySize
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxBodySize
	}
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		logger.Infof("failed to read webhook body: %v", err)
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		return
	}

	if s.webhook.Secret != "" {
		timestamp := r.Header.Get(events.TimestampHeader)
		err = events.VerifySignature(s.webhook.Secret, timestamp, r.Header.Get(events.SignatureHeader), body)
		if err == nil {
			err = events.CheckTimestamp(timestamp, s.now(), s.webhook.MaxSkew.Duration)
		}
		if err != nil {
			logger.Warnf("rejected webhook push: %v", err)
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprintln(w, UnauthorizedResponseBody)
			return
		}
	}

	e := events.Parse(body)
	logger = logger.WithFields(log.Fields{"event": e.ID, "type": e.Type})
	if e.Malformed() {
		logger.Warn("malformed webhook event")
	}

	report, err := s.dispatch(r.Context(), e)
	if err != nil {
		logger.Errorf("failed to dispatch event: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintln(w, InternalErrorResponseBody)
		return
	}
	logger.Infof("event dispatched: %d delivered, %d skipped, %d failed", report.Delivered, report.Skipped, report.Failed)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(webhookResponse{
		ID:        e.ID,
		Type:      e.Type,
		Delivered: report.Delivered,
		Skipped:   report.Skipped,
		Failed:    report.Failed,
	})
}

// dispatch hands the event to the router, turning a panic in the calling goroutine into an error.
// The router recovers panics of its own delivery goroutines.
func (s *server) dispatch(ctx context.Context, e events.Event) (report notify.Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch panicked: %v", r)
		}
	}()
	return s.router.Dispatch(ctx, e)
}

// middleware provides some useful middlewares for the server
func middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() { // returns an HTTP 500 response if the next handler got panicked
			if err := recover(); err != nil {
				log.Errorf("error recovered in request \"%s %s\": %v", r.Method, r.URL.Path, err)
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprintln(w, InternalErrorResponseBody)
				return
			}
		}()

		// gets client's real IP if serving behind Cloudflare
		if ip := r.Header.Get("Cf-Connecting-Ip"); ip != "" {
			r.RemoteAddr = ip
		} else if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			r.RemoteAddr = host
		}

		next.ServeHTTP(w, r)
	})
}
