package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"MashinatoBot/internal/auth"
	"MashinatoBot/internal/bot"
	"MashinatoBot/internal/db"
	rl "MashinatoBot/internal/db/ratelimiters"
	"MashinatoBot/internal/jobs"
	"MashinatoBot/internal/notify"
	"MashinatoBot/pkg/idp"
)

func main() {
	defer func() {
		if err := recover(); err != nil {
			log.Fatalf("error recovered: %v", err)
		}
	}()

	configPath := flag.String("config", "./config.toml", "Config file path")
	flag.Parse()
	config := LoadConfig(*configPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := db.Open(ctx, config.Redis)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()
	limiters := rl.New(store.Client())

	manager := auth.NewManager(store, idp.New(config.OAuth), config.Auth)
	b, err := bot.New(config.TelegramBot, manager, store, limiters)
	if err != nil {
		log.Fatalf("failed to initialize bot: %v", err)
	}
	if err = b.Start(); err != nil {
		log.Fatalf("failed to start bot: %v", err)
	}
	defer b.Stop()

	j, err := jobs.New(config.JobsConfig, store, manager)
	if err != nil {
		log.Fatalf("failed to initialize jobs: %v", err)
	}
	j.Start()
	defer j.Stop()

	s := &server{
		store:    store,
		auth:     manager,
		bot:      b,
		router:   notify.NewRouter(store, b.Bot, b.Locale(), config.Webhook.Concurrency),
		limiter:  limiters,
		webhook:  config.Webhook,
		language: config.TelegramBot.Language,
		now:      time.Now,
	}
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      s.routes(config.OAuthRedirectPath, config.TelegramBotWebhookPath),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second, // a webhook push waits for its dispatch
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info("received SIGTERM, exiting")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("failed to shutdown HTTP server: %v", err)
		}
	}()

	if config.TLS.CertificatePath != "" && config.TLS.PrivateKeyPath != "" { // with HTTPS
		cert, e := tls.LoadX509KeyPair(config.TLS.CertificatePath, config.TLS.PrivateKeyPath)
		if e != nil {
			log.Errorf("failed to load TLS certificate: %v", e)
			return
		}

		srv.TLSConfig = &tls.Config{
			ServerName:   config.TLS.ServerName,
			Certificates: []tls.Certificate{cert},
		}
		log.Infof("started listening on %s (HTTPS)", srv.Addr)
		err = srv.ListenAndServeTLS("", "")
	} else { // without HTTPS
		log.Infof("started listening on %s", srv.Addr)
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("error returned by HTTP server: %v", err)
	}
}
