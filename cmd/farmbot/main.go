// cmd/farmbot/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/protanki-tools/farmbot/internal/bot"
	"github.com/protanki-tools/farmbot/internal/config"
	"github.com/protanki-tools/farmbot/internal/discord"
	"github.com/protanki-tools/farmbot/internal/farm"
	"github.com/protanki-tools/farmbot/internal/keepalive"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		logger.Fatalf("discord session: %v", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsGuildMembers

	store := farm.NewStore(logger)
	adapter := discord.NewAdapter(session, cfg.Category, cfg.OrganizerRole, logger)
	controller := farm.NewController(store, adapter, farm.Policy{
		AutoFinalizeOnFull:      cfg.AutoFinalizeOnFull,
		AutoReopenUnderCapacity: cfg.AutoReopenUnderCapacity,
	}, logger)

	b := bot.New(session, adapter, controller, logger)

	if err := session.Open(); err != nil {
		logger.Fatalf("discord connect: %v", err)
	}
	defer session.Close()

	if err := b.RegisterCommands(cfg.AppID, cfg.GuildID); err != nil {
		logger.Fatalf("command registration: %v", err)
	}

	server := keepalive.New(logger, store, cfg.Port)
	errc := make(chan error, 1)
	go func() {
		logger.Infof("keepalive listening on %s", server.Addr)
		errc <- server.ListenAndServe()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errc:
		if err != nil && err != http.ErrServerClosed {
			logger.Errorf("keepalive server exited: %v", err)
		}
	case sig := <-sigs:
		logger.Infof("terminating: %v", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warnf("keepalive shutdown: %v", err)
	}
}
