package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/chris/dayplan/config"
	"github.com/chris/dayplan/internal/api"
	"github.com/chris/dayplan/internal/discord"
	"github.com/chris/dayplan/internal/logger"
	"github.com/chris/dayplan/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Discord bot and the daily planning schedule",
	RunE:  runBot,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default API_ADDR or :8000)")
}

// newAPIHandler builds the HTTP API. It needs only a model client; missing
// credentials surface as failed /chat calls while mock requests keep working.
func newAPIHandler(cfg *config.Config) (http.Handler, error) {
	if err := cfg.Validate(); err != nil && errors.Is(err, config.ErrMissingKey) {
		logger.Warn("starting without model credentials, only mock chat requests will succeed", "err", err)
	}
	client, err := newLLMClient(cfg)
	if err != nil {
		return nil, err
	}
	return api.NewServer(client, parseOptions(cfg)).Routes(), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	handler, err := newAPIHandler(cfg)
	if err != nil {
		return err
	}

	addr := cfg.APIAddr
	if serveAddr != "" {
		addr = serveAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signalContext()
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", "addr", addr)
		fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	logger.Info("shutting down api")
	return srv.Shutdown(shutdownCtx)
}

func runBot(cmd *cobra.Command, args []string) error {
	if cfg.DiscordToken == "" && cfg.DiscordWebhook == "" {
		return errors.New("set DISCORD_BOT_TOKEN or DISCORD_WEBHOOK_URL")
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var dmSend func(userID, content string) error
	if cfg.DiscordToken != "" {
		bot, err := discord.NewBot(cfg.DiscordToken, a.planner, a.db, a.scenario)
		if err != nil {
			return err
		}
		defer bot.Close()
		dmSend = bot.SendDM
	}

	sched := scheduler.New(a.db, a.planner, a.scenario, cfg.DiscordWebhook, dmSend)
	if err := sched.SeedDefaultSchedule(cfg.PlanCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	fmt.Fprintln(cmd.OutOrStdout(), "bot is running. Press Ctrl+C to exit.")
	ctx, cancel := signalContext()
	defer cancel()
	<-ctx.Done()
	logger.Info("shutting down bot")
	return nil
}
