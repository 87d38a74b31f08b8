package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"vitachat/app/client/gemini"
	"vitachat/app/client/player"
	"vitachat/app/client/speechkit"
	"vitachat/app/config"
	"vitachat/app/server"
	"vitachat/app/service/capture"
	"vitachat/app/service/conversation"
	"vitachat/app/service/dispatch"
	"vitachat/app/service/session"
	"vitachat/app/service/speech"
	"vitachat/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/joho/godotenv"
	"github.com/samber/do"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	_ = godotenv.Load()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, gemini.NewClient)
	do.Provide(di, func(di *do.Injector) (session.ModelFactory, error) {
		return do.MustInvoke[*gemini.Client](di), nil
	})

	if cfg.Speech.Enabled {
		do.Provide(di, speechkit.NewClient)
		do.Provide(di, func(di *do.Injector) (speech.Synthesizer, error) {
			return do.MustInvoke[*speechkit.YandexSpeechKit](di), nil
		})
		do.Provide(di, player.New)
		do.Provide(di, func(di *do.Injector) (speech.Player, error) {
			return do.MustInvoke[*player.FFPlay](di), nil
		})
	} else {
		do.ProvideValue[speech.Synthesizer](di, speech.Mute{})
		do.ProvideValue[speech.Player](di, speech.Mute{})
	}

	do.Provide(di, capture.NewFFmpegDevice)
	do.Provide(di, func(di *do.Injector) (capture.Device, error) {
		return do.MustInvoke[*capture.FFmpegDevice](di), nil
	})

	do.Provide(di, session.New)
	do.Provide(di, speech.New)
	do.Provide(di, capture.New)
	do.Provide(di, dispatch.New)
	do.Provide(di, func(di *do.Injector) (conversation.Dispatcher, error) {
		return do.MustInvoke[*dispatch.Service](di), nil
	})
	do.Provide(di, func(di *do.Injector) (conversation.Speaker, error) {
		return do.MustInvoke[*speech.Service](di), nil
	})
	do.Provide(di, conversation.New)
	do.Provide(di, server.New)

	slog.Info("Service started")

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	if cfg.Speech.Enabled {
		go do.MustInvoke[*speech.Service](di).RunRefreshLoop(appCtx)
	}

	go func() {
		if err := do.MustInvoke[*server.Server](di).Run(appCtx); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	}()

	<-appCtx.Done()
}
