package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"shorts-publisher/domain/model"
	"shorts-publisher/domain/repository"
	"shorts-publisher/infrastructure/cache"
	tiktokclient "shorts-publisher/infrastructure/clients/tiktok"
	youtubeclient "shorts-publisher/infrastructure/clients/youtube"
	"shorts-publisher/infrastructure/configuration"
	"shorts-publisher/infrastructure/filecsv"
	"shorts-publisher/infrastructure/logger"
	"shorts-publisher/infrastructure/persistence"
	"shorts-publisher/infrastructure/realtime"
	httpHandler "shorts-publisher/interfaces/http"
	"shorts-publisher/interfaces/prompt"
	"shorts-publisher/server"
	"shorts-publisher/usecase"

	"golang.org/x/sync/errgroup"
)

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
		os.Exit(2)
	}
}

// Usage: shorts-publisher [video.mp4 ...]
// Without arguments every video in the configured directory is published.
func main() {
	defer recoverPanic()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil && !errors.Is(err, context.Canceled) {
		logger.GetLogger().WithField("error", err).Error("Publisher stopped with an error")
		os.Exit(1)
	}
}

func run(ctx context.Context, videos []string) error {
	configuration.LoadEnvFromFile("config.env", ".env")
	cfg, err := configuration.LoadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	platforms, err := cfg.Platforms()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	hub := realtime.NewResultHub()
	var (
		uploaders         []repository.IPlatformUploader
		authUsecase       usecase.IAuthUsecase
		tiktokAuthHandler httpHandler.ITikTokAuthHandler
	)

	if slices.Contains(platforms, model.PlatformTikTok) {
		tiktokClient := tiktokclient.NewTikTokClient(tiktokclient.Config{
			ClientKey:    cfg.TikTok.ClientKey,
			ClientSecret: cfg.TikTok.ClientSecret,
			RedirectURI:  cfg.TikTok.RedirectURI,
			APIBase:      cfg.TikTok.APIBase,
			AuthorizeURL: cfg.TikTok.AuthorizeURL,
			Scopes:       cfg.TikTok.Scopes,
		})

		var credentialPrompt repository.ICredentialPrompt
		var webPrompt *prompt.WebPrompt
		if cfg.Auth.PromptMode == configuration.PromptModeWeb {
			webPrompt = prompt.NewWebPrompt(fmt.Sprintf("http://localhost:%d", cfg.App.CallbackPort), cfg.App.SecretKey, cfg.Auth.PromptTimeout)
			credentialPrompt = webPrompt
		} else {
			credentialPrompt = prompt.NewConsolePrompt(os.Stdin, os.Stdout)
		}

		authUsecase, err = usecase.NewAuthUsecase(ctx,
			persistence.NewCredentialFileStore(cfg.TikTok.TokenFile),
			tiktokClient,
			credentialPrompt,
			usecase.AuthConfig{
				LoginURL:      cfg.TikTok.LoginURL,
				PromptTimeout: cfg.Auth.PromptTimeout,
				Seed: &model.Credential{
					AccessToken:  cfg.TikTok.AccessToken,
					RefreshToken: cfg.TikTok.RefreshToken,
					ExpiresAt:    cfg.TikTok.ExpiresAt,
				},
			})
		if err != nil {
			return err
		}

		scheduler := usecase.NewRefreshScheduler(ctx, authUsecase)
		authUsecase.AttachScheduler(scheduler)
		if authUsecase.State() != model.CredentialAbsent {
			scheduler.Start()
		}
		defer scheduler.Stop()

		if webPrompt != nil {
			tiktokAuthHandler = httpHandler.NewTikTokAuthHandler(tiktokClient, webPrompt, authUsecase, cfg.App.SecretKey, cfg.Auth.PromptTimeout)
		}
		uploaders = append(uploaders, usecase.NewTikTokUploader(tiktokClient, cfg.TikTok.PrivacyLevel))
	}

	if slices.Contains(platforms, model.PlatformYouTube) {
		youtubeClient, err := youtubeclient.NewYouTubeClient(ctx, &youtubeclient.Config{
			ClientSecretFile: cfg.YouTube.ClientSecretFile,
			TokenFile:        cfg.YouTube.TokenFile,
			ChunkSize:        cfg.YouTube.ChunkSize,
			AuthTimeout:      cfg.Auth.PromptTimeout,
		})
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("YouTube client unavailable, YouTube uploads disabled for this run")
			platforms = slices.DeleteFunc(platforms, func(p model.Platform) bool { return p == model.PlatformYouTube })
		} else {
			uploaders = append(uploaders, usecase.NewYouTubeUploader(youtubeClient, usecase.YouTubeUploadConfig{
				CategoryID:    cfg.YouTube.CategoryID,
				PrivacyStatus: cfg.YouTube.PrivacyStatus,
			}))
		}
	}

	publishUsecase, err := usecase.NewPublishUsecase(
		authUsecase,
		usecase.NewArtifactResolver(),
		persistence.NewMetadataBundleFileRepository(cfg.Publish.MetadataDir),
		uploaders,
		usecase.PublishConfig{VideosDir: cfg.Publish.VideosDir, Platforms: platforms},
	)
	if err != nil {
		return err
	}
	publishUsecase.WithNotifiers(hub)
	if cfg.Publish.ResultLog != "" {
		publishUsecase.WithNotifiers(filecsv.NewResultLog(cfg.Publish.ResultLog))
	}

	ledger, db, err := persistence.NewUploadResultLedger(cfg.Database)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Upload ledger not available - continuing without skip-on-success")
	} else if ledger != nil {
		defer db.Close()
		publishUsecase.WithLedger(ledger)
	}

	if rdb := cache.NewRedisClient(cfg.RedisClient); rdb != nil {
		defer rdb.Close()
		publishUsecase.WithNotifiers(cache.NewResultNotifier(rdb, cfg.RedisClient.Channel))
	}

	router := server.InitiateRouter(
		server.RouterConfig{SecretKey: cfg.App.SecretKey, AllowOrigins: cfg.App.AllowOrigins},
		httpHandler.NewHealthHandler(hub.Subscribers),
		tiktokAuthHandler,
		hub.Serve,
	)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("localhost:%d", cfg.App.CallbackPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		logger.GetLogger().WithField("addr", httpServer.Addr).Info("Starting callback server")
		if err := server.ListenAndServe(ctx, httpServer, 5*time.Second); err != nil {
			// The batch still runs. Only the web prompt depends on this server.
			logger.GetLogger().WithField("error", err).Error("Callback server failed")
		}
		return nil
	})

	g.Go(func() error {
		err := publish(ctx, publishUsecase, videos)
		if cfg.App.KeepAlive && err == nil {
			logger.GetLogger().Info("Batch finished, keeping the TikTok credential fresh until interrupted")
			<-ctx.Done()
		} else {
			cancel()
		}
		return err
	})

	return g.Wait()
}

func publish(ctx context.Context, publishUsecase usecase.IPublishUsecase, videos []string) error {
	if len(videos) == 0 {
		_, err := publishUsecase.PublishAll(ctx)
		return err
	}
	for _, video := range videos {
		if _, err := publishUsecase.PublishVideo(ctx, video); err != nil {
			return err
		}
	}
	return nil
}
