package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/Duet/internal/adapters/http"
	"github.com/dkeye/Duet/internal/adapters/janus"
	"github.com/dkeye/Duet/internal/adapters/media"
	"github.com/dkeye/Duet/internal/adapters/rest"
	"github.com/dkeye/Duet/internal/adapters/rtc"
	pushsignal "github.com/dkeye/Duet/internal/adapters/signal"
	"github.com/dkeye/Duet/internal/adapters/socketio"
	"github.com/dkeye/Duet/internal/adapters/translate"
	"github.com/dkeye/Duet/internal/app"
	"github.com/dkeye/Duet/internal/app/chat"
	"github.com/dkeye/Duet/internal/app/videoroom"
	"github.com/dkeye/Duet/internal/config"
	"github.com/dkeye/Duet/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.Mode == "release" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("Duet exited with error")
		os.Exit(1)
	}
	log.Info().Msg("Server exited gracefully")
}

func run(ctx context.Context, cfg *config.Config) error {
	factory, err := rtc.NewFactory(ctx, cfg.ICEServers)
	if err != nil {
		return fmt.Errorf("webrtc: %w", err)
	}

	cache, closeCache := translationCache(cfg)
	defer closeCache()
	translator := translate.New(cfg.Translate.Endpoint, cfg.Translate.Client, cfg.API.Timeout, cache)

	visits := app.NewVisits(ctx, app.Deps{
		Gateway: janus.NewGateway(cfg.Janus.URL, cfg.Janus.Keepalive, cfg.Janus.RequestTimeout),
		Media:   factory,
		Capture: media.NewDeviceCapturer(media.Options{
			Width:        cfg.Media.Width,
			Height:       cfg.Media.Height,
			VideoBitrate: cfg.Media.VideoBitrate,
			AudioBitrate: cfg.Media.AudioBitrate,
		}),
		Chat:       chatDialer(cfg.Chat),
		Translator: translator,
		Room: videoroom.Options{
			Publishers:     cfg.VideoRoom.Publishers,
			Bitrate:        cfg.VideoRoom.Bitrate,
			FIRFreq:        cfg.VideoRoom.FIRFreq,
			Description:    cfg.VideoRoom.Description,
			RequestTimeout: cfg.Janus.RequestTimeout,
		},
		Language:         cfg.Translate.Language,
		Target:           cfg.Translate.Target,
		ChatReconnect:    cfg.Chat.Reconnect,
		ChatMaxReconnect: cfg.Chat.MaxReconnect,
		RecordDir:        cfg.RecordDir,
	})

	srv := &router.Server{
		Dir:    rest.New(cfg.API.BaseURL, cfg.API.Timeout),
		Visits: visits,
		Push:   pushsignal.NewPushController(app.SimplePolicy{Tolerance: 8}, pushsignal.NewRateLimiter(5, 3*time.Second)),
	}
	addr := fmt.Sprintf(":%d", cfg.Port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           router.SetupRouter(ctx, cfg, srv),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("Duet server started")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		for _, room := range visits.Rooms() {
			if err := visits.Stop(shutdownCtx, room); err != nil {
				log.Warn().Err(err).Int64("room", int64(room)).Msg("visit stop")
			}
		}
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		return nil
	})
	err = g.Wait()
	visits.Wait()
	return err
}

func translationCache(cfg *config.Config) (translate.Cache, func()) {
	switch cfg.Translate.Cache {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		log.Info().Str("addr", cfg.Redis.Addr).Msg("translation cache: redis")
		return translate.NewRedisCache(rdb, cfg.Translate.CacheTTL), func() { _ = rdb.Close() }
	case "none":
		return translate.NopCache{}, func() {}
	default:
		return translate.NewMemoryCache(cfg.Translate.CacheSize), func() {}
	}
}

func chatDialer(cfg config.ChatConfig) app.ChatDialer {
	return func(room domain.RoomID, user domain.User) (chat.Transport, error) {
		q := url.Values{}
		q.Set("roomId", strconv.FormatInt(int64(room), 10))
		q.Set("oderId", strconv.FormatInt(int64(user.ID), 10))
		q.Set("odername", user.Nickname)
		c, err := socketio.NewClient(cfg.URL, cfg.Namespace, q)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}
