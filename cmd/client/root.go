package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	router "github.com/dkeye/Roulette/internal/adapters/http"
	"github.com/dkeye/Roulette/internal/adapters/auth"
	"github.com/dkeye/Roulette/internal/adapters/record"
	"github.com/dkeye/Roulette/internal/adapters/rtc"
	"github.com/dkeye/Roulette/internal/adapters/signal"
	"github.com/dkeye/Roulette/internal/adapters/ui"
	"github.com/dkeye/Roulette/internal/app/chat"
	"github.com/dkeye/Roulette/internal/app/lobby"
	"github.com/dkeye/Roulette/internal/app/surface"
	"github.com/dkeye/Roulette/internal/config"
	"github.com/dkeye/Roulette/internal/media"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "roulette-client",
		Short:   "Random-match video chat client with a local control UI.",
		Args:    cobra.NoArgs,
		Version: releaseVersion,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
				zerolog.SetGlobalLevel(level)
			}
			return run(cmd.Context(), cfg)
		},
	}
	config.RegisterFlags(cmd.Flags())

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	identity, err := auth.NewClient(cfg.AuthURL, cfg.VerifyTimeout).Verify(ctx, cfg.Email, cfg.Name)
	if err != nil {
		var verr *auth.VerificationError
		switch {
		case errors.As(err, &verr):
			return fmt.Errorf("email verification failed: %s", verr.Message)
		case errors.Is(err, auth.ErrVerificationTimeout):
			return fmt.Errorf("email verification timed out after %s; check --auth-url", cfg.VerifyTimeout)
		}
		return err
	}

	tracks, err := media.FileSource{AudioPath: cfg.AudioPath, VideoPath: cfg.VideoPath}.Acquire(ctx)
	switch {
	case errors.Is(err, media.ErrPermissionDenied):
		return fmt.Errorf("%w: make --audio-path and --video-path readable and start again", err)
	case errors.Is(err, media.ErrDeviceNotFound):
		return fmt.Errorf("%w: point --audio-path and --video-path at existing files, or leave them empty to only receive", err)
	case err != nil:
		return err
	}
	defer tracks.Release()

	peers, err := rtc.NewFactory(rtc.FactoryOptions{ICEServers: cfg.ICEServers, PLIInterval: cfg.PLIInterval})
	if err != nil {
		return err
	}

	surf := surface.New()
	if cfg.RecordDir != "" {
		rec, err := record.New(cfg.RecordDir)
		if err != nil {
			return err
		}
		surf.Use("recorder", rec.Open)
	}

	channel, err := signal.Dial(ctx, cfg.SignalURL, signal.Options{
		PingPeriod:   cfg.PingPeriod,
		ReadLimit:    cfg.ReadLimit,
		WriteTimeout: cfg.WriteTimeout,
	})
	if err != nil {
		return err
	}

	hub := ui.NewHub(ui.SimplePolicy{}, ui.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		PingPeriod:     cfg.PingPeriod,
		WriteTimeout:   cfg.WriteTimeout,
	})

	l := lobby.New(lobby.Options{
		Identity:  identity,
		Interests: cfg.Interests,
		Signal:    channel,
		Peers:     peers,
		Tracks:    tracks,
		Surface:   surf,
		Observer:  hub,
		Limiter:   chat.NewRateLimiter(cfg.ChatRateLimit, cfg.ChatRateInterval),
	})
	// The lobby closes the channel when it leaves, after its last frames.
	channel.Start(context.WithoutCancel(ctx), l.Deliver, l.ChannelClosed)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router.SetupRouter(ctx, cfg, identity, l, hub),
	}
	go func() {
		log.Info().Str("addr", addr).Msg("Roulette control UI started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
		}
	}()

	err = l.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	log.Info().Msg("Shutting down")
	select {
	case <-channel.Done():
	case <-time.After(cfg.WriteTimeout):
		log.Warn().Msg("signaling channel did not flush in time")
	}
	drainCtx, drainCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer drainCancel()
	if derr := surf.Wait(drainCtx); derr != nil {
		log.Warn().Err(derr).Msg("remote media sinks did not close in time")
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Error().Err(serr).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Client exited gracefully")
	return err
}
