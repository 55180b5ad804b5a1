package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"rollcall/internal/client"
	"rollcall/internal/scanner"
)

// The scanner CLI is the operator client: it logs in, attaches to the RFID
// peripheral and streams every tag reading into the attendance API.
func main() {
	var (
		serverURL = flag.String("server", envOr("ROLLCALL_SERVER", "http://localhost:8080"), "API base URL")
		username  = flag.String("user", envOr("ROLLCALL_USER", ""), "operator username")
		password  = flag.String("password", envOr("ROLLCALL_PASSWORD", ""), "operator password")
		device    = flag.String("device", envOr("ROLLCALL_DEVICE", "/dev/ttyUSB0"), "peripheral device path")
		eventName = flag.String("event", "", "start a new event with this name before scanning")
	)
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if *username == "" || *password == "" {
		logger.Fatal().Msg("operator credentials required (-user / -password)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info().Msg("shutdown signal received")
		cancel()
	}()

	if err := run(ctx, logger, *serverURL, *username, *password, *device, *eventName); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("scanner failed")
	}
	logger.Info().Msg("scanner stopped")
}

func run(ctx context.Context, logger zerolog.Logger, serverURL, username, password, device, eventName string) error {
	session := client.New(serverURL)
	defer session.Reset()

	if err := session.Login(ctx, username, password); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	logger.Info().Str("user", session.User.FullName).Msg("logged in")

	// Rehydrate the current event; optionally open a fresh one.
	if eventName != "" {
		if _, err := session.StartEvent(ctx, eventName, session.User.FullName); err != nil {
			return fmt.Errorf("start event: %w", err)
		}
		logger.Info().Str("event", eventName).Msg("event started")
	} else {
		evt, err := session.RefreshActiveEvent(ctx)
		if err != nil {
			return fmt.Errorf("query active event: %w", err)
		}
		if evt == nil {
			return errors.New("no active event; start one with -event")
		}
		logger.Info().Str("event", evt.Name).Msg("joined active event")
	}

	peripheral, err := scanner.OpenSerial(device, scanner.DefaultConnectTimeout)
	if err != nil {
		return err
	}
	reader := scanner.NewReader(peripheral)
	defer reader.Close()
	logger.Info().Str("device", device).Msg("peripheral connected")

	for {
		uid, err := reader.AcquireOnce(ctx)
		switch {
		case errors.Is(err, scanner.ErrTimeout):
			continue
		case errors.Is(err, scanner.ErrClosed):
			return errors.New("peripheral disconnected")
		case errors.Is(err, context.Canceled):
			return err
		case err != nil:
			return err
		}

		submitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		name, err := session.RecordAttendance(submitCtx, uid)
		cancel()
		if err != nil {
			logger.Error().Err(err).Str("uid", uid).Msg("recording failed")
			continue
		}
		logger.Info().Str("uid", uid).Str("student", name).Msg("recorded")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
