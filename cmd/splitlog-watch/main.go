package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/claude/splitlog/internal/client"
	"github.com/claude/splitlog/internal/config"
	"github.com/claude/splitlog/internal/visibility"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "splitlog server URL (e.g. https://splitlog.tail1234.ts.net)")
	userID := flag.Int("user", 1, "user whose active session to watch")
	configPath := flag.String("config", "", "server config file; supplies the URL and poll settings when set")
	interval := flag.Duration("interval", 0, "poll interval (default from config, else 1.5s)")
	threshold := flag.Int("failures", 0, "consecutive failed polls before hiding the indicator (default from config, else 3)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("splitlog-watch", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		if *serverURL == "" {
			*serverURL = serverURLFromConfig(cfg)
		}
		if *interval == 0 {
			*interval = cfg.Session.PollInterval
		}
		if *threshold == 0 {
			*threshold = cfg.Session.FailureThreshold
		}
	}

	if *serverURL == "" {
		fmt.Fprintf(os.Stderr, "Usage: splitlog-watch (-server <URL> | -config config.yaml) [-user N] [-interval 1.5s]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	src := client.New(strings.TrimRight(*serverURL, "/"), "")
	p := visibility.New(src, *userID, visibility.Options{
		Interval:         *interval,
		FailureThreshold: *threshold,
		Logger:           log,
		OnChange: func(v visibility.Visibility) {
			ts := time.Now().Format(time.TimeOnly)
			if v.Visible {
				fmt.Printf("%s  workout in progress  %s\n", ts, v.SessionID)
			} else {
				fmt.Printf("%s  no active workout\n", ts)
			}
		},
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stop := p.Start(ctx)
	<-ctx.Done()
	stop()
	log.Info("watch stopped")
}

func serverURLFromConfig(cfg *config.Config) string {
	if cfg.Tailscale.Enabled {
		return "http://" + cfg.Tailscale.Hostname
	}
	host := cfg.Server.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, cfg.Server.Port)
}
