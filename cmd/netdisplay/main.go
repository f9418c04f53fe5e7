package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BeatGlow/netdisplay/config"
	"github.com/BeatGlow/netdisplay/stream"
)

func main() {
	configFlag := flag.String("config", "", "YAML configuration file")
	bottomFlag := flag.String("bottom", "", "Bottom panel (ESP32_1) websocket URL")
	topFlag := flag.String("top", "", "Top panel (ESP32_2) websocket URL")
	delayFlag := flag.Duration("delay", config.Default().Delay, "Pause after each frame")
	readyFlag := flag.Duration("ready-timeout", 0, "Wait for panel ready at most this long (0: forever)")
	orderFlag := flag.String("order", "", "Pixel byte order (little, big)")
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <image>...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelInfo
	if *debugFlag || os.Getenv("NETDISPLAY_DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	var (
		cfg = config.Default()
		err error
	)
	if *configFlag != "" {
		if cfg, err = config.Load(*configFlag); err != nil {
			fatal(err)
		}
	}

	// Flags given on the command line win over the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "bottom":
			cfg.Panels.Bottom = *bottomFlag
		case "top":
			cfg.Panels.Top = *topFlag
		case "delay":
			cfg.Delay = *delayFlag
		case "ready-timeout":
			cfg.ReadyTimeout = *readyFlag
		case "order":
			cfg.ByteOrder = *orderFlag
		}
	})
	if flag.NArg() > 0 {
		cfg.Playlist = flag.Args()
	}
	if err = config.Validate(cfg); err != nil {
		fatal(err)
	}

	playlist := cfg.PlaylistSlots()
	if playlist.Len() == 0 {
		fatal(fmt.Errorf("no images given"))
	}

	sc := cfg.Stream()
	sc.Reporter = func(e stream.Event) {
		fmt.Println(e)
	}
	controller := stream.New(sc, nil)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, stopping", "signal", sig)
		controller.Stop()
	}()

	slog.Info("netdisplay starting",
		"bottom", cfg.Panels.Bottom,
		"top", cfg.Panels.Top,
		"images", playlist.Len(),
		"delay", cfg.Delay.Round(time.Millisecond),
	)
	controller.Start(playlist)
	if err = controller.Wait(); err != nil {
		fatal(err)
	}
	slog.Info("netdisplay stopped")
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "fatal: "+err.Error())
	os.Exit(1)
}
