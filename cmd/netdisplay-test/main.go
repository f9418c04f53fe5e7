package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/BeatGlow/netdisplay"
	"github.com/BeatGlow/netdisplay/frame"
	"github.com/BeatGlow/netdisplay/testcard"
)

func main() {
	bottomFlag := flag.String("bottom", "", "Bottom panel (ESP32_1) websocket URL")
	topFlag := flag.String("top", "", "Top panel (ESP32_2) websocket URL")
	framesFlag := flag.Int("frames", 1, "Number of frames to send (0: until interrupted)")
	intervalFlag := flag.Duration("interval", 50*time.Millisecond, "Pause between frames")
	readyFlag := flag.Duration("ready-timeout", 5*time.Second, "Wait for panel ready at most this long (0: forever)")
	bigEndianFlag := flag.Bool("big-endian", false, "Send pixels big-endian")
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *bottomFlag == "" || *topFlag == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -bottom <url> -top <url> [flags]\n", os.Args[0])
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *debugFlag || os.Getenv("NETDISPLAY_DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var order binary.ByteOrder = binary.LittleEndian
	if *bigEndianFlag {
		order = binary.BigEndian
	}

	var (
		bottom, top *netdisplay.Panel
		g, gctx     = errgroup.WithContext(ctx)
	)
	g.Go(func() (err error) {
		bottom, err = openPanel(gctx, "ESP32_1", frame.Bottom, *bottomFlag, order)
		return
	})
	g.Go(func() (err error) {
		top, err = openPanel(gctx, "ESP32_2", frame.Top, *topFlag, order)
		return
	})
	if err := g.Wait(); err != nil {
		if bottom != nil {
			_ = bottom.Close()
		}
		if top != nil {
			_ = top.Close()
		}
		fatal(err)
	}

	pair := netdisplay.NewPair(bottom, top, nil)
	pair.ReadyTimeout = *readyFlag
	defer pair.Close()
	fmt.Printf("using panels: %s, %s\n", bottom, top)

	ticker := time.NewTicker(*intervalFlag)
	defer ticker.Stop()

	fmt.Println("hit control-c to stop...")
	for offset := 0; *framesFlag == 0 || offset < *framesFlag; offset++ {
		card, err := testcard.New(offset)
		if err != nil {
			fatal(err)
		}
		if err = pair.Draw(card); err != nil {
			fatal(err)
		}

		start := time.Now()
		if err = pair.Sync(); err != nil {
			fatal(err)
		}
		slog.Debug("frame shown", "frame", offset, "took", time.Since(start))

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func openPanel(ctx context.Context, name string, role frame.Role, url string, order binary.ByteOrder) (*netdisplay.Panel, error) {
	c, err := netdisplay.OpenWebSocket(ctx, &netdisplay.WebSocketConfig{
		URL:            url,
		ConnectTimeout: netdisplay.DefaultWebSocketConfig.ConnectTimeout,
	})
	if err != nil {
		return nil, &netdisplay.ConnectError{Panel: name, URL: url, Err: err}
	}
	panel, err := netdisplay.NewPanel(c, &netdisplay.Config{
		Name:  name,
		Role:  role,
		Order: order,
	})
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return panel, nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "fatal: "+err.Error())
	os.Exit(1)
}
