// Command likectl drives a LikeStore against a running like server.
//
//	likectl [flags] toggle <cardPath>...
//	likectl [flags] show <cardPath>...
//	likectl [flags] count
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/card-gallery-likes/domain"
	"github.com/Guyuepp/card-gallery-likes/internal/client"
	"github.com/Guyuepp/card-gallery-likes/internal/likestore"
	"github.com/Guyuepp/card-gallery-likes/internal/likestore/storage"
	"github.com/Guyuepp/card-gallery-likes/internal/session"
)

func main() {
	var (
		server   = flag.String("server", "http://localhost:9090", "like server base URL")
		dataDir  = flag.String("data", ".likectl", "directory of the local fallback store")
		attempts = flag.Uint64("attempts", 3, "getAll attempts before falling back to local storage")
		delay    = flag.Duration("retry-delay", time.Second, "delay between getAll attempts")
		timeout  = flag.Duration("timeout", 8*time.Second, "timeout of a single request to the like server")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] toggle|show|count [cardPath...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	args := flag.Args()
	if len(args) == 0 || !slices.Contains([]string{"toggle", "show", "count"}, args[0]) {
		flag.Usage()
		os.Exit(2)
	}

	local, err := storage.OpenBadger(*dataDir)
	if err != nil {
		logrus.Fatalf("failed to open local store: %v", err)
	}
	defer local.Close()

	store := likestore.New(
		client.NewClient(*server).WithHTTPClient(&http.Client{Timeout: *timeout}),
		local,
		session.NewManager(local, localFingerprint()),
		likestore.Options{
			InitAttempts:   *attempts,
			InitRetryDelay: *delay,
			Logger:         logrus.StandardLogger(),
		},
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		logrus.Fatalf("failed to init like store: %v", err)
	}
	logrus.Debugf("session %s, mode %s", store.SessionID(), store.Mode())

	switch args[0] {
	case "toggle":
		events, stop := store.Subscribe(64)
		for _, path := range args[1:] {
			logrus.Debugf("toggle %s -> %t", path, store.ToggleLike(path))
		}
		store.Wait()
		stop()
		for ev := range events {
			fmt.Printf("%-6s %s liked=%t count=%d\n", ev.Kind, ev.CardPath, ev.IsLiked, ev.NewCount)
		}
	case "show":
		for _, path := range args[1:] {
			d := store.GetLikeData(path)
			fmt.Printf("%s liked=%t count=%d\n", path, d.Liked, d.Count)
		}
	case "count":
		fmt.Printf("%d/%d likes in the last 24h (%s mode)\n", store.GetUserLikeCount(), domain.MaxUserLikesPerDay, store.Mode())
	}
}

func localFingerprint() session.Fingerprint {
	var langs []string
	for _, l := range strings.Split(os.Getenv("LANGUAGE"), ":") {
		if l != "" {
			langs = append(langs, l)
		}
	}
	if len(langs) == 0 && os.Getenv("LANG") != "" {
		langs = []string{os.Getenv("LANG")}
	}
	host, _ := os.Hostname()
	return session.Fingerprint{
		UserAgent: "likectl/" + host,
		Timezone:  time.Local.String(),
		Languages: langs,
	}
}
