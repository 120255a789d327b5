// Copyright 2021 Clayton Craft <clayton@craftyguy.net>
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gitlab.com/postmarketOS/gnss_cloud/internal/config"
	"gitlab.com/postmarketOS/gnss_cloud/internal/export"
	"gitlab.com/postmarketOS/gnss_cloud/internal/geo"
	"gitlab.com/postmarketOS/gnss_cloud/internal/gnss"
	"gitlab.com/postmarketOS/gnss_cloud/internal/nmea"
	"gitlab.com/postmarketOS/gnss_cloud/internal/pool"
	"gitlab.com/postmarketOS/gnss_cloud/internal/publish"
	"gitlab.com/postmarketOS/gnss_cloud/internal/scene"
	"gitlab.com/postmarketOS/gnss_cloud/internal/server"
	"gitlab.com/postmarketOS/gnss_cloud/internal/tracker"
)

func usage() {
	flag.CommandLine.Usage()
}

func main() {
	var confFile string
	flag.StringVar(&confFile, "c", "/etc/gnss_cloud.conf", "Configuration file to use.")
	var format string
	flag.StringVar(&format, "f", "json", "Export format: json, gpx or nmea.")
	var help bool
	flag.BoolVar(&help, "h", false, "Print help and quit.")

	flag.Usage = func() {
		fmt.Println("usage: gnss_cloud [OPTION...] COMMAND")
		fmt.Println("Commands:")
		fmt.Printf("  %-20s\t%s\n", "[none]", "Follow the configured source and serve frames to renderers.")
		fmt.Printf("  %-20s\t%s\n", "export <log> <out>", "Write the fixes in a log to a file and quit.")
		fmt.Printf("  %-20s\t%s\n", "summary <log>", "Print statistics about the fixes in a log and quit.")
		fmt.Println("Options:")
		flag.PrintDefaults()
	}

	flag.Parse()

	if help {
		usage()
		return
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch cmd := flag.Arg(0); cmd {
	case "export":
		if flag.NArg() < 3 {
			usage()
			os.Exit(2)
		}
		conf, err := loadOrDefault(confFile)
		if err != nil {
			log.Fatal().Err(err).Msg("unable to load configuration")
		}
		if err := runExport(conf, flag.Arg(1), flag.Arg(2), format); err != nil {
			log.Fatal().Err(err).Msg("export failed")
		}
		return
	case "summary":
		if flag.NArg() < 2 {
			usage()
			os.Exit(2)
		}
		conf, err := loadOrDefault(confFile)
		if err != nil {
			log.Fatal().Err(err).Msg("unable to load configuration")
		}
		if err := runSummary(conf, flag.Arg(1)); err != nil {
			log.Fatal().Err(err).Msg("summary failed")
		}
		return
	default:
		if cmd != "" {
			fmt.Printf("Unknown command: %q\n", cmd)
			usage()
			os.Exit(2)
		}
		// run mode
	}

	conf, err := config.Parse(confFile)
	if err == nil {
		err = conf.ValidateSource()
	}
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load configuration")
	}
	setLogLevel(conf)

	if err := run(conf); err != nil {
		log.Fatal().Err(err).Msg("stopped")
	}
}

func setLogLevel(conf *config.Config) {
	level, err := zerolog.ParseLevel(conf.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// Batch commands work without a configuration file, but a file that exists
// must be valid.
func loadOrDefault(confFile string) (conf *config.Config, err error) {
	conf, err = config.Parse(confFile)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug().Str("file", confFile).Msg("no configuration file, using defaults")
		conf, err = config.Default(), nil
	}
	if err != nil {
		return nil, err
	}
	setLogLevel(conf)
	return
}

func run(conf *config.Config) error {
	var src gnss.Source
	switch conf.Source.Driver {
	case "serial":
		src = gnss.NewSerialSource(conf.Source.Path, conf.Source.BaudRate)
	default:
		src = gnss.NewFileSource(conf.Source.Path, conf.PollInterval())
	}

	// connection broadcast pool
	connPool := pool.New()
	stopPool := make(chan bool)
	defer close(stopPool)
	go connPool.Start(stopPool)

	opts := tracker.Options{
		Scene:           conf.SceneOptions(),
		DropImplausible: conf.Decode.DropImplausible,
		Broadcast:       connPool.Broadcast,
	}
	if conf.MQTT.Broker != "" {
		m, err := publish.NewMQTT(conf.MQTT.Broker, conf.MQTT.ClientID, conf.MQTT.Topic)
		if err != nil {
			return fmt.Errorf("run(): %w", err)
		}
		defer m.Close()
		opts.Publisher = m
	}
	t := tracker.New(opts)

	srv := server.New(conf.Server.Listen, conf.Server.Socket, conf.Server.OwnerGroup, t, connPool)
	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.Start() }()
	defer srv.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	trErr := make(chan error, 1)
	go func() { trErr <- t.Run(ctx, src) }()

	log.Info().Str("driver", conf.Source.Driver).Str("path", conf.Source.Path).Msg("following GNSS source")
	defer func() {
		st := t.Stats()
		log.Info().Int("sentences", st.Sentences).Int("skipped", st.Skipped).Msg("decoded sentences")
	}()
	select {
	case err := <-srvErr:
		cancel()
		<-trErr
		return err
	case err := <-trErr:
		return err
	}
}

// readLog decodes a whole log file. An empty result is reported as
// geo.ErrNoFixes so that callers never project an empty set.
func readLog(conf *config.Config, path string) (sentences []string, fixes []geo.Fix, err error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("readLog(): %w", err)
		return
	}

	sentences = nmea.Extract(string(contents))
	fixes, st := nmea.DecodeAll(sentences)
	if conf.Decode.DropImplausible {
		fixes = geo.Plausible(fixes)
	}
	log.Info().
		Str("path", path).
		Int("sentences", st.Sentences).
		Int("skipped", st.Skipped).
		Int("fixes", len(fixes)).
		Msg("decoded log")

	if len(fixes) == 0 {
		err = fmt.Errorf("readLog(): %s: %w", path, geo.ErrNoFixes)
	}
	return
}

func runExport(conf *config.Config, in, out, format string) (err error) {
	sentences, fixes, err := readLog(conf, in)
	if err != nil {
		return
	}

	fd, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("runExport(): %w", err)
	}
	defer func() {
		if cerr := fd.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("runExport(): %w", cerr)
		}
	}()

	switch format {
	case "gpx":
		return export.WriteGPX(fd, filepath.Base(in), fixes)
	case "nmea":
		_, err = export.WriteNMEA(fd, sentences, conf.Decode.DropImplausible)
		return
	case "json":
		st := scene.New(conf.SceneOptions())
		st.Load(fixes)
		frame, ferr := st.Frame()
		if ferr != nil {
			return ferr
		}
		sum, serr := geo.Summarize(fixes)
		if serr != nil {
			return serr
		}
		return export.WriteJSON(fd, export.NewArtifact(filepath.Base(in), sum, frame))
	default:
		return fmt.Errorf("runExport(): unknown format %q", format)
	}
}

func runSummary(conf *config.Config, in string) error {
	_, fixes, err := readLog(conf, in)
	if err != nil {
		return err
	}
	s, err := geo.Summarize(fixes)
	if err != nil {
		return err
	}

	fmt.Printf("Fixes:            %d\n", s.Count)
	fmt.Printf("Time:             %s - %s\n", s.FirstTime, s.LastTime)
	fmt.Printf("Center:           %.7f, %.7f, %.3f m\n", s.Center.Lat, s.Center.Lon, s.Center.Alt)
	fmt.Printf("Min altitude:     %.3f m\n", s.Bounds.MinAlt)
	fmt.Printf("Max altitude:     %.3f m\n", s.Bounds.MaxAlt)
	fmt.Printf("Altitude range:   %.3f m\n", s.AltRange)
	fmt.Printf("Path length:      %.1f m\n", s.PathMeters)
	fmt.Printf("Bearing:          %.1f deg\n", s.Bearing)
	fmt.Printf("Last position:    %.7f, %.7f, %.3f m at %s\n", s.Last.Lat, s.Last.Lon, s.Last.Alt, s.Last.Timestamp)
	return nil
}
