// Copyright 2021 Clayton Craft <clayton@craftyguy.net>
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"io/ioutil"
	"time"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml"

	"gitlab.com/postmarketOS/gnss_cloud/internal/geo"
	"gitlab.com/postmarketOS/gnss_cloud/internal/scene"
)

type Config struct {
	Source     Source     `toml:"source"`
	Decode     Decode     `toml:"decode"`
	Projection Projection `toml:"projection"`
	Server     Server     `toml:"server"`
	MQTT       MQTT       `toml:"mqtt"`
	Log        Log        `toml:"log"`
}

type Source struct {
	Driver   string `toml:"driver" validate:"oneof=file serial"`
	// required only when following the source, see ValidateSource
	Path     string `toml:"path"`
	BaudRate int    `toml:"baud_rate" validate:"gt=0"`
	// only used by the file driver
	PollIntervalMs int `toml:"poll_interval_ms" validate:"gt=0"`
}

type Decode struct {
	DropImplausible bool `toml:"drop_implausible"`
}

type Projection struct {
	HorizontalScale      float64 `toml:"horizontal_scale" validate:"gt=0"`
	VerticalExaggeration float64 `toml:"vertical_exaggeration" validate:"gt=0"`
	CenterPolicy         string  `toml:"center_policy" validate:"oneof=freeze follow"`

	UseObserver bool    `toml:"use_observer"`
	ObserverLat float64 `toml:"observer_lat" validate:"gte=-90,lte=90"`
	ObserverLon float64 `toml:"observer_lon" validate:"gte=-180,lte=180"`
	ObserverAlt float64 `toml:"observer_alt"`
}

type Server struct {
	// Listen is a TCP address. It is ignored when Socket is set.
	Listen     string `toml:"listen" validate:"required_without=Socket"`
	Socket     string `toml:"socket"`
	OwnerGroup string `toml:"group"`
}

type MQTT struct {
	Broker   string `toml:"broker"`
	Topic    string `toml:"topic" validate:"required_with=Broker"`
	ClientID string `toml:"client_id" validate:"required_with=Broker"`
}

type Log struct {
	Level string `toml:"level" validate:"oneof=trace debug info warn error"`
}

// Default returns the configuration used for keys missing from a file.
func Default() *Config {
	return &Config{
		Source: Source{
			Driver:         "file",
			BaudRate:       9600,
			PollIntervalMs: 1000,
		},
		Projection: Projection{
			HorizontalScale:      geo.DefaultProjection().HorizontalScale,
			VerticalExaggeration: geo.DefaultProjection().VerticalExaggeration,
			CenterPolicy:         string(scene.CenterFreeze),
		},
		Server: Server{
			Listen: "localhost:8080",
		},
		MQTT: MQTT{
			Topic:    "gnss/fix",
			ClientID: "gnss_cloud",
		},
		Log: Log{
			Level: "info",
		},
	}
}

func Parse(file string) (c *Config, err error) {
	contents, err := ioutil.ReadFile(file)
	if err != nil {
		err = fmt.Errorf("config.Parse(): %w", err)
		return
	}

	return ParseBytes(contents)
}

func ParseBytes(contents []byte) (c *Config, err error) {
	c = &Config{}
	if err = toml.Unmarshal(contents, c); err != nil {
		err = fmt.Errorf("config.Parse(): %w", err)
		return
	}
	c.applyDefaults(Default())

	if err = c.Validate(); err != nil {
		err = fmt.Errorf("config.Parse(): %w", err)
	}
	return
}

func (c *Config) applyDefaults(d *Config) {
	setString(&c.Source.Driver, d.Source.Driver)
	setInt(&c.Source.BaudRate, d.Source.BaudRate)
	setInt(&c.Source.PollIntervalMs, d.Source.PollIntervalMs)
	setFloat(&c.Projection.HorizontalScale, d.Projection.HorizontalScale)
	setFloat(&c.Projection.VerticalExaggeration, d.Projection.VerticalExaggeration)
	setString(&c.Projection.CenterPolicy, d.Projection.CenterPolicy)
	if c.Server.Socket == "" {
		setString(&c.Server.Listen, d.Server.Listen)
	}
	setString(&c.MQTT.Topic, d.MQTT.Topic)
	setString(&c.MQTT.ClientID, d.MQTT.ClientID)
	setString(&c.Log.Level, d.Log.Level)
}

func setString(v *string, d string) {
	if *v == "" {
		*v = d
	}
}

func setInt(v *int, d int) {
	if *v == 0 {
		*v = d
	}
}

func setFloat(v *float64, d float64) {
	if *v == 0 {
		*v = d
	}
}

var ErrNoSourcePath = errors.New("source.path is not set")

func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// ValidateSource checks the keys needed to follow a live source. Batch
// commands read their input from the command line and skip this.
func (c *Config) ValidateSource() error {
	if c.Source.Path == "" {
		return fmt.Errorf("config.ValidateSource(): %w", ErrNoSourcePath)
	}
	return nil
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Source.PollIntervalMs) * time.Millisecond
}

// SceneOptions translates the projection section for the scene package.
func (c *Config) SceneOptions() scene.Options {
	opts := scene.Options{
		Projection: geo.Projection{
			HorizontalScale:      c.Projection.HorizontalScale,
			VerticalExaggeration: c.Projection.VerticalExaggeration,
		},
		Policy: scene.CenterPolicy(c.Projection.CenterPolicy),
	}
	if c.Projection.UseObserver {
		opts.Observer = &geo.Center{
			Lat: c.Projection.ObserverLat,
			Lon: c.Projection.ObserverLon,
			Alt: c.Projection.ObserverAlt,
		}
	}
	return opts
}
