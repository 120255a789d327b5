// Copyright 2021 Clayton Craft <clayton@craftyguy.net>
// SPDX-License-Identifier: GPL-3.0-or-later

package publish

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gitlab.com/postmarketOS/gnss_cloud/internal/geo"
)

const publishTimeout = 5 * time.Second

// MQTT publishes every decoded fix as JSON to a single topic.
type MQTT struct {
	client mqtt.Client
	topic  string
	logger zerolog.Logger
}

func NewMQTT(broker, clientID, topic string) (m *MQTT, err error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	m = &MQTT{
		client: mqtt.NewClient(opts),
		topic:  topic,
		logger: log.With().Str("module", "mqtt").Str("broker", broker).Logger(),
	}
	if token := m.client.Connect(); token.Wait() && token.Error() != nil {
		err = fmt.Errorf("publish.NewMQTT: %w", token.Error())
		return nil, err
	}
	m.logger.Info().Str("topic", topic).Msg("connected to MQTT broker")
	return
}

func fixPayload(f geo.Fix) ([]byte, error) {
	return json.Marshal(f)
}

func (m *MQTT) PublishFix(f geo.Fix) error {
	payload, err := fixPayload(f)
	if err != nil {
		return fmt.Errorf("publish.MQTT.PublishFix: %w", err)
	}

	token := m.client.Publish(m.topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish.MQTT.PublishFix: timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish.MQTT.PublishFix: %w", err)
	}
	return nil
}

func (m *MQTT) Close() {
	m.client.Disconnect(250)
}
