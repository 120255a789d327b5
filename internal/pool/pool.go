// Copyright 2021 Clayton Craft <clayton@craftyguy.net>
// SPDX-License-Identifier: GPL-3.0-or-later

package pool

import (
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// number of frames a client may lag behind before frames are dropped for it
const sendQueue = 8

type Client struct {
	ID   uuid.UUID
	Send chan []byte
}

func NewClient() *Client {
	return &Client{
		ID:   uuid.New(),
		Send: make(chan []byte, sendQueue),
	}
}

type Pool struct {
	Register   chan *Client
	Unregister chan *Client
	Clients    map[*Client]bool
	Broadcast  chan []byte

	count  int64
	logger zerolog.Logger
}

func New() *Pool {
	return &Pool{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Clients:    make(map[*Client]bool),
		Broadcast:  make(chan []byte),
		logger:     log.With().Str("module", "pool").Logger(),
	}
}

// Len is the number of registered clients. Safe to call from any goroutine.
func (p *Pool) Len() int {
	return int(atomic.LoadInt64(&p.count))
}

// Start runs the pool until stop is closed. Unregistering a client closes
// its Send channel.
func (p *Pool) Start(stop <-chan bool) {
	for {
		select {
		case <-stop:
			return
		case c := <-p.Register:
			p.Clients[c] = true
			atomic.StoreInt64(&p.count, int64(len(p.Clients)))
			p.logger.Info().Str("client", c.ID.String()).Int("clients", len(p.Clients)).Msg("client connected")
		case c := <-p.Unregister:
			if !p.Clients[c] {
				continue
			}
			delete(p.Clients, c)
			close(c.Send)
			atomic.StoreInt64(&p.count, int64(len(p.Clients)))
			p.logger.Info().Str("client", c.ID.String()).Int("clients", len(p.Clients)).Msg("client disconnected")
		case msg := <-p.Broadcast:
			for c := range p.Clients {
				select {
				case c.Send <- msg:
				default:
					p.logger.Debug().Str("client", c.ID.String()).Msg("client queue full, dropping frame")
				}
			}
		}
	}
}
