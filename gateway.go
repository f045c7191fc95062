/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxFrameBytes   = 16 * 1024
	maxDecodeErrors = 3
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsClient adapts one WebSocket connection to a router session.
type wsClient struct {
	cfg     *Config
	conn    *websocket.Conn
	session *Session
	remote  string
	stopped chan struct{} // closed when keepalive returns
}

func (c *wsClient) send(ev Outbound) error {
	f, err := encodeOutbound(ev)
	if err != nil {
		return err
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	return c.conn.WriteJSON(f)
}

// keepalive pings the client until the session finishes delivering,
// then closes the socket so a pending read returns.
func (c *wsClient) keepalive() {
	defer close(c.stopped)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.session.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			_ = c.conn.Close()

			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) readPump(rt *Router) {
	defer func() {
		rt.Disconnect(c.session)
		<-c.stopped
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	limiter := frameLimiter{limit: c.cfg.maxFrameRate}
	decodeErrors := 0

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logf(c.cfg, "ERROR: Reading from %s: %v", c.session.ID(), err)
			}
			return
		}

		if !limiter.allow(time.Now()) {
			logf(c.cfg, "SERVE: Rate limit exceeded by %s, dropping frame", c.session.ID())
			continue
		}

		var f frame
		var ev Inbound
		if err = json.Unmarshal(data, &f); err == nil {
			ev, err = decodeInbound(f)
		}

		switch {
		case errors.Is(err, errUnknownKind):
			logf(c.cfg, "SERVE: Ignoring frame from %s: %v", c.session.ID(), err)
			continue
		case err != nil:
			decodeErrors++
			logf(c.cfg, "SERVE: Invalid frame from %s: %v", c.session.ID(), err)
			if decodeErrors >= maxDecodeErrors {
				return
			}
			continue
		}

		decodeErrors = 0
		rt.Handle(c.session, ev)
	}
}

// frameLimiter counts frames in one-second windows.
type frameLimiter struct {
	limit       int
	windowStart time.Time
	count       int
}

func (l *frameLimiter) allow(now time.Time) bool {
	if l.limit <= 0 {
		return true
	}

	if now.Sub(l.windowStart) >= time.Second {
		l.windowStart = now
		l.count = 0
	}
	l.count++

	return l.count <= l.limit
}

func serveWS(cfg *Config, rt *Router) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "ERROR: WebSocket upgrade for %s failed: %v", realIP(r), err)
			return
		}

		c := &wsClient{
			cfg:     cfg,
			conn:    conn,
			remote:  realIP(r),
			stopped: make(chan struct{}),
		}

		session, err := rt.Connect(c.send)
		if err != nil {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "unable to register connection"),
				time.Now().Add(writeWait))
			_ = conn.Close()

			return
		}
		c.session = session

		logf(cfg, "SERVE: WebSocket %s opened by %s", session.ID(), c.remote)

		go c.keepalive()
		c.readPump(rt)

		logf(cfg, "SERVE: WebSocket %s closed", session.ID())
	}
}
