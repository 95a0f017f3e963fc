// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/relabs-tech/sensorhub/internal/config"
)

const wsWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// newWebMux serves the latest readings as JSON and as a live stream.
func newWebMux(store *latestStore, logger *zap.SugaredLogger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/readings", func(w http.ResponseWriter, r *http.Request) {
		readings := store.snapshot()
		if len(readings) == 0 {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(readings); err != nil {
			logger.Warnf("web: json encode error: %v", err)
		}
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warnf("web: websocket upgrade error: %v", err)
			return
		}
		streamReadings(conn, store, logger)
	})

	return mux
}

// streamReadings sends the current snapshot, then every new reading, until
// the client goes away. It closes conn.
func streamReadings(conn *websocket.Conn, store *latestStore, logger *zap.SugaredLogger) {
	updates := store.watch()
	defer store.unwatch(updates)

	gone := make(chan struct{})
	// the reader exits once conn is closed; wait for it so nothing logs
	// after the handler returns
	defer func() {
		conn.Close()
		<-gone
	}()
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Debugf("web: websocket read: %v", err)
				}
				return
			}
		}
	}()

	for _, r := range store.snapshot() {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(r); err != nil {
			return
		}
	}
	for {
		select {
		case <-gone:
			return
		case r := <-updates:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(r); err != nil {
				logger.Debugf("web: websocket write: %v", err)
				return
			}
		}
	}
}

// RunWeb serves readings published by the producer over HTTP.
func RunWeb(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) error {
	store := newLatestStore(logger)

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(disconnectQuiesceMS)
	logger.Infof("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	if err := subscribeReadings(client, cfg.TopicPrefix, store.handle); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           newWebMux(store, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Infof("web server listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
