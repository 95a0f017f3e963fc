// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/relabs-tech/sensorhub/internal/reading"
)

const disconnectQuiesceMS = 250

func connectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect %s: %w", broker, token.Error())
	}
	return client, nil
}

// topicFor returns the topic a sensor's readings are published on.
func topicFor(prefix string, id reading.SensorID) string {
	return prefix + "/" + id.String()
}

// latestStore keeps the most recent reading of every sensor seen on the
// broker and fans new readings out to watchers.
type latestStore struct {
	logger *zap.SugaredLogger

	mu       sync.RWMutex
	readings map[reading.SensorID]reading.Reading
	watchers map[chan reading.Reading]struct{}
}

func newLatestStore(logger *zap.SugaredLogger) *latestStore {
	return &latestStore{
		logger:   logger,
		readings: map[reading.SensorID]reading.Reading{},
		watchers: map[chan reading.Reading]struct{}{},
	}
}

// handle is an mqtt.MessageHandler.
func (s *latestStore) handle(_ mqtt.Client, msg mqtt.Message) {
	var r reading.Reading
	if err := json.Unmarshal(msg.Payload(), &r); err != nil {
		s.logger.Warnf("%s: unmarshal error: %v", msg.Topic(), err)
		return
	}
	s.put(r)
}

func (s *latestStore) put(r reading.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings[r.Sensor] = r
	for ch := range s.watchers {
		// slow watchers miss updates rather than stall the MQTT client
		select {
		case ch <- r:
		default:
		}
	}
}

// snapshot returns the latest readings ordered by sensor id.
func (s *latestStore) snapshot() []reading.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]reading.Reading, 0, len(s.readings))
	for _, r := range s.readings {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sensor < out[j].Sensor })
	return out
}

func (s *latestStore) watch() chan reading.Reading {
	ch := make(chan reading.Reading, 16)
	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *latestStore) unwatch(ch chan reading.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.watchers, ch)
	s.logger.Debugf("web: watcher gone, %d left", len(s.watchers))
}

// watching counts live watchers.
func (s *latestStore) watching() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.watchers)
}

// subscribeReadings subscribes handler to every sensor topic under prefix.
func subscribeReadings(client mqtt.Client, prefix string, handler mqtt.MessageHandler) error {
	topic := prefix + "/#"
	token := client.Subscribe(topic, 0, handler)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	return nil
}
