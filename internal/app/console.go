// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/relabs-tech/sensorhub/internal/config"
	"github.com/relabs-tech/sensorhub/internal/reading"
)

// formatReading renders one reading as a console line.
func formatReading(r reading.Reading) string {
	ts := time.Unix(0, r.Timestamp).UTC().Format("15:04:05.000")
	switch r.Sensor {
	case reading.Accelerometer:
		v := r.Acceleration
		return fmt.Sprintf("%s [ACCEL]  x=%8.3f y=%8.3f z=%8.3f m/s²  status=%d", ts, v.X, v.Y, v.Z, v.Status)
	case reading.MagneticField:
		v := r.Magnetic
		return fmt.Sprintf("%s [MAG  ]  x=%8.3f y=%8.3f z=%8.3f µT  status=%d", ts, v.X, v.Y, v.Z, v.Status)
	case reading.Orientation:
		o := r.Orientation
		return fmt.Sprintf("%s [POSE ]  AZIMUTH=%6.1f  PITCH=%6.1f  ROLL=%6.1f  status=%d", ts, o.Azimuth, o.Pitch, o.Roll, o.Status)
	case reading.Temperature:
		return fmt.Sprintf("%s [TEMP ]  %.1f °C", ts, r.Scalar)
	case reading.Proximity:
		return fmt.Sprintf("%s [PROX ]  %.1f cm", ts, r.Scalar)
	case reading.Light:
		return fmt.Sprintf("%s [LIGHT]  %.0f lux", ts, r.Scalar)
	}
	return fmt.Sprintf("%s [%v]  %+v", ts, r.Sensor, r)
}

func printSink(w io.Writer) sink {
	return func(rs []reading.Reading) error {
		for _, r := range rs {
			if _, err := fmt.Fprintln(w, formatReading(r)); err != nil {
				return err
			}
		}
		return nil
	}
}

// RunConsole prints readings published by the producer until ctx is done.
func RunConsole(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) error {
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Disconnect(disconnectQuiesceMS)
	logger.Infof("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	out := printSink(os.Stdout)
	err = subscribeReadings(client, cfg.TopicPrefix, func(_ mqtt.Client, msg mqtt.Message) {
		var r reading.Reading
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			logger.Warnf("console: %s unmarshal error: %v", msg.Topic(), err)
			return
		}
		_ = out([]reading.Reading{r})
	})
	if err != nil {
		return err
	}
	logger.Infof("console: subscribed to %s/#", cfg.TopicPrefix)

	<-ctx.Done()
	logger.Infof("console: shutting down")
	return nil
}

// RunLocalConsole polls the sensors directly and prints every reading,
// without a broker.
func RunLocalConsole(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) error {
	h, waker, err := startHub(cfg, logger)
	if err != nil {
		return err
	}
	defer h.Close()

	buf := make([]reading.Reading, cfg.PollBufferSize)
	return pump(ctx, h, buf, printSink(os.Stdout), waker.Wake)
}
