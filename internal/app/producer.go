// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/relabs-tech/sensorhub/internal/config"
	"github.com/relabs-tech/sensorhub/internal/env"
	"github.com/relabs-tech/sensorhub/internal/hub"
	"github.com/relabs-tech/sensorhub/internal/imu"
	"github.com/relabs-tech/sensorhub/internal/input"
	"github.com/relabs-tech/sensorhub/internal/reading"
	"github.com/relabs-tech/sensorhub/internal/sensors"
)

// publisher is the part of mqtt.Client the producer needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// poller is the part of hub.Hub the pump needs.
type poller interface {
	PollEvents(buf []reading.Reading) (int, error)
}

// sink consumes one batch of readings.
type sink func([]reading.Reading) error

// OpenSources opens every configured source. A source whose device is
// missing is skipped with a warning; having none at all is an error.
func OpenSources(cfg *config.Config, logger *zap.SugaredLogger, clk clock.Clock) ([]sensors.Source, error) {
	var sources []sensors.Source

	if src, err := openScalar(cfg.LightInputName, cfg.LightControlPath, sensors.OpenLightControl,
		func(s sensors.Stream, c sensors.Controller) sensors.Source {
			return sensors.NewLightSensor(s, c, logger.Named("light"), clk)
		}); err != nil {
		logger.Warnf("light sensor not available: %v", err)
	} else {
		sources = append(sources, src)
	}

	if src, err := openScalar(cfg.ProximityInputName, cfg.ProximityControlPath, sensors.OpenProximityControl,
		func(s sensors.Stream, c sensors.Controller) sensors.Source {
			return sensors.NewProximitySensor(s, c, logger.Named("proximity"), clk)
		}); err != nil {
		logger.Warnf("proximity sensor not available: %v", err)
	} else {
		sources = append(sources, src)
	}

	if src, err := openCompass(cfg, logger.Named("compass"), clk); err != nil {
		logger.Warnf("compass not available: %v", err)
	} else {
		sources = append(sources, src)
	}

	if len(sources) == 0 {
		return nil, errors.New("no sensor sources available")
	}
	return sources, nil
}

func openScalar(
	inputName, controlPath string,
	openControl func(string) (sensors.Controller, error),
	build func(sensors.Stream, sensors.Controller) sensors.Source,
) (sensors.Source, error) {
	dev, err := input.OpenByName(inputName)
	if err != nil {
		return nil, err
	}
	ctrl, err := openControl(controlPath)
	if err != nil {
		dev.Close()
		return nil, err
	}
	return build(dev, ctrl), nil
}

func openCompass(cfg *config.Config, logger *zap.SugaredLogger, clk clock.Clock) (sensors.Source, error) {
	if cfg.IMUBridge == config.BridgeOff {
		dev, err := input.OpenByName(cfg.CompassInputName)
		if err != nil {
			return nil, err
		}
		ctrl, err := sensors.OpenCompassControl(cfg.CompassControlPath)
		if err != nil {
			dev.Close()
			return nil, err
		}
		return sensors.NewCompassSensor(dev, ctrl, logger), nil
	}

	var imuReader imu.Reader
	switch cfg.IMUBridge {
	case config.BridgeMock:
		logger.Infof("using mock IMU")
		imuReader = sensors.NewMockIMU(clk)
	case config.BridgeMPU9250:
		r, err := sensors.NewMPU9250Source("imu", cfg.IMUSPIDevice, cfg.IMUCSPin, logger)
		if err != nil {
			return nil, err
		}
		imuReader = r
	}

	var envReader env.Reader
	if cfg.BMPSPIDevice != "" {
		r, err := sensors.NewBMPSource("bmp", cfg.BMPSPIDevice)
		if err != nil {
			logger.Warnf("BMP not available, no temperature: %v", err)
		} else {
			envReader = r
		}
	}

	bridge, err := sensors.NewIMUBridge(imuReader, envReader, clk, logger)
	if err != nil {
		return nil, err
	}
	return sensors.NewCompassSensor(bridge, bridge, logger), nil
}

// activate enables the configured sensors and applies the sampling interval.
// Sensors no open source serves are skipped.
func activate(h *hub.Hub, ids []reading.SensorID, interval time.Duration, logger *zap.SugaredLogger) error {
	active := 0
	for _, id := range ids {
		if err := h.Activate(id, true); err != nil {
			if errors.Is(err, sensors.ErrInvalidArgument) {
				logger.Warnf("%v: no source, skipped", id)
				continue
			}
			return fmt.Errorf("activate %v: %w", id, err)
		}
		active++
		if err := h.SetInterval(id, interval); err != nil {
			if errors.Is(err, sensors.ErrUnsupported) {
				logger.Debugf("%v: fixed rate", id)
				continue
			}
			logger.Warnf("%v: set interval: %v", id, err)
		}
	}
	if active == 0 {
		return errors.New("no configured sensor could be activated")
	}
	logger.Infof("%d sensors active, interval %v", active, interval)
	return nil
}

// pump moves readings from p to out until ctx is done or polling fails.
// wake, when set, is called once ctx is done to unblock a PollEvents that is
// waiting on idle sensors.
func pump(ctx context.Context, p poller, buf []reading.Reading, out sink, wake func()) error {
	if wake != nil {
		stop := context.AfterFunc(ctx, wake)
		defer stop()
	}
	for ctx.Err() == nil {
		n, err := p.PollEvents(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := out(buf[:n]); err != nil {
			return err
		}
	}
	return nil
}

// mqttSink publishes each reading as retained JSON on its sensor topic.
func mqttSink(pub publisher, prefix string, logger *zap.SugaredLogger) sink {
	return func(rs []reading.Reading) error {
		for _, r := range rs {
			payload, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("marshal %v: %w", r.Sensor, err)
			}
			topic := topicFor(prefix, r.Sensor)
			if token := pub.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
				logger.Warnf("MQTT publish %s error: %v", topic, token.Error())
			}
		}
		return nil
	}
}

// startHub opens the sources and activates the configured sensors. The
// returned wake source is polled last and belongs to the hub.
func startHub(cfg *config.Config, logger *zap.SugaredLogger) (*hub.Hub, *wakeSource, error) {
	sources, err := OpenSources(cfg, logger, clock.New())
	if err != nil {
		return nil, nil, err
	}
	waker, err := newWakeSource()
	if err != nil {
		closeSources(sources)
		return nil, nil, err
	}
	sources = append(sources, waker)

	h, err := hub.New(logger.Named("hub"), sources...)
	if err != nil {
		closeSources(sources)
		return nil, nil, err
	}
	interval := time.Duration(cfg.SampleInterval) * time.Millisecond
	if err := activate(h, cfg.SensorsEnabled, interval, logger); err != nil {
		h.Close()
		return nil, nil, err
	}
	return h, waker, nil
}

func closeSources(sources []sensors.Source) {
	for _, src := range sources {
		src.Close()
	}
}

// RunHub polls the sensors and publishes every reading to MQTT.
func RunHub(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) error {
	logger.Infof("starting sensorhub producer")

	h, waker, err := startHub(cfg, logger)
	if err != nil {
		return err
	}
	defer h.Close()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(disconnectQuiesceMS)
	logger.Infof("connected to MQTT at %s, publishing under %s/", cfg.MQTTBroker, cfg.TopicPrefix)

	buf := make([]reading.Reading, cfg.PollBufferSize)
	return pump(ctx, h, buf, mqttSink(client, cfg.TopicPrefix, logger), waker.Wake)
}
