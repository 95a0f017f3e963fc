// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/sensorhub/internal/config"
	"github.com/relabs-tech/sensorhub/internal/reading"
)

const (
	displayWidth  = 128
	displayHeight = 64
	lineHeight    = 10
)

// displayLines renders the latest readings as short lines for a 128x64
// panel, one per sensor.
func displayLines(readings []reading.Reading) []string {
	if len(readings) == 0 {
		return []string{"sensorhub", "Waiting..."}
	}
	lines := make([]string, 0, len(readings))
	for _, r := range readings {
		switch r.Sensor {
		case reading.Accelerometer:
			v := r.Acceleration
			lines = append(lines, fmt.Sprintf("A%5.1f%5.1f%5.1f", v.X, v.Y, v.Z))
		case reading.MagneticField:
			v := r.Magnetic
			lines = append(lines, fmt.Sprintf("M%5.0f%5.0f%5.0f", v.X, v.Y, v.Z))
		case reading.Orientation:
			o := r.Orientation
			lines = append(lines, fmt.Sprintf("H%4.0f P%4.0f R%4.0f", o.Azimuth, o.Pitch, o.Roll))
		case reading.Temperature:
			lines = append(lines, fmt.Sprintf("Temp %.0f C", r.Scalar))
		case reading.Proximity:
			lines = append(lines, fmt.Sprintf("Prox %.0f cm", r.Scalar))
		case reading.Light:
			lines = append(lines, fmt.Sprintf("Light %.0f lux", r.Scalar))
		}
	}
	return lines
}

// renderLines draws up to six lines of text into a panel-sized image.
func renderLines(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		y := (i + 1) * lineHeight
		if y > displayHeight {
			break
		}
		drawer.Dot = fixed.P(0, y)
		drawer.DrawString(line)
	}
	return img
}

// RunDisplay shows the latest published readings on an SSD1306 panel.
func RunDisplay(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(cfg.DisplayI2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	defer dev.Halt()
	logger.Infof("display: initialized on I2C bus %q", cfg.DisplayI2CBus)

	store := newLatestStore(logger)
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(disconnectQuiesceMS)
	if err := subscribeReadings(client, cfg.TopicPrefix, store.handle); err != nil {
		return err
	}
	logger.Infof("display: subscribed to %s/#", cfg.TopicPrefix)

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	for {
		img := renderLines(displayLines(store.snapshot()))
		if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
			logger.Warnf("display: update error: %v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
