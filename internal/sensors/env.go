// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	"go.uber.org/multierr"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/sensorhub/internal/env"
)

type bmpSource struct {
	name string
	dev  *bmxx80.Dev
}

// NewBMPSource opens a BMP280 on spiDev.
func NewBMPSource(name, spiDev string) (env.Reader, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	bus, err := spireg.Open(spiDev)
	if err != nil {
		return nil, fmt.Errorf("%s BMP SPI open: %w", name, err)
	}

	dev, err := bmxx80.NewSPI(bus, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("%s BMP init: %w", name, err), bus.Close())
	}
	return &bmpSource{name: name, dev: dev}, nil
}

// ReadEnv reads temperature and pressure.
func (s *bmpSource) ReadEnv() (env.Sample, error) {
	var e physic.Env
	if err := s.dev.Sense(&e); err != nil {
		return env.Sample{}, fmt.Errorf("%s BMP sense: %w", s.name, err)
	}
	return env.Sample{
		Source:      s.name,
		Temperature: e.Temperature.Celsius(),
		Pressure:    float64(e.Pressure) / float64(physic.Pascal),
	}, nil
}
