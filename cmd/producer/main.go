// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"log"

	"github.com/relabs-tech/sensorhub/internal/app"
	"github.com/relabs-tech/sensorhub/internal/config"
)

func main() {
	log.Println("starting sensorhub producer (MQTT publisher)")

	if err := app.Execute(context.Background(), "producer", config.DefaultPath, false, app.RunHub); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
