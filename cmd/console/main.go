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
	log.Println("starting sensorhub console (MQTT subscriber)")

	if err := app.Execute(context.Background(), "console", config.DefaultPath, false, app.RunConsole); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
