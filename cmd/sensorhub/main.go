// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/relabs-tech/sensorhub/internal/app"
	"github.com/relabs-tech/sensorhub/internal/config"
)

// action runs fn with the global flags of c.
func action(name string, fn app.RunFunc) cli.ActionFunc {
	return func(c *cli.Context) error {
		if err := app.Execute(c.Context, name, c.String("config"), c.Bool("debug"), fn); err != nil {
			return cli.Exit(err.Error(), 1)
		}
		return nil
	}
}

func main() {
	cliApp := &cli.App{
		Name:  "sensorhub",
		Usage: "multiplex light, proximity and compass sensors and publish their readings",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   config.DefaultPath,
				Usage:   "KEY=VALUE configuration file",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "poll the sensors and publish readings to MQTT",
				Action: action("producer", app.RunHub),
			},
			{
				Name:  "console",
				Usage: "print readings as they arrive",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "local",
						Usage: "poll the sensors directly instead of subscribing to MQTT",
					},
				},
				Action: func(c *cli.Context) error {
					if c.Bool("local") {
						return action("console", app.RunLocalConsole)(c)
					}
					return action("console", app.RunConsole)(c)
				},
			},
			{
				Name:   "web",
				Usage:  "serve the latest readings over HTTP and WebSocket",
				Action: action("web", app.RunWeb),
			},
			{
				Name:   "display",
				Usage:  "show the latest readings on an SSD1306 panel",
				Action: action("display", app.RunDisplay),
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
