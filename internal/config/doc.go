// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

/*
Package config loads Altivion configuration with Koanf v2.

Sources are layered, later layers winning:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: CONFIG_PATH, then config.yaml / config.yml in the
    working directory, then /etc/altivion/config.yaml
 3. Environment variables, through an explicit name -> key table so stray
    variables never leak into the configuration

Example config.yaml:

	source:
	  base_url: http://sightings.local:8000
	baseline:
	  interval: 5s
	replay:
	  default_speed: 8
	logging:
	  level: debug

Durations accept Go duration strings ("1.5s", "5m"). CORS_ORIGINS takes a
comma-separated list.

The loaded Config is validated before it is returned and is read-only
afterwards.
*/
package config
