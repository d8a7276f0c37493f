// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import "flag"

var (
	flagDev, flagVersion, flagLogDateTime, flagLegacyEnvParser bool
	flagConfigFile, flagEnvFile, flagLogLevel                  string
)

func cliInit() {
	flag.BoolVar(&flagDev, "dev", false, "Enable development components: Swagger UI")
	flag.BoolVar(&flagVersion, "version", false, "Show version information and exit")
	flag.BoolVar(&flagLogDateTime, "logdate", false, "Set this flag to add date and time to log messages")
	flag.BoolVar(&flagLegacyEnvParser, "legacy-env-parser", false, "Use the dependency-free .env parser instead of godotenv")
	flag.StringVar(&flagConfigFile, "config", "./config.json", "Specify alternative path to `config.json`")
	flag.StringVar(&flagEnvFile, "env", "./.env", "Path to a `.env` file to load into the process environment, if present")
	flag.StringVar(&flagLogLevel, "loglevel", "info", "Sets the logging level: `[debug, info, warn, err, crit]`")
	flag.Parse()
}
