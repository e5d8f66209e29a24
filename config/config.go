package config

import (
	"github.com/opensky-lab/flightpipe/internal/app/sinkers/db"
	"github.com/opensky-lab/flightpipe/internal/app/sinkers/file"
)

// Configuration contains connectivity and pipeline settings
type Configuration struct {
	Log struct {
		Level string `toml:"level" default:"info" comment:"Log level: trace, debug, info, warn, error, fatal and panic"`
	} `toml:"Log" comment:"###############################\n Logs Settings \n##############################"`

	Opensky struct {
		Credentials string `toml:"credentials" default:"credentials.json" comment:"path to the OpenSky credentials.json ({\"clientId\":...,\"clientSecret\":...})"`
		Tokenurl    string `toml:"tokenurl" default:"https://auth.opensky-network.org/auth/realms/opensky-network/protocol/openid-connect/token" comment:"OAuth2 token endpoint"`
		Statesurl   string `toml:"statesurl" default:"https://opensky-network.org/api/states/all" comment:"all-states endpoint"`
		Timeout     int    `toml:"timeout" default:"10" comment:"HTTP timeout in seconds"`
	} `toml:"Opensky" comment:"###############################\n OpenSky API Settings \n##############################"`

	Ingest struct {
		Country    string             `toml:"country" default:"Mexico" comment:"origin country filter for ingested states"`
		Sinkertype string             `toml:"sinkertype" default:"NONE" comment:"raw state mirror (NONE|STDOUT|FILE|DB)"`
		File       file.Configuration `toml:"file" comment:"###############################\n file sinker configuration \n##############################"`
		Postgres   db.Configuration   `toml:"db" comment:"###############################\n db sinker configuration \n##############################"`
	} `toml:"Ingest" comment:"###############################\n Ingestion Settings \n##############################"`

	Serve struct {
		Listen string `toml:"listen" default:":8080" comment:"listen address for the reporting API"`
	} `toml:"Serve" comment:"###############################\n Reporting API Settings \n##############################"`
}
