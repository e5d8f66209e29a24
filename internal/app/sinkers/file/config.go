package file

// Configuration settings for file sinking
type Configuration struct {
	Outputraw string `toml:"outputraw" default:"rawStates.log" comment:"output raw state vectors file name"`
}
