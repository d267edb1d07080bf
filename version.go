package coverfetch

import (
	_ "embed"
	"strings"
)

//go:embed version.txt
var version string
var Version = strings.TrimSpace(version)

var Name = "coverfetch"

// UserAgent identifies us to MusicBrainz and the Cover Art Archive.
var UserAgent = Name + "/" + Version + " ( https://go.senan.xyz/coverfetch )"
