package chatlai

// Name and description of the project.
const (
	Name        = "chatlai"
	Description = "Translation cache and language preferences for chat messages"
	Repository  = "https://github.com/ZaguanLabs/chatlai"
)

// Build information, set with ldflags:
//
//	go build -ldflags "-X github.com/ZaguanLabs/chatlai.Version=1.0.0 -X github.com/ZaguanLabs/chatlai.GitCommit=$(git rev-parse HEAD)"
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// FullVersion returns the version with the short commit appended when known.
func FullVersion() string {
	v := Version
	if GitCommit != "unknown" && GitCommit != "" {
		short := GitCommit
		if len(short) > 7 {
			short = short[:7]
		}
		v += "+" + short
	}
	return v
}

// UserAgent returns a user agent string for HTTP requests.
func UserAgent() string {
	return Name + "/" + FullVersion()
}
