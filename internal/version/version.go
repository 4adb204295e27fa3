// ABOUTME: Version information for the ascii-video player
// ABOUTME: Reported in the TUI header, logs and -version output
package version

const (
	// Version is the current release
	Version = "0.3.0"

	// Product is the player name shown to users
	Product = "ascii-video"

	// Manufacturer identifies the maintainer
	Manufacturer = "cobyj33"
)
