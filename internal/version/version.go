// ABOUTME: Product and version identifiers
// ABOUTME: Reported in hello messages and the CLI
package version

const (
	Version      = "0.3.0"
	Product      = "pcmstream"
	Manufacturer = "Resonate"
)

// UserAgent is the identifier sent to servers
func UserAgent() string {
	return Product + "/" + Version
}
