// Package banner prints the startup banner and an effective-config summary.
package banner

import (
	"fmt"
	"io"

	"meshbbs/pkg/config"
)

const banner = `
███╗   ███╗███████╗███████╗██╗  ██╗      ██████╗ ██████╗ ███████╗
████╗ ████║██╔════╝██╔════╝██║  ██║      ██╔══██╗██╔══██╗██╔════╝
██╔████╔██║█████╗  ███████╗███████║█████╗██████╔╝██████╔╝███████╗
██║╚██╔╝██║██╔══╝  ╚════██║██╔══██║╚════╝██╔══██╗██╔══██╗╚════██║
██║ ╚═╝ ██║███████╗███████║██║  ██║      ██████╔╝██████╔╝███████║
╚═╝     ╚═╝╚══════╝╚══════╝╚═╝  ╚═╝      ╚═════╝ ╚═════╝ ╚══════╝
`

// Print writes the banner, version and effective configuration. Defaults
// must already be applied.
func Print(w io.Writer, eff config.EffectiveConfigResult, version string) {
	if version == "" {
		version = "dev"
	}
	fmt.Fprint(w, banner)
	fmt.Fprintf(w, "version %s\n\n", version)
	config.LogSummary(w, eff)
}
