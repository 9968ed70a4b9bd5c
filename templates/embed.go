// Package templates embeds the files written by `devtimer init`.
package templates

import "embed"

//go:embed config.yaml modes
var FS embed.FS
