// Package appfs embeds the files the binaries need at runtime.
package appfs

import "embed"

//go:embed migrations all:templates common-passwords.txt
var FS embed.FS
