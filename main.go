// cryptarch packs files into a single encrypted, compressed archive and
// unpacks such archives back into files.
package main

import "github.com/idunn/cryptarch/internal/commands"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	commands.Execute(version)
}
