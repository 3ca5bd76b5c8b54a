/*
Copyright © 2026 Loom <oss@loomhq.dev>
*/
package main

import "github.com/loomhq/docsync/cmd"

func main() {
	cmd.Execute()
}
