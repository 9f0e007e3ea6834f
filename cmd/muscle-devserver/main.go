// muscle-devserver runs the development backend standalone, without the
// player CLI. Useful in CI and when pointing other clients at it.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/devserver"
	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/logging"
)

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	level := flag.String("log-level", logging.LevelInfo, "log level: debug, info, warn or error")
	flag.Parse()

	logging.Setup(*level, os.Stderr)

	fmt.Printf("dev backend listening on %s\n", *addr)
	if err := devserver.New().Router().Run(*addr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
