package main

import (
	"log"
	"runtime"
)

func init() {
	// highgui windows and the system tray both need the main OS thread.
	runtime.LockOSThread()
}

func main() {
	if err := newRootCmd(run).Execute(); err != nil {
		log.Fatalf("pageturner: %v", err)
	}
}
