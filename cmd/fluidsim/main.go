package main

import (
	"flag"
	"log"
	"runtime"

	"github.com/bhamel27/AnimationFluide/app"
)

func init() {
	//GLFW event handling must run on the main OS thread.
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "Path to a scene configuration file. Empty runs the built-in scene.")
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if err := app.Run(cfg); err != nil {
		log.Fatal(err)
	}
}
