package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaunagostinho/carputer/internal/config"
	"github.com/shaunagostinho/carputer/internal/logger"
	"github.com/shaunagostinho/carputer/internal/loop"
	"github.com/shaunagostinho/carputer/internal/serialio"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to config file")
	initConfig := flag.Bool("init-config", false, "Write the effective config to -config and exit")
	verbose := flag.Bool("v", false, "Log vehicle state every iteration")
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("[main] carputer passthrough starting")

	cfg := config.LoadConfig(*configPath)
	if *verbose {
		cfg.Loop.Verbose = true
	}
	if *initConfig {
		if err := cfg.Save(); err != nil {
			log.Fatalf("[main] write config: %v", err)
		}
		log.Printf("[main] wrote %s", cfg.Path())
		return
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[main] %v", err)
	}

	if path := cfg.Logging.DebugFile; path != "" {
		w, f, err := logger.OpenDebugFile(path, os.Stderr)
		if err != nil {
			log.Printf("[main] warning: process log stays on console only: %v", err)
		} else {
			defer f.Close()
			log.SetOutput(w)
			log.Printf("[main] process log copied to %s", path)
		}
	}

	// Create context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("[main] received %v, closing...", sig)
		cancel()
	}()

	// Any port that fails to open is fatal: the loop never starts.
	opener := serialio.NewOpener()
	var ports []serialio.Port
	open := func(name string, pc serialio.PortConfig) serialio.Port {
		log.Printf("[main] using %s port %s at %d baud", name, pc.PortPath, pc.BaudRate)
		p, err := opener.Open(pc)
		if err != nil {
			for _, opened := range ports {
				opened.Close()
			}
			log.Fatalf("[main] could not open %s port: %v", name, err)
		}
		ports = append(ports, p)
		return p
	}
	defer func() {
		for _, p := range ports {
			p.Close()
		}
	}()

	inPort := open("input", cfg.Input)
	src := loop.Sources{Input: serialio.NewSource("input", inPort)}
	outPort := inPort
	if cfg.SharedPort() {
		log.Printf("[main] input and output share %s", cfg.Input.PortPath)
		src.Output = src.Input
	} else {
		outPort = open("output", cfg.Output)
		src.Output = serialio.NewSource("output", outPort)
	}

	logPorts := map[string]serialio.PortConfig{
		"input":  cfg.Input,
		"output": cfg.Output,
	}
	if cfg.IMU.Enabled {
		src.IMU = serialio.NewSource("imu", open("imu", cfg.IMU.PortConfig))
		logPorts["imu"] = cfg.IMU.PortConfig
	} else {
		log.Printf("[main] imu disabled")
	}
	log.Printf("[main] serial ports ready")

	telemetry := logger.New(cfg.Logging, logPorts)
	defer telemetry.Close()

	l := loop.New(loop.Config{
		Period:  cfg.Loop.Period(),
		Verbose: cfg.Loop.Verbose,
	}, src, outPort, telemetry)
	if err := l.Run(ctx); err != nil {
		log.Printf("[main] loop exited: %v", err)
	}
}
