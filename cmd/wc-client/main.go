package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gcpreston/webcandy-client/internal/agent"
	"github.com/gcpreston/webcandy-client/internal/auth"
	"github.com/gcpreston/webcandy-client/internal/config"
	"github.com/gcpreston/webcandy-client/internal/renderer"
)

// These variables will be set by the build script
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("wc-client", flag.ExitOnError)
	configPath := fs.String("config", "config.json", "path to the configuration file")
	host := fs.String("host", "", "Webcandy host, overrides the config file")
	proxyPort := fs.Int("proxy-port", 0, "websocket proxy port, overrides the config file")
	appPort := fs.Int("app-port", 0, "API port, overrides the config file")
	unsecure := fs.Bool("unsecure", false, "skip TLS verification on the token request")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flags] <username> <password> [client_name]\n", fs.Name())
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])

	args := fs.Args()
	if len(args) < 2 {
		fs.Usage()
		return 2
	}
	username, password := args[0], args[1]

	log.Printf("Starting Webcandy client version: %s, commit: %s, built: %s", version, commit, date)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("[Main] %v", err)
		return 1
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *proxyPort != 0 {
		cfg.Server.ProxyPort = *proxyPort
	}
	if *appPort != 0 {
		cfg.Server.AppPort = *appPort
	}
	if *unsecure {
		cfg.Server.Unsecure = true
	}
	if len(args) > 2 {
		cfg.ClientName = args[2]
	}
	if cfg.ClientName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "webcandy-client"
		}
		cfg.ClientName = hostname
	}

	token, err := auth.Login(cfg.APIBaseURL(), username, password, cfg.Server.Unsecure)
	if err != nil {
		log.Printf("[Main] Authentication failed: %v", err)
		return 1
	}
	log.Printf("[Main] Authenticated as %s", username)

	fc := renderer.NewSupervisor(cfg.RendererAddr(), cfg.Renderer.BinDir)
	if err := fc.Start(); err != nil {
		// Not fatal: runs will keep retrying the sink connection, and the
		// renderer may be managed outside this process.
		log.Printf("[Main] Could not start the renderer: %v", err)
	}
	defer fc.Stop()

	a := agent.New(cfg, token)
	runErr := make(chan error, 1)
	go func() { runErr <- a.Run() }()

	// Wait for termination signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Println("Shutting down...")
		a.Shutdown()
	case err := <-runErr:
		a.Shutdown()
		if err != nil {
			log.Printf("[Main] %v", err)
			return 1
		}
	}
	log.Println("Client shut down gracefully.")
	return 0
}
