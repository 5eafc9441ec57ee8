package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net"
	"os"
	"time"

	mqtt "github.com/vvuk/cassini"
	"github.com/vvuk/cassini/discovery"
	"github.com/vvuk/cassini/httpfile"
	"github.com/vvuk/cassini/session"
	"golang.org/x/sync/errgroup"
)

// config is the JSON shape read from -config.
type config struct {
	Broker struct {
		URL string `json:"url"`
	} `json:"broker"`
	HTTP struct {
		URL string `json:"url"`
	} `json:"http"`
	Admin struct {
		URL string `json:"url"`
	} `json:"admin"`
	Discovery struct {
		BroadcastAddr string `json:"broadcastAddr"`
		ProbeWindowMS int    `json:"probeWindowMs"`
	} `json:"discovery"`
	SessionTimeoutMS int `json:"sessionTimeoutMs"`
}

func defaultConfig() config {
	var c config
	c.Broker.URL = "mqtt://0.0.0.0:0"
	c.HTTP.URL = "0.0.0.0:0"
	c.Admin.URL = "0.0.0.0:9090"
	c.Discovery.BroadcastAddr = "255.255.255.255"
	c.Discovery.ProbeWindowMS = 1000
	c.SessionTimeoutMS = 5000
	return c
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	configPath := flag.String("config", "", "Path to config file (optional; defaults used when absent)")
	flag.Parse()

	cfg := defaultConfig()
	if *configPath != "" {
		b, err := os.ReadFile(*configPath)
		if err != nil {
			log.Fatal(err)
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			log.Fatalf("parse config: %v", err)
		}
	}

	group, ctx := errgroup.WithContext(context.Background())

	broker := mqtt.NewServer(ctx)
	brokerLn, err := net.Listen("tcp", urlHost(cfg.Broker.URL))
	if err != nil {
		log.Fatalf("broker listen: %v", err)
	}
	brokerPort := brokerLn.Addr().(*net.TCPAddr).Port
	group.Go(func() error { return broker.Serve(brokerLn) })

	httpSrv := httpfile.NewServer()
	group.Go(func() error { return httpSrv.ListenAndServe(cfg.HTTP.URL) })
	for i := 0; httpSrv.Addr() == nil && i < 1000; i++ {
		time.Sleep(time.Millisecond)
	}
	httpAddr, ok := httpSrv.Addr().(*net.TCPAddr)
	if !ok {
		log.Fatal("httpfile: server did not bind in time")
	}
	httpPort := httpAddr.Port

	if cfg.Admin.URL != "" {
		group.Go(func() error { return mqtt.Httpd(cfg.Admin.URL) })
	}

	group.Go(func() error {
		return runSession(ctx, &cfg, broker, httpSrv, brokerPort, httpPort)
	})

	if err := group.Wait(); err != nil {
		log.Fatal(err)
	}
}

// runSession discovers the first printer that answers and drives it
// through the connect handshake. What to do with a connected session
// (upload, print, status) is a front-end decision; this just brings the
// session to Ready and leaves it running.
func runSession(ctx context.Context, cfg *config, broker *mqtt.Server, httpSrv *httpfile.Server, brokerPort, httpPort int) error {
	window := time.Duration(cfg.Discovery.ProbeWindowMS) * time.Millisecond
	descriptors, err := discovery.Probe(ctx, cfg.Discovery.BroadcastAddr, window)
	if err != nil {
		return err
	}
	if len(descriptors) == 0 {
		log.Printf("discovery: no printers found")
		return nil
	}

	d := descriptors[0]
	log.Printf("discovery: found %s at %s", d.Describe(), d.Addr)

	s := session.New(d, broker, httpSrv, brokerPort, httpPort)
	s.SetTimeout(time.Duration(cfg.SessionTimeoutMS) * time.Millisecond)

	if err := s.Connect(ctx); err != nil {
		return err
	}
	log.Printf("session ready: %s", s.Describe())
	<-ctx.Done()
	return ctx.Err()
}

func urlHost(u string) string {
	// Config carries broker.url as "mqtt://host:port"; the broker's own
	// ListenAndServe already parses that form, but we need the bare
	// host:port before the server exists to discover the bound port.
	const prefix = "mqtt://"
	if len(u) >= len(prefix) && u[:len(prefix)] == prefix {
		return u[len(prefix):]
	}
	return u
}
