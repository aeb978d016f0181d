package mesh

import (
	"fmt"
	"os"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
)

// Bus wraps an embedded NATS server so the mesh can run without any
// external infrastructure.
type Bus struct {
	server *natsserver.Server
}

// BusConfig holds embedded server settings.
type BusConfig struct {
	// Port is the listen port; 0 picks a random free port.
	Port int
	// DataDir is the JetStream store directory. Empty disables JetStream.
	DataDir string
}

// NewBus starts an in-process NATS server and waits for it to accept
// connections.
func NewBus(cfg BusConfig) (*Bus, error) {
	opts := &natsserver.Options{
		Port:   cfg.Port,
		NoLog:  true,
		NoSigs: true,
	}
	if cfg.Port == 0 {
		opts.Port = natsserver.RANDOM_PORT
	}
	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create mesh data dir: %w", err)
		}
		opts.JetStream = true
		opts.StoreDir = cfg.DataDir
	}

	ns, err := natsserver.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create mesh server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		return nil, fmt.Errorf("mesh server not ready")
	}

	return &Bus{server: ns}, nil
}

// ClientURL returns the address clients connect to.
func (b *Bus) ClientURL() string {
	return b.server.ClientURL()
}

// Close shuts the server down and waits for it to stop.
func (b *Bus) Close() {
	b.server.Shutdown()
	b.server.WaitForShutdown()
}
