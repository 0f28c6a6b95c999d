package database

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

// ConnectNATS dials the mutation event broker. An empty URL disables NATS;
// the event publisher is nil-safe.
func ConnectNATS(url, appName string) (*nats.Conn, error) {
	if url == "" {
		return nil, nil
	}

	conn, err := nats.Connect(url, nats.Name(appName))
	if err != nil {
		return nil, fmt.Errorf("unable to connect to nats: %w", err)
	}

	return conn, nil
}
