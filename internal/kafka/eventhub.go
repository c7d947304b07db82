package kafka

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// eventHubKafkaPort is the Kafka endpoint every Event Hubs namespace exposes.
const eventHubKafkaPort = "9093"

// EventHubUser is the fixed SASL username when authenticating with a connection string.
const EventHubUser = "$ConnectionString"

// ParseEventHubConnectionString converts an Event Hubs connection string
// (Endpoint=sb://<ns>.servicebus.windows.net/;SharedAccessKeyName=..;SharedAccessKey=..;EntityPath=<hub>)
// into Kafka settings. EntityPath, when present, becomes the topic.
func ParseEventHubConnectionString(cs string) (Config, error) {
	cs = strings.TrimSpace(cs)
	parts := map[string]string{}
	for _, seg := range strings.Split(cs, ";") {
		if seg == "" {
			continue
		}
		k, v, ok := strings.Cut(seg, "=")
		if !ok {
			return Config{}, fmt.Errorf("eventhub connection string: malformed segment %q", seg)
		}
		parts[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}

	endpoint := parts["endpoint"]
	if endpoint == "" {
		return Config{}, fmt.Errorf("eventhub connection string: missing Endpoint")
	}
	if parts["sharedaccesskeyname"] == "" || parts["sharedaccesskey"] == "" {
		return Config{}, fmt.Errorf("eventhub connection string: missing SharedAccessKeyName/SharedAccessKey")
	}

	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return Config{}, fmt.Errorf("eventhub connection string: bad Endpoint %q", endpoint)
	}

	host := u.Hostname()
	return Config{
		Brokers:  []string{net.JoinHostPort(host, eventHubKafkaPort)},
		Topic:    parts["entitypath"],
		Username: EventHubUser,
		Password: cs,
		TLS:      true,
	}, nil
}
