// Package identity derives the MQTT addressing of this host: the sanitized
// hostname, the command subscription pattern and the client identifier.
package identity

import (
	"fmt"
	"hash/fnv"
	"os"
	"regexp"
	"strings"

	"github.com/kilianp07/computer2mqtt/core/logger"
)

const (
	// Namespace is the first topic segment. It is kept for compatibility with
	// existing publishers.
	Namespace = "mac2mqtt"
	// CommandSegment is the third topic segment of a command trigger.
	CommandSegment = "command"

	commandTopicSegments = 4
)

var disallowed = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// osHostname is replaced in tests.
var (
	defaultHostname = os.Hostname
	osHostname      = defaultHostname
)

// Sanitize keeps the part before the first dot and strips every character
// outside [A-Za-z0-9_-].
func Sanitize(raw string) string {
	short, _, _ := strings.Cut(raw, ".")
	return disallowed.ReplaceAllString(short, "")
}

// ResolveHostname returns override verbatim when set, otherwise the sanitized
// OS host name.
func ResolveHostname(override string, log logger.Logger) (string, error) {
	if override != "" {
		log.Infof("Using hostname from config: %s", override)
		return override, nil
	}
	raw, err := osHostname()
	if err != nil {
		return "", fmt.Errorf("read host name: %w", err)
	}
	host := Sanitize(raw)
	log.Infof("Auto-detected hostname: %s", raw)
	log.Infof("Sanitized auto-detected hostname: %s", host)
	return host, nil
}

// SubscribePattern is the multi-level wildcard filter for host commands.
func SubscribePattern(host string) string {
	return Namespace + "/" + host + "/" + CommandSegment + "/#"
}

// CommandTopic is the topic a publisher uses to trigger key on host.
func CommandTopic(host, key string) string {
	return Namespace + "/" + host + "/" + CommandSegment + "/" + key
}

// ParseCommandTopic returns the command key of a four segment topic.
func ParseCommandTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != commandTopicSegments || parts[2] != CommandSegment {
		return "", false
	}
	return parts[3], true
}

// ClientID is stable per host and user so brokers can recognise a returning
// client: computer2mqtt-<host>-<4 digit hash of user>.
func ClientID(host, user string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(user))
	return fmt.Sprintf("computer2mqtt-%s-%04d", host, h.Sum32()%10000)
}
