package mqtt

import (
	"errors"

	"github.com/eclipse/paho.mqtt.golang/packets"

	coremqtt "github.com/kilianp07/computer2mqtt/core/mqtt"
)

// newTransportError wraps a paho error, preferring the CONNACK return codes
// over text matching.
func newTransportError(op string, err error) *coremqtt.TransportError {
	return &coremqtt.TransportError{Op: op, Kind: classify(err), Err: err}
}

func classify(err error) coremqtt.ErrorKind {
	switch {
	case errors.Is(err, packets.ErrorRefusedBadUsernameOrPassword),
		errors.Is(err, packets.ErrorRefusedNotAuthorised):
		return coremqtt.KindAuth
	case errors.Is(err, packets.ErrorRefusedServerUnavailable),
		errors.Is(err, packets.ErrorRefusedIDRejected),
		errors.Is(err, packets.ErrorRefusedBadProtocolVersion):
		return coremqtt.KindRefused
	}
	return coremqtt.Classify(err)
}
