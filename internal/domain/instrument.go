package domain

import (
	"net"
	"strconv"
)

// InstrumentEndpoint locates an instrument controller.
type InstrumentEndpoint struct {
	Host string
	Port int
}

func (e InstrumentEndpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}
