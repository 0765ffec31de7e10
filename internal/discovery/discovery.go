// Package discovery implements the UDP broadcast beacon/reply exchange
// used to find receivers on the LAN (spec.md §4.A, §4.B), grounded on
// original_source/discoverHosts.py (send_discovery_message,
// listen_for_responses, listen_for_discovery).
package discovery

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/qcent/lanxfer/internal/config"
	"github.com/qcent/lanxfer/internal/netinfo"
)

// Host is one reply collected during a Discover call.
type Host struct {
	Hostname string
	Addr     net.IP
	Port     int
}

// Discover broadcasts the discovery code on config.DiscoveryPort and
// collects replies arriving on config.DiscoveryPort+1 until timeout
// elapses. Duplicate replies (a host answering more than once, or two
// interfaces on the same host replying) are passed through unfiltered;
// deduplication is left to the caller, per spec.md §4.B.
func Discover(timeout time.Duration) ([]Host, error) {
	info, err := netinfo.Probe()
	if err != nil {
		return nil, err
	}

	listenAddr := &net.UDPAddr{Port: config.DiscoveryPort + 1}
	conn, err := net.ListenUDP("udp4", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("discovery: listen for replies: %w", err)
	}
	defer conn.Close()

	bcastAddr := &net.UDPAddr{IP: info.Broadcast, Port: config.DiscoveryPort}
	sender, err := net.DialUDP("udp4", nil, bcastAddr)
	if err != nil {
		return nil, fmt.Errorf("discovery: dial broadcast: %w", err)
	}
	defer sender.Close()

	if _, err := sender.Write([]byte(config.DiscoveryCode)); err != nil {
		return nil, fmt.Errorf("discovery: send beacon: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(timeout))
	var hosts []Host
	buf := make([]byte, 512)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			break // deadline reached or socket closed
		}
		reply := string(buf[:n])
		hostname, port, ok := parseReply(reply)
		if !ok {
			continue
		}
		hosts = append(hosts, Host{Hostname: hostname, Addr: addr.IP, Port: port})
	}
	return hosts, nil
}

// parseReply splits a "hostname:port" reply payload.
func parseReply(s string) (hostname string, port int, ok bool) {
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return "", 0, false
	}
	p, err := strconv.Atoi(s[idx+1:])
	if err != nil {
		return "", 0, false
	}
	return s[:idx], p, true
}

// Server answers discovery beacons with this host's name and service port
// until Stop is called. Grounded on
// original_source/discoverHosts.py::listen_for_discovery.
type Server struct {
	ServicePort int

	conn   *net.UDPConn
	done   chan struct{}
	closed bool
}

// Start binds config.DiscoveryPort and begins replying in a goroutine.
func (s *Server) Start() error {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: config.DiscoveryPort})
	if err != nil {
		return fmt.Errorf("discovery: listen: %w", err)
	}
	s.conn = conn
	s.done = make(chan struct{})

	hostname, _ := os.Hostname()
	reply := fmt.Sprintf("%s:%d", hostname, s.ServicePort)

	go s.serve(reply)
	return nil
}

func (s *Server) serve(reply string) {
	buf := make([]byte, 512)
	for {
		s.conn.SetReadDeadline(time.Now().Add(time.Second))
		n, addr, err := s.conn.ReadFromUDP(buf)
		select {
		case <-s.done:
			return
		default:
		}
		if err != nil {
			continue // read timeout, loop to re-check done
		}
		if string(buf[:n]) != config.DiscoveryCode {
			continue
		}
		replyAddr := &net.UDPAddr{IP: addr.IP, Port: config.DiscoveryPort + 1}
		sender, err := net.DialUDP("udp4", nil, replyAddr)
		if err != nil {
			continue
		}
		sender.Write([]byte(reply))
		sender.Close()
	}
}

// Stop closes the listening socket and signals the reply goroutine to exit;
// it does not wait for that goroutine to return.
func (s *Server) Stop() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	s.conn.Close()
}
