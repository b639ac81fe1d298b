package ingestor

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/GabrielNunesIT/go-libs/logger"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/config"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/jsonvalue"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/model"
)

// Metadata keys set on syslog records.
const (
	MetaProtocol   = "protocol"
	MetaRemoteAddr = "remote_addr"
)

// maxDatagram is the largest UDP payload.
const maxDatagram = 65535

// UDPListenerFactory creates a UDP connection.
type UDPListenerFactory func(network, address string) (net.PacketConn, error)

// TCPListenerFactory creates a TCP listener.
type TCPListenerFactory func(network, address string) (net.Listener, error)

// SyslogOption configures the SyslogIngestor.
type SyslogOption func(*SyslogIngestor)

// WithUDPListenerFactory sets a custom UDP listener factory.
func WithUDPListenerFactory(f UDPListenerFactory) SyslogOption {
	return func(s *SyslogIngestor) {
		s.udpFactory = f
	}
}

// WithTCPListenerFactory sets a custom TCP listener factory.
func WithTCPListenerFactory(f TCPListenerFactory) SyslogOption {
	return func(s *SyslogIngestor) {
		s.tcpFactory = f
	}
}

// SyslogIngestor receives syslog messages over UDP or TCP. Every message
// becomes a JSON object whose "message" member holds the text after the
// syslog header, so an nginx access_log shipped with syslog:server=... reaches
// the units in the same shape as a journal entry.
type SyslogIngestor struct {
	cfg        config.SyslogIngestorConfig
	name       string
	logger     logger.ILogger
	udpFactory UDPListenerFactory
	tcpFactory TCPListenerFactory
}

// NewSyslogIngestor creates a new syslog ingestor.
func NewSyslogIngestor(cfg config.SyslogIngestorConfig, log logger.ILogger, opts ...SyslogOption) *SyslogIngestor {
	s := &SyslogIngestor{
		cfg:    cfg,
		name:   "syslog",
		logger: log.SubLogger("SyslogIngestor"),
		udpFactory: func(network, address string) (net.PacketConn, error) {
			return net.ListenPacket(network, address)
		},
		tcpFactory: net.Listen,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the ingestor identifier.
func (s *SyslogIngestor) Name() string {
	return s.name
}

// Start listens until ctx is done.
func (s *SyslogIngestor) Start(ctx context.Context, out chan<- *model.Record) error {
	defer close(out)

	switch strings.ToLower(s.cfg.Protocol) {
	case "udp":
		return s.startUDP(ctx, out)
	case "tcp":
		return s.startTCP(ctx, out)
	default:
		return fmt.Errorf("unsupported syslog protocol: %s", s.cfg.Protocol)
	}
}

func (s *SyslogIngestor) startUDP(ctx context.Context, out chan<- *model.Record) error {
	conn, err := s.udpFactory("udp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("listening on UDP: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	s.logger.Infof("listening for syslog: protocol=udp address=%s", s.cfg.Address)

	buf := make([]byte, maxDatagram)
	for {
		n, remote, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Debugf("udp read error: %v", err)
			continue
		}

		rec, err := s.record(buf[:n], "udp", remote)
		if err != nil {
			s.logger.Warningf("dropping syslog datagram: %v", err)
			continue
		}

		select {
		case out <- rec:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *SyslogIngestor) startTCP(ctx context.Context, out chan<- *model.Record) error {
	listener, err := s.tcpFactory("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("listening on TCP: %w", err)
	}
	defer listener.Close()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Infof("listening for syslog: protocol=tcp address=%s", s.cfg.Address)

	// out is closed by Start only after every connection handler has returned.
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Debugf("tcp accept error: %v", err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleTCPConnection(ctx, conn, out)
		}()
	}
}

// handleTCPConnection reads newline-framed messages from one connection.
func (s *SyslogIngestor) handleTCPConnection(ctx context.Context, conn net.Conn, out chan<- *model.Record) {
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	remote := conn.RemoteAddr()
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		rec, err := s.record(line, "tcp", remote)
		if err != nil {
			s.logger.Warningf("dropping syslog line: %v", err)
			continue
		}

		select {
		case out <- rec:
		case <-ctx.Done():
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		s.logger.Debugf("tcp connection %s closed: %v", remote, err)
	}
}

func (s *SyslogIngestor) record(raw []byte, protocol string, remote net.Addr) (*model.Record, error) {
	payload, err := syslogPayload(raw)
	if err != nil {
		return nil, err
	}
	rec := model.NewRecord(s.name, payload)
	rec.Metadata[MetaProtocol] = protocol
	if remote != nil {
		rec.Metadata[MetaRemoteAddr] = remote.String()
	}
	return rec, nil
}

var (
	// <PRI>, the part common to both formats.
	syslogPriRegexp = regexp.MustCompile(`^<(\d{1,3})>`)

	// RFC 5424: VERSION TIMESTAMP HOSTNAME APP-NAME PROCID MSGID SD [MSG].
	syslog5424Regexp = regexp.MustCompile(`^1 (\S+) (\S+) (\S+) (\S+) (\S+) (-|(?:\[[^\]]*\])+)(?: (.*))?$`)

	// RFC 3164: Mmm dd hh:mm:ss HOSTNAME TAG[PID]: MSG.
	syslog3164Regexp = regexp.MustCompile(`^([A-Z][a-z]{2} [ 0-9]\d \d{2}:\d{2}:\d{2}) (\S+) ([^\s:\[]+)(?:\[([^\]]*)\])?: ?(.*)$`)
)

// syslogMessage is the parsed form of one syslog line.
type syslogMessage struct {
	message  string
	hostname string
	tag      string
	pid      string
	priority int
	hasPri   bool
}

// parseSyslog splits raw into header fields and message text. Anything it
// does not recognise is kept whole as the message.
func parseSyslog(raw string) syslogMessage {
	raw = strings.TrimRight(raw, "\r\n")

	var m syslogMessage
	rest := raw
	if loc := syslogPriRegexp.FindStringSubmatchIndex(raw); loc != nil {
		pri, err := strconv.Atoi(raw[loc[2]:loc[3]])
		if err == nil && pri <= 191 {
			m.priority = pri
			m.hasPri = true
			rest = raw[loc[1]:]
		}
	}

	if g := syslog5424Regexp.FindStringSubmatch(rest); g != nil {
		m.hostname = nilValue(g[2])
		m.tag = nilValue(g[3])
		m.pid = nilValue(g[4])
		m.message = strings.TrimPrefix(g[7], "\uFEFF")
		return m
	}
	if g := syslog3164Regexp.FindStringSubmatch(rest); g != nil {
		m.hostname = g[2]
		m.tag = g[3]
		m.pid = g[4]
		m.message = g[5]
		return m
	}

	m.message = strings.TrimSpace(rest)
	return m
}

// nilValue maps the RFC 5424 NILVALUE to an empty string.
func nilValue(s string) string {
	if s == "-" {
		return ""
	}
	return s
}

// syslogPayload renders raw as a JSON object with "message" first followed by
// whichever header fields were present.
func syslogPayload(raw []byte) ([]byte, error) {
	m := parseSyslog(string(raw))

	obj := jsonvalue.NewObject()
	obj.Set("message", jsonvalue.String(m.message))
	for _, f := range []struct{ key, val string }{
		{"hostname", m.hostname},
		{"tag", m.tag},
		{"pid", m.pid},
	} {
		if f.val != "" {
			obj.Set(f.key, jsonvalue.String(f.val))
		}
	}
	if m.hasPri {
		obj.Set("facility", jsonvalue.String(facilityName(m.priority/8)))
		obj.Set("severity", jsonvalue.String(severityName(m.priority%8)))
	}
	return jsonvalue.Marshal(jsonvalue.ObjectValue(obj))
}

func facilityName(facility int) string {
	names := []string{
		"kern", "user", "mail", "daemon", "auth", "syslog", "lpr", "news",
		"uucp", "cron", "authpriv", "ftp", "ntp", "audit", "alert", "clock",
		"local0", "local1", "local2", "local3", "local4", "local5", "local6", "local7",
	}
	if facility >= 0 && facility < len(names) {
		return names[facility]
	}
	return "unknown"
}

func severityName(severity int) string {
	names := []string{"emerg", "alert", "crit", "err", "warning", "notice", "info", "debug"}
	if severity >= 0 && severity < len(names) {
		return names[severity]
	}
	return "unknown"
}
