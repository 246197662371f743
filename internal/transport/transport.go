// Package transport sends a prepared DNS wire query to a nameserver and
// returns the raw reply bytes, the observed peer address, and elapsed time.
// It knows nothing about DNS message semantics; parsing is the caller's job.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dnsscience/stubresolve/internal/random"
)

// Kind selects the wire transport used for a single Exchange.
type Kind int

const (
	KindUDP Kind = iota
	KindTCP
	KindTLS
	KindHTTPSPost
	KindHTTPSGet
)

func (k Kind) String() string {
	switch k {
	case KindUDP:
		return "udp"
	case KindTCP:
		return "tcp"
	case KindTLS:
		return "tls"
	case KindHTTPSPost:
		return "https-post"
	case KindHTTPSGet:
		return "https-get"
	default:
		return "unknown"
	}
}

const (
	writeTimeout   = 2 * time.Second
	readTimeout    = 10 * time.Second
	connectTimeout = 10 * time.Second
)

var (
	// ErrIPOnlyTLS is returned when a TLS exchange is attempted against a
	// nameserver given only as an IP address: there is no hostname to put
	// in the SNI extension, and an authoritative resolver has no other
	// basis on which to validate the server's certificate.
	ErrIPOnlyTLS = errors.New("transport: TLS endpoint must be a hostname, not a bare IP")
	// ErrFramingMismatch is returned when a TCP/TLS reply's length prefix
	// does not match the number of bytes actually read.
	ErrFramingMismatch = errors.New("transport: TCP/TLS length prefix did not match bytes read")
	// ErrHTTPStatus is returned when a DoH exchange receives anything
	// other than HTTP 200.
	ErrHTTPStatus = errors.New("transport: unexpected HTTP status")
)

// Result carries the outcome of a single Exchange.
type Result struct {
	Reply   []byte
	Peer    net.Addr
	Elapsed time.Duration
}

// Exchange sends query to nameserver using the given transport Kind and
// returns the raw reply. nameserver is a "host:port" pair; for UDP/TCP/TLS,
// host may be a literal IP or a name requiring resolution. bufsize bounds
// the UDP receive buffer.
func Exchange(ctx context.Context, kind Kind, nameserver string, bufsize int, query []byte) (Result, error) {
	switch kind {
	case KindUDP:
		return exchangeUDP(ctx, nameserver, bufsize, query)
	case KindTCP:
		return exchangeStream(ctx, "tcp", nameserver, nil, query)
	case KindTLS:
		return exchangeTLSFramed(ctx, nameserver, query)
	case KindHTTPSPost:
		return exchangeDoH(ctx, http.MethodPost, nameserver, query)
	case KindHTTPSGet:
		return exchangeDoH(ctx, http.MethodGet, nameserver, query)
	default:
		return Result{}, fmt.Errorf("transport: unknown kind %v", kind)
	}
}

func exchangeUDP(ctx context.Context, nameserver string, bufsize int, query []byte) (Result, error) {
	host, _, err := net.SplitHostPort(nameserver)
	if err != nil {
		return Result{}, fmt.Errorf("transport: %w", err)
	}

	network := "udp"
	if ip := net.ParseIP(host); ip != nil {
		if ip.To4() != nil {
			network = "udp4"
		} else {
			network = "udp6"
		}
	}

	conn, err := dialUDPWithRandomSourcePort(ctx, network, nameserver)
	if err != nil {
		return Result{}, fmt.Errorf("transport: dial udp: %w", err)
	}
	defer conn.Close()

	start := time.Now()
	if err := conn.SetWriteDeadline(start.Add(writeTimeout)); err != nil {
		return Result{}, fmt.Errorf("transport: %w", err)
	}
	if _, err := conn.Write(query); err != nil {
		return Result{}, fmt.Errorf("transport: write udp: %w", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return Result{}, fmt.Errorf("transport: %w", err)
	}
	buf := make([]byte, bufsize)
	n, err := conn.Read(buf)
	elapsed := time.Since(start)
	if err != nil {
		return Result{}, fmt.Errorf("transport: read udp: %w", err)
	}

	return Result{Reply: buf[:n], Peer: conn.RemoteAddr(), Elapsed: elapsed}, nil
}

// dialUDPWithRandomSourcePort dials from a cryptographically random
// ephemeral source port rather than the OS's own (often predictable, often
// sequential) allocation, following internal/random's entropy-budget
// rationale: transaction ID alone is not enough margin against a spoofing
// attacker who can also guess the source port. Falls back to a
// system-assigned port if every attempt collides with a port already bound
// by another process.
func dialUDPWithRandomSourcePort(ctx context.Context, network, nameserver string) (net.Conn, error) {
	for attempt := 0; attempt < 5; attempt++ {
		localAddr := &net.UDPAddr{Port: int(random.SourcePort())}
		dialer := net.Dialer{Timeout: connectTimeout, LocalAddr: localAddr}
		conn, err := dialer.DialContext(ctx, network, nameserver)
		if err == nil {
			return conn, nil
		}
	}
	dialer := net.Dialer{Timeout: connectTimeout}
	return dialer.DialContext(ctx, network, nameserver)
}

// exchangeStream performs a 16-bit-length-framed exchange over an
// already-plain or to-be-wrapped-in-TLS stream connection.
func exchangeStream(ctx context.Context, network, nameserver string, tlsConfig *tls.Config, query []byte) (Result, error) {
	dialer := net.Dialer{Timeout: connectTimeout}
	start := time.Now()

	var conn net.Conn
	var err error
	if tlsConfig != nil {
		tlsDialer := tls.Dialer{NetDialer: &dialer, Config: tlsConfig}
		conn, err = tlsDialer.DialContext(ctx, network, nameserver)
	} else {
		conn, err = dialer.DialContext(ctx, network, nameserver)
	}
	if err != nil {
		return Result{}, fmt.Errorf("transport: dial %s: %w", network, err)
	}
	defer conn.Close()

	reply, err := framedRoundTrip(conn, query)
	elapsed := time.Since(start)
	if err != nil {
		return Result{}, err
	}
	return Result{Reply: reply, Peer: conn.RemoteAddr(), Elapsed: elapsed}, nil
}

// exchangeTLSFramed wraps exchangeStream, rejecting bare-IP nameservers
// since DoT relies on the hostname for SNI and certificate validation.
func exchangeTLSFramed(ctx context.Context, nameserver string, query []byte) (Result, error) {
	host, _, err := net.SplitHostPort(nameserver)
	if err != nil {
		return Result{}, fmt.Errorf("transport: %w", err)
	}
	if net.ParseIP(host) != nil {
		return Result{}, ErrIPOnlyTLS
	}
	return exchangeStream(ctx, "tcp", nameserver, &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}, query)
}

func framedRoundTrip(conn net.Conn, query []byte) ([]byte, error) {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	var framed bytes.Buffer
	framed.WriteByte(byte(len(query) >> 8))
	framed.WriteByte(byte(len(query)))
	framed.Write(query)
	if _, err := conn.Write(framed.Bytes()); err != nil {
		return nil, fmt.Errorf("transport: write framed query: %w", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	var lengthPrefix [2]byte
	if _, err := io.ReadFull(conn, lengthPrefix[:]); err != nil {
		return nil, fmt.Errorf("transport: read length prefix: %w", err)
	}
	replyLen := int(lengthPrefix[0])<<8 | int(lengthPrefix[1])

	reply := make([]byte, replyLen)
	n, err := io.ReadFull(conn, reply)
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: got %d of %d bytes", ErrFramingMismatch, n, replyLen)
	}
	if err != nil {
		return nil, fmt.Errorf("transport: read framed reply: %w", err)
	}
	if n != replyLen {
		return nil, ErrFramingMismatch
	}
	return reply, nil
}

var dohClient = &http.Client{Timeout: readTimeout}

// exchangeDoH performs a DNS-over-HTTPS round trip per RFC 8484. nameserver
// is the full request URL (e.g. "https://dns.example.net/dns-query").
func exchangeDoH(ctx context.Context, method, nameserver string, query []byte) (Result, error) {
	reqURL := nameserver
	var body io.Reader
	if method == http.MethodGet {
		u, err := url.Parse(nameserver)
		if err != nil {
			return Result{}, fmt.Errorf("transport: %w", err)
		}
		q := u.Query()
		q.Set("dns", strings.TrimRight(base64.URLEncoding.EncodeToString(query), "="))
		u.RawQuery = q.Encode()
		reqURL = u.String()
	} else {
		body = bytes.NewReader(query)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return Result{}, fmt.Errorf("transport: build DoH request: %w", err)
	}
	req.Header.Set("Accept", "application/dns-message")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/dns-message")
	}

	start := time.Now()
	resp, err := dohClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("transport: DoH round trip: %w", err)
	}
	defer resp.Body.Close()

	reply, err := io.ReadAll(io.LimitReader(resp.Body, 65535))
	elapsed := time.Since(start)
	if err != nil {
		return Result{}, fmt.Errorf("transport: read DoH body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode)
	}

	// net/http does not expose the dialed remote address on a *Response;
	// record no peer rather than a made-up one.
	return Result{Reply: reply, Peer: nil, Elapsed: elapsed}, nil
}
