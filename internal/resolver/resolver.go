// Package resolver implements an iterative DNS resolver: starting at a
// root server, it walks delegations hop by hop until it finds an answer,
// collecting the DNSKEY set of every zone visited along the way when
// validation is requested.
package resolver

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"hash/fnv"
	mathrand "math/rand"
	"net"
	"sync"
	"time"

	"github.com/dnsscience/stubresolve/internal/cache"
	"github.com/dnsscience/stubresolve/internal/cookie"
	"github.com/dnsscience/stubresolve/internal/message"
	"github.com/dnsscience/stubresolve/internal/name"
	"github.com/dnsscience/stubresolve/internal/random"
	"github.com/dnsscience/stubresolve/internal/rdata"
	"github.com/dnsscience/stubresolve/internal/transport"
	"golang.org/x/time/rate"
)

var (
	ErrMaxDepth      = errors.New("resolver: maximum recursion depth reached")
	ErrNoNameservers = errors.New("resolver: no usable nameserver for this hop")
	ErrNoQuestion    = errors.New("resolver: query carries no question")
)

// rootServersV4 and rootServersV6 are the 13 IANA root server addresses in
// each family, compiled in rather than discovered so the resolver never
// needs a bootstrap lookup of its own.
var rootServersV4 = []string{
	"198.41.0.4", "199.9.14.201", "192.33.4.12", "199.7.91.13",
	"192.203.230.10", "192.5.5.241", "192.112.36.4", "198.97.190.53",
	"192.36.148.17", "192.58.128.30", "193.0.14.129", "199.7.83.42",
	"202.12.27.33",
}

var rootServersV6 = []string{
	"2001:503:ba3e::2:30", "2001:500:200::b", "2001:500:2::c", "2001:500:2d::d",
	"2001:500:a8::e", "2001:500:2f::f", "2001:500:12::d0d", "2001:500:1::53",
	"2001:7fe::53", "2001:503:c27::2:30", "2001:7fd::1", "2001:500:9f::42",
	"2001:dc3::35",
}

// Family selects which address family the walk prefers when it has a
// choice of root server or glue record.
type Family int

const (
	FamilyIPv6 Family = iota
	FamilyIPv4
)

// Config controls a Resolver's behaviour. Zero-value Config is usable;
// NewResolver fills in defaults.
type Config struct {
	MaxDepth      int
	Bufsize       uint16
	PreferFamily  Family
	EnableCookies bool
	DO            bool
	RateLimit     rate.Limit
	RateBurst     int
}

func (c *Config) setDefaults() {
	if c.MaxDepth == 0 {
		c.MaxDepth = 32
	}
	if c.Bufsize == 0 {
		c.Bufsize = 4096
	}
	if c.RateLimit == 0 {
		c.RateLimit = 20
	}
	if c.RateBurst == 0 {
		c.RateBurst = 5
	}
}

// Hop records one round trip made during a walk, for +trace reporting.
type Hop struct {
	Zone        name.Name
	Nameserver  string
	Kind        transport.Kind
	QName       name.Name
	QType       rdata.RecordType
	Reply       *message.Message
	RawReply    []byte
	Elapsed     time.Duration
	WasDNSKEY   bool
}

// Result is the outcome of a full iterative walk.
type Result struct {
	Answer  *message.Message
	Hops    []Hop
	DNSKeys map[string][]*message.NonOptRecord // zone name (string form) -> DNSKEY RRs collected along the way
}

// Resolver performs iterative resolution. It is safe for reuse across
// independent walks but not for concurrent use by multiple goroutines
// against the same instance, matching the core's synchronous, single
// query-at-a-time model.
type Resolver struct {
	cfg Config

	walkCache *cache.ShardedCache // memoizes NS-name sub-resolutions across every walk of this Resolver

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter

	cookiesEnabled bool
	cookieState    map[string][8]byte // nameserver -> last server cookie observed
	cookieMu       sync.Mutex
}

// NewResolver builds a Resolver. walkCache is created here and released by
// Close, so NS-address memoization carries across repeated Walk calls on
// the same Resolver instance.
func NewResolver(cfg Config) (*Resolver, error) {
	cfg.setDefaults()
	r := &Resolver{
		cfg:         cfg,
		walkCache:   cache.NewShardedCache(cache.Config{ShardCount: 16, MaxEntries: 4096}),
		limiters:    make(map[string]*rate.Limiter),
		cookieState: make(map[string][8]byte),
	}
	r.cookiesEnabled = cfg.EnableCookies
	return r, nil
}

// Close releases the walk cache's background cleanup goroutine.
func (r *Resolver) Close() { r.walkCache.Close() }

func (r *Resolver) limiterFor(ip string) *rate.Limiter {
	r.limiterMu.Lock()
	defer r.limiterMu.Unlock()
	l, ok := r.limiters[ip]
	if !ok {
		l = rate.NewLimiter(r.cfg.RateLimit, r.cfg.RateBurst)
		r.limiters[ip] = l
	}
	return l
}

// Walk performs iterative resolution of (qname, qtype), starting at a
// random compiled-in root server. When validate is true, every hop also
// fetches current_zone/DNSKEY and appends it to the DNSKEY log.
func (r *Resolver) Walk(ctx context.Context, qname name.Name, qtype rdata.RecordType, kind transport.Kind, validate bool) (*Result, error) {
	result := &Result{DNSKeys: make(map[string][]*message.NonOptRecord)}

	zone := name.Root()
	nameserver := randomRootServer(r.cfg.PreferFamily)

	for depth := 0; depth < r.cfg.MaxDepth; depth++ {
		if validate {
			if err := r.fetchZoneDNSKEY(ctx, zone, nameserver, kind, result); err != nil {
				// A missing or unreachable DNSKEY set is not fatal to the
				// walk itself; the validator will simply have nothing to
				// verify against for this zone.
				_ = err
			}
		}

		reply, raw, elapsed, observed, err := r.exchangeWithRetry(ctx, nameserver, kind, qname, qtype)
		if err != nil {
			return nil, fmt.Errorf("resolver: hop to %s: %w", nameserver, err)
		}
		if observed != "" {
			nameserver = observed
		}
		result.Hops = append(result.Hops, Hop{
			Zone: zone, Nameserver: nameserver, Kind: kind, QName: qname, QType: qtype,
			Reply: reply, RawReply: raw, Elapsed: elapsed,
		})

		scrubOutOfBailiwick(reply, zone)

		switch verdict, next := classify(reply, qname, qtype, r.cfg.PreferFamily); verdict {
		case verdictAnswer:
			result.Answer = reply
			return result, nil
		case verdictGlueReferral:
			zone, nameserver = next.zone, next.nameserver
		case verdictNoGlueReferral:
			resolved, err := r.resolveNSAddress(ctx, next.nsName, kind, depth+1)
			if err != nil {
				result.Answer = reply
				return result, nil
			}
			zone, nameserver = next.zone, resolved
		case verdictTerminal:
			result.Answer = reply
			return result, nil
		}
	}
	return nil, ErrMaxDepth
}

// Query performs a single, non-iterative exchange against nameserver. It is
// used when the caller names a specific server directly (dig's "@server")
// instead of asking for a root-anchored walk. The returned string is the
// observed peer address, which may differ from nameserver if it was given
// as a hostname or if the reply arrived from a different local address.
func (r *Resolver) Query(ctx context.Context, nameserver string, kind transport.Kind, qname name.Name, qtype rdata.RecordType) (*message.Message, []byte, time.Duration, string, error) {
	return r.exchangeWithRetry(ctx, nameserver, kind, qname, qtype)
}

// fetchZoneDNSKEY queries zone/DNSKEY at nameserver and records the
// resulting DNSKEY RRs, deduplicating repeat lookups of the same zone
// within a single walk via result.DNSKeys.
func (r *Resolver) fetchZoneDNSKEY(ctx context.Context, zone name.Name, nameserver string, kind transport.Kind, result *Result) error {
	key := zone.String()
	if _, ok := result.DNSKeys[key]; ok {
		return nil
	}
	reply, _, _, _, err := r.exchangeWithRetry(ctx, nameserver, kind, zone, rdata.TypeDNSKEY)
	if err != nil {
		return err
	}
	var keys []*message.NonOptRecord
	for _, rec := range reply.Answer {
		if nr, ok := rec.(*message.NonOptRecord); ok && nr.RType == rdata.TypeDNSKEY {
			keys = append(keys, nr)
		}
	}
	result.DNSKeys[key] = keys
	return nil
}

// resolveNSAddress resolves one NS name to an address by recursing a fresh
// walk from the root, bounding the overall recursion via depthUsed so a
// pathological NS-name cycle cannot defeat the caller's own depth limit.
// Results are memoized in the walk cache so a referral chain that bounces
// between servers naming the same glue-less NS repeatedly does not pay for
// a fresh sub-resolution every time.
func (r *Resolver) resolveNSAddress(ctx context.Context, nsName name.Name, kind transport.Kind, depthUsed int) (string, error) {
	if depthUsed >= r.cfg.MaxDepth {
		return "", ErrMaxDepth
	}

	key := nsAddressHash(nsName)
	if entry, ok := r.walkCache.Get(key); ok && !entry.IsExpired() {
		return string(entry.Data), nil
	}

	sub := &Resolver{cfg: r.cfg, walkCache: r.walkCache, limiters: r.limiters}
	sub.cfg.MaxDepth = r.cfg.MaxDepth - depthUsed
	result, err := sub.Walk(ctx, nsName, rdata.TypeA, kind, false)
	if err != nil {
		return "", err
	}
	for _, rec := range result.Answer.Answer {
		nr, ok := rec.(*message.NonOptRecord)
		if !ok {
			continue
		}
		a, ok := nr.Data.(*rdata.A)
		if !ok {
			continue
		}
		addr := net.JoinHostPort(a.Address.String(), "53")
		r.walkCache.Set(key, &cache.Entry{Data: []byte(addr), ExpiresAt: time.Now().Add(time.Duration(nr.TTL) * time.Second)})
		return addr, nil
	}
	return "", fmt.Errorf("resolver: could not resolve address for %s", nsName.String())
}

// nsAddressHash derives a walk-cache key for an NS name: the 64-bit FNV-1a
// hash of its text form.
func nsAddressHash(n name.Name) uint64 {
	h := fnv.New64a()
	h.Write([]byte(n.String()))
	return h.Sum64()
}

// exchangeWithRetry sends one query, applying 0x20 case randomization,
// client-side rate limiting, and cookie attach/echo, and retries once over
// IPv4 if an IPv6-addressed nameserver's exchange fails outright. On success
// it returns the observed peer address rather than nameserver verbatim, so
// callers re-anchor subsequent state (cookies, rate limiting, hop logging)
// on the address that actually answered.
func (r *Resolver) exchangeWithRetry(ctx context.Context, nameserver string, kind transport.Kind, qname name.Name, qtype rdata.RecordType) (*message.Message, []byte, time.Duration, string, error) {
	reply, raw, elapsed, observed, err := r.exchangeOnce(ctx, nameserver, kind, qname, qtype)
	if err == nil {
		return reply, raw, elapsed, observed, nil
	}

	host, port, splitErr := net.SplitHostPort(nameserver)
	if splitErr != nil {
		return nil, nil, 0, "", err
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.To4() != nil {
		return nil, nil, 0, "", err
	}

	// IPv6 failed; this resolver does not otherwise retry, but performs
	// exactly one IPv4 fallback as specified.
	v4 := pickFallbackV4()
	return r.exchangeOnce(ctx, net.JoinHostPort(v4, port), kind, qname, qtype)
}

// exchangeOnce performs a single exchange and, on success, returns the
// observed peer address alongside nameserver's reply. The observed address
// is the value reported in transport.Result.Peer; when the transport
// cannot report one (DoH), nameserver itself is returned unchanged.
func (r *Resolver) exchangeOnce(ctx context.Context, nameserver string, kind transport.Kind, qname name.Name, qtype rdata.RecordType) (*message.Message, []byte, time.Duration, string, error) {
	host, _, err := net.SplitHostPort(nameserver)
	if err != nil {
		host = nameserver
	}
	if err := r.limiterFor(host).Wait(ctx); err != nil {
		return nil, nil, 0, "", fmt.Errorf("resolver: rate limit: %w", err)
	}

	query := r.buildQuery(nameserver, qname, qtype)
	var buf bytes.Buffer
	if _, err := query.EncodeInto(&buf); err != nil {
		return nil, nil, 0, "", fmt.Errorf("resolver: encode query: %w", err)
	}

	res, err := transport.Exchange(ctx, kind, nameserver, int(r.cfg.Bufsize), buf.Bytes())
	if err != nil {
		return nil, nil, 0, "", err
	}

	reply, err := message.Parse(res.Reply)
	if err != nil {
		return nil, nil, 0, "", fmt.Errorf("resolver: parse reply: %w", err)
	}
	// 0x20 check: a reply question must echo the randomized case exactly.
	if sent := query.Questions[0].QName.String(); len(reply.Questions) > 0 && reply.Questions[0].QName.String() != sent {
		return nil, nil, 0, "", fmt.Errorf("resolver: reply question %s does not echo query name %s", reply.Questions[0].QName.String(), sent)
	}
	r.rememberServerCookie(nameserver, reply)

	observed := nameserver
	if res.Peer != nil {
		observed = res.Peer.String()
	}
	return reply, res.Reply, res.Elapsed, observed, nil
}

// buildQuery constructs the outbound message: RD clear (iterative, not
// recursive), 0x20-randomized qname, EDNS0 OPT with the configured
// bufsize and, when cookies are enabled, a COOKIE option.
func (r *Resolver) buildQuery(nameserver string, qname name.Name, qtype rdata.RecordType) *message.Message {
	randomized := randomizeCase(qname)
	m := &message.Message{
		Header: message.Header{
			ID:      random.TransactionID(),
			Opcode:  rdata.OpcodeQUERY,
			Flags:   message.HeaderFlags{RD: false},
			QDCount: 1,
		},
		Questions: []message.Question{{QName: randomized, QType: qtype, QClass: rdata.ClassIN}},
	}

	opt := &message.OptRecord{PayloadSize: r.cfg.Bufsize, DO: r.cfg.DO, Options: map[rdata.OptionCode][]byte{}}
	if r.cookiesEnabled {
		opt.Options[rdata.OptionCodeCookie] = r.cookieOption(nameserver)
	}
	m.Additional = []message.Record{opt}
	m.Header.ARCount = 1
	return m
}

func (r *Resolver) cookieOption(nameserver string) []byte {
	var clientIP, serverIP [4]byte
	clientCookie := cookie.GenerateClientCookie(clientIP[:], serverIP[:])

	r.cookieMu.Lock()
	prior, ok := r.cookieState[nameserver]
	r.cookieMu.Unlock()
	if ok {
		return cookie.FormatCookie(clientCookie, prior[:])
	}
	return cookie.FormatCookie(clientCookie, nil)
}

func (r *Resolver) rememberServerCookie(nameserver string, reply *message.Message) {
	if !r.cookiesEnabled {
		return
	}
	for _, rec := range reply.Additional {
		opt, ok := rec.(*message.OptRecord)
		if !ok {
			continue
		}
		data, ok := opt.Options[rdata.OptionCodeCookie]
		if !ok {
			continue
		}
		_, serverCookie, err := cookie.ParseCookie(data)
		if err != nil || len(serverCookie) < 8 {
			continue
		}
		var sc [8]byte
		copy(sc[:], serverCookie[:8])
		r.cookieMu.Lock()
		r.cookieState[nameserver] = sc
		r.cookieMu.Unlock()
	}
}

// randomizeCase applies 0x20 encoding (RFC draft, widely deployed as a
// cheap anti-spoofing measure): each alphabetic byte of the wire-encoded
// name has a coin-flip chance of being upper-cased before the query is
// sent, since a forged reply must echo the question section verbatim.
func randomizeCase(n name.Name) name.Name {
	labels := n.Labels()
	mixed := make([]string, len(labels))
	for i, label := range labels {
		b := []byte(label)
		for j := range b {
			if !isASCIILetter(b[j]) {
				continue
			}
			if randomBit() {
				b[j] = toUpperASCII(b[j])
			} else {
				b[j] = toLowerASCII(b[j])
			}
		}
		mixed[i] = string(b)
	}
	out := name.Root()
	for i := len(mixed) - 1; i >= 0; i-- {
		out, _ = out.PrependLabel(mixed[i])
	}
	return out
}

func isASCIILetter(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }
func toUpperASCII(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}
func toLowerASCII(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

func randomBit() bool {
	var buf [1]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return false
	}
	return buf[0]&1 == 1
}

func randomRootServer(pref Family) string {
	if pref == FamilyIPv4 {
		return net.JoinHostPort(rootServersV4[mathrand.Intn(len(rootServersV4))], "53")
	}
	return net.JoinHostPort(rootServersV6[mathrand.Intn(len(rootServersV6))], "53")
}

func pickFallbackV4() string {
	return rootServersV4[mathrand.Intn(len(rootServersV4))]
}
