// Command digstub is a dig-like DNSSEC-validating stub resolver: it either
// queries a named server directly or walks the hierarchy itself, starting
// at a compiled-in root server, printing the answer in dig's familiar
// section-by-section presentation.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dnsscience/stubresolve/internal/dnssec"
	"github.com/dnsscience/stubresolve/internal/message"
	"github.com/dnsscience/stubresolve/internal/name"
	"github.com/dnsscience/stubresolve/internal/rdata"
	"github.com/dnsscience/stubresolve/internal/resolver"
	"github.com/dnsscience/stubresolve/internal/transport"
	"github.com/dnsscience/stubresolve/internal/validator"
	"golang.org/x/time/rate"
)

const banner = `
     _ _                 _         _
  __| (_) __ _ ___ _ __ | |_ _   _| |__
 / _` + "`" + ` | |/ _` + "`" + ` / __| '_ \| __| | | | '_ \
| (_| | | (_| \__ \ |_) | |_| |_| | |_) |
 \__,_|_|\__, |___/ .__/ \__|\__,_|_.__/
         |___/    |_|
`

// options holds the parsed CLI surface, kept flat rather than layered
// behind a flag.FlagSet since the dig-style "+opt", "@server" and "-x"
// tokens do not fit flag's single-dash model.
type options struct {
	domain     string
	qtype      rdata.RecordType
	nameserver string
	port       string
	reverse    bool

	verbose    bool
	noMeta     bool
	noPadding  bool
	do         bool
	validate   bool
	trace      bool
	cookie     bool
	tcp        bool
	tls        bool
	httpsGet   bool
	httpsPost  bool

	configPath string
}

func parseArgs(args []string) (*options, error) {
	o := &options{qtype: rdata.TypeA, port: "53"}
	var positionals []string

	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case strings.HasPrefix(a, "@"):
			o.nameserver = strings.TrimPrefix(a, "@")
		case a == "-p":
			i++
			if i >= len(args) {
				return nil, fmt.Errorf("-p requires a port")
			}
			o.port = args[i]
		case a == "-x":
			o.reverse = true
		case a == "-conf":
			i++
			if i >= len(args) {
				return nil, fmt.Errorf("-conf requires a path")
			}
			o.configPath = args[i]
		case a == "+verbose":
			o.verbose = true
		case a == "+no-meta":
			o.noMeta = true
		case a == "+no-padding":
			o.noPadding = true
		case a == "+do":
			o.do = true
		case a == "+validate":
			o.validate = true
		case a == "+trace":
			o.trace = true
		case a == "+cookie":
			o.cookie = true
		case a == "+tcp":
			o.tcp = true
		case a == "+tls":
			o.tls = true
		case a == "+https-get":
			o.httpsGet = true
		case a == "+https-post", a == "+https":
			o.httpsPost = true
		case strings.HasPrefix(a, "-") || strings.HasPrefix(a, "+"):
			return nil, fmt.Errorf("unrecognized option %q", a)
		default:
			positionals = append(positionals, a)
		}
	}

	if o.reverse {
		if len(positionals) < 1 {
			return nil, fmt.Errorf("-x requires an IP address")
		}
		rev, err := reverseName(positionals[0])
		if err != nil {
			return nil, err
		}
		o.domain = rev
		o.qtype = rdata.TypePTR
		positionals = positionals[1:]
	}
	if len(positionals) >= 1 && o.domain == "" {
		o.domain = positionals[0]
		positionals = positionals[1:]
	}
	if len(positionals) >= 1 {
		t, err := rdata.ParseRecordType(positionals[0])
		if err != nil {
			return nil, fmt.Errorf("unknown type %q", positionals[0])
		}
		o.qtype = t
	}
	if o.domain == "" {
		return nil, fmt.Errorf("a domain name is required")
	}
	return o, nil
}

// reverseName rewrites an IPv4 or IPv6 literal into its in-addr.arpa /
// ip6.arpa PTR query name.
func reverseName(ip string) (string, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", fmt.Errorf("invalid address for -x: %q", ip)
	}
	if v4 := parsed.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.%d.%d.in-addr.arpa", v4[3], v4[2], v4[1], v4[0]), nil
	}
	v6 := parsed.To16()
	var nibbles []string
	for i := len(v6) - 1; i >= 0; i-- {
		nibbles = append(nibbles, fmt.Sprintf("%x", v6[i]&0x0f), fmt.Sprintf("%x", v6[i]>>4))
	}
	return strings.Join(nibbles, ".") + ".ip6.arpa", nil
}

func (o *options) transportKind() transport.Kind {
	switch {
	case o.httpsGet:
		return transport.KindHTTPSGet
	case o.httpsPost:
		return transport.KindHTTPSPost
	case o.tls:
		return transport.KindTLS
	case o.tcp:
		return transport.KindTCP
	default:
		return transport.KindUDP
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out *os.File) int {
	log.SetFlags(0)
	log.SetPrefix("digstub: ")

	o, err := parseArgs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	var fileCfg *ConfigFile
	if o.configPath != "" {
		c, err := LoadConfig(o.configPath)
		if err != nil {
			log.Printf("load config: %v", err)
			return 1
		}
		fileCfg = c
	}
	if o.nameserver == "" && fileCfg != nil {
		o.nameserver = fileCfg.Nameserver
	}

	if o.verbose {
		fmt.Fprint(out, banner)
	}

	qname, err := name.FromASCII(o.domain)
	if err != nil {
		log.Printf("invalid domain %q: %v", o.domain, err)
		return 1
	}

	cfg := resolver.Config{EnableCookies: o.cookie, DO: o.do || o.validate}
	if fileCfg != nil {
		if fileCfg.Bufsize != 0 {
			cfg.Bufsize = uint16(fileCfg.Bufsize)
		}
		if fileCfg.RateLimit != 0 {
			cfg.RateLimit = rate.Limit(fileCfg.RateLimit)
		}
		if fileCfg.RateBurst != 0 {
			cfg.RateBurst = fileCfg.RateBurst
		}
	}

	res, err := resolver.NewResolver(cfg)
	if err != nil {
		log.Printf("init resolver: %v", err)
		return 1
	}
	defer res.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	kind := o.transportKind()
	start := time.Now()

	var answer *message.Message
	var hops []resolver.Hop
	var dnskeys map[string][]*message.NonOptRecord

	if o.nameserver != "" {
		server := net.JoinHostPort(o.nameserver, o.port)
		if kind == transport.KindHTTPSGet || kind == transport.KindHTTPSPost {
			server = o.nameserver
		}
		reply, raw, elapsed, observed, err := res.Query(ctx, server, kind, qname, o.qtype)
		if err != nil {
			log.Printf("query %s: %v", server, err)
			return 1
		}
		if observed != "" {
			server = observed
		}
		answer = reply
		hops = []resolver.Hop{{Zone: name.Root(), Nameserver: server, Kind: kind, QName: qname, QType: o.qtype, Reply: reply, RawReply: raw, Elapsed: elapsed}}
		observeHop(kind, reply, elapsed)
		if o.validate {
			dnskeys = map[string][]*message.NonOptRecord{}
			if keyReply, _, _, _, err := res.Query(ctx, server, kind, qname, rdata.TypeDNSKEY); err == nil {
				var keys []*message.NonOptRecord
				for _, rec := range keyReply.Answer {
					if nr, ok := rec.(*message.NonOptRecord); ok && nr.RType == rdata.TypeDNSKEY {
						keys = append(keys, nr)
					}
				}
				dnskeys[qname.String()] = keys
			}
		}
	} else {
		result, err := res.Walk(ctx, qname, o.qtype, kind, o.validate)
		if err != nil {
			log.Printf("resolve %s: %v", o.domain, err)
			return 1
		}
		answer = result.Answer
		hops = result.Hops
		dnskeys = result.DNSKeys
		for _, h := range hops {
			observeHop(h.Kind, h.Reply, h.Elapsed)
		}
	}

	total := time.Since(start)

	if o.trace {
		printTrace(out, hops)
	}

	if o.validate {
		if err := runValidation(answer, o.qtype, dnskeys); err != nil {
			fmt.Fprintf(out, ";; validation: FAILED (%v)\n", err)
		} else {
			fmt.Fprintln(out, ";; validation: OK")
		}
	}

	var lastRaw []byte
	if len(hops) > 0 {
		lastRaw = hops[len(hops)-1].RawReply
	}
	printAnswer(out, o, qname, answer, total, lastRaw)

	if o.trace {
		dumpMetrics(out)
	}
	return 0
}

func runValidation(answer *message.Message, qtype rdata.RecordType, dnskeys map[string][]*message.NonOptRecord) error {
	if answer == nil {
		return fmt.Errorf("no answer to validate")
	}
	var candidates []*message.NonOptRecord
	for _, rec := range answer.Answer {
		if nr, ok := rec.(*message.NonOptRecord); ok {
			candidates = append(candidates, nr)
		}
	}
	var keys []*message.NonOptRecord
	for _, k := range dnskeys {
		keys = append(keys, k...)
	}
	return validator.Validate(candidates, qtype, keys, dnssec.Options{Now: validator.Now()})
}

func observeHop(kind transport.Kind, reply *message.Message, elapsed time.Duration) {
	queriesTotal.WithLabelValues(kind.String(), reply.Header.RCode.String()).Inc()
	hopSeconds.WithLabelValues(kind.String()).Observe(elapsed.Seconds())
}

func printTrace(out *os.File, hops []resolver.Hop) {
	for i, h := range hops {
		fmt.Fprintf(out, ";; hop %d: %s over %s (%s) -> %d bytes in %s\n",
			i+1, h.Nameserver, h.Kind, h.QName.String(), len(h.RawReply), h.Elapsed)
	}
}

func printAnswer(out *os.File, o *options, qname name.Name, answer *message.Message, total time.Duration, raw []byte) {
	if !o.noMeta {
		fmt.Fprintf(out, "\n; <<>> digstub <<>> %s %s\n", o.domain, o.qtype)
	}
	if answer == nil {
		fmt.Fprintln(out, ";; no answer")
		return
	}
	if !o.noMeta {
		fmt.Fprintf(out, ";; Got answer:\n;; ->>HEADER<<- opcode: %s, status: %s, id: %d\n",
			answer.Header.Opcode, answer.Header.RCode, answer.Header.ID)
		fmt.Fprintf(out, ";; flags: %s; QUERY: %d, ANSWER: %d, AUTHORITY: %d, ADDITIONAL: %d\n",
			flagString(answer.Header.Flags), answer.Header.QDCount, answer.Header.ANCount,
			answer.Header.NSCount, answer.Header.ARCount)
	}

	printSection(out, "ANSWER", answer.Answer)
	if o.verbose {
		printSection(out, "AUTHORITY", answer.Authority)
		if !o.noPadding {
			printSection(out, "ADDITIONAL", answer.Additional)
		}
	}
	if !o.noMeta {
		fmt.Fprintf(out, ";; Query time: %s\n", total)
		fmt.Fprintf(out, ";; MSG SIZE  rcvd: %s\n", msgSize(raw))
	}
}

func flagString(f message.HeaderFlags) string {
	var parts []string
	if f.AA {
		parts = append(parts, "aa")
	}
	if f.TC {
		parts = append(parts, "tc")
	}
	if f.RD {
		parts = append(parts, "rd")
	}
	if f.RA {
		parts = append(parts, "ra")
	}
	if f.AD {
		parts = append(parts, "ad")
	}
	if f.CD {
		parts = append(parts, "cd")
	}
	return strings.Join(parts, " ")
}

func printSection(out *os.File, title string, recs []message.Record) {
	if len(recs) == 0 {
		return
	}
	fmt.Fprintf(out, "\n;; %s SECTION:\n", title)
	for _, rec := range recs {
		switch r := rec.(type) {
		case *message.NonOptRecord:
			fmt.Fprintf(out, "%s\t%d\t%s\t%s\t%s\n", r.Owner.String(), r.TTL, r.Class, r.RType, r.Data.String())
		case *message.OptRecord:
			fmt.Fprintf(out, ";; OPT PSEUDOSECTION: udp=%d do=%t\n", r.PayloadSize, r.DO)
		}
	}
}

// msgSize renders the wire size of the final reply, matching dig's
// "MSG SIZE" footer.
func msgSize(raw []byte) string {
	return strconv.Itoa(len(raw))
}
