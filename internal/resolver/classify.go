package resolver

import (
	mathrand "math/rand"
	"net"

	"github.com/dnsscience/stubresolve/internal/message"
	"github.com/dnsscience/stubresolve/internal/name"
	"github.com/dnsscience/stubresolve/internal/rdata"
)

type verdict int

const (
	verdictAnswer verdict = iota
	verdictGlueReferral
	verdictNoGlueReferral
	verdictTerminal
)

// nextHop carries whichever fields are relevant to the verdict that
// produced it: zone and nameserver for a glue referral, zone and nsName
// for a no-glue referral.
type nextHop struct {
	zone       name.Name
	nameserver string
	nsName     name.Name
}

// classify implements the §4.6 reply classification: an answer present,
// a glue-backed referral, a referral with no usable glue, or a terminal
// (empty-answer) reply. pref selects which address family findGlue tries
// first when a referral offers glue in both families.
func classify(reply *message.Message, qname name.Name, qtype rdata.RecordType, pref Family) (verdict, nextHop) {
	for _, rec := range reply.Answer {
		nr, ok := rec.(*message.NonOptRecord)
		if !ok {
			continue
		}
		if nr.RType == qtype && nr.Owner.Equal(qname) {
			return verdictAnswer, nextHop{}
		}
	}
	// A CNAME at the queried owner is itself a terminal answer for this
	// walk's purposes; the caller (validator/CLI) follows the chain if it
	// cares to.
	for _, rec := range reply.Answer {
		if nr, ok := rec.(*message.NonOptRecord); ok && nr.RType == rdata.TypeCNAME && nr.Owner.Equal(qname) {
			return verdictAnswer, nextHop{}
		}
	}

	var nsRecords []*message.NonOptRecord
	for _, rec := range reply.Authority {
		if nr, ok := rec.(*message.NonOptRecord); ok && nr.RType == rdata.TypeNS {
			nsRecords = append(nsRecords, nr)
		}
	}
	if len(nsRecords) == 0 {
		return verdictTerminal, nextHop{}
	}

	if addr, zone, ok := findGlue(reply, nsRecords, pref); ok {
		return verdictGlueReferral, nextHop{zone: zone, nameserver: addr}
	}

	chosen := nsRecords[mathrand.Intn(len(nsRecords))]
	ns, ok := chosen.Data.(*rdata.NS)
	if !ok {
		return verdictTerminal, nextHop{}
	}
	return verdictNoGlueReferral, nextHop{zone: chosen.Owner, nsName: ns.Nsdname}
}

// findGlue looks for an A/AAAA record in Additional matching the owner of
// any of nsRecords, preferring the family named by pref when more than one
// glue record is present so the walk avoids an unnecessary cross-family
// hop.
func findGlue(reply *message.Message, nsRecords []*message.NonOptRecord, pref Family) (addr string, zone name.Name, ok bool) {
	var v4Candidates, v6Candidates []struct {
		zone name.Name
		ip   net.IP
	}
	for _, nsRec := range nsRecords {
		nsData, isNS := nsRec.Data.(*rdata.NS)
		if !isNS {
			continue
		}
		for _, rec := range reply.Additional {
			nr, isRec := rec.(*message.NonOptRecord)
			if !isRec || !nr.Owner.Equal(nsData.Nsdname) {
				continue
			}
			switch a := nr.Data.(type) {
			case *rdata.A:
				v4Candidates = append(v4Candidates, struct {
					zone name.Name
					ip   net.IP
				}{nsRec.Owner, a.Address})
			case *rdata.AAAA:
				v6Candidates = append(v6Candidates, struct {
					zone name.Name
					ip   net.IP
				}{nsRec.Owner, a.Address})
			}
		}
	}
	first, second := v6Candidates, v4Candidates
	if pref == FamilyIPv4 {
		first, second = v4Candidates, v6Candidates
	}
	if len(first) > 0 {
		c := first[0]
		return net.JoinHostPort(c.ip.String(), "53"), c.zone, true
	}
	if len(second) > 0 {
		c := second[0]
		return net.JoinHostPort(c.ip.String(), "53"), c.zone, true
	}
	return "", name.Name{}, false
}

// scrubOutOfBailiwick drops any record from reply's Answer/Authority/
// Additional sections whose owner does not fall within zone, preventing a
// compromised or malicious nameserver from injecting records for names it
// has no delegated authority over.
func scrubOutOfBailiwick(reply *message.Message, zone name.Name) {
	reply.Answer = scrubSection(reply.Answer, zone)
	reply.Authority = scrubSection(reply.Authority, zone)
	reply.Additional = scrubSection(reply.Additional, zone)
}

func scrubSection(section []message.Record, zone name.Name) []message.Record {
	out := section[:0:0]
	for _, rec := range section {
		nr, ok := rec.(*message.NonOptRecord)
		if !ok {
			// OptRecord is always owned by root; never scrubbed.
			out = append(out, rec)
			continue
		}
		if zone.ZoneOf(nr.Owner) {
			out = append(out, rec)
		}
	}
	return out
}
