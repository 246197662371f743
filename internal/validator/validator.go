// Package validator locates the RRSIG and candidate DNSKEYs covering a
// terminal answer and drives the DNSSEC engine against them.
package validator

import (
	"errors"
	"fmt"
	"time"

	"github.com/dnsscience/stubresolve/internal/dnssec"
	"github.com/dnsscience/stubresolve/internal/message"
	"github.com/dnsscience/stubresolve/internal/rdata"
)

var (
	ErrNoCandidateRecords = errors.New("validator: no records of the queried type in the answer")
	ErrNoCoveringRRSIG    = errors.New("validator: no RRSIG covers the queried type")
	ErrNoMatchingDNSKEY   = errors.New("validator: no DNSKEY with a matching key tag is present")
)

// Validate partitions answer into the RRset matching qtype and its
// covering RRSIG, then tries every DNSKEY in dnskeys whose key tag matches
// the RRSIG until one verifies. Key-tag collisions are possible, so every
// candidate is tried rather than stopping at the first key-tag match.
func Validate(answer []*message.NonOptRecord, qtype rdata.RecordType, dnskeys []*message.NonOptRecord, opts dnssec.Options) error {
	var candidates []*message.NonOptRecord
	var rrsigRecords []*message.NonOptRecord
	for _, r := range answer {
		switch r.RType {
		case qtype:
			candidates = append(candidates, r)
		case rdata.TypeRRSIG:
			rrsigRecords = append(rrsigRecords, r)
		}
	}
	if len(candidates) == 0 {
		return ErrNoCandidateRecords
	}

	rrset, err := dnssec.NewRrSet(candidates)
	if err != nil {
		return fmt.Errorf("validator: %w", err)
	}

	var rrsigRecord *message.NonOptRecord
	for _, r := range rrsigRecords {
		sig, ok := r.Data.(*rdata.RRSIG)
		if ok && sig.TypeCovered == qtype {
			rrsigRecord = r
			break
		}
	}
	if rrsigRecord == nil {
		return ErrNoCoveringRRSIG
	}
	rrsig := rrsigRecord.Data.(*rdata.RRSIG)

	// A failed attempt leaves the members' TTLs set to original_ttl; restore
	// the received TTLs before each attempt so the clamp sees them.
	receivedTTLs := make([]uint32, len(rrset.Records))
	for i, r := range rrset.Records {
		receivedTTLs[i] = r.TTL
	}

	var lastErr error
	tried := 0
	for _, keyRecord := range dnskeys {
		key, ok := keyRecord.Data.(*rdata.DNSKEY)
		if !ok || key.KeyTag() != rrsig.KeyTag {
			continue
		}
		tried++
		for i, r := range rrset.Records {
			r.TTL = receivedTTLs[i]
		}
		if err := dnssec.Validate(rrset, rrsigRecord, keyRecord, opts); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if tried == 0 {
		return ErrNoMatchingDNSKEY
	}
	return lastErr
}

// Now is the default clock used by callers building dnssec.Options; split
// out so tests can inject a fixed instant without faking the system clock.
func Now() time.Time { return time.Now() }
