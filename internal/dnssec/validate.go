package dnssec

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dnsscience/stubresolve/internal/message"
	"github.com/dnsscience/stubresolve/internal/rdata"
)

var (
	ErrNotRRSIG                 = errors.New("dnssec: record is not an RRSIG")
	ErrNotDNSKEY                = errors.New("dnssec: record is not a DNSKEY")
	ErrTypeMismatch             = errors.New("dnssec: rrsig type_covered does not match rrset type")
	ErrOwnerMismatch            = errors.New("dnssec: rrsig owner does not match rrset owner")
	ErrClassMismatch            = errors.New("dnssec: rrsig class does not match rrset class")
	ErrInceptionAfterExpiration = errors.New("dnssec: rrsig inception is after expiration")
	ErrNotYetValid              = errors.New("dnssec: rrsig is not yet valid")
	ErrExpired                  = errors.New("dnssec: rrsig has expired")
	ErrSignerNotInZone          = errors.New("dnssec: rrsig signer is not a zone of the rrset owner")
	ErrSignerKeyNameMismatch    = errors.New("dnssec: rrsig signer name does not match dnskey owner")
	ErrKeyTagMismatch           = errors.New("dnssec: rrsig key tag does not match dnskey")
	ErrAlgorithmMismatch        = errors.New("dnssec: rrsig algorithm does not match dnskey")
	ErrDNSKEYNotZoneKey         = errors.New("dnssec: dnskey lacks the ZONE flag")
	ErrDNSKEYRevoked            = errors.New("dnssec: dnskey is revoked")
)

// Options controls time-dependent validation behaviour.
type Options struct {
	Now        time.Time
	IgnoreTime bool
}

// Validate checks rrset against rrsigRecord's signature using dnskeyRecord's
// public key, per RFC 4033-4035. Once the preconditions pass, it
// canonicalizes rrsigRecord and every rrset member in place before verifying
// (RFC 4034 §6.2: lowercased owners and names, TTLs replaced with the
// RRSIG's original_ttl), and they stay canonicalized if verification fails.
// On success it also replaces rrset.Records with the sorted, deduplicated
// set and clamps both rrsigRecord's and every rrset member's TTL per
// RFC 4035 §5.3.3.
func Validate(rrset *RrSet, rrsigRecord, dnskeyRecord *message.NonOptRecord, opts Options) error {
	rrsig, ok := rrsigRecord.Data.(*rdata.RRSIG)
	if !ok {
		return ErrNotRRSIG
	}
	dnskey, ok := dnskeyRecord.Data.(*rdata.DNSKEY)
	if !ok {
		return ErrNotDNSKEY
	}

	if err := checkPreconditions(rrset, rrsigRecord, rrsig, dnskeyRecord, dnskey, opts); err != nil {
		return err
	}

	receivedMinTTL := rrset.Records[0].TTL
	for _, r := range rrset.Records[1:] {
		if r.TTL < receivedMinTTL {
			receivedMinTTL = r.TTL
		}
	}

	if err := rrsigRecord.Canonicalize(); err != nil {
		return fmt.Errorf("dnssec: canonicalize rrsig: %w", err)
	}
	for _, r := range rrset.Records {
		if err := canonicalizeMember(r, rrsig.Labels, rrsig.OriginalTTL); err != nil {
			return fmt.Errorf("dnssec: canonicalize rrset member: %w", err)
		}
	}

	sorted := sortAndDedup(rrset.Records)

	var base bytes.Buffer
	if _, err := rrsig.EncodeIntoWithoutSignature(&base); err != nil {
		return fmt.Errorf("dnssec: build signature base: %w", err)
	}
	for _, r := range sorted {
		if _, err := r.EncodeInto(&base); err != nil {
			return fmt.Errorf("dnssec: build signature base: %w", err)
		}
	}

	if err := dnskey.Validate(base.Bytes(), rrsig.Signature); err != nil {
		return err
	}

	now32 := uint32(opts.Now.Unix())
	clamp := clampTTL(receivedMinTTL, rrsig.OriginalTTL, rrsig.SignatureExpiration, now32, rrsigRecord.TTL)
	rrsigRecord.TTL = clamp
	for _, r := range sorted {
		r.TTL = clamp
	}
	rrset.Records = sorted

	return nil
}

func checkPreconditions(rrset *RrSet, rrsigRecord *message.NonOptRecord, rrsig *rdata.RRSIG, dnskeyRecord *message.NonOptRecord, dnskey *rdata.DNSKEY, opts Options) error {
	if rrsig.TypeCovered != rrset.RType {
		return ErrTypeMismatch
	}
	if !rrsigRecord.Owner.Equal(rrset.Owner) {
		return ErrOwnerMismatch
	}
	if rrsigRecord.Class != rrset.Class {
		return ErrClassMismatch
	}
	if serialLess(rrsig.SignatureExpiration, rrsig.SignatureInception) {
		return ErrInceptionAfterExpiration
	}
	if !opts.IgnoreTime {
		now32 := uint32(opts.Now.Unix())
		if serialLess(now32, rrsig.SignatureInception) {
			return ErrNotYetValid
		}
		if serialLess(rrsig.SignatureExpiration, now32) {
			return ErrExpired
		}
	}
	if !rrsig.SignerName.ZoneOf(rrset.Owner) {
		return ErrSignerNotInZone
	}
	if !rrsig.SignerName.Equal(dnskeyRecord.Owner) {
		return ErrSignerKeyNameMismatch
	}
	if rrsig.KeyTag != dnskey.KeyTag() {
		return ErrKeyTagMismatch
	}
	if rrsig.Algorithm != dnskey.Algorithm {
		return ErrAlgorithmMismatch
	}
	if !dnskey.Zone {
		return ErrDNSKEYNotZoneKey
	}
	if dnskey.Revoked {
		return ErrDNSKEYRevoked
	}
	return nil
}

// canonicalizeMember applies RFC 4034 §6.2 step 2 to a single rrset member:
// lowercase owner, canonicalize RDATA, set ttl to originalTTL, and
// reconstruct the wildcard owner per RFC 4035 §5.3.2 when the record's
// label count exceeds the RRSIG's labels field.
func canonicalizeMember(r *message.NonOptRecord, rrsigLabels uint8, originalTTL uint32) error {
	r.Owner.Canonicalize()
	r.TTL = originalTTL

	stripped := 0
	for r.Owner.LabelCount() > int(rrsigLabels) {
		owner, _, ok := r.Owner.PopFrontLabel()
		if !ok {
			break
		}
		r.Owner = owner
		stripped++
	}
	if stripped > 0 {
		r.Owner = r.Owner.PrependWildcard()
	}

	return r.Canonicalize()
}

// clampTTL implements the RFC 4035 §5.3.3 post-validation TTL:
// min(received_min_rrset_ttl, rrsig.original_ttl, expiration-now, rrsig_record.ttl).
func clampTTL(receivedMinTTL, originalTTL, expiration, now, rrsigRecordTTL uint32) uint32 {
	clamp := receivedMinTTL
	if originalTTL < clamp {
		clamp = originalTTL
	}
	if remaining := expiration - now; remaining < clamp {
		clamp = remaining
	}
	if rrsigRecordTTL < clamp {
		clamp = rrsigRecordTTL
	}
	return clamp
}

func sortAndDedup(records []*message.NonOptRecord) []*message.NonOptRecord {
	sorted := append([]*message.NonOptRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].EncodedRDATA(), sorted[j].EncodedRDATA()) < 0
	})
	out := sorted[:0:0]
	for i, r := range sorted {
		if i > 0 && bytes.Equal(r.EncodedRDATA(), sorted[i-1].EncodedRDATA()) {
			continue
		}
		out = append(out, r)
	}
	return out
}
