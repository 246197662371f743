package dnssec

import (
	"errors"
	"fmt"

	"github.com/dnsscience/stubresolve/internal/message"
	"github.com/dnsscience/stubresolve/internal/name"
	"github.com/dnsscience/stubresolve/internal/rdata"
)

var (
	ErrEmptyRrset   = errors.New("dnssec: empty rrset")
	ErrInvalidRrSet = errors.New("dnssec: rrset records do not share owner, type, and class")
)

// RrSet is a non-empty list of NonOptRecords sharing owner, type, and
// class, produced transiently during DNSSEC validation.
type RrSet struct {
	Owner   name.Name
	RType   rdata.RecordType
	Class   rdata.Class
	Records []*message.NonOptRecord
}

// NewRrSet validates that records is non-empty and homogeneous before
// constructing the set.
func NewRrSet(records []*message.NonOptRecord) (*RrSet, error) {
	if len(records) == 0 {
		return nil, ErrEmptyRrset
	}
	first := records[0]
	for _, r := range records[1:] {
		if !r.Owner.Equal(first.Owner) || r.RType != first.RType || r.Class != first.Class {
			return nil, fmt.Errorf("%w", ErrInvalidRrSet)
		}
	}
	return &RrSet{Owner: first.Owner, RType: first.RType, Class: first.Class, Records: records}, nil
}
