package domain

import "strings"

// SourceKind is the outcome of classifying an inbound webhook.
type SourceKind int

const (
	SourceGeneric SourceKind = iota
	SourcePartner
)

func (k SourceKind) String() string {
	switch k {
	case SourcePartner:
		return "partner"
	case SourceGeneric:
		return "generic"
	}
	return "unknown"
}

// Signal names the evidence that produced a partner classification.
type Signal string

const (
	SignalNone                   Signal = ""
	SignalDeclaredSource         Signal = "declared_source"
	SignalSourceHeader           Signal = "source_header"
	SignalPartnerSignatureHeader Signal = "partner_signature_header"
	SignalEventPrefix            Signal = "event_prefix"
)

// partnerEventPrefixes mark event types only the sales partner emits.
var partnerEventPrefixes = []string{"sale.", "payment."}

// SourceSignals is everything the classifier may look at.
type SourceSignals struct {
	PartnerName         string
	DeclaredSource      string // body "source"
	SourceHeader        string // x-webhook-source
	HasPartnerSigHeader bool   // x-<partner>-signature present
	EventType           string
}

// SourceClassification records which source an event came from and why.
type SourceClassification struct {
	Kind   SourceKind
	Signal Signal
	Source string
}

// IsPartner reports whether the event belongs to the sales partner.
func (c SourceClassification) IsPartner() bool {
	return c.Kind == SourcePartner
}

// ClassifySource decides whether an event comes from the sales partner.
// Signals are checked in a fixed order and the first hit is recorded.
// Generic events keep whatever source name the caller declared.
func ClassifySource(s SourceSignals) SourceClassification {
	partner := strings.ToLower(s.PartnerName)
	declared := strings.ToLower(strings.TrimSpace(s.DeclaredSource))
	header := strings.ToLower(strings.TrimSpace(s.SourceHeader))

	hit := func(sig Signal) SourceClassification {
		return SourceClassification{Kind: SourcePartner, Signal: sig, Source: partner}
	}

	switch {
	case partner != "" && declared == partner:
		return hit(SignalDeclaredSource)
	case partner != "" && header == partner:
		return hit(SignalSourceHeader)
	case s.HasPartnerSigHeader:
		return hit(SignalPartnerSignatureHeader)
	case hasPartnerPrefix(s.EventType):
		return hit(SignalEventPrefix)
	}

	source := declared
	if source == "" {
		source = header
	}
	if source == "" {
		source = "generic"
	}
	return SourceClassification{Kind: SourceGeneric, Signal: SignalNone, Source: source}
}

func hasPartnerPrefix(eventType string) bool {
	for _, p := range partnerEventPrefixes {
		if strings.HasPrefix(eventType, p) {
			return true
		}
	}
	return false
}
