// Package inbound turns the webhook payload shapes the tracker receives
// (carrier JSON, form posts, raw text, and the SMS-forwarder text format)
// into one canonical domain.InboundMessage.
package inbound

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/colispro/delivery_tracker/internal/tracker_service/domain"
)

// PayloadKind tags how the request body was encoded on the wire.
type PayloadKind int

const (
	KindJSON PayloadKind = iota
	KindForm
	KindRaw
)

// Payload is the decoded-but-unresolved webhook body. JSON and form bodies
// carry Fields; raw text bodies carry Raw.
type Payload struct {
	Kind   PayloadKind
	Fields map[string]string
	Raw    string
}

var (
	forwarderPhoneRe = regexp.MustCompile(`De : \+(\d+)`)
	forwarderNameRe  = regexp.MustCompile(`\(([^)]*)\)`)
	nonDigitRe       = regexp.MustCompile(`\D`)
)

// Normalizer resolves payloads into canonical inbound messages.
type Normalizer struct {
	// fallbackPhone is recorded when a forwarder payload carries no
	// "De : +..." sender marker. UNKNOWN in production, TEST_PHONE in
	// loopback test deployments.
	fallbackPhone string
}

func NewNormalizer(fallbackPhone string) *Normalizer {
	if fallbackPhone == "" {
		fallbackPhone = "UNKNOWN"
	}
	return &Normalizer{fallbackPhone: fallbackPhone}
}

// Normalize resolves a payload by shape priority: the forwarder "key" format
// first, then the carrier From/Body shape, then the discard shape (everything
// empty, still recorded). A raw body is treated as a From=UNKNOWN carrier
// message whose Body is the whole text.
func (n *Normalizer) Normalize(p Payload) domain.InboundMessage {
	fields := p.Fields
	if p.Kind == KindRaw {
		fields = map[string]string{"From": "UNKNOWN", "Body": p.Raw}
	}
	if fields == nil {
		fields = map[string]string{}
	}

	var msg domain.InboundMessage
	if raw, ok := fields["key"]; ok {
		msg = n.normalizeForwarder(raw)
	} else if from, ok := fields["From"]; ok {
		if body, ok := fields["Body"]; ok {
			msg = normalizeCarrier(from, body)
		}
	}

	// A payload matching no known shape degrades to an empty message, which
	// is still recorded downstream.
	msg.StatusText = strings.TrimSpace(fields["status"])
	if msg.StatusText == "" {
		msg.StatusText = msg.Body
	}
	return msg
}

// normalizeForwarder parses the SMS-forwarder text format: the sender appears
// after a French "De : +<digits>" marker, the display name inside the first
// parenthesized group, and the message body after the first line break.
func (n *Normalizer) normalizeForwarder(raw string) domain.InboundMessage {
	phone := n.fallbackPhone
	if m := forwarderPhoneRe.FindStringSubmatch(raw); m != nil {
		phone = m[1]
	}

	name := "Unknown"
	if m := forwarderNameRe.FindStringSubmatch(raw); m != nil && m[1] != "" {
		name = m[1]
	}

	body := raw
	if idx := strings.IndexByte(raw, '\n'); idx >= 0 {
		body = raw[idx+1:]
	}

	return domain.InboundMessage{Phone: phone, Name: name, Body: strings.TrimSpace(body)}
}

// normalizeCarrier parses the standard carrier webhook shape: From holds the
// sender number and Body the text. The display name falls out of the first
// whitespace-delimited token of the body.
func normalizeCarrier(from, body string) domain.InboundMessage {
	body = strings.TrimSpace(body)

	name := "Unknown"
	if tokens := strings.Fields(body); len(tokens) > 0 {
		name = capitalize(tokens[0])
	}

	return domain.InboundMessage{Phone: NormalizePhone(from), Name: name, Body: body}
}

// NormalizePhone strips every non-digit character, yielding the canonical
// phone key clients are stored under.
func NormalizePhone(s string) string {
	return nonDigitRe.ReplaceAllString(s, "")
}

// capitalize upper-cases the first rune and leaves the rest untouched.
func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
