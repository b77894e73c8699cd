package inbound_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colispro/delivery_tracker/internal/tracker_service/inbound"
)

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "21622333444", inbound.NormalizePhone("+216 22-333-444"))
	assert.Equal(t, "21622333444", inbound.NormalizePhone("21622333444"))
	assert.Equal(t, "", inbound.NormalizePhone("UNKNOWN"))
	assert.Equal(t, "", inbound.NormalizePhone(""))
}

func TestNormalize_CarrierShape(t *testing.T) {
	n := inbound.NewNormalizer("")

	msg := n.Normalize(inbound.Payload{
		Kind: inbound.KindForm,
		Fields: map[string]string{
			"From": "+216-22-333-444",
			"Body": "delivered 3 boxes at 36.8065,10.1815",
		},
	})

	assert.Equal(t, "21622333444", msg.Phone)
	assert.Equal(t, "Delivered", msg.Name)
	assert.Equal(t, "delivered 3 boxes at 36.8065,10.1815", msg.Body)
	assert.Equal(t, msg.Body, msg.StatusText)
}

func TestNormalize_CarrierEmptyBody(t *testing.T) {
	n := inbound.NewNormalizer("")

	msg := n.Normalize(inbound.Payload{
		Kind:   inbound.KindJSON,
		Fields: map[string]string{"From": "+21655000111", "Body": "   "},
	})

	assert.Equal(t, "21655000111", msg.Phone)
	assert.Equal(t, "Unknown", msg.Name)
	assert.Equal(t, "", msg.Body)
	assert.Equal(t, "", msg.StatusText)
}

func TestNormalize_StatusFieldOverridesBody(t *testing.T) {
	n := inbound.NewNormalizer("")

	msg := n.Normalize(inbound.Payload{
		Kind: inbound.KindJSON,
		Fields: map[string]string{
			"From":   "+21622333444",
			"Body":   "en route",
			"status": " waiting at depot ",
		},
	})

	assert.Equal(t, "waiting at depot", msg.StatusText)
	assert.Equal(t, "en route", msg.Body)
}

func TestNormalize_ForwarderShape(t *testing.T) {
	n := inbound.NewNormalizer("")

	raw := "SMS recu De : +21622333444 (Ali Ben Salah)\n36.8065, 10.1815 two boxes pending"
	msg := n.Normalize(inbound.Payload{
		Kind:   inbound.KindJSON,
		Fields: map[string]string{"key": raw},
	})

	assert.Equal(t, "21622333444", msg.Phone)
	assert.Equal(t, "Ali Ben Salah", msg.Name)
	assert.Equal(t, "36.8065, 10.1815 two boxes pending", msg.Body)
}

func TestNormalize_ForwarderFallbacks(t *testing.T) {
	n := inbound.NewNormalizer("TEST_PHONE")

	// No sender marker, no parentheses, no line break.
	msg := n.Normalize(inbound.Payload{
		Kind:   inbound.KindForm,
		Fields: map[string]string{"key": "status update without metadata"},
	})

	assert.Equal(t, "TEST_PHONE", msg.Phone)
	assert.Equal(t, "Unknown", msg.Name)
	assert.Equal(t, "status update without metadata", msg.Body)
}

func TestNormalize_ForwarderWinsOverCarrierFields(t *testing.T) {
	n := inbound.NewNormalizer("")

	msg := n.Normalize(inbound.Payload{
		Kind: inbound.KindJSON,
		Fields: map[string]string{
			"key":  "De : +21699888777 (Mongi)\nout for delivery",
			"From": "+10000000000",
			"Body": "ignored",
		},
	})

	assert.Equal(t, "21699888777", msg.Phone)
	assert.Equal(t, "Mongi", msg.Name)
	assert.Equal(t, "out for delivery", msg.Body)
}

func TestNormalize_RawBody(t *testing.T) {
	n := inbound.NewNormalizer("")

	msg := n.Normalize(inbound.Payload{Kind: inbound.KindRaw, Raw: "plain text ping"})

	// Raw text degrades to a carrier message from an unknown sender; the
	// phone normalizes to empty.
	assert.Equal(t, "", msg.Phone)
	assert.Equal(t, "Plain", msg.Name)
	assert.Equal(t, "plain text ping", msg.Body)
	assert.Equal(t, "plain text ping", msg.StatusText)
}

func TestNormalize_UnrecognizedShapeDiscards(t *testing.T) {
	n := inbound.NewNormalizer("")

	msg := n.Normalize(inbound.Payload{
		Kind:   inbound.KindJSON,
		Fields: map[string]string{"foo": "bar"},
	})

	assert.Equal(t, "", msg.Phone)
	assert.Equal(t, "", msg.Name)
	assert.Equal(t, "", msg.Body)
	assert.Equal(t, "", msg.StatusText)
}
