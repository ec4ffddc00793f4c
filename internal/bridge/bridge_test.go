package bridge

import (
	"errors"
	"testing"
)

func TestDecodeValidEnvelope(t *testing.T) {
	ch := NewChannel([]string{"https://demo.myshopify.com"})
	raw := []byte(`{"kind":"widget_opened","sessionId":"sid-1","payload":{"productId":"42"}}`)

	env, err := ch.Decode(raw, "https://demo.myshopify.com")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.Kind != KindWidgetOpened || env.SessionID != "sid-1" {
		t.Fatalf("env = %+v", env)
	}
	if env.Origin != "https://demo.myshopify.com" {
		t.Errorf("transport origin should win, got %q", env.Origin)
	}
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	ch := NewChannel([]string{"https://demo.myshopify.com"})
	raw := []byte(`{"kind":"eval_script","sessionId":"sid-1"}`)

	if _, err := ch.Decode(raw, "https://demo.myshopify.com"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("err = %v, want ErrUnknownKind", err)
	}
}

func TestDecodeRejectsForeignOrigin(t *testing.T) {
	ch := NewChannel([]string{"https://demo.myshopify.com"})
	raw := []byte(`{"kind":"widget_opened","sessionId":"sid-1"}`)

	if _, err := ch.Decode(raw, "https://attacker.example.com"); !errors.Is(err, ErrOriginNotAllowed) {
		t.Fatalf("err = %v, want ErrOriginNotAllowed", err)
	}
	if _, err := ch.Decode(raw, ""); !errors.Is(err, ErrOriginNotAllowed) {
		t.Fatalf("empty origin: err = %v, want ErrOriginNotAllowed", err)
	}
}

func TestDecodeRequiresSession(t *testing.T) {
	ch := NewChannel(nil)
	raw := []byte(`{"kind":"widget_opened"}`)

	if _, err := ch.Decode(raw, "https://demo.myshopify.com"); !errors.Is(err, ErrMissingSession) {
		t.Fatalf("err = %v, want ErrMissingSession", err)
	}
}

func TestEmptyAllowListAdmitsStorefrontsOnly(t *testing.T) {
	ch := NewChannel(nil)
	raw := []byte(`{"kind":"add_to_cart","sessionId":"sid-1"}`)

	if _, err := ch.Decode(raw, "https://demo.myshopify.com"); err != nil {
		t.Fatalf("myshopify origin rejected: %v", err)
	}
	if _, err := ch.Decode(raw, "https://evil.example.com"); !errors.Is(err, ErrOriginNotAllowed) {
		t.Fatalf("err = %v, want ErrOriginNotAllowed", err)
	}
}

func TestDecodeMalformedJSON(t *testing.T) {
	ch := NewChannel(nil)
	if _, err := ch.Decode([]byte(`{"kind":`), "https://demo.myshopify.com"); err == nil {
		t.Fatal("expected error for malformed envelope")
	}
}
