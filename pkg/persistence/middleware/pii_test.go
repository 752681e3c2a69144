package middleware_test

import (
	"context"
	"strings"
	"testing"

	"github.com/civicchat/orchestra/pkg/adapters/memory"
	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/civicchat/orchestra/pkg/persistence/middleware"
	"github.com/civicchat/orchestra/pkg/ports"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlyingStore := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns)
	if err != nil {
		t.Fatalf("NewPIIMiddleware failed: %v", err)
	}
	store := mw(underlyingStore)

	ctx := context.Background()
	messages := []domain.Message{
		domain.UserMessage("Write to jane.doe@example.org or call +1 555 123 4567"),
		domain.UserMessage("My SSN is 999-99-9999"),
		domain.AssistantMessage("Polling stations open at 8."),
	}

	if err := store.Save(ctx, "pii", messages); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	stored, err := underlyingStore.Load(ctx, "pii")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := []struct {
		name    string
		content string
		leaked  string
	}{
		{"email", stored[0].Content, "jane.doe@example.org"},
		{"phone", stored[0].Content, "555 123 4567"},
		{"ssn", stored[1].Content, "999-99-9999"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if strings.Contains(tt.content, tt.leaked) {
				t.Errorf("Expected %s to be masked, got %q", tt.leaked, tt.content)
			}
			if !strings.Contains(tt.content, middleware.Mask) {
				t.Errorf("Expected mask in %q", tt.content)
			}
		})
	}

	if stored[2].Content != "Polling stations open at 8." {
		t.Errorf("Expected safe content untouched, got %q", stored[2].Content)
	}

	// The caller's slice is not modified.
	if !strings.Contains(messages[0].Content, "jane.doe@example.org") {
		t.Error("Save mutated the caller's messages")
	}
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	if _, err := middleware.NewPIIMiddleware([]string{"("}); err == nil {
		t.Error("Expected error for invalid pattern")
	}
}

func TestChain_RedactsBeforeEncrypting(t *testing.T) {
	underlyingStore := memory.NewStore()
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	if err != nil {
		t.Fatal(err)
	}
	pii, err := middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns)
	if err != nil {
		t.Fatal(err)
	}
	store := middleware.Chain(underlyingStore, enc, pii)

	ctx := context.Background()
	if err := store.Save(ctx, "c", []domain.Message{domain.UserMessage("mail me at a@b.io")}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(ctx, "c")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded[0].Content != "mail me at ***" {
		t.Errorf("Expected redacted plaintext, got %q", loaded[0].Content)
	}

	var _ ports.ThreadStore = store
}
