package middleware

import (
	"strings"
	"testing"
)

func TestValidateMessageContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"valid", "what is 2 + 2?", false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", 100001), true},
		{"at limit", strings.Repeat("a", 100000), false},
		{"invalid utf8", string([]byte{0xff, 0xfe}), true},
		{"unicode", "こんにちは", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessageContent(tt.content)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMessageContent() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateConversationID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"valid v7", "0191b9a1-0000-7000-8000-000000000000", false},
		{"valid v4", "6ba7b810-9dad-11d1-80b4-00c04fd430c8", false},
		{"empty", "", true},
		{"garbage", "not-a-uuid", true},
		{"truncated", "0191b9a1-0000-7000", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConversationID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConversationID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}
