package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"simple", "alice", false},
		{"with underscore and digits", "bob_99", false},
		{"too short", "ab", true},
		{"too long", strings.Repeat("a", 31), true},
		{"spaces", "al ice", true},
		{"leading hyphen", "-alice", true},
		{"trailing underscore", "alice_", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidatePassword("secret"))
	assert.Error(t, ValidatePassword("short"))
	assert.Error(t, ValidatePassword(strings.Repeat("x", MaxPasswordLength+1)))
	assert.NoError(t, ValidatePassword("pässwörd"))
	assert.NoError(t, ValidatePassword(strings.Repeat("x", MaxPasswordLength)))
	// 37 runes, 74 bytes
	assert.Error(t, ValidatePassword(strings.Repeat("é", 37)))
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateEmail("alice@example.com"))
	assert.Error(t, ValidateEmail("alice@"))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail(strings.Repeat("a", 250)+"@example.com"))
}

func TestValidateImageURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		wantErr bool
	}{
		{"", false},
		{"/static/images/default-pic.png", false},
		{"https://images.example.com/a.png", false},
		{"http://example.com/a.jpg", false},
		{"//evil.example.com/a.png", true},
		{"javascript:alert(1)", true},
		{"ftp://example.com/a.png", true},
		{"https://", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			err := ValidateImageURL(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateMessageText(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateMessageText("hello", 140))
	assert.NoError(t, ValidateMessageText(strings.Repeat("é", 140), 140))
	assert.Error(t, ValidateMessageText(strings.Repeat("a", 141), 140))
	assert.Error(t, ValidateMessageText("   ", 140))
	assert.Error(t, ValidateMessageText("", 140))
}

func TestErrors_Check(t *testing.T) {
	t.Parallel()

	errs := Errors{}
	errs.Check("username", nil)
	assert.True(t, errs.Empty())

	errs.Check("username", errors.New("first"))
	errs.Check("username", errors.New("second"))
	assert.Equal(t, Errors{"username": "first"}, errs)
	assert.False(t, errs.Empty())
}
