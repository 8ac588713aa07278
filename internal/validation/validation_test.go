package validation

import (
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
		{"Valid", "style.haus_01", false},
		{"Exactly Min Length", "abc", false},
		{"Too Short", "ab", true},
		{"Too Long", strings.Repeat("a", 31), true},
		{"Space", "style haus", true},
		{"Hyphen", "style-haus", true},
		{"Emoji", "hi👋x", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
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
	assert.NoError(t, ValidatePassword("demo1234"))
	assert.NoError(t, ValidatePassword("sixsix"))
	assert.Error(t, ValidatePassword("five5"))
	assert.Error(t, ValidatePassword(""))
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateEmail("demo@cliqd.com"))
	assert.Error(t, ValidateEmail("demo@cliqd"))
	assert.Error(t, ValidateEmail("demo cliqd.com"))
	assert.Error(t, ValidateEmail(""))
}

func TestRegistration(t *testing.T) {
	t.Parallel()
	r := Registration{Name: "  Alice ", Email: " alice@x.com ", Username: " Alice_1 ", Password: "secret"}.Normalize()

	assert.Equal(t, "Alice", r.Name)
	assert.Equal(t, "alice@x.com", r.Email)
	assert.Equal(t, "alice_1", r.Username)
	assert.NoError(t, r.Validate())

	r.Name = ""
	assert.Error(t, r.Validate())
}

func TestValidatePost(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidatePost("Summer vibes", "data:image/png;base64,AAAA"))
	assert.Error(t, ValidatePost("   ", "https://example.com/a.jpg"))
	assert.Error(t, ValidatePost("caption", ""))
}
