// Package seed creates demo data for development databases.
package seed

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"warbler/internal/models"
	"warbler/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
)

// maxUsernameLength mirrors the users.username column.
const maxUsernameLength = 30

// Factory builds domain entities from fake data. It does not touch the database.
type Factory struct {
	faker *gofakeit.Faker
	now   time.Time
}

// NewFactory returns a Factory; the same seed yields the same entities.
func NewFactory(seed int64, now time.Time) *Factory {
	return &Factory{faker: gofakeit.New(seed), now: now}
}

// BuildUser returns user number n with the given password hash. The number
// keeps usernames unique.
func (f *Factory) BuildUser(n int, passwordHash string) *models.User {
	suffix := fmt.Sprintf("%d", n)
	base := sanitizeUsername(f.faker.Username())
	if len(base)+len(suffix) > maxUsernameLength {
		base = base[:maxUsernameLength-len(suffix)]
	}
	if base == "" {
		base = "user"
	}
	username := base + suffix

	u := &models.User{
		Username: username,
		Email:    strings.ToLower(username) + "@example.com",
		Password: passwordHash,
		Bio:      f.faker.Sentence(8),
		Location: f.faker.City(),
	}
	if f.faker.Bool() {
		u.ImageURL = fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID())
	}
	u.ApplyImageDefaults()
	return u
}

// BuildMessage returns a message by userID posted within maxDays before now.
func (f *Factory) BuildMessage(userID uint, maxDays int) *models.Message {
	if maxDays <= 0 {
		maxDays = 30
	}
	age := time.Duration(f.faker.Number(0, maxDays*24*60)) * time.Minute
	return &models.Message{
		UserID:    userID,
		Text:      truncateRunes(f.faker.Sentence(f.faker.Number(3, 20)), models.MaxMessageLength),
		Timestamp: f.now.Add(-age).UTC(),
	}
}

// Pick returns up to n distinct indexes in [0, size) other than skip.
func (f *Factory) Pick(n, size, skip int) []int {
	candidates := make([]int, 0, size)
	for i := 0; i < size; i++ {
		if i != skip {
			candidates = append(candidates, i)
		}
	}
	f.faker.ShuffleAnySlice(candidates)
	if n < len(candidates) {
		candidates = candidates[:n]
	}
	return candidates
}

func sanitizeUsername(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < utf8.RuneSelf && (r == '_' || r == '-' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9')) {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "_-")
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// valid reports whether u passes the signup rules, so seeded users can log in.
func valid(u *models.User) bool {
	return validation.ValidateUsername(u.Username) == nil && validation.ValidateEmail(u.Email) == nil
}
