package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAvatarURL(t *testing.T) {
	u := &User{Email: "john@example.com"}

	// md5 of the lowercased email, identicon fallback, requested size.
	assert.Equal(t,
		"https://www.gravatar.com/avatar/d4c74594d841139328695756648b6bd6?d=identicon&s=128",
		u.AvatarURL(128))
}

func TestAvatarURLCaseInsensitive(t *testing.T) {
	a := &User{Email: "john@example.com"}
	b := &User{Email: "John@Example.COM"}

	assert.Equal(t, a.AvatarURL(64), b.AvatarURL(64))
}

func TestAvatarURLSize(t *testing.T) {
	u := &User{Email: "john@example.com"}

	assert.Contains(t, u.AvatarURL(32), "s=32")
	assert.Contains(t, u.AvatarURL(256), "s=256")
}
