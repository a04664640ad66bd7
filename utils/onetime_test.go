package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/aiblog/config"
)

func TestOneTimeStore(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "test-secret"})
	s := NewOneTimeStore("test:", time.Minute)

	require.NoError(t, s.Put("k", "v"))
	v, ok := s.Peek("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	v, ok = s.Take("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
	_, ok = s.Take("k")
	assert.False(t, ok)

	s.mem["old"] = oneTimeEntry{value: "x", expires: time.Now().Add(-time.Second)}
	_, ok = s.Peek("old")
	assert.False(t, ok)
	_, ok = s.Take("old")
	assert.False(t, ok)
}

func TestCaptchaVerifyConsumes(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "test-secret"})

	id, image, err := GenerateCaptcha()
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.True(t, strings.HasPrefix(image, "data:image/png;base64,"))

	answer := captchas.Store.Get(id, false)
	require.Len(t, answer, 5)
	assert.True(t, VerifyCaptcha(id, " "+answer+" "))
	assert.False(t, VerifyCaptcha(id, answer))

	id, _, err = GenerateCaptcha()
	require.NoError(t, err)
	assert.False(t, VerifyCaptcha(id, "wrong"))
	assert.False(t, VerifyCaptcha(id, captchas.Store.Get(id, false)))
	assert.False(t, VerifyCaptcha("", "12345"))
}
