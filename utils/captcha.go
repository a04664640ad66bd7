package utils

import (
	"strings"
	"time"

	"github.com/mojocn/base64Captcha"
)

const captchaTTL = 10 * time.Minute

// captchaStore serves base64Captcha answers from a OneTimeStore.
type captchaStore struct {
	*OneTimeStore
}

func (s captchaStore) Set(id, value string) error {
	return s.Put(id, value)
}

func (s captchaStore) Get(id string, clear bool) string {
	var v string
	if clear {
		v, _ = s.Take(id)
	} else {
		v, _ = s.Peek(id)
	}
	return v
}

func (s captchaStore) Verify(id, answer string, clear bool) bool {
	v := s.Get(id, clear)
	return v != "" && v == answer
}

// Five digit images, 120x40.
var captchas = base64Captcha.NewCaptcha(
	base64Captcha.NewDriverDigit(40, 120, 5, 0.7, 80),
	captchaStore{NewOneTimeStore("captcha:", captchaTTL)},
)

// GenerateCaptcha creates a captcha and returns its id and image as a data URI.
func GenerateCaptcha() (string, string, error) {
	id, image, _, err := captchas.Generate()
	return id, image, err
}

// VerifyCaptcha checks the answer and consumes the captcha either way.
func VerifyCaptcha(id, answer string) bool {
	id, answer = strings.TrimSpace(id), strings.TrimSpace(answer)
	if id == "" || answer == "" {
		return false
	}
	return captchas.Verify(id, answer, true)
}
