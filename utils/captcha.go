package utils

import (
	"time"

	"github.com/mojocn/base64Captcha"
)

// Captcha issues and verifies digit captchas used on registration.
type Captcha struct {
	store base64Captcha.Store
}

// NewCaptcha picks the Redis-backed store when Redis is available, else the in-process store.
func NewCaptcha() *Captcha {
	if GetRedis() != nil {
		return &Captcha{store: NewRedisCaptchaStore(10 * time.Minute)}
	}
	return &Captcha{store: base64Captcha.DefaultMemStore}
}

// NewCaptchaWithStore is used by tests that need to know the answer.
func NewCaptchaWithStore(store base64Captcha.Store) *Captcha {
	return &Captcha{store: store}
}

// Generate creates a captcha and returns (id, dataURI) for the frontend to display.
func (c *Captcha) Generate() (string, string, error) {
	driver := base64Captcha.NewDriverDigit(40, 120, 5, 0.7, 80)
	id, b64, _, err := base64Captcha.NewCaptcha(driver, c.store).Generate()
	return id, b64, err
}

// Verify checks the answer and consumes the captcha.
func (c *Captcha) Verify(id, answer string) bool {
	if id == "" || answer == "" {
		return false
	}
	return c.store.Verify(id, answer, true)
}
