package credential

import (
	"math/rand"
	"strings"
)

const otpDigits = "0123456789"

// GenerateOTP produces a numeric one-time code of the given length. Each
// digit is drawn independently and uniformly from 0-9, so digits may
// repeat. math/rand is intentional: these codes gate email verification,
// not anything security-critical, and the issuing side rate is the real
// guard. Do not reuse this for secrets.
func GenerateOTP(length int) string {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(otpDigits[rand.Intn(len(otpDigits))])
	}
	return b.String()
}
