package utils

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"time"
)

const (
	sessionPrefix     = "session_"
	sessionRandLength = 9
	base36            = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// GenerateSessionID returns a client session token of the form
// session_<unix millis>_<9 random base36 chars>.
func GenerateSessionID(now time.Time) (string, error) {
	suffix := make([]byte, sessionRandLength)
	max := big.NewInt(int64(len(base36)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		suffix[i] = base36[n.Int64()]
	}
	return sessionPrefix + strconv.FormatInt(now.UnixMilli(), 10) + "_" + string(suffix), nil
}
