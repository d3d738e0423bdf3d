package orders

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const (
	trackingPrefix   = "TRK"
	trackingLength   = 9
	trackingAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NewTrackingNumber returns TRK followed by nine uppercase alphanumerics from crypto/rand.
func NewTrackingNumber() (string, error) {
	return trackingNumberFrom(rand.Reader)
}

func trackingNumberFrom(src io.Reader) (string, error) {
	buf := make([]byte, trackingLength)
	max := big.NewInt(int64(len(trackingAlphabet)))
	for i := range buf {
		n, err := rand.Int(src, max)
		if err != nil {
			return "", fmt.Errorf("generate tracking number: %w", err)
		}
		buf[i] = trackingAlphabet[n.Int64()]
	}
	return trackingPrefix + string(buf), nil
}
