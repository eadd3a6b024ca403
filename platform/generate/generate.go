package generate

import (
	"crypto/rand"
	"math/big"
)

const charsetSafe = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomBytes returns a slice of unpredictable bytes of the given length.
func RandomBytes(n int) ([]byte, error) {
	bs := make([]byte, n)

	_, err := rand.Read(bs)
	if err != nil {
		return nil, err
	}

	return bs, nil
}

// RandomStringSafe returns a random string of the given length only
// containing alphanumeric characters.
func RandomStringSafe(n int) string {
	return randomFrom(charsetSafe, n)
}

func randomFrom(set string, n int) string {
	var (
		max = big.NewInt(int64(len(set)))
		rs  = make([]byte, n)
	)

	for i := range rs {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}

		rs[i] = set[idx.Int64()]
	}

	return string(rs)
}
