package utils

import (
	"crypto/rand"
	"math/big"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const (
	referenceLength  = 8
	referenceCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	maxAttempts      = 10
)

func randomCode(n int) (string, error) {
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(referenceCharset))))
		if err != nil {
			return "", err
		}
		b[i] = referenceCharset[idx.Int64()]
	}
	return string(b), nil
}

// GenerateUniqueReference returns prefix-XXXXXXXX that is not yet used in column of model.
func GenerateUniqueReference(tx *gorm.DB, model interface{}, column, prefix string) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := randomCode(referenceLength)
		if err != nil {
			return "", errors.Wrap(err, "generate reference")
		}
		ref := prefix + "-" + code

		var count int64
		if err := tx.Model(model).Where(column+" = ?", ref).Count(&count).Error; err != nil {
			return "", errors.Wrap(err, "check reference")
		}
		if count == 0 {
			return ref, nil
		}
	}
	return "", errors.New("could not generate a unique reference")
}
