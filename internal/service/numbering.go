package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/panchayat-portal/internal/domain"
	"github.com/spec-kit/panchayat-portal/internal/repository"
	apperrors "github.com/spec-kit/panchayat-portal/pkg/util/errorutil"
)

const numberLayout = "20060102150405"

func stamp(at time.Time) string {
	return at.UTC().Format(numberLayout)
}

func applicationNumber(t domain.ApplicationType, at time.Time, suffix string) string {
	return "GP" + t.Prefix() + stamp(at) + suffix
}

func certificateNumber(t domain.ApplicationType, at time.Time, suffix string) string {
	return "CERT" + t.Prefix() + stamp(at) + suffix
}

func complaintNumber(at time.Time, suffix string) string {
	return "CMP" + stamp(at) + suffix
}

func receiptNumber(at time.Time, suffix string) string {
	return "RCP" + stamp(at) + suffix
}

func randomSuffix() (string, error) {
	b := make([]byte, 2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

// allocateWithRetry runs fn in a transaction with an empty number suffix. If
// the store reports a uniqueness conflict the whole unit is retried once with
// a random suffix.
func allocateWithRetry(ctx context.Context, store repository.Store, fn func(tx repository.Store, suffix string) error) error {
	err := store.WithTx(ctx, func(tx repository.Store) error { return fn(tx, "") })
	if !errors.Is(err, repository.ErrConflict) {
		return err
	}
	suffix, serr := randomSuffix()
	if serr != nil {
		return apperrors.NewInternalError(serr)
	}
	err = store.WithTx(ctx, func(tx repository.Store) error { return fn(tx, suffix) })
	if errors.Is(err, repository.ErrConflict) {
		return apperrors.NewConflict("could not allocate a unique reference number, please retry", nil)
	}
	return err
}
