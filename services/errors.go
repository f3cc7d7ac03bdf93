package services

import (
	"errors"

	"github.com/knowledgenexus/forum/store"
	"github.com/knowledgenexus/forum/utils"
)

// Business codes shared by the services.
const (
	codeValidation      = 40001
	codeBadCredentials  = 40101
	codeUserGone        = 40102
	codePostNotFound    = 40401
	codeReplyNotFound   = 40402
	codeUserNotFound    = 40403
	codeUsernameTaken   = 40901
	codeInternal        = 50000
	codeCascadeFailed   = 50001
	codeCounterFailed   = 50002
	codeStoreReadFailed = 50003
)

// storeErr converts a store error: ErrNotFound becomes notFound, everything else is
// classified by utils.Wrap.
func storeErr(err error, notFound error) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound
	}
	return utils.Wrap(err, codeStoreReadFailed, "internal server error")
}

func validation(msg string) error {
	return utils.Validation(codeValidation, msg)
}
