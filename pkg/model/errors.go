package model

import (
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrIntegrityFailure blocks a gated mutation when the fingerprint check fails
	ErrIntegrityFailure = goerr.New("hardware integrity check failed")

	// ErrStoreUnavailable is a transient store failure, surfaced after retry exhaustion
	ErrStoreUnavailable = goerr.New("session store unavailable")

	// ErrPermissionDenied means the store rejected the request outright
	ErrPermissionDenied = goerr.New("session store denied the request")

	// ErrProtocolGeneration covers suggestion endpoint errors and malformed responses
	ErrProtocolGeneration = goerr.New("protocol generation failed")

	// ErrNotAuthorized means the authorization policy rejected the mutation
	ErrNotAuthorized = goerr.New("mutation not authorized")

	// ErrMalformedRecord means a stored document is neither a session nor an operation
	ErrMalformedRecord = goerr.New("malformed session record")

	// ErrSessionNotFound means the requested record does not exist
	ErrSessionNotFound = goerr.New("session not found")
)

// ClassifyStoreError folds a raw store error into the error taxonomy.
// Transient conditions map to ErrStoreUnavailable, access rejections to
// ErrPermissionDenied; everything else passes through unclassified.
func ClassifyStoreError(err error) error {
	if err == nil {
		return nil
	}

	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return goerr.Wrap(ErrStoreUnavailable, err.Error(), goerr.V("code", status.Code(err).String()))
	case codes.PermissionDenied, codes.Unauthenticated:
		return goerr.Wrap(ErrPermissionDenied, err.Error(), goerr.V("code", status.Code(err).String()))
	default:
		return err
	}
}
