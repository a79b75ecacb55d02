package datasource

import (
	"strings"

	"github.com/dbchat-ai/dbchat-engine/pkg/apperrors"
)

// connectionCategory is a best-effort human-readable grouping of
// connection failures. Detection is substring matching on driver error
// text, which is inherently dialect-fragile; treat these as hints, not
// guarantees.
type connectionCategory struct {
	message   string
	fragments []string
}

var connectionCategories = []connectionCategory{
	{
		message: "no driver is available for this database dialect",
		fragments: []string{
			"unknown driver",
		},
	},
	{
		message: "authentication failed - check the username and password",
		fragments: []string{
			"access denied",
			"password authentication failed",
			"login failed",
			"login error",
			"authentication failed",
			"invalid username",
		},
	},
	{
		message: "the named database does not exist on the server",
		fragments: []string{
			"unknown database",
			"database \"",
			"cannot open database",
		},
	},
	{
		message: "the database host is unreachable",
		fragments: []string{
			"connection refused",
			"no such host",
			"network is unreachable",
			"no route to host",
			"connection reset",
		},
	},
}

// classifyConnectionError wraps err in the connection-failed category
// with a human-readable message derived from the driver error text.
func classifyConnectionError(err error) *apperrors.Error {
	if err == nil {
		return nil
	}
	if apperrors.IsTimeout(err) {
		return apperrors.New(apperrors.CategoryTimeout, "the connection attempt timed out", err)
	}

	lower := strings.ToLower(err.Error())
	for _, cat := range connectionCategories {
		for _, fragment := range cat.fragments {
			if strings.Contains(lower, fragment) {
				return apperrors.New(apperrors.CategoryConnectionFailed, cat.message, err)
			}
		}
	}
	return apperrors.New(apperrors.CategoryConnectionFailed, "could not connect to the database", err)
}
