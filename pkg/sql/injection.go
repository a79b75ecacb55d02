package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a heuristic SQL injection hit.
type InjectionCheckResult struct {
	IsSQLi      bool
	Fingerprint string
}

// CheckQuestionForInjection runs libinjection's SQLi heuristics over
// the user's natural-language question before it is embedded into a
// generation prompt. A question carrying injection payloads ("'; DROP
// TABLE users--") is rejected up front rather than being handed to the
// model as instructions.
//
// Ordinary English questions do not trip the detector; it keys on SQL
// token shapes, not words. Returns nil when nothing is detected.
func CheckQuestionForInjection(question string) *InjectionCheckResult {
	if question == "" {
		return nil
	}
	isSQLi, fingerprint := libinjection.IsSQLi(question)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{
		IsSQLi:      true,
		Fingerprint: string(fingerprint),
	}
}
