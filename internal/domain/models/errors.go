package models

import (
	"errors"
	"fmt"
)

// RejectReason classifies why a single extraction record was dropped.
// Rejections are never fatal: the record is logged and skipped, the batch
// continues.
type RejectReason string

const (
	RejectUnknownSymbol  RejectReason = "unknown_symbol"
	RejectUnknownSource  RejectReason = "unknown_source"
	RejectBadKind        RejectReason = "bad_kind"
	RejectMissingPayload RejectReason = "missing_payload"
	RejectBadConfidence  RejectReason = "bad_confidence"
	RejectBadPrice       RejectReason = "bad_price"
)

// RejectedRecordError wraps a reject reason for callers that need to map it
// onto a transport response.
type RejectedRecordError struct {
	Reason RejectReason
}

func (e *RejectedRecordError) Error() string {
	return fmt.Sprintf("record rejected: %s", e.Reason)
}

// Rejected extracts the reject reason, if err is a rejection.
func Rejected(err error) (RejectReason, bool) {
	var re *RejectedRecordError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}

// ErrSymbolNotFound is returned for queries naming a symbol outside the
// tracked catalog.
var ErrSymbolNotFound = errors.New("symbol not in catalog")
