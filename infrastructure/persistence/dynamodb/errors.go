package dynamodb

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	pkgerrors "github.com/solm0/solmee-xyz-keystone/pkg/errors"
)

// txLabels names each item of a TransactWriteItems call so a cancellation
// reason can be reported against the record that caused it.
type txLabels struct {
	items []string
	// articleGuard is the index of the condition check on the article itself
	articleGuard int
	articleID    string
}

func newTxLabels(articleID string) *txLabels {
	return &txLabels{articleGuard: -1, articleID: articleID}
}

func (l *txLabels) add(label string) {
	l.items = append(l.items, label)
}

func (l *txLabels) guardArticle() {
	l.articleGuard = len(l.items)
	l.items = append(l.items, "article "+l.articleID)
}

// retryable API error codes surface as StoreUnavailable
var unavailableCodes = map[string]bool{
	"ProvisionedThroughputExceededException": true,
	"ThrottlingException":                    true,
	"RequestLimitExceeded":                   true,
	"InternalServerError":                    true,
	"ServiceUnavailable":                     true,
	"ResourceNotFoundException":              true,
	"TransactionInProgressException":         true,
}

// mapError translates DynamoDB failures into the application taxonomy
func mapError(op string, err error, labels *txLabels) error {
	if err == nil {
		return nil
	}
	if pkgerrors.GetAppError(err) != nil {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.NewStoreUnavailableError(op, err)
	}

	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		return mapCancellation(op, err, tce, labels)
	}

	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return pkgerrors.NewConstraintViolationError(op, "conditional check failed")
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		if unavailableCodes[ae.ErrorCode()] {
			return pkgerrors.NewStoreUnavailableError(op, err)
		}
		return pkgerrors.Wrap(err, op)
	}

	// transport failures after the SDK gave up retrying
	return pkgerrors.NewStoreUnavailableError(op, err)
}

func mapCancellation(op string, err error, tce *types.TransactionCanceledException, labels *txLabels) error {
	var failed []string
	for i, reason := range tce.CancellationReasons {
		code := ""
		if reason.Code != nil {
			code = *reason.Code
		}
		switch code {
		case "", "None":
			continue
		case "ConditionalCheckFailed":
			if labels != nil && i == labels.articleGuard {
				return pkgerrors.NewNotFoundError("article " + labels.articleID)
			}
			if labels != nil && i < len(labels.items) {
				failed = append(failed, labels.items[i])
			} else {
				failed = append(failed, "conditional check failed")
			}
		case "ThrottlingError", "ProvisionedThroughputExceeded", "TransactionConflict":
			return pkgerrors.NewStoreUnavailableError(op, err)
		default:
			return pkgerrors.Wrap(err, op)
		}
	}
	if len(failed) == 0 {
		return pkgerrors.NewStoreUnavailableError(op, err)
	}
	return pkgerrors.NewConstraintViolationError(op, strings.Join(failed, "; "))
}
