package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

// Коды ошибок AWS, при которых хранилище считается временно недоступным.
var unavailableCodes = map[string]struct{}{
	"ProvisionedThroughputExceededException": {},
	"RequestLimitExceeded":                   {},
	"ThrottlingException":                    {},
	"InternalServerError":                    {},
	"ServiceUnavailable":                     {},
	"ResourceNotFoundException":              {},
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException"
}

func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		_, ok := unavailableCodes[apiErr.ErrorCode()]
		return ok
	}
	// Транспортные ошибки SDK приходят без API-кода.
	var opErr *smithy.OperationError
	return errors.As(err, &opErr)
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isUnavailable(err) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
