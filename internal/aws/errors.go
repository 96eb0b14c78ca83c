package aws

import (
	"errors"

	"github.com/aws/smithy-go"
)

// apiErrorCode extracts the service error code from an AWS SDK error chain.
// Empty when the error did not come from an AWS API call.
func apiErrorCode(err error) string {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return ae.ErrorCode()
	}
	return ""
}
