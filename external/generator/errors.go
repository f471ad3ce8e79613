package generator

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/foxseedlab/meetingscribe/internal/generator"
)

const maxErrorBodyChars = 512

func classifyStatus(provider string, statusCode int, body string) error {
	body = strings.TrimSpace(body)
	if len(body) > maxErrorBodyChars {
		body = body[:maxErrorBodyChars]
	}
	var kind error
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		kind = generator.ErrAuthentication
	case statusCode == http.StatusTooManyRequests || statusCode >= http.StatusInternalServerError:
		kind = generator.ErrQuotaOrNetwork
	default:
		kind = generator.ErrRejected
	}
	return fmt.Errorf("%w: %s returned status %d: %s", kind, provider, statusCode, body)
}

func isHTTPSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
