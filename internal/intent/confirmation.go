package intent

import "strings"

// confirmationKeywords gate the pending-collaboration check: a pending
// user-involved schedule exists, so the next turn might be the user's
// yes/no response to it rather than a new request.
var confirmationKeywords = []string{
	"好", "可以", "行", "同意", "确认", "ok", "yes", "不", "不行", "不要", "no",
}

var positiveConfirmationKeywords = []string{
	"好", "可以", "行", "同意", "确认", "ok", "yes",
}

// IsConfirmationResponse reports whether userInput looks like a reply to
// a pending collaboration prompt, affirmative or negative.
func IsConfirmationResponse(userInput string) bool {
	lower := strings.ToLower(userInput)
	for _, kw := range confirmationKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

var negativeConfirmationKeywords = []string{
	"不", "不行", "不要", "no",
}

// IsPositiveConfirmation reports whether a confirmation response
// (IsConfirmationResponse already true) reads as acceptance. A negative
// keyword wins over a positive one, so "不行" is a refusal.
func IsPositiveConfirmation(userInput string) bool {
	lower := strings.ToLower(userInput)
	for _, kw := range negativeConfirmationKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	for _, kw := range positiveConfirmationKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
