package errors

// Error codes for standardized error responses
const (
	// Validation errors
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeInvalidPayload = "invalid_payload"

	// Resource errors
	ErrCodeSessionNotFound = "session_not_found"
	ErrCodeSlideNotFound   = "slide_not_found"

	// Quiz flow errors
	ErrCodeNotQuizSlide      = "not_quiz_slide"
	ErrCodeAlreadyAnswered   = "already_answered"
	ErrCodeQuestionNotActive = "question_not_active"
	ErrCodeSubmitFailed      = "submit_failed"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
)
