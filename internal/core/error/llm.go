package errx

import (
	"errors"
	"net/http"

	"google.golang.org/genai"
)

// WrapLLM marks a failure of the model provider. Provider rate limits keep
// their 429 status so clients can back off.
func WrapLLM(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return New(err, http.StatusTooManyRequests, LLMErrorMessage)
	}
	return New(err, http.StatusBadGateway, LLMErrorMessage)
}

// IsLLMError reports whether err came from the model provider API.
func IsLLMError(err error) bool {
	var apiErr genai.APIError
	return errors.As(err, &apiErr)
}
