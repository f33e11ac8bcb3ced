package webutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"keep_up_backend/internal/model"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

// DecodeJSONBody はリクエストボディをデコードします。未知のフィールドはエラー
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return model.NewAppError("INVALID_INPUT", "request body is required", "", model.ErrInvalidInput)
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return model.NewAppError("INVALID_INPUT", fmt.Sprintf("malformed JSON body: %v", err), "",
			fmt.Errorf("%w: %v", model.ErrInvalidInput, err))
	}
	return nil
}

// DecodeAndValidate decodes the body into dst and runs struct validation.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if err := DecodeJSONBody(w, r, dst); err != nil {
		return err
	}
	if err := Validator.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return NewValidationErrorResponse(verrs)
		}
		return model.NewAppError("INVALID_INPUT", err.Error(), "", model.ErrInvalidInput)
	}
	return nil
}
