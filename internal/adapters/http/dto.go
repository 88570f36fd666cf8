package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	validatorv10 "github.com/go-playground/validator/v10"
)

type statusRequest struct {
	Text  string `json:"text" validate:"required,max=4000"`
	Speak *bool  `json:"speak"`
}

// lookupRequest allows one identifier to be absent so the assistant can ask for it.
type lookupRequest struct {
	MobileNumber string `json:"mobile_number" validate:"required_without=OrderID,max=20"`
	OrderID      string `json:"order_id" validate:"required_without=MobileNumber,max=32"`
}

type requestError struct {
	status  int
	payload map[string]any
}

func (e *requestError) Error() string {
	msg, _ := e.payload["error"].(string)
	return msg
}

// decodeAndValidate reads a JSON body into out and runs struct validation.
func decodeAndValidate(r *http.Request, v *validatorv10.Validate, out any) *requestError {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(out); err != nil {
		return &requestError{
			status:  http.StatusBadRequest,
			payload: map[string]any{"error": "invalid json"},
		}
	}
	if err := v.Struct(out); err != nil {
		return &requestError{
			status: http.StatusBadRequest,
			payload: map[string]any{
				"error":  "validation_failed",
				"fields": validationErrorsToMap(err),
			},
		}
	}
	return nil
}

func validationErrorsToMap(err error) map[string]string {
	out := map[string]string{}
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) {
		out["request"] = err.Error()
		return out
	}
	for _, fe := range ve {
		out[fe.Field()] = fe.Tag()
	}
	return out
}
