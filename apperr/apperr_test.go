package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("habit 7: %w", ErrNotFound), http.StatusNotFound},
		{Invalid("name", "is required"), http.StatusBadRequest},
		{fmt.Errorf("create user: %w", ErrDuplicate), http.StatusConflict},
		{fmt.Errorf("%w: database is locked", ErrStorageUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: timeout", ErrRemoteService), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := HTTPStatus(c.err); got != c.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestValidationErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("profile: %w", Invalid("display_name", "is required"))
	if !errors.Is(err, ErrValidation) {
		t.Fatal("wrapped ValidationError should match ErrValidation")
	}
	var ve ValidationError
	if !errors.As(err, &ve) || ve.Field != "display_name" {
		t.Errorf("errors.As gave %+v", ve)
	}
	if ve.Error() != "display_name: is required" {
		t.Errorf("unexpected message %q", ve.Error())
	}
}
