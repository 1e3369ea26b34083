package pagination

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

var (
	ErrInvalidPageSize  = errors.New("pagination: invalid pageSize")
	ErrInvalidPageToken = errors.New("pagination: invalid pageToken")
)

// Params carries the raw paging inputs from a listing request. A zero PageSize
// means the caller did not ask for one; defaults and caps are applied by the service.
type Params struct {
	PageSize  int
	PageToken string
}

// FromRequest reads pageSize and pageToken from the query string.
func FromRequest(r *http.Request) (Params, error) {
	if r == nil {
		return Params{}, errors.New("pagination: nil request")
	}
	query := r.URL.Query()

	params := Params{PageToken: strings.TrimSpace(query.Get("pageToken"))}
	if params.PageToken != "" {
		if _, err := DecodeToken(params.PageToken); err != nil {
			return Params{}, err
		}
	}

	raw := strings.TrimSpace(query.Get("pageSize"))
	if raw == "" {
		return params, nil
	}
	size, err := strconv.Atoi(raw)
	if err != nil {
		return Params{}, fmt.Errorf("%w: must be an integer", ErrInvalidPageSize)
	}
	if size < 0 {
		return Params{}, fmt.Errorf("%w: must not be negative", ErrInvalidPageSize)
	}
	params.PageSize = size
	return params, nil
}
