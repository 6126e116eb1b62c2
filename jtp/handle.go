package jtp

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
)

type JSFunc[IN any, OUT any] func(http.ResponseWriter, *http.Request, *IN) (*OUT, error)

func LogError(w http.ResponseWriter, status int, err error) {
	if err != nil {
		log.Printf("%v (http %d)", err, status)
	} else if status >= 400 {
		log.Printf("http %d", status)
	}
	http.Error(w, http.StatusText(status), status)
}

// readBody fills in from the request body. Raw bodies are taken as is.
func readBody(r *http.Request, in any) error {
	raw, ok := in.(*Raw)
	if !ok {
		if err := json.NewDecoder(r.Body).Decode(in); err != nil {
			return BadRequestError(err)
		}
		return nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return TooLargeError(err)
		}
		return BadRequestError(err)
	}
	*raw = body
	return nil
}

// Handle returns a http.HandlerFunc that automatically marshals and unmarshals the parameter and return type.
//
// If the IN type is declared as the value None, nothing is read from the request body.
// If the OUT type is declared as the value None, or the return value is nil, nothing is written in the response.
// Raw values are read and written as application/octet-stream.
//
// The function can return an error. nil returns http.StatusOK to the client. If the error contains a value
// of type HTTPError, the associated status is returned. Otherwise, we return InternalServerError.
// Errors are logged using standard logging.
func Handle[IN any, OUT any](handler JSFunc[IN, OUT]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		var in IN
		if _, ok := any(in).(None); !ok {
			if err := readBody(r, &in); err != nil {
				var httpErr *HTTPError
				errors.As(err, &httpErr)
				LogError(w, httpErr.StatusCode, httpErr.Err)
				return
			}
		}

		out, err := handler(w, r, &in)

		if err != nil {
			var httpErr *HTTPError
			if errors.As(err, &httpErr) {
				LogError(w, httpErr.StatusCode, httpErr.Err)
			} else {
				LogError(w, http.StatusInternalServerError, err)
			}
			return
		}

		if out == nil {
			return
		}

		if raw, ok := any(out).(*Raw); ok {
			w.Header().Set("Content-Type", contentBinary)
			_, _ = w.Write(*raw)
			return
		}

		w.Header().Set("Content-Type", contentJSON)
		if err = json.NewEncoder(w).Encode(out); err != nil {
			// It's probably too late to do anything at this point.
			log.Printf("unable to write response: %v", err)
		}
	}
}
