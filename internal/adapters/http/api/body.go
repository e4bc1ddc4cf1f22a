package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/locapi/internal/domain/model"
)

// readObject decodes a JSON object body. An empty body is an empty object.
// Numbers keep their textual form.
func readObject(w http.ResponseWriter, r *http.Request, limit int64) (model.Record, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, ErrBodyTooLarge
		}
		return nil, fmt.Errorf("%w: read body: %w", ErrBadRequest, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return model.Record{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %w", ErrBadRequest, err)
	}
	if err := dec.Decode(new(json.RawMessage)); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: invalid JSON: trailing data", ErrBadRequest)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: body must be a JSON object", ErrBadRequest)
	}
	return model.Record(obj), nil
}
