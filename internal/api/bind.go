package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hackgods/hospital-appointment-booking/internal/apperr"
	"github.com/hackgods/hospital-appointment-booking/internal/blob"
)

const maxJSONBody = 1 << 20

var (
	errInvalidBody = apperr.Validation("invalid_request_body", "could not parse request body")
	errInvalidID   = apperr.Validation("invalid_id", "id must be a valid UUID")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError turns validator output into the API's validation error.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(apperr.KindValidation, "invalid_request_body", err.Error(), err)
	}

	var missing, invalid []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
			continue
		}
		invalid = append(invalid, fe.Field())
	}
	if len(missing) > 0 {
		return apperr.Validationf("missing_fields", "missing required fields: %s", strings.Join(missing, ", "))
	}
	return apperr.Validationf("invalid_fields", "invalid value for: %s", strings.Join(invalid, ", "))
}

// decodeJSON reads the body into dst and runs its validate tags.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("missing_fields", "request body is required")
		}
		return errInvalidBody
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errInvalidID
	}
	return id, nil
}

func parseUUID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperr.Validationf("invalid_fields", "%s must be a valid UUID", field)
	}
	return id, nil
}

// fields is a request body that may arrive as JSON or as multipart form data
// with an "image" file part.
type fields struct {
	json  map[string]json.RawMessage
	form  map[string][]string
	image *blob.Upload
}

func readFields(w http.ResponseWriter, r *http.Request, maxUpload int64) (*fields, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		return readMultipart(w, r, maxUpload)
	}

	f := &fields{json: map[string]json.RawMessage{}}
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(&f.json); err != nil && !errors.Is(err, io.EOF) {
		return nil, errInvalidBody
	}
	return f, nil
}

func readMultipart(w http.ResponseWriter, r *http.Request, maxUpload int64) (*fields, error) {
	// leave room for the non-file parts
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload+maxJSONBody)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, blob.TooLarge(maxUpload)
		}
		return nil, errInvalidBody
	}

	f := &fields{form: r.MultipartForm.Value}
	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		if header.Size > maxUpload {
			file.Close()
			return nil, blob.TooLarge(maxUpload)
		}
		f.image = &blob.Upload{
			OriginalName: header.Filename,
			ContentType:  header.Header.Get("Content-Type"),
			Body:         file,
		}
	case errors.Is(err, http.ErrMissingFile):
	default:
		return nil, errInvalidBody
	}
	return f, nil
}

// close releases the uploaded file, if any.
func (f *fields) close() {
	if f.image == nil {
		return
	}
	if c, ok := f.image.Body.(io.Closer); ok {
		c.Close()
	}
}

func (f *fields) str(key string) (*string, error) {
	if f.form != nil {
		v, ok := f.form[key]
		if !ok || len(v) == 0 {
			return nil, nil
		}
		return &v[0], nil
	}
	raw, ok := f.json[key]
	if !ok || string(raw) == "null" {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, apperr.Validationf("invalid_fields", "%s must be a string", key)
	}
	return &s, nil
}

func (f *fields) integer(key string) (*int, error) {
	if f.form != nil {
		v, ok := f.form[key]
		if !ok || len(v) == 0 || strings.TrimSpace(v[0]) == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v[0]))
		if err != nil {
			return nil, apperr.Validationf("invalid_fields", "%s must be a whole number", key)
		}
		return &n, nil
	}
	raw, ok := f.json[key]
	if !ok || string(raw) == "null" {
		return nil, nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return nil, apperr.Validationf("invalid_fields", "%s must be a whole number", key)
		}
		if n, err = strconv.Atoi(strings.TrimSpace(s)); err != nil {
			return nil, apperr.Validationf("invalid_fields", "%s must be a whole number", key)
		}
	}
	return &n, nil
}

// uuids reads a list of ids. The second result is false when key is absent.
// Form values may repeat the key or hold a comma separated list.
func (f *fields) uuids(key string) ([]uuid.UUID, bool, error) {
	var raw []string
	if f.form != nil {
		v, ok := f.form[key]
		if !ok {
			return nil, false, nil
		}
		for _, item := range v {
			raw = append(raw, strings.Split(item, ",")...)
		}
	} else {
		msg, ok := f.json[key]
		if !ok || string(msg) == "null" {
			return nil, false, nil
		}
		if err := json.Unmarshal(msg, &raw); err != nil {
			var single string
			if json.Unmarshal(msg, &single) != nil {
				return nil, true, apperr.Validationf("invalid_fields", "%s must be a list of ids", key)
			}
			raw = []string{single}
		}
	}

	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		if strings.TrimSpace(s) == "" {
			continue
		}
		id, err := parseUUID(key, s)
		if err != nil {
			return nil, true, err
		}
		ids = append(ids, id)
	}
	return ids, true, nil
}

// value is str with a missing key read as "".
func (f *fields) value(key string) (string, error) {
	s, err := f.str(key)
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", nil
	}
	return *s, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0, apperr.Validationf("invalid_fields", "%s must be a number", key)
	}
	return n, nil
}
