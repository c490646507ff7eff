package attendance

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"academy-backend/internal/platform/apperr"
)

const (
	DateLayout = "2006-01-02"

	StatusPresent = "present"
	StatusAbsent  = "absent"
)

// StudentAttendance is one roster entry merged with its stored attendance, if any.
type StudentAttendance struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	IsPresent bool   `json:"isPresent"`
	CameraOn  bool   `json:"cameraOn"`
	Notes     string `json:"notes"`
}

type BatchOption struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Submission is one element of a save_attendance body as the client sent it.
type Submission struct {
	StudentID FlexInt `json:"studentId"`
	ClassID   FlexInt `json:"classId"`
	Date      string  `json:"date"`
	IsPresent Flag    `json:"isPresent"`
	CameraOn  Flag    `json:"cameraOn"`
	Notes     string  `json:"notes"`
}

// DecodeSubmissions parses a save_attendance body. A body that is not a JSON array is
// malformed input; an element that cannot be coerced into a Submission rejects the
// whole save like any other invalid record.
func DecodeSubmissions(body []byte) ([]Submission, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return nil, apperr.Invalid("Invalid data format")
	}
	subs := make([]Submission, len(raw))
	for i, msg := range raw {
		if err := json.Unmarshal(msg, &subs[i]); err != nil {
			return nil, apperr.Aborted(fmt.Sprintf("record %d: %s", i+1, describeDecodeError(err)))
		}
	}
	return subs, nil
}

func describeDecodeError(err error) string {
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) {
		if te.Field == "" {
			return "record must be an object"
		}
		return "invalid value for " + te.Field
	}
	return err.Error()
}

type SaveResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

// record is a validated Submission ready to be written.
type record struct {
	StudentID int64
	BatchID   int64
	Date      string
	Status    string
	CameraOn  bool
	Notes     string
}

func (s Submission) normalize() (record, error) {
	studentID, ok := s.StudentID.Positive()
	if !ok {
		return record{}, fmt.Errorf("missing or invalid studentId")
	}
	batchID, ok := s.ClassID.Positive()
	if !ok {
		return record{}, fmt.Errorf("missing or invalid classId")
	}
	date, err := ParseDate(s.Date)
	if err != nil {
		return record{}, err
	}

	status := StatusAbsent
	if s.IsPresent {
		status = StatusPresent
	}
	return record{
		StudentID: studentID,
		BatchID:   batchID,
		Date:      date,
		Status:    status,
		CameraOn:  bool(s.CameraOn),
		Notes:     strings.TrimSpace(s.Notes),
	}, nil
}

// ParseDate accepts exactly YYYY-MM-DD and returns it unchanged.
func ParseDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("missing date")
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil || t.Format(DateLayout) != s {
		return "", fmt.Errorf("date must be YYYY-MM-DD")
	}
	return s, nil
}

// FlexInt is an id that may arrive as a JSON number or a numeric string. Anything
// else decodes without error but is not Positive.
type FlexInt struct {
	n     int64
	valid bool
}

func NewFlexInt(n int64) FlexInt { return FlexInt{n: n, valid: true} }

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	*f = FlexInt{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	*f = FlexInt{n: n, valid: true}
	return nil
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	if !f.valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(f.n, 10)), nil
}

func (f FlexInt) Positive() (int64, bool) {
	return f.n, f.valid && f.n > 0
}

// Flag is a boolean that tolerates the loose encodings HTML forms and older clients
// produce: true/false, 1/0, "1"/"0", "true"/"false", "on"/"off", "yes"/"no".
// null, absent and unrecognised strings are false. Objects and arrays are errors.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		*f = false
		return nil
	}
	switch b[0] {
	case 'n':
		*f = false
	case 't', 'f':
		var v bool
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = Flag(v)
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "1", "true", "on", "yes":
			*f = true
		default:
			*f = false
		}
	case '{', '[':
		return fmt.Errorf("cannot use %s as a boolean", b)
	default:
		n, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return fmt.Errorf("cannot use %s as a boolean", b)
		}
		*f = n != 0
	}
	return nil
}
