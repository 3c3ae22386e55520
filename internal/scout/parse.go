package scout

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/jace/internal/llm"
	"github.com/sells-group/jace/internal/model"
)

// Removed is a candidate the verify pass discarded.
type Removed struct {
	Name   string `json:"name"`
	Reason string `json:"reason,omitempty"`
}

type researchResponse struct {
	Requirements *[]json.RawMessage `json:"requirements"`
}

type verifyResponse struct {
	Verified *[]json.RawMessage `json:"verified_requirements"`
	Removed  []json.RawMessage  `json:"removed"`
}

func decodeResearch(raw json.RawMessage) ([]json.RawMessage, error) {
	var resp researchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, eris.Wrapf(llm.ErrMalformedResponse, "research response: %v", err)
	}
	if resp.Requirements == nil {
		return nil, eris.Wrap(llm.ErrMalformedResponse, `research response missing "requirements"`)
	}
	return *resp.Requirements, nil
}

func decodeVerify(raw json.RawMessage) ([]json.RawMessage, []Removed, error) {
	var resp verifyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, nil, eris.Wrapf(llm.ErrMalformedResponse, "verify response: %v", err)
	}
	if resp.Verified == nil {
		return nil, nil, eris.Wrap(llm.ErrMalformedResponse, `verify response missing "verified_requirements"`)
	}

	removed := make([]Removed, 0, len(resp.Removed))
	for _, r := range resp.Removed {
		fields, err := decodeFields(r)
		if err != nil {
			// Some models list removed items by name only.
			var name string
			if json.Unmarshal(r, &name) == nil {
				removed = append(removed, Removed{Name: name})
			}
			continue
		}
		removed = append(removed, Removed{Name: fields.str("name"), Reason: fields.str("reason")})
	}
	return *resp.Verified, removed, nil
}

type fields map[string]any

func decodeFields(raw json.RawMessage) (fields, error) {
	var f fields
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	if f == nil {
		return nil, eris.New("not an object")
	}
	return f, nil
}

// str returns a field as trimmed text. Numbers are formatted; null, missing,
// and non-scalar values yield "".
func (f fields) str(key string) string {
	switch v := f[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// confidence returns the confidence field, 0 when absent or null.
func (f fields) confidence() (float64, error) {
	switch v := f["confidence"].(type) {
	case nil:
		return 0, nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	}
	return 0, eris.Errorf("confidence has type %T", f["confidence"])
}

// parseRequirement converts one verified record. Unknown category or status
// values fall back to FORM and REQUIRED; a missing name or a confidence
// outside [0, 1] is an error.
func parseRequirement(raw json.RawMessage) (model.Requirement, error) {
	f, err := decodeFields(raw)
	if err != nil {
		return model.Requirement{}, eris.Wrap(model.ErrInvalidRequirement, err.Error())
	}
	conf, err := f.confidence()
	if err != nil {
		return model.Requirement{}, eris.Wrapf(model.ErrInvalidRequirement, "%q: %v", f.str("name"), err)
	}

	reasoning := f.str("source_reasoning")
	if vn := f.str("verification_notes"); vn != "" {
		if reasoning != "" {
			reasoning += " "
		}
		reasoning += "Verification: " + vn
	}

	return model.NewScoutRequirement(model.Requirement{
		Name:            f.str("name"),
		Code:            f.str("code"),
		Category:        model.ParseCategory(f.str("category")),
		Description:     f.str("description"),
		Authority:       f.str("authority"),
		Fee:             f.str("fee"),
		URL:             f.str("url"),
		Status:          model.ParseStatus(f.str("status")),
		Notes:           f.str("notes"),
		SourceReasoning: reasoning,
	}, conf)
}
