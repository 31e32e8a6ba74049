package validation

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/aryan0dhankhar/leadintake/internal/domain"
)

// MaxResumeSize is the largest accepted resume in bytes
const MaxResumeSize int64 = 5_000_000

// AcceptedResumeTypes lists the PDF, DOC and DOCX content types
var AcceptedResumeTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// VisaOptions are the visa categories offered by the public form
var VisaOptions = []string{
	"Student Visa",
	"Work Visa",
	"Tourist Visa",
	"Business Visa",
	"Permanent Residency",
}

// Submission is raw form input keyed by field name
type Submission map[string]any

const (
	fieldFirstName       = "firstName"
	fieldLastName        = "lastName"
	fieldEmail           = "email"
	fieldLinkedInProfile = "linkedinProfile"
	fieldVisas           = "visasOfInterest"
	fieldResume          = "resume"
	fieldAdditionalInfo  = "additionalInfo"
)

var leadFieldOrder = []string{
	fieldFirstName,
	fieldLastName,
	fieldEmail,
	fieldLinkedInProfile,
	fieldVisas,
	fieldResume,
	fieldAdditionalInfo,
}

var leadMessages = messages{
	fieldFirstName: {"required": "First name is required"},
	fieldLastName:  {"required": "Last name is required"},
	fieldEmail:     {"*": "Invalid email address"},
	fieldLinkedInProfile: {
		"required": "Invalid URL",
		"url":      "Invalid URL",
		"contains": "Must be a LinkedIn URL",
	},
	fieldVisas: {"*": "Please select at least one visa type"},
}

const (
	msgResumeRequired = "Resume is required"
	msgResumeTooLarge = "Max file size is 5MB"
	msgResumeType     = "Only .pdf, .doc, and .docx files are accepted"
)

type leadForm struct {
	FirstName       string   `json:"firstName" validate:"required"`
	LastName        string   `json:"lastName" validate:"required"`
	Email           string   `json:"email" validate:"required,email"`
	LinkedInProfile string   `json:"linkedinProfile" validate:"required,url,contains=linkedin.com"`
	VisasOfInterest []string `json:"visasOfInterest" validate:"required,min=1"`
	AdditionalInfo  string   `json:"additionalInfo"`
}

// LeadValidator checks lead submissions
type LeadValidator struct {
	maxResumeSize int64
	acceptedTypes map[string]bool
}

// NewLeadValidator creates a validator with the standard resume limits
func NewLeadValidator() *LeadValidator {
	accepted := make(map[string]bool, len(AcceptedResumeTypes))
	for _, t := range AcceptedResumeTypes {
		accepted[t] = true
	}
	return &LeadValidator{
		maxResumeSize: MaxResumeSize,
		acceptedTypes: accepted,
	}
}

// Validate returns a draft when every rule holds, otherwise the full list of violations
func (v *LeadValidator) Validate(in Submission) (*domain.LeadDraft, []domain.FieldViolation) {
	var violations []domain.FieldViolation
	typeErrs := map[string]bool{}

	str := func(field string, trim bool) string {
		s, ok := stringValue(in[field], trim)
		if !ok {
			typeErrs[field] = true
			violations = append(violations, domain.FieldViolation{Field: field, Message: "must be a string"})
		}
		return s
	}

	form := leadForm{
		FirstName:       str(fieldFirstName, true),
		LastName:        str(fieldLastName, true),
		Email:           str(fieldEmail, true),
		LinkedInProfile: str(fieldLinkedInProfile, true),
		AdditionalInfo:  str(fieldAdditionalInfo, false),
	}

	visas, ok := stringList(in[fieldVisas])
	if !ok {
		typeErrs[fieldVisas] = true
		violations = append(violations, domain.FieldViolation{Field: fieldVisas, Message: "must be a list of strings"})
	}
	form.VisasOfInterest = visas

	violations = append(violations, structViolations(form, leadMessages, typeErrs)...)

	resume, resumeViolations := v.checkResume(in[fieldResume])
	violations = append(violations, resumeViolations...)

	if len(violations) > 0 {
		sortViolations(violations, leadFieldOrder)
		return nil, violations
	}

	return &domain.LeadDraft{
		FirstName:       form.FirstName,
		LastName:        form.LastName,
		Email:           form.Email,
		LinkedInProfile: form.LinkedInProfile,
		VisasOfInterest: form.VisasOfInterest,
		Resume:          resume,
		AdditionalInfo:  form.AdditionalInfo,
	}, nil
}

func (v *LeadValidator) checkResume(raw any) (domain.ResumeFile, []domain.FieldViolation) {
	files := resumeFiles(raw)
	if len(files) != 1 {
		return domain.ResumeFile{}, []domain.FieldViolation{{Field: fieldResume, Message: msgResumeRequired}}
	}

	f := files[0]
	if f.Size < 0 {
		return domain.ResumeFile{}, []domain.FieldViolation{{Field: fieldResume, Message: msgResumeRequired}}
	}
	var out []domain.FieldViolation
	if f.Size > v.maxResumeSize {
		out = append(out, domain.FieldViolation{Field: fieldResume, Message: msgResumeTooLarge})
	}
	if !v.acceptedTypes[normalizeMediaType(f.ContentType)] {
		out = append(out, domain.FieldViolation{Field: fieldResume, Message: msgResumeType})
	}
	f.ContentType = normalizeMediaType(f.ContentType)
	return f, out
}

func normalizeMediaType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

func stringValue(raw any, trim bool) (string, bool) {
	var s string
	switch t := raw.(type) {
	case nil:
		return "", true
	case string:
		s = t
	case []string:
		// multipart forms deliver every field as a list
		if len(t) == 0 {
			return "", true
		}
		if len(t) > 1 {
			return "", false
		}
		s = t[0]
	default:
		return "", false
	}
	if trim {
		s = strings.TrimSpace(s)
	}
	return s, true
}

func stringList(raw any) ([]string, bool) {
	var items []string
	switch t := raw.(type) {
	case nil:
		return nil, true
	case string:
		items = []string{t}
	case []string:
		items = t
	case []any:
		items = make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			items = append(items, s)
		}
	default:
		return nil, false
	}

	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out, true
}

// resumeFiles accepts typed files from multipart parsing or loosely typed JSON objects
func resumeFiles(raw any) []domain.ResumeFile {
	switch t := raw.(type) {
	case domain.ResumeFile:
		return []domain.ResumeFile{t}
	case *domain.ResumeFile:
		if t == nil {
			return nil
		}
		return []domain.ResumeFile{*t}
	case []domain.ResumeFile:
		return t
	case map[string]any:
		if f, ok := resumeFromMap(t); ok {
			return []domain.ResumeFile{f}
		}
	case []any:
		out := make([]domain.ResumeFile, 0, len(t))
		for _, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				return nil
			}
			f, ok := resumeFromMap(m)
			if !ok {
				return nil
			}
			out = append(out, f)
		}
		return out
	}
	return nil
}

func resumeFromMap(m map[string]any) (domain.ResumeFile, bool) {
	var f domain.ResumeFile
	f.FileName = firstString(m, "fileName", "name")
	f.ContentType = firstString(m, "contentType", "type")

	size, ok := numberValue(m["size"])
	if !ok {
		return domain.ResumeFile{}, false
	}
	f.Size = size
	return f, true
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// numberValue reads a byte count. Fractional, negative and out of range
// values are rejected rather than truncated.
func numberValue(raw any) (int64, bool) {
	switch n := raw.(type) {
	case float64:
		// 2^63 is the first float64 above MaxInt64
		if n != math.Trunc(n) || n < 0 || n >= math.Exp2(63) {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), n >= 0
	case int64:
		return n, n >= 0
	case json.Number:
		i, err := n.Int64()
		return i, err == nil && i >= 0
	default:
		return 0, false
	}
}
