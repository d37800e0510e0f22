package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"smartaset/pkg/domain"
)

type wireVideoAudit struct {
	OpeningValid *bool `json:"openingValid"`
	ClosingValid *bool `json:"closingValid"`
	DurationOK   *bool `json:"durationOk"`
}

type wireDetail struct {
	Criterion      *string `json:"criterion"`
	Status         *string `json:"status"`
	Finding        *string `json:"finding"`
	Recommendation *string `json:"recommendation"`
}

// wireResult mirrors ResultSchema. Pointer fields tell "absent" from zero values;
// id and timestamp are not part of it.
type wireResult struct {
	AssetName        *string         `json:"assetName"`
	OverallScore     *float64        `json:"overallScore"`
	LogoDetected     *bool           `json:"logoDetected"`
	UserGuidePresent *bool           `json:"userGuidePresent"`
	VideoAudit       *wireVideoAudit `json:"videoAudit"`
	TyposFound       *[]string       `json:"typosFound"`
	Details          *[]wireDetail   `json:"details"`
	Summary          *string         `json:"summary"`
}

// ParseResult decodes a model reply into an AuditResult without ID or Timestamp.
// Any missing or mistyped field yields ErrMalformedResponse.
func ParseResult(raw string) (domain.AuditResult, error) {
	body := stripFence(raw)
	var w wireResult
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	if err := dec.Decode(&w); err != nil {
		return domain.AuditResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if dec.More() {
		return domain.AuditResult{}, fmt.Errorf("%w: trailing data after result", ErrMalformedResponse)
	}

	missing := func(field string) (domain.AuditResult, error) {
		return domain.AuditResult{}, fmt.Errorf("%w: missing %s", ErrMalformedResponse, field)
	}
	switch {
	case w.AssetName == nil:
		return missing("assetName")
	case w.OverallScore == nil:
		return missing("overallScore")
	case w.LogoDetected == nil:
		return missing("logoDetected")
	case w.UserGuidePresent == nil:
		return missing("userGuidePresent")
	case w.VideoAudit == nil:
		return missing("videoAudit")
	case w.VideoAudit.OpeningValid == nil:
		return missing("videoAudit.openingValid")
	case w.VideoAudit.ClosingValid == nil:
		return missing("videoAudit.closingValid")
	case w.VideoAudit.DurationOK == nil:
		return missing("videoAudit.durationOk")
	case w.TyposFound == nil:
		return missing("typosFound")
	case w.Details == nil:
		return missing("details")
	case w.Summary == nil:
		return missing("summary")
	}

	details := make([]domain.EvaluationDetail, 0, len(*w.Details))
	for i, d := range *w.Details {
		switch {
		case d.Criterion == nil:
			return missing(fmt.Sprintf("details[%d].criterion", i))
		case d.Status == nil:
			return missing(fmt.Sprintf("details[%d].status", i))
		case d.Finding == nil:
			return missing(fmt.Sprintf("details[%d].finding", i))
		case d.Recommendation == nil:
			return missing(fmt.Sprintf("details[%d].recommendation", i))
		}
		status, err := domain.ParseStatus(*d.Status)
		if err != nil {
			return domain.AuditResult{}, fmt.Errorf("%w: details[%d]: %v", ErrMalformedResponse, i, err)
		}
		details = append(details, domain.EvaluationDetail{
			Criterion:      *d.Criterion,
			Status:         status,
			Finding:        *d.Finding,
			Recommendation: *d.Recommendation,
		})
	}

	typos := append([]string{}, (*w.TyposFound)...)
	return domain.AuditResult{
		AssetName:        *w.AssetName,
		OverallScore:     *w.OverallScore,
		LogoDetected:     *w.LogoDetected,
		UserGuidePresent: *w.UserGuidePresent,
		VideoAudit: domain.VideoAudit{
			OpeningValid: *w.VideoAudit.OpeningValid,
			ClosingValid: *w.VideoAudit.ClosingValid,
			DurationOK:   *w.VideoAudit.DurationOK,
		},
		TyposFound: typos,
		Details:    details,
		Summary:    *w.Summary,
	}, nil
}

// stripFence removes a ```json fence some providers wrap around JSON output.
func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
