package http

import (
	"encoding/base64"
	"fmt"

	"github.com/aussiebroadwan/sqrl/internal/sqrl/domain"
	"github.com/aussiebroadwan/sqrl/pkg/cryptox"
	"github.com/aussiebroadwan/sqrl/pkg/sqrlsdk"
)

// decodeFields decodes base64url (unpadded) request fields into their
// destinations. Empty strings decode to nil.
func decodeFields(fields map[string]string, dst map[string]*[]byte) error {
	for name, s := range fields {
		if s == "" {
			continue
		}
		b, err := base64.RawURLEncoding.DecodeString(s)
		if err != nil {
			return fmt.Errorf("%s is not base64url: %w", name, err)
		}
		*dst[name] = b
	}
	return nil
}

func questionResponse(q *domain.AskQuestion) *sqrlsdk.Question {
	if q == nil {
		return nil
	}
	return &sqrlsdk.Question{
		Message: q.Message,
		Button1: buttonResponse(q.Button1),
		Button2: buttonResponse(q.Button2),
	}
}

func buttonResponse(b *domain.AskButton) *sqrlsdk.Button {
	if b == nil {
		return nil
	}
	return &sqrlsdk.Button{Label: b.Label, URL: b.URL}
}

func loginResponse(d domain.Decision) sqrlsdk.LoginResponse {
	resp := sqrlsdk.LoginResponse{
		Outcome:  string(d.Outcome),
		Reason:   string(d.Reason),
		UserID:   d.UserID,
		Question: questionResponse(d.Question),
	}
	if len(d.SUK) > 0 {
		resp.SUK = cryptox.EncodeKey(d.SUK)
	}
	if d.Ticket != nil {
		resp.Ticket = d.Ticket.Token
		exp := d.Ticket.ExpiresAt
		resp.ExpiresAt = &exp
	}
	return resp
}
