package members

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

const hccsLogPrefix = "members:hccs"

// morDocument is the subset of the MOR column read by GetHCCs.
type morDocument struct {
	DiseaseCoefficients []json.RawMessage `json:"DiseaseCoefficients"`
}

// GetHCCs returns the disease coefficient entries of the named member.
func (s *Service) GetHCCs(ctx context.Context, input *MemberNameInput) (*HCCsOutput, error) {
	slog.Info(fmt.Sprintf("%s - name=%s", hccsLogPrefix, input.Name))

	m, err := s.findByName(ctx, hccsLogPrefix, strings.TrimSpace(input.Name), input.Scope)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return &HCCsOutput{Found: false}, nil
	}

	out := &HCCsOutput{Found: true}
	if len(m.MOR) == 0 {
		return out, nil
	}
	var mor morDocument
	if err := json.Unmarshal(m.MOR, &mor); err != nil {
		return nil, internalError(fmt.Sprintf("%s - member %s has malformed MOR", hccsLogPrefix, m.ID), err)
	}
	out.Coefficients = mor.DiseaseCoefficients
	return out, nil
}
