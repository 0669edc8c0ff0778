package pb

type AnalyzeRequirementRequest struct {
	RequestID   string `json:"requestId"`
	Requirement string `json:"requirement"`
	Context     string `json:"context,omitempty"`
	Language    string `json:"language,omitempty"`
}

func (m *AnalyzeRequirementRequest) Marshal() ([]byte, error) {
	e := encoder{}
	e.string(1, m.RequestID)
	e.string(2, m.Requirement)
	e.string(3, m.Context)
	e.string(4, m.Language)
	return e.bytes(), nil
}

func (m *AnalyzeRequirementRequest) Unmarshal(data []byte) error {
	*m = AnalyzeRequirementRequest{}
	return decode(data, func(f *field) error {
		switch f.num {
		case 1:
			return f.string(&m.RequestID)
		case 2:
			return f.string(&m.Requirement)
		case 3:
			return f.string(&m.Context)
		case 4:
			return f.string(&m.Language)
		}
		return nil
	})
}

// Finding is one issue or gap found in a requirement.
type Finding struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion,omitempty"`
}

func (m *Finding) Marshal() ([]byte, error) {
	e := encoder{}
	e.string(1, m.ID)
	e.string(2, m.Category)
	e.string(3, m.Severity)
	e.string(4, m.Description)
	e.string(5, m.Suggestion)
	return e.bytes(), nil
}

func (m *Finding) Unmarshal(data []byte) error {
	*m = Finding{}
	return decode(data, func(f *field) error {
		switch f.num {
		case 1:
			return f.string(&m.ID)
		case 2:
			return f.string(&m.Category)
		case 3:
			return f.string(&m.Severity)
		case 4:
			return f.string(&m.Description)
		case 5:
			return f.string(&m.Suggestion)
		}
		return nil
	})
}

type AnalyzeRequirementResponse struct {
	Success           bool       `json:"success"`
	SessionID         string     `json:"sessionId"`
	Summary           string     `json:"summary"`
	Findings          []*Finding `json:"findings"`
	Error             string     `json:"error,omitempty"`
	CompletenessScore float64    `json:"completenessScore"`
}

func (m *AnalyzeRequirementResponse) Marshal() ([]byte, error) {
	e := encoder{}
	e.bool(1, m.Success)
	e.string(2, m.SessionID)
	e.string(3, m.Summary)
	for _, finding := range m.Findings {
		if err := e.message(4, finding); err != nil {
			return nil, err
		}
	}
	e.string(5, m.Error)
	e.double(6, m.CompletenessScore)
	return e.bytes(), nil
}

func (m *AnalyzeRequirementResponse) Unmarshal(data []byte) error {
	*m = AnalyzeRequirementResponse{Findings: []*Finding{}}
	return decode(data, func(f *field) error {
		switch f.num {
		case 1:
			return f.bool(&m.Success)
		case 2:
			return f.string(&m.SessionID)
		case 3:
			return f.string(&m.Summary)
		case 4:
			finding := &Finding{}
			if err := f.message(finding); err != nil {
				return err
			}
			m.Findings = append(m.Findings, finding)
			return nil
		case 5:
			return f.string(&m.Error)
		case 6:
			return f.double(&m.CompletenessScore)
		}
		return nil
	})
}
