package pb

type GenerateTestCasesRequest struct {
	RequestID string `json:"requestId"`
	Story     string `json:"story"`
	MaxCases  int32  `json:"maxCases,omitempty"`
}

func (m *GenerateTestCasesRequest) Marshal() ([]byte, error) {
	e := encoder{}
	e.string(1, m.RequestID)
	e.string(2, m.Story)
	e.int32(3, m.MaxCases)
	return e.bytes(), nil
}

func (m *GenerateTestCasesRequest) Unmarshal(data []byte) error {
	*m = GenerateTestCasesRequest{}
	return decode(data, func(f *field) error {
		switch f.num {
		case 1:
			return f.string(&m.RequestID)
		case 2:
			return f.string(&m.Story)
		case 3:
			return f.int32(&m.MaxCases)
		}
		return nil
	})
}

type TestCase struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Preconditions []string `json:"preconditions"`
	Steps         []string `json:"steps"`
	Expected      string   `json:"expected"`
	Priority      string   `json:"priority"`
}

func (m *TestCase) Marshal() ([]byte, error) {
	e := encoder{}
	e.string(1, m.ID)
	e.string(2, m.Title)
	e.strings(3, m.Preconditions)
	e.strings(4, m.Steps)
	e.string(5, m.Expected)
	e.string(6, m.Priority)
	return e.bytes(), nil
}

func (m *TestCase) Unmarshal(data []byte) error {
	*m = TestCase{Preconditions: []string{}, Steps: []string{}}
	return decode(data, func(f *field) error {
		switch f.num {
		case 1:
			return f.string(&m.ID)
		case 2:
			return f.string(&m.Title)
		case 3:
			return f.appendString(&m.Preconditions)
		case 4:
			return f.appendString(&m.Steps)
		case 5:
			return f.string(&m.Expected)
		case 6:
			return f.string(&m.Priority)
		}
		return nil
	})
}

type GenerateTestCasesResponse struct {
	Success   bool        `json:"success"`
	TestCases []*TestCase `json:"testCases"`
	Error     string      `json:"error,omitempty"`
}

func (m *GenerateTestCasesResponse) Marshal() ([]byte, error) {
	e := encoder{}
	e.bool(1, m.Success)
	for _, tc := range m.TestCases {
		if err := e.message(2, tc); err != nil {
			return nil, err
		}
	}
	e.string(3, m.Error)
	return e.bytes(), nil
}

func (m *GenerateTestCasesResponse) Unmarshal(data []byte) error {
	*m = GenerateTestCasesResponse{TestCases: []*TestCase{}}
	return decode(data, func(f *field) error {
		switch f.num {
		case 1:
			return f.bool(&m.Success)
		case 2:
			tc := &TestCase{}
			if err := f.message(tc); err != nil {
				return err
			}
			m.TestCases = append(m.TestCases, tc)
			return nil
		case 3:
			return f.string(&m.Error)
		}
		return nil
	})
}
