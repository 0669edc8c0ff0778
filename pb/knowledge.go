package pb

type QueryKnowledgeRequest struct {
	RequestID string `json:"requestId"`
	Query     string `json:"query"`
	TopK      int32  `json:"topK,omitempty"`
	Domain    string `json:"domain,omitempty"`
}

func (m *QueryKnowledgeRequest) Marshal() ([]byte, error) {
	e := encoder{}
	e.string(1, m.RequestID)
	e.string(2, m.Query)
	e.int32(3, m.TopK)
	e.string(4, m.Domain)
	return e.bytes(), nil
}

func (m *QueryKnowledgeRequest) Unmarshal(data []byte) error {
	*m = QueryKnowledgeRequest{}
	return decode(data, func(f *field) error {
		switch f.num {
		case 1:
			return f.string(&m.RequestID)
		case 2:
			return f.string(&m.Query)
		case 3:
			return f.int32(&m.TopK)
		case 4:
			return f.string(&m.Domain)
		}
		return nil
	})
}

// KnowledgeEntry is one retrieved domain knowledge snippet.
type KnowledgeEntry struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Source  string   `json:"source,omitempty"`
	Score   float64  `json:"score"`
	Tags    []string `json:"tags"`
}

func (m *KnowledgeEntry) Marshal() ([]byte, error) {
	e := encoder{}
	e.string(1, m.ID)
	e.string(2, m.Title)
	e.string(3, m.Content)
	e.string(4, m.Source)
	e.double(5, m.Score)
	e.strings(6, m.Tags)
	return e.bytes(), nil
}

func (m *KnowledgeEntry) Unmarshal(data []byte) error {
	*m = KnowledgeEntry{Tags: []string{}}
	return decode(data, func(f *field) error {
		switch f.num {
		case 1:
			return f.string(&m.ID)
		case 2:
			return f.string(&m.Title)
		case 3:
			return f.string(&m.Content)
		case 4:
			return f.string(&m.Source)
		case 5:
			return f.double(&m.Score)
		case 6:
			return f.appendString(&m.Tags)
		}
		return nil
	})
}

type QueryKnowledgeResponse struct {
	Success   bool              `json:"success"`
	SessionID string            `json:"sessionId"`
	Answer    string            `json:"answer"`
	Entries   []*KnowledgeEntry `json:"entries"`
	Error     string            `json:"error,omitempty"`
}

func (m *QueryKnowledgeResponse) Marshal() ([]byte, error) {
	e := encoder{}
	e.bool(1, m.Success)
	e.string(2, m.SessionID)
	e.string(3, m.Answer)
	for _, entry := range m.Entries {
		if err := e.message(4, entry); err != nil {
			return nil, err
		}
	}
	e.string(5, m.Error)
	return e.bytes(), nil
}

func (m *QueryKnowledgeResponse) Unmarshal(data []byte) error {
	*m = QueryKnowledgeResponse{Entries: []*KnowledgeEntry{}}
	return decode(data, func(f *field) error {
		switch f.num {
		case 1:
			return f.bool(&m.Success)
		case 2:
			return f.string(&m.SessionID)
		case 3:
			return f.string(&m.Answer)
		case 4:
			entry := &KnowledgeEntry{}
			if err := f.message(entry); err != nil {
				return err
			}
			m.Entries = append(m.Entries, entry)
			return nil
		case 5:
			return f.string(&m.Error)
		}
		return nil
	})
}
