package pb

// HealthCheckRequest is shared by every service's HealthCheck method.
type HealthCheckRequest struct {
	Service string `json:"service,omitempty"`
}

func (m *HealthCheckRequest) Marshal() ([]byte, error) {
	e := encoder{}
	e.string(1, m.Service)
	return e.bytes(), nil
}

func (m *HealthCheckRequest) Unmarshal(data []byte) error {
	*m = HealthCheckRequest{}
	return decode(data, func(f *field) error {
		if f.num == 1 {
			return f.string(&m.Service)
		}
		return nil
	})
}

type HealthCheckResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func (m *HealthCheckResponse) Marshal() ([]byte, error) {
	e := encoder{}
	e.string(1, m.Status)
	e.string(2, m.Version)
	e.int64(3, m.Timestamp)
	return e.bytes(), nil
}

func (m *HealthCheckResponse) Unmarshal(data []byte) error {
	*m = HealthCheckResponse{}
	return decode(data, func(f *field) error {
		switch f.num {
		case 1:
			return f.string(&m.Status)
		case 2:
			return f.string(&m.Version)
		case 3:
			return f.int64(&m.Timestamp)
		}
		return nil
	})
}

// HistorySession is one saved analysis or knowledge session.
type HistorySession struct {
	SessionID string `json:"sessionId"`
	Title     string `json:"title"`
	Summary   string `json:"summary,omitempty"`
	CreatedAt int64  `json:"createdAt"`
	ItemCount int32  `json:"itemCount"`
}

func (m *HistorySession) Marshal() ([]byte, error) {
	e := encoder{}
	e.string(1, m.SessionID)
	e.string(2, m.Title)
	e.string(3, m.Summary)
	e.int64(4, m.CreatedAt)
	e.int32(5, m.ItemCount)
	return e.bytes(), nil
}

func (m *HistorySession) Unmarshal(data []byte) error {
	*m = HistorySession{}
	return decode(data, func(f *field) error {
		switch f.num {
		case 1:
			return f.string(&m.SessionID)
		case 2:
			return f.string(&m.Title)
		case 3:
			return f.string(&m.Summary)
		case 4:
			return f.int64(&m.CreatedAt)
		case 5:
			return f.int32(&m.ItemCount)
		}
		return nil
	})
}

type ListHistoryRequest struct {
	Page     int32  `json:"page"`
	PageSize int32  `json:"pageSize"`
	Query    string `json:"query,omitempty"`
}

func (m *ListHistoryRequest) Marshal() ([]byte, error) {
	e := encoder{}
	e.int32(1, m.Page)
	e.int32(2, m.PageSize)
	e.string(3, m.Query)
	return e.bytes(), nil
}

func (m *ListHistoryRequest) Unmarshal(data []byte) error {
	*m = ListHistoryRequest{}
	return decode(data, func(f *field) error {
		switch f.num {
		case 1:
			return f.int32(&m.Page)
		case 2:
			return f.int32(&m.PageSize)
		case 3:
			return f.string(&m.Query)
		}
		return nil
	})
}

type ListHistoryResponse struct {
	Sessions []*HistorySession `json:"sessions"`
	Total    int32             `json:"total"`
	Page     int32             `json:"page"`
}

func (m *ListHistoryResponse) Marshal() ([]byte, error) {
	e := encoder{}
	for _, s := range m.Sessions {
		if err := e.message(1, s); err != nil {
			return nil, err
		}
	}
	e.int32(2, m.Total)
	e.int32(3, m.Page)
	return e.bytes(), nil
}

func (m *ListHistoryResponse) Unmarshal(data []byte) error {
	*m = ListHistoryResponse{Sessions: []*HistorySession{}}
	return decode(data, func(f *field) error {
		switch f.num {
		case 1:
			s := &HistorySession{}
			if err := f.message(s); err != nil {
				return err
			}
			m.Sessions = append(m.Sessions, s)
			return nil
		case 2:
			return f.int32(&m.Total)
		case 3:
			return f.int32(&m.Page)
		}
		return nil
	})
}

type DeleteHistorySessionRequest struct {
	SessionID string `json:"sessionId"`
}

func (m *DeleteHistorySessionRequest) Marshal() ([]byte, error) {
	e := encoder{}
	e.string(1, m.SessionID)
	return e.bytes(), nil
}

func (m *DeleteHistorySessionRequest) Unmarshal(data []byte) error {
	*m = DeleteHistorySessionRequest{}
	return decode(data, func(f *field) error {
		if f.num == 1 {
			return f.string(&m.SessionID)
		}
		return nil
	})
}

type DeleteHistorySessionResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (m *DeleteHistorySessionResponse) Marshal() ([]byte, error) {
	e := encoder{}
	e.bool(1, m.Success)
	e.string(2, m.Error)
	return e.bytes(), nil
}

func (m *DeleteHistorySessionResponse) Unmarshal(data []byte) error {
	*m = DeleteHistorySessionResponse{}
	return decode(data, func(f *field) error {
		switch f.num {
		case 1:
			return f.bool(&m.Success)
		case 2:
			return f.string(&m.Error)
		}
		return nil
	})
}
