package pb

// Field types understood by the test data generator.
const (
	FieldString = "string"
	FieldInt    = "int"
	FieldBool   = "bool"
	FieldEmail  = "email"
	FieldName   = "name"
	FieldDate   = "date"
)

// FieldSpec describes one column of generated records.
type FieldSpec struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (m *FieldSpec) Marshal() ([]byte, error) {
	e := encoder{}
	e.string(1, m.Name)
	e.string(2, m.Type)
	return e.bytes(), nil
}

func (m *FieldSpec) Unmarshal(data []byte) error {
	*m = FieldSpec{}
	return decode(data, func(f *field) error {
		switch f.num {
		case 1:
			return f.string(&m.Name)
		case 2:
			return f.string(&m.Type)
		}
		return nil
	})
}

type GenerateDataRequest struct {
	RequestID string       `json:"requestId"`
	Schema    []*FieldSpec `json:"schema"`
	Count     int32        `json:"count"`
	Locale    string       `json:"locale,omitempty"`
}

func (m *GenerateDataRequest) Marshal() ([]byte, error) {
	e := encoder{}
	e.string(1, m.RequestID)
	for _, spec := range m.Schema {
		if err := e.message(2, spec); err != nil {
			return nil, err
		}
	}
	e.int32(3, m.Count)
	e.string(4, m.Locale)
	return e.bytes(), nil
}

func (m *GenerateDataRequest) Unmarshal(data []byte) error {
	*m = GenerateDataRequest{Schema: []*FieldSpec{}}
	return decode(data, func(f *field) error {
		switch f.num {
		case 1:
			return f.string(&m.RequestID)
		case 2:
			spec := &FieldSpec{}
			if err := f.message(spec); err != nil {
				return err
			}
			m.Schema = append(m.Schema, spec)
			return nil
		case 3:
			return f.int32(&m.Count)
		case 4:
			return f.string(&m.Locale)
		}
		return nil
	})
}

// DataRecord is one generated row keyed by field name.
type DataRecord struct {
	Fields map[string]string `json:"fields"`
}

func (m *DataRecord) Marshal() ([]byte, error) {
	e := encoder{}
	e.stringMap(1, m.Fields)
	return e.bytes(), nil
}

func (m *DataRecord) Unmarshal(data []byte) error {
	*m = DataRecord{Fields: map[string]string{}}
	return decode(data, func(f *field) error {
		if f.num == 1 {
			return f.mapEntry(&m.Fields)
		}
		return nil
	})
}

type GenerateDataResponse struct {
	Success bool          `json:"success"`
	Records []*DataRecord `json:"records"`
	Error   string        `json:"error,omitempty"`
}

func (m *GenerateDataResponse) Marshal() ([]byte, error) {
	e := encoder{}
	e.bool(1, m.Success)
	for _, r := range m.Records {
		if err := e.message(2, r); err != nil {
			return nil, err
		}
	}
	e.string(3, m.Error)
	return e.bytes(), nil
}

func (m *GenerateDataResponse) Unmarshal(data []byte) error {
	*m = GenerateDataResponse{Records: []*DataRecord{}}
	return decode(data, func(f *field) error {
		switch f.num {
		case 1:
			return f.bool(&m.Success)
		case 2:
			r := &DataRecord{}
			if err := f.message(r); err != nil {
				return err
			}
			m.Records = append(m.Records, r)
			return nil
		case 3:
			return f.string(&m.Error)
		}
		return nil
	})
}
