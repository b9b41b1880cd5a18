package qdrant

import (
	"encoding/json"
	"strconv"

	"github.com/poiesic/lectern/vectorindex"
)

type vectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type createCollectionRequest struct {
	Vectors vectorParams `json:"vectors"`
}

type createIndexRequest struct {
	FieldName   string `json:"field_name"`
	FieldSchema string `json:"field_schema"`
}

var requiredIndexes = []createIndexRequest{
	{FieldName: vectorindex.KeyDocumentID, FieldSchema: "keyword"},
	{FieldName: vectorindex.KeyChunkID, FieldSchema: "integer"},
}

type pointStruct struct {
	ID      string              `json:"id"`
	Vector  []float32           `json:"vector"`
	Payload vectorindex.Payload `json:"payload"`
}

type upsertRequest struct {
	Points []pointStruct `json:"points"`
}

type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
	Filter      *filter   `json:"filter,omitempty"`
}

type scrollRequest struct {
	Filter      *filter `json:"filter,omitempty"`
	Limit       int     `json:"limit"`
	WithPayload bool    `json:"with_payload"`
	WithVector  bool    `json:"with_vector"`
}

type deleteRequest struct {
	Filter *filter `json:"filter"`
}

// pointID accepts both the UUID and unsigned integer id forms Qdrant returns.
type pointID string

func (id *pointID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = pointID(s)
		return nil
	}
	var n uint64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = pointID(strconv.FormatUint(n, 10))
	return nil
}

func (id pointID) String() string {
	return string(id)
}

type scoredPoint struct {
	ID      pointID             `json:"id"`
	Score   float32             `json:"score"`
	Payload vectorindex.Payload `json:"payload"`
}

type searchResponse struct {
	Result []scoredPoint `json:"result"`
}

type scrollResponse struct {
	Result struct {
		Points []scoredPoint `json:"points"`
	} `json:"result"`
}

type matchValue struct {
	Value any `json:"value"`
}

type rangeValue struct {
	GTE *float64 `json:"gte,omitempty"`
	LT  *float64 `json:"lt,omitempty"`
}

type condition struct {
	Key   string      `json:"key"`
	Match *matchValue `json:"match,omitempty"`
	Range *rangeValue `json:"range,omitempty"`
}

type filter struct {
	Must   []condition `json:"must,omitempty"`
	Should []condition `json:"should,omitempty"`
}

func encodeFilter(f *vectorindex.Filter) *filter {
	if f == nil || (len(f.Must) == 0 && len(f.Should) == 0) {
		return nil
	}
	return &filter{Must: encodeConditions(f.Must), Should: encodeConditions(f.Should)}
}

func encodeConditions(conds []vectorindex.Condition) []condition {
	if len(conds) == 0 {
		return nil
	}
	out := make([]condition, len(conds))
	for i, c := range conds {
		out[i] = condition{Key: c.Key}
		if c.Range != nil {
			out[i].Range = &rangeValue{GTE: c.Range.GTE, LT: c.Range.LT}
		} else {
			out[i].Match = &matchValue{Value: c.Match}
		}
	}
	return out
}
