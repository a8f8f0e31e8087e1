package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/matzehuels/macroviewer/pkg/errors"
)

// List decodes a JSON array leniently: a non-array value decodes to an empty
// list and elements that fail to decode are skipped.
type List[T any] []T

// UnmarshalJSON implements json.Unmarshaler.
func (l *List[T]) UnmarshalJSON(data []byte) error {
	*l = List[T]{}
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil
	}
	out := make(List[T], 0, len(elems))
	for _, e := range elems {
		var v T
		if err := json.Unmarshal(e, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	*l = out
	return nil
}

// Object decodes a JSON object leniently: a non-object value decodes to an
// empty map and members that fail to decode are skipped.
type Object[V any] map[string]V

// UnmarshalJSON implements json.Unmarshaler.
func (o *Object[V]) UnmarshalJSON(data []byte) error {
	*o = Object[V]{}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil
	}
	out := make(Object[V], len(members))
	for k, m := range members {
		var v V
		if err := json.Unmarshal(m, &v); err != nil {
			continue
		}
		out[k] = v
	}
	*o = out
	return nil
}

// Raw is the dataset as produced by the offline build scripts, decoded
// without rejecting anything. [Normalize] turns it into a [Dataset].
type Raw struct {
	Meta                     RawMeta                              `json:"meta"`
	Nodes                    List[RawCountry]                     `json:"nodes"`
	Links                    List[RawLink]                        `json:"links"`
	Sectors                  List[RawSector]                      `json:"sectors"`
	TopProducersBySectorYear Object[Object[List[RawProducer]]]    `json:"topProducersBySectorYear"`
	SectorValuesBySectorYear Object[Object[List[RawSectorValue]]] `json:"sectorValuesBySectorYear"`
}

// RawMeta carries snapshot provenance.
type RawMeta struct {
	GeneratedAt  Text           `json:"generatedAt"`
	SnapshotDate Text           `json:"snapshotDate"`
	Sources      map[string]any `json:"sources"`
	LinkYears    List[Number]   `json:"linkYears"`
	SectorYears  List[Number]   `json:"sectorYears"`
}

// UnmarshalJSON tolerates a meta value of the wrong shape.
func (m *RawMeta) UnmarshalJSON(data []byte) error {
	type plain RawMeta
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		*m = RawMeta{}
		return nil
	}
	*m = RawMeta(p)
	return nil
}

type RawCountry struct {
	ISO2             Text   `json:"iso2"`
	ISO3             Text   `json:"iso3"`
	Country          Text   `json:"country"`
	GDPUsd           Number `json:"gdpUsd"`
	ExportsUsd       Number `json:"exportsUsd"`
	ImportsUsd       Number `json:"importsUsd"`
	ExportsEstimated Flag   `json:"exportsEstimated"`
	ImportsEstimated Flag   `json:"importsEstimated"`
	BubbleRadius     Number `json:"bubbleRadius"`
}

type RawLink struct {
	S         Text   `json:"s"`
	T         Text   `json:"t"`
	TradeUsd  Number `json:"tradeUsd"`
	Year      Number `json:"year"`
	Direction Text   `json:"direction"`
	Weight    Number `json:"weight"`
}

type RawSector struct {
	ID      Text       `json:"id"`
	Name    Text       `json:"name"`
	HSCodes List[Text] `json:"hsCodes"`
}

type RawProducer struct {
	ISO2       Text   `json:"iso2"`
	Value      Number `json:"value"`
	Provenance Text   `json:"provenance"`
}

type RawSectorValue struct {
	ISO2  Text   `json:"iso2"`
	Value Number `json:"value"`
}

// Decode reads a raw dataset from r.
//
// Decode only fails when the payload is not a JSON object at all: empty
// input and a literal null report [errors.ErrCodeDatasetMissing], anything
// else that is not an object reports [errors.ErrCodeInvalidDataset].
// Malformed fragments inside the object are repaired by the lenient field
// types and never cause an error.
func Decode(r io.Reader) (*Raw, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, errors.New(errors.ErrCodeDatasetMissing, "dataset is absent")
	}
	if data[0] != '{' {
		return nil, errors.New(errors.ErrCodeInvalidDataset, "dataset must be a JSON object")
	}
	var raw Raw
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDataset, err, "decode dataset")
	}
	return &raw, nil
}
