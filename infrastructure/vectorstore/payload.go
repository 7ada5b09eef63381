package vectorstore

import (
	"fmt"

	qdrant "github.com/qdrant/go-client/qdrant"

	"photo-search/domain"
)

// mapToPayload converts a metadata map to the Qdrant payload representation.
func mapToPayload(metadata map[string]any) (map[string]*qdrant.Value, error) {
	payload := make(map[string]*qdrant.Value, len(metadata))
	for key, value := range metadata {
		converted, err := anyToValue(value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		payload[key] = converted
	}
	return payload, nil
}

func anyToValue(value any) (*qdrant.Value, error) {
	switch v := value.(type) {
	case string:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}, nil
	case bool:
		return &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: v}}, nil
	case int:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(v)}}, nil
	case int64:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: v}}, nil
	case float64:
		// JSON decoding hands us whole numbers as float64 too, keep them
		// integers so Qdrant range filters behave.
		if v == float64(int64(v)) {
			return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(v)}}, nil
		}
		return &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: v}}, nil
	case []string:
		values := make([]*qdrant.Value, 0, len(v))
		for _, item := range v {
			values = append(values, &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: item}})
		}
		return &qdrant.Value{Kind: &qdrant.Value_ListValue{ListValue: &qdrant.ListValue{Values: values}}}, nil
	case []any:
		values := make([]*qdrant.Value, 0, len(v))
		for _, item := range v {
			converted, err := anyToValue(item)
			if err != nil {
				return nil, err
			}
			values = append(values, converted)
		}
		return &qdrant.Value{Kind: &qdrant.Value_ListValue{ListValue: &qdrant.ListValue{Values: values}}}, nil
	case nil:
		return &qdrant.Value{Kind: &qdrant.Value_NullValue{}}, nil
	default:
		return nil, fmt.Errorf("unsupported payload type %T", value)
	}
}

// splitPayload extracts the object key from a point payload and converts the
// rest back into a metadata map.
func splitPayload(payload map[string]*qdrant.Value) (string, map[string]any) {
	var key string
	metadata := make(map[string]any, len(payload))
	for field, value := range payload {
		if field == payloadKey {
			key = value.GetStringValue()
			continue
		}
		metadata[field] = valueToAny(value)
	}
	return key, metadata
}

func valueToAny(value *qdrant.Value) any {
	switch kind := value.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		items := make([]any, 0, len(kind.ListValue.GetValues()))
		for _, item := range kind.ListValue.GetValues() {
			items = append(items, valueToAny(item))
		}
		return items
	default:
		return nil
	}
}

// buildFilter translates a domain filter into Qdrant must-conditions. All
// conditions are ANDed.
func buildFilter(filter *domain.MetadataFilter) *qdrant.Filter {
	if filter == nil || filter.IsZero() {
		return nil
	}

	var must []*qdrant.Condition
	if filter.Year != 0 {
		must = append(must, integerCondition(domain.MetaYear, int64(filter.Year)))
	}
	if filter.Month != 0 {
		must = append(must, integerCondition(domain.MetaMonth, int64(filter.Month)))
	}
	if filter.TimeOfDay != "" {
		must = append(must, keywordCondition(domain.MetaTimeOfDay, filter.TimeOfDay))
	}
	if filter.Location != "" {
		must = append(must, keywordCondition(domain.MetaLocation, filter.Location))
	}
	if filter.CameraMake != "" {
		must = append(must, keywordCondition(domain.MetaCameraMake, filter.CameraMake))
	}
	if filter.CameraModel != "" {
		must = append(must, keywordCondition(domain.MetaCameraModel, filter.CameraModel))
	}
	if filter.Tag != "" {
		// Keyword match on an array field matches any element.
		must = append(must, keywordCondition(domain.MetaTags, filter.Tag))
	}
	return &qdrant.Filter{Must: must}
}

func keywordCondition(field, value string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: field,
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

func integerCondition(field string, value int64) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: field,
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Integer{Integer: value},
				},
			},
		},
	}
}
