package channel

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/code-payments/billing-bridge/billing"
)

const (
	fieldMethod = "method"
	fieldArgs   = "args"
)

func encodeRequest(method billing.Method, args map[string]any) (*structpb.Struct, error) {
	normalized := make(map[string]any, len(args))
	for k, v := range args {
		normalized[k] = normalizeArg(v)
	}

	return structpb.NewStruct(map[string]any{
		fieldMethod: string(method),
		fieldArgs:   normalized,
	})
}

func decodeRequest(req *structpb.Struct) (billing.Method, map[string]any, error) {
	if req == nil {
		return "", nil, fmt.Errorf("empty request")
	}

	m, ok := req.GetFields()[fieldMethod]
	if !ok {
		return "", nil, fmt.Errorf("missing %s", fieldMethod)
	}
	name, ok := m.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", nil, fmt.Errorf("%s must be a string", fieldMethod)
	}

	args := map[string]any{}
	if v, ok := req.GetFields()[fieldArgs]; ok {
		switch kind := v.GetKind().(type) {
		case *structpb.Value_StructValue:
			args = kind.StructValue.AsMap()
		case *structpb.Value_NullValue:
		default:
			return "", nil, fmt.Errorf("%s must be an object", fieldArgs)
		}
	}

	return billing.Method(name.StringValue), args, nil
}

func toValue(res any) (*structpb.Value, error) {
	return structpb.NewValue(normalizeArg(res))
}

func fromValue(v *structpb.Value) any {
	if v == nil {
		return nil
	}
	return v.AsInterface()
}

// normalizeArg converts the typed containers used by billing callers into the
// generic forms structpb accepts.
func normalizeArg(v any) any {
	switch t := v.(type) {
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out
	default:
		return v
	}
}
