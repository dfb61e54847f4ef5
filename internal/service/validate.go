package service

import (
	"encoding/json"

	"github.com/GriffinCanCode/fsguard/internal/shared/fserrors"
	"github.com/GriffinCanCode/fsguard/internal/types"
)

// prepareArguments checks params against the tool schema and returns a copy with
// defaults filled in. Unknown keys pass through untouched.
func prepareArguments(tool types.Tool, params map[string]interface{}) (map[string]interface{}, error) {
	args := make(map[string]interface{}, len(params)+len(tool.Parameters))
	for k, v := range params {
		args[k] = v
	}

	for _, p := range tool.Parameters {
		v, present := args[p.Name]
		if !present || v == nil {
			if p.Required {
				return nil, fserrors.Newf(fserrors.KindValidation, "missing required parameter: %s", p.Name)
			}
			if p.Default != nil {
				args[p.Name] = p.Default
			} else {
				delete(args, p.Name)
			}
			continue
		}
		if !matchesType(p.Type, v) {
			return nil, fserrors.Newf(fserrors.KindValidation, "parameter %s must be of type %s", p.Name, p.Type)
		}
		if p.Type == types.TypeArray && p.Items != "" {
			if err := checkItems(p, v); err != nil {
				return nil, err
			}
		}
	}
	return args, nil
}

func checkItems(p types.Parameter, v interface{}) error {
	switch items := v.(type) {
	case []interface{}:
		for i, item := range items {
			if !matchesType(p.Items, item) {
				return fserrors.Newf(fserrors.KindValidation, "parameter %s[%d] must be of type %s", p.Name, i, p.Items)
			}
		}
	case []string:
		if p.Items != types.TypeString {
			return fserrors.Newf(fserrors.KindValidation, "parameter %s must contain %s items", p.Name, p.Items)
		}
	}
	return nil
}

func matchesType(typ string, v interface{}) bool {
	switch typ {
	case types.TypeString:
		_, ok := v.(string)
		return ok
	case types.TypeBoolean:
		_, ok := v.(bool)
		return ok
	case types.TypeNumber:
		switch v.(type) {
		case float64, float32, int, int32, int64, uint32, uint64, json.Number:
			return true
		}
		return false
	case types.TypeArray:
		switch v.(type) {
		case []interface{}, []string:
			return true
		}
		return false
	case types.TypeObject:
		switch v.(type) {
		case map[string]interface{}, map[string]string:
			return true
		}
		return false
	default:
		return true
	}
}
