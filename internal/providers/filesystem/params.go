package filesystem

import (
	"fmt"

	"github.com/GriffinCanCode/fsguard/internal/shared/fserrors"
)

func stringParam(params map[string]interface{}, name string) (string, error) {
	v, ok := params[name].(string)
	if !ok || v == "" {
		return "", fserrors.New(fserrors.KindValidation, name+" parameter required")
	}
	return v, nil
}

func boolParam(params map[string]interface{}, name string, def bool) bool {
	if v, ok := params[name].(bool); ok {
		return v
	}
	return def
}

func stringsParam(params map[string]interface{}, name string) ([]string, error) {
	switch v := params[name].(type) {
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fserrors.New(fserrors.KindValidation, fmt.Sprintf("%s[%d] must be a string", name, i))
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fserrors.New(fserrors.KindValidation, name+" parameter required (array of paths)")
	}
}

func optionsParam(params map[string]interface{}) Options {
	def := DefaultOptions()
	return Options{
		Overwrite:  boolParam(params, "overwrite", def.Overwrite),
		CreateDirs: boolParam(params, "createDirs", def.CreateDirs),
	}
}
