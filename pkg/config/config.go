// Package config loads configuration structs from YAML files and environment
// variables using `env`, `yaml`, `default` and `required` struct tags.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Validator allows config structs to implement custom validation logic.
// When a loaded struct implements it, Validate is called after all sources
// have been applied.
type Validator interface {
	Validate() error
}

// Load fills dest from an optional YAML file and then overlays environment
// variables. An empty path means env vars only. When allowFileErrors is true,
// unreadable or unparsable files fall back to env vars only.
func Load[T any](dest *T, path string, allowFileErrors bool) error {
	var provided map[string]bool
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !allowFileErrors {
				return fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, dest); err != nil {
			if !allowFileErrors {
				return fmt.Errorf("failed to parse config file: %w", err)
			}
		} else {
			// track which keys the file set, so an explicit false or zero
			// is not mistaken for unset and clobbered by a default
			var shadow map[string]any
			if err := yaml.Unmarshal(data, &shadow); err == nil {
				provided = yamlProvidedKeys(reflect.TypeOf(*dest), shadow)
			}
		}
	}
	return load(dest, provided)
}

// LoadFromEnv fills dest from environment variables, applies defaults and
// checks required fields.
func LoadFromEnv[T any](dest *T) error {
	return load(dest, nil)
}

func load[T any](dest *T, explicit map[string]bool) error {
	val := reflect.ValueOf(dest).Elem()
	fromEnv, err := applyEnv(val, val.Type())
	if err != nil {
		return err
	}
	for k := range fromEnv {
		if explicit == nil {
			explicit = make(map[string]bool)
		}
		explicit[k] = true
	}
	if err := applyDefaults(val, val.Type(), explicit); err != nil {
		return err
	}
	if v, ok := any(*dest).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}
	return nil
}

// yamlProvidedKeys walks the struct type next to the raw document and
// collects the fields the document actually set, keyed like applyEnv's set.
func yamlProvidedKeys(t reflect.Type, doc map[string]any) map[string]bool {
	set := make(map[string]bool)
	for i := 0; i < t.NumField(); i++ {
		fieldType := t.Field(i)
		tag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}
		raw, ok := doc[tag]
		if !ok {
			continue
		}
		if fieldType.Type.Kind() == reflect.Struct && fieldType.Type != durationType {
			if nested, ok := raw.(map[string]any); ok {
				for k := range yamlProvidedKeys(fieldType.Type, nested) {
					set[k] = true
				}
			}
			continue
		}
		set[t.Name()+"."+fieldType.Name] = true
	}
	return set
}

// applyEnv walks the struct and sets fields from their env tags. It returns
// the set of fields that were explicitly set, keyed by struct type + field
// name, so defaults are not applied over them.
func applyEnv(val reflect.Value, t reflect.Type) (map[string]bool, error) {
	set := make(map[string]bool)
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := t.Field(i)

		if field.Kind() == reflect.Struct && field.Type() != durationType {
			nested, err := applyEnv(field, fieldType.Type)
			if err != nil {
				return nil, err
			}
			for k, v := range nested {
				set[k] = v
			}
			continue
		}

		tag := fieldType.Tag.Get("env")
		if tag == "" {
			continue
		}
		envVal := os.Getenv(tag)
		if envVal == "" {
			continue
		}
		if err := setField(field, envVal); err != nil {
			return nil, fmt.Errorf("env %s: %w", tag, err)
		}
		set[t.Name()+"."+fieldType.Name] = true
	}
	return set, nil
}

// applyDefaults fills default tags into fields that are zero and were not
// explicitly set by the environment or the config file.
func applyDefaults(val reflect.Value, t reflect.Type, explicit map[string]bool) error {
	var result error
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := t.Field(i)

		if field.Kind() == reflect.Struct && field.Type() != durationType {
			if err := applyDefaults(field, fieldType.Type, explicit); err != nil {
				result = multierror.Append(result, err)
			}
			continue
		}

		defaultTag := fieldType.Tag.Get("default")
		required := strings.EqualFold(fieldType.Tag.Get("required"), "true") && defaultTag == ""
		key := t.Name() + "." + fieldType.Name

		if field.IsZero() && required && !explicit[key] {
			result = multierror.Append(result, fmt.Errorf(
				"required field env:%s / yaml:%s is missing",
				fieldType.Tag.Get("env"), fieldType.Tag.Get("yaml")))
			continue
		}

		if field.IsZero() && defaultTag != "" && !explicit[key] {
			if err := setField(field, defaultTag); err != nil {
				result = multierror.Append(result, fmt.Errorf("default for %s: %w", fieldType.Name, err))
			}
		}
	}
	return result
}

func setField(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", raw, err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int64:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid int %q: %w", raw, err)
		}
		field.SetInt(v)
	case reflect.Float64, reflect.Float32:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid float %q: %w", raw, err)
		}
		field.SetFloat(v)
	case reflect.Bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid bool %q: %w", raw, err)
		}
		field.SetBool(v)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		parts := strings.Split(raw, ",")
		slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
		for i, p := range parts {
			slice.Index(i).SetString(strings.TrimSpace(p))
		}
		field.Set(slice)
	default:
		return fmt.Errorf("unsupported kind %s", field.Kind())
	}
	return nil
}
