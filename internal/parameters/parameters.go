// Package parameters handles the estimator configuration strings, a comma-separated
// list of "key=value" pairs parsed into Params, a map[string]string.
//
// Example: "dueling,learning_rate=0.001,head_activation=linear".
package parameters

import (
	"github.com/pkg/errors"
	"slices"
	"strconv"
	"strings"
)

// Params represent generic configuration parameters.
type Params map[string]string

// Value is the set of types a parameter can be parsed to.
type Value interface {
	bool | int | float32 | float64 | string
}

// NewFromConfigString create params from user's configuration string.
// Keys without a value are mapped to "". Empty entries are ignored.
// See GetParamOr and PopParamOr to parse values from this map.
func NewFromConfigString(config string) Params {
	params := make(Params)
	for _, part := range strings.Split(config, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=") // Only the first '=' splits, values may contain '='.
		params[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return params
}

// PopParamOr is like GetParamOr, but it also deletes from the params map the retrieved parameter.
func PopParamOr[T Value](params Params, key string, defaultValue T) (T, error) {
	value, err := GetParamOr(params, key, defaultValue)
	if err != nil {
		return value, err
	}
	delete(params, key)
	return value, nil
}

// GetParamOr attempts to parse a parameter to the given type if the key is present, or returns the defaultValue
// if not.
//
// For bool types, a key without a value is interpreted as true.
func GetParamOr[T Value](params Params, key string, defaultValue T) (T, error) {
	value, exists := params[key]
	if !exists {
		return defaultValue, nil
	}
	var t T
	toT := func(v any) T { return v.(T) }
	switch any(defaultValue).(type) {
	case string:
		return toT(value), nil
	case int:
		if value == "" {
			return defaultValue, nil
		}
		parsedValue, err := strconv.Atoi(value)
		if err != nil {
			return t, errors.Wrapf(err, "failed to parse configuration %s=%q to int", key, value)
		}
		return toT(parsedValue), nil
	case float32:
		if value == "" {
			return defaultValue, nil
		}
		parsedValue, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return t, errors.Wrapf(err, "failed to parse configuration %s=%q to float", key, value)
		}
		return toT(float32(parsedValue)), nil
	case float64:
		if value == "" {
			return defaultValue, nil
		}
		parsedValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return t, errors.Wrapf(err, "failed to parse configuration %s=%q to float", key, value)
		}
		return toT(parsedValue), nil
	case bool:
		switch strings.ToLower(value) {
		case "", "true", "1": // Empty value is considered "true"
			return toT(true), nil
		case "false", "0":
			return toT(false), nil
		}
		return defaultValue, errors.Errorf("failed to parse configuration %s=%q to bool", key, value)
	}
	return defaultValue, nil
}

// CheckAllUsed returns an error listing the keys still in params: used after every consumer
// popped the parameters it knows, so typos don't go unnoticed.
func CheckAllUsed(params Params, owner string) error {
	if len(params) == 0 {
		return nil
	}
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return errors.Errorf("unknown parameters for %s: %q", owner, keys)
}
