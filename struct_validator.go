package ai

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	structValidateOnce sync.Once
	structValidate     *validator.Validate
)

func structValidator() *validator.Validate {
	structValidateOnce.Do(func() {
		structValidate = validator.New(validator.WithRequiredStructEnabled())
	})
	return structValidate
}

type structSchema[T any] struct{}

// Struct returns a Validator that decodes the input into T and checks its
// `validate` struct tags. The coerced T is returned on success.
func Struct[T any]() Validator {
	return structSchema[T]{}
}

func (structSchema[T]) TryParse(input any) (any, error) {
	b, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode input: %w", err)
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode into %T: %w", out, err)
	}
	if err := structValidator().Struct(out); err != nil {
		return nil, err
	}
	return out, nil
}
